package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"pai-photo-go/internal/model"
)

// newTestDB 打开一个内存 SQLite 库并建好全部表。
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// 内存库跟连接共生，多开连接会各自看到一个空库
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.Tag{},
		&model.Photo{},
		&model.UserAiSetting{},
		&model.AiTagSuggestion{},
	))
	return db
}

func loadPhoto(t *testing.T, store TaggingStore, photoID uint) *model.Photo {
	t.Helper()
	photo, err := store.GetPhotoWithTags(photoID)
	require.NoError(t, err)
	return photo
}

func tagNamesByType(photo *model.Photo, tagType model.TagType) []string {
	var names []string
	for _, tag := range photo.Tags {
		if tag.Type == tagType {
			names = append(names, tag.Name)
		}
	}
	return names
}

func TestReconcileIdempotent(t *testing.T) {
	db := newTestDB(t)
	store := NewTaggingStore(db, NewTagRepository(db))

	photo := &model.Photo{UserID: 1, FilePath: "/uploads/original/a.jpg"}
	require.NoError(t, db.Create(photo).Error)

	selected := []string{"日落", "海滩"}

	applied, _, err := store.Reconcile(context.Background(), loadPhoto(t, store, photo.ID), selected, nil)
	require.NoError(t, err)
	assert.Equal(t, selected, applied)

	// 以相同列表再跑一次：关联集合必须保持不变，标签行不得重复
	_, _, err = store.Reconcile(context.Background(), loadPhoto(t, store, photo.ID), selected, nil)
	require.NoError(t, err)

	reloaded := loadPhoto(t, store, photo.ID)
	assert.ElementsMatch(t, selected, tagNamesByType(reloaded, model.TagTypeAi))
	assert.Len(t, reloaded.Tags, 2)

	var tagRows int64
	require.NoError(t, db.Model(&model.Tag{}).Count(&tagRows).Error)
	assert.EqualValues(t, 2, tagRows, "find-or-create 不应产生重复标签行")
}

func TestReconcileReplacesStaleAiTags(t *testing.T) {
	db := newTestDB(t)
	store := NewTaggingStore(db, NewTagRepository(db))

	photo := &model.Photo{UserID: 1}
	require.NoError(t, db.Create(photo).Error)

	_, _, err := store.Reconcile(context.Background(), loadPhoto(t, store, photo.ID), []string{"日落"}, nil)
	require.NoError(t, err)

	// 第二次结果不同：旧的 Ai 标签关联整体被替换
	_, _, err = store.Reconcile(context.Background(), loadPhoto(t, store, photo.ID), []string{"夜景", "城市"}, nil)
	require.NoError(t, err)

	reloaded := loadPhoto(t, store, photo.ID)
	assert.ElementsMatch(t, []string{"夜景", "城市"}, tagNamesByType(reloaded, model.TagTypeAi))
}

func TestReconcileKeepsManualTags(t *testing.T) {
	db := newTestDB(t)
	store := NewTaggingStore(db, NewTagRepository(db))

	manual := model.Tag{Name: "全家福", Type: model.TagTypeManual}
	require.NoError(t, db.Create(&manual).Error)
	photo := &model.Photo{UserID: 1, Tags: []model.Tag{manual}}
	require.NoError(t, db.Create(photo).Error)

	_, _, err := store.Reconcile(context.Background(), loadPhoto(t, store, photo.ID), []string{"日落"}, nil)
	require.NoError(t, err)

	reloaded := loadPhoto(t, store, photo.ID)
	assert.Equal(t, []string{"全家福"}, tagNamesByType(reloaded, model.TagTypeManual), "替换只针对 Ai 类型标签")
	assert.Equal(t, []string{"日落"}, tagNamesByType(reloaded, model.TagTypeAi))
}

func TestReconcileSuggestionFirstClaim(t *testing.T) {
	db := newTestDB(t)
	store := NewTaggingStore(db, NewTagRepository(db))

	first := &model.Photo{UserID: 1}
	second := &model.Photo{UserID: 1}
	require.NoError(t, db.Create(first).Error)
	require.NoError(t, db.Create(second).Error)

	_, pending, err := store.Reconcile(context.Background(), loadPhoto(t, store, first.ID), nil, []string{"露营"})
	require.NoError(t, err)
	assert.Equal(t, []string{"露营"}, pending)

	// 同名候选已被第一张图认领，第二张图不再插入
	_, pending, err = store.Reconcile(context.Background(), loadPhoto(t, store, second.ID), nil, []string{"露营"})
	require.NoError(t, err)
	assert.Empty(t, pending)

	var suggestions []model.AiTagSuggestion
	require.NoError(t, db.Find(&suggestions).Error)
	require.Len(t, suggestions, 1)
	assert.Equal(t, first.ID, suggestions[0].PhotoID)
	assert.Equal(t, uint(1), suggestions[0].UserID)
	assert.False(t, suggestions[0].IsAdopted)
}

func TestReconcileSuggestionOtherUserUnaffected(t *testing.T) {
	db := newTestDB(t)
	store := NewTaggingStore(db, NewTagRepository(db))

	mine := &model.Photo{UserID: 1}
	theirs := &model.Photo{UserID: 2}
	require.NoError(t, db.Create(mine).Error)
	require.NoError(t, db.Create(theirs).Error)

	_, _, err := store.Reconcile(context.Background(), loadPhoto(t, store, mine.ID), nil, []string{"露营"})
	require.NoError(t, err)

	// 候选的唯一性按用户隔离，另一位用户可以认领同名候选
	_, pending, err := store.Reconcile(context.Background(), loadPhoto(t, store, theirs.ID), nil, []string{"露营"})
	require.NoError(t, err)
	assert.Equal(t, []string{"露营"}, pending)
}
