// Package repository 包含了所有与数据库交互的逻辑。
package repository

import (
	"context"

	"gorm.io/gorm"

	"pai-photo-go/internal/model"
)

// TaggingStore 是打标后台工作协程依赖的存储门面。
// 单独抽成接口是为了让 worker 不感知 GORM，测试时可以用内存假实现替换。
type TaggingStore interface {
	// GetPhotoWithTags 按 ID 加载图片及其当前标签关联（不限定用户，worker 持有全库视角）。
	GetPhotoWithTags(photoID uint) (*model.Photo, error)
	// GetUserAiSettings 加载图片所属用户的 AI 配置，未配置时返回 gorm.ErrRecordNotFound。
	GetUserAiSettings(userID uint) (*model.UserAiSetting, error)
	// TopTagNames 返回用户最常用的指定类型标签名，供词表构建使用。
	TopTagNames(userID uint, types []model.TagType, limit int) ([]string, error)
	// Reconcile 在单个事务内完成一次打标结果的落库（见方法实现注释）。
	Reconcile(ctx context.Context, photo *model.Photo, selected, suggested []string) (applied, pending []string, err error)
}

// taggingStore 是 TaggingStore 接口的 GORM 实现。
type taggingStore struct {
	db      *gorm.DB
	tagRepo TagRepository
}

// NewTaggingStore 创建一个新的 TaggingStore 实例。
func NewTaggingStore(db *gorm.DB, tagRepo TagRepository) TaggingStore {
	return &taggingStore{db: db, tagRepo: tagRepo}
}

// GetPhotoWithTags 按 ID 加载图片及其标签关联。
func (s *taggingStore) GetPhotoWithTags(photoID uint) (*model.Photo, error) {
	var photo model.Photo
	err := s.db.Preload("Tags").First(&photo, photoID).Error
	if err != nil {
		return nil, err
	}
	return &photo, nil
}

// GetUserAiSettings 加载用户的 AI 配置。
func (s *taggingStore) GetUserAiSettings(userID uint) (*model.UserAiSetting, error) {
	var setting model.UserAiSetting
	err := s.db.Where("user_id = ?", userID).First(&setting).Error
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

// TopTagNames 返回用户最常用的指定类型标签名。
func (s *taggingStore) TopTagNames(userID uint, types []model.TagType, limit int) ([]string, error) {
	return s.tagRepo.TopNamesByUsage(userID, types, limit)
}

// Reconcile 在单个事务内落库一次打标结果：
//  1. selected 非空时，先整体移除图片现有的 Ai 类型标签关联，再逐个
//     find-or-create Ai 标签并重新关联——先删后加保证重复执行结果不变；
//  2. suggested 中尚无 (user_id, name) 候选行的，插入一条由本图片认领的候选，
//     已被其他图片认领的保持不动（先到先得）。
//
// 事务一次性提交，进程中途崩溃不会留下半套标签。
func (s *taggingStore) Reconcile(ctx context.Context, photo *model.Photo, selected, suggested []string) ([]string, []string, error) {
	var applied, pending []string

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(selected) > 0 {
			var currentAi []model.Tag
			for _, tag := range photo.Tags {
				if tag.Type == model.TagTypeAi {
					currentAi = append(currentAi, tag)
				}
			}
			if len(currentAi) > 0 {
				if err := tx.Model(photo).Association("Tags").Delete(currentAi); err != nil {
					return err
				}
			}

			for _, name := range selected {
				tag, err := findOrCreateTag(tx, name, model.TagTypeAi)
				if err != nil {
					return err
				}
				if err := tx.Model(photo).Association("Tags").Append(tag); err != nil {
					return err
				}
				applied = append(applied, name)
			}
		}

		for _, name := range suggested {
			var count int64
			err := tx.Model(&model.AiTagSuggestion{}).
				Where("user_id = ? AND name = ?", photo.UserID, name).
				Count(&count).Error
			if err != nil {
				return err
			}
			if count > 0 {
				continue
			}
			suggestion := model.AiTagSuggestion{
				UserID:  photo.UserID,
				PhotoID: photo.ID,
				Name:    name,
			}
			if err := tx.Create(&suggestion).Error; err != nil {
				return err
			}
			pending = append(pending, name)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return applied, pending, nil
}
