// Package repository 包含了所有与数据库交互的逻辑。
package repository

import (
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pai-photo-go/internal/model"
)

// PhotoFilter 描述了图片列表查询的过滤与分页条件。
type PhotoFilter struct {
	Tag      string     // 精确匹配某个标签名
	Keyword  string     // 对描述与文件路径做 LIKE 子串匹配
	From     *time.Time // 拍摄/上传时间下界
	To       *time.Time // 拍摄/上传时间上界
	Sort     string     // createdDesc(默认) / createdAsc / takenDesc / takenAsc
	Page     int
	PageSize int
}

// PhotoRepository 接口定义了图片数据的持久化操作。
type PhotoRepository interface {
	Create(photo *model.Photo) error
	FindByID(photoID, userID uint) (*model.Photo, error)
	FindWithFilter(userID uint, filter PhotoFilter) ([]model.Photo, int64, error)
	Update(photo *model.Photo) error
	ReplaceTags(photo *model.Photo, tags []model.Tag) error
	Delete(photo *model.Photo) error
}

// photoRepository 是 PhotoRepository 接口的 GORM 实现。
type photoRepository struct {
	db *gorm.DB
}

// NewPhotoRepository 创建一个新的 PhotoRepository 实例。
func NewPhotoRepository(db *gorm.DB) PhotoRepository {
	return &photoRepository{db: db}
}

// Create 在数据库中创建一张图片记录，同时写入已挂载的标签关联。
func (r *photoRepository) Create(photo *model.Photo) error {
	return r.db.Create(photo).Error
}

// FindByID 按 ID 查找属于指定用户的图片（预加载标签）。
func (r *photoRepository) FindByID(photoID, userID uint) (*model.Photo, error) {
	var photo model.Photo
	err := r.db.Preload("Tags").
		Where("id = ? AND user_id = ?", photoID, userID).
		First(&photo).Error
	if err != nil {
		return nil, err
	}
	return &photo, nil
}

// FindWithFilter 按过滤条件分页检索用户的图片。
// 关键字检索是简单的 LIKE 子串匹配，不做任何语义扩展。
func (r *photoRepository) FindWithFilter(userID uint, filter PhotoFilter) ([]model.Photo, int64, error) {
	query := r.db.Model(&model.Photo{}).Where("photos.user_id = ?", userID)

	if tag := strings.TrimSpace(filter.Tag); tag != "" {
		query = query.Where(
			"photos.id IN (?)",
			r.db.Table("photo_tags").
				Select("photo_tags.photo_id").
				Joins("JOIN tags ON tags.id = photo_tags.tag_id").
				Where("tags.name = ?", tag),
		)
	}

	if keyword := strings.TrimSpace(filter.Keyword); keyword != "" {
		like := "%" + keyword + "%"
		query = query.Where("photos.description LIKE ? OR photos.file_path LIKE ?", like, like)
	}

	if filter.From != nil {
		query = query.Where("COALESCE(photos.taken_at, photos.created_at) >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("COALESCE(photos.taken_at, photos.created_at) <= ?", *filter.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	switch strings.ToLower(strings.TrimSpace(filter.Sort)) {
	case "createdasc":
		query = query.Order("photos.created_at ASC")
	case "takendesc":
		query = query.Order("COALESCE(photos.taken_at, photos.created_at) DESC")
	case "takenasc":
		query = query.Order("COALESCE(photos.taken_at, photos.created_at) ASC")
	default:
		query = query.Order("photos.created_at DESC")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = 20
	}

	var photos []model.Photo
	err := query.Preload("Tags").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&photos).Error
	if err != nil {
		return nil, 0, err
	}
	return photos, total, nil
}

// Update 更新数据库中一张已存在的图片记录。
func (r *photoRepository) Update(photo *model.Photo) error {
	return r.db.Save(photo).Error
}

// ReplaceTags 将图片的标签关联整体替换为给定集合。
func (r *photoRepository) ReplaceTags(photo *model.Photo, tags []model.Tag) error {
	return r.db.Model(photo).Association("Tags").Replace(tags)
}

// Delete 删除图片记录及其标签关联（标签本身保留）。
func (r *photoRepository) Delete(photo *model.Photo) error {
	return r.db.Select(clause.Associations).Delete(photo).Error
}
