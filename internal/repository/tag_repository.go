// Package repository 包含了所有与数据库交互的逻辑。
package repository

import (
	"errors"

	"gorm.io/gorm"

	"pai-photo-go/internal/model"
)

// TagRepository 接口定义了标签数据的持久化操作。
type TagRepository interface {
	// FindOrCreate 按 (name, type) 查找标签，不存在则创建。
	FindOrCreate(name string, tagType model.TagType) (*model.Tag, error)
	// TopNamesByUsage 返回用户使用频次最高的标签名（按次数降序，同次数按名称升序）。
	TopNamesByUsage(userID uint, types []model.TagType, limit int) ([]string, error)
}

// tagRepository 是 TagRepository 接口的 GORM 实现。
type tagRepository struct {
	db *gorm.DB
}

// NewTagRepository 创建一个新的 TagRepository 实例。
func NewTagRepository(db *gorm.DB) TagRepository {
	return &tagRepository{db: db}
}

// FindOrCreate 按 (name, type) 查找标签，不存在则创建。
// (name, type) 上有唯一索引，单消费者场景下不会出现重复插入。
func (r *tagRepository) FindOrCreate(name string, tagType model.TagType) (*model.Tag, error) {
	return findOrCreateTag(r.db, name, tagType)
}

// findOrCreateTag 是 FindOrCreate 的实现，抽出以便在事务中复用。
func findOrCreateTag(db *gorm.DB, name string, tagType model.TagType) (*model.Tag, error) {
	var tag model.Tag
	err := db.Where("name = ? AND type = ?", name, tagType).First(&tag).Error
	if err == nil {
		return &tag, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	tag = model.Tag{Name: name, Type: tagType}
	if err := db.Create(&tag).Error; err != nil {
		return nil, err
	}
	return &tag, nil
}

// TopNamesByUsage 聚合 photo_tags 关联，统计用户各标签的使用次数。
func (r *tagRepository) TopNamesByUsage(userID uint, types []model.TagType, limit int) ([]string, error) {
	if limit <= 0 || len(types) == 0 {
		return nil, nil
	}

	var names []string
	err := r.db.Table("tags").
		Select("tags.name").
		Joins("JOIN photo_tags ON photo_tags.tag_id = tags.id").
		Joins("JOIN photos ON photos.id = photo_tags.photo_id").
		Where("photos.user_id = ? AND tags.type IN ?", userID, types).
		Group("tags.name").
		Order("COUNT(*) DESC, tags.name ASC").
		Limit(limit).
		Pluck("tags.name", &names).Error
	if err != nil {
		return nil, err
	}
	return names, nil
}
