// Package repository 包含了所有与数据库交互的逻辑。
package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"pai-photo-go/internal/model"
)

// SuggestionRepository 接口定义了 AI 候选标签的持久化操作。
type SuggestionRepository interface {
	FindPendingByUserID(userID uint) ([]model.AiTagSuggestion, error)
	FindByID(suggestionID, userID uint) (*model.AiTagSuggestion, error)
	// Adopt 将候选标签标记为已采纳，并把同名 Manual 标签挂到认领它的图片上。
	Adopt(suggestion *model.AiTagSuggestion) error
	Delete(suggestion *model.AiTagSuggestion) error
}

// suggestionRepository 是 SuggestionRepository 接口的 GORM 实现。
type suggestionRepository struct {
	db *gorm.DB
}

// NewSuggestionRepository 创建一个新的 SuggestionRepository 实例。
func NewSuggestionRepository(db *gorm.DB) SuggestionRepository {
	return &suggestionRepository{db: db}
}

// FindPendingByUserID 返回用户所有未采纳的候选标签，按创建时间倒序。
func (r *suggestionRepository) FindPendingByUserID(userID uint) ([]model.AiTagSuggestion, error) {
	var suggestions []model.AiTagSuggestion
	err := r.db.Where("user_id = ? AND is_adopted = ?", userID, false).
		Order("created_at DESC").
		Find(&suggestions).Error
	return suggestions, err
}

// FindByID 按 ID 查找属于指定用户的候选标签。
func (r *suggestionRepository) FindByID(suggestionID, userID uint) (*model.AiTagSuggestion, error) {
	var suggestion model.AiTagSuggestion
	err := r.db.Where("id = ? AND user_id = ?", suggestionID, userID).
		First(&suggestion).Error
	if err != nil {
		return nil, err
	}
	return &suggestion, nil
}

// Adopt 在一个事务内完成采纳：标记候选行，并将同名 Manual 标签关联到认领图片。
// 认领图片已被删除时仅标记候选行，不视为错误。
func (r *suggestionRepository) Adopt(suggestion *model.AiTagSuggestion) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		suggestion.IsAdopted = true
		suggestion.AdoptedAt = &now
		if err := tx.Save(suggestion).Error; err != nil {
			return err
		}

		var photo model.Photo
		err := tx.Preload("Tags").First(&photo, suggestion.PhotoID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}

		tag, err := findOrCreateTag(tx, suggestion.Name, model.TagTypeManual)
		if err != nil {
			return err
		}
		for _, existing := range photo.Tags {
			if existing.ID == tag.ID {
				return nil
			}
		}
		return tx.Model(&photo).Association("Tags").Append(tag)
	})
}

// Delete 删除（忽略）一条候选标签。
func (r *suggestionRepository) Delete(suggestion *model.AiTagSuggestion) error {
	return r.db.Delete(suggestion).Error
}
