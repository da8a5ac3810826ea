// Package repository 包含了所有与数据库交互的逻辑。
package repository

import (
	"gorm.io/gorm"

	"pai-photo-go/internal/model"
)

// AiSettingRepository 接口定义了用户 AI 配置的持久化操作。
type AiSettingRepository interface {
	FindByUserID(userID uint) (*model.UserAiSetting, error)
	Save(setting *model.UserAiSetting) error
}

// aiSettingRepository 是 AiSettingRepository 接口的 GORM 实现。
type aiSettingRepository struct {
	db *gorm.DB
}

// NewAiSettingRepository 创建一个新的 AiSettingRepository 实例。
func NewAiSettingRepository(db *gorm.DB) AiSettingRepository {
	return &aiSettingRepository{db: db}
}

// FindByUserID 查找用户的 AI 配置，未配置时返回 gorm.ErrRecordNotFound。
func (r *aiSettingRepository) FindByUserID(userID uint) (*model.UserAiSetting, error) {
	var setting model.UserAiSetting
	err := r.db.Where("user_id = ?", userID).First(&setting).Error
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

// Save 创建或更新用户的 AI 配置。
func (r *aiSettingRepository) Save(setting *model.UserAiSetting) error {
	return r.db.Save(setting).Error
}
