// Package model 定义了与数据库表对应的 Go 结构体。
package model

import "time"

// UserAiSetting 对应于数据库中的 'user_ai_settings' 表。
// 每个用户最多一行，保存其自配的视觉模型凭据；AI 打标是按用户自愿开启的功能。
type UserAiSetting struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex" json:"userId"`
	Provider  string    `gorm:"type:varchar(50);not null;default:'OpenAI'" json:"provider"`
	Model     string    `gorm:"type:varchar(200);not null" json:"model"`
	Endpoint  *string   `gorm:"type:varchar(500)" json:"endpoint"`
	ApiKey    string    `gorm:"type:varchar(512);not null" json:"-"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (UserAiSetting) TableName() string {
	return "user_ai_settings"
}

// AiTagSuggestion 对应于数据库中的 'ai_tag_suggestions' 表。
// 候选标签对用户全局唯一（user_id + name），由第一张产生它的图片认领，
// 直到用户采纳或忽略为止。
type AiTagSuggestion struct {
	ID        uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint       `gorm:"not null;uniqueIndex:idx_suggestions_user_name" json:"userId"`
	PhotoID   uint       `gorm:"not null;index" json:"photoId"`
	Name      string     `gorm:"type:varchar(50);not null;uniqueIndex:idx_suggestions_user_name" json:"name"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	IsAdopted bool       `gorm:"not null;default:false" json:"isAdopted"`
	AdoptedAt *time.Time `json:"adoptedAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (AiTagSuggestion) TableName() string {
	return "ai_tag_suggestions"
}
