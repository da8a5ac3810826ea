// Package model 定义了与数据库表对应的 Go 结构体。
package model

import "time"

// TagType 表示标签的来源类型。
type TagType int

const (
	// TagTypeManual 是用户手动输入的标签。
	TagTypeManual TagType = 0
	// TagTypeAi 是视觉模型自动生成并直接应用的标签。
	TagTypeAi TagType = 1
	// TagTypeExif 是从图片 EXIF 信息中提取的标签（拍摄年份、地点、机型等）。
	TagTypeExif TagType = 2
)

// Tag 对应于数据库中的 'tags' 表。
// (Name, Type) 组合唯一：同名标签按来源类型各存一行。
type Tag struct {
	ID   uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string  `gorm:"type:varchar(50);not null;uniqueIndex:idx_tags_name_type" json:"name"`
	Type TagType `gorm:"type:tinyint;not null;uniqueIndex:idx_tags_name_type" json:"type"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Tag) TableName() string {
	return "tags"
}

// Photo 对应于数据库中的 'photos' 表。
type Photo struct {
	ID            uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        uint       `gorm:"not null;index" json:"userId"`
	FilePath      string     `gorm:"type:varchar(255);not null" json:"filePath"`
	ThumbnailPath string     `gorm:"type:varchar(255);not null" json:"thumbnailPath"`
	Width         int        `gorm:"not null" json:"width"`
	Height        int        `gorm:"not null" json:"height"`
	TakenAt       *time.Time `json:"takenAt"`
	Location      string     `gorm:"type:varchar(100)" json:"location"`
	Description   string     `gorm:"type:varchar(500)" json:"description"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	Tags          []Tag      `gorm:"many2many:photo_tags;constraint:OnDelete:CASCADE" json:"tags"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Photo) TableName() string {
	return "photos"
}
