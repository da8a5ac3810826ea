package database

import (
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"pai-photo-go/internal/model"
	"pai-photo-go/pkg/log"
)

var DB *gorm.DB

// InitMySQL 初始化 MySQL 数据库连接
func InitMySQL(dsn string) {
	var err error
	DB, err = gorm.Open(mysql.Open(dsn), &gorm.Config{
		// 可以在这里添加 GORM 的配置
	})
	if err != nil {
		log.Fatal("failed to connect database", err)
	}

	// 配置连接池
	sqlDB, err := DB.DB()
	if err != nil {
		log.Fatal("failed to get sql.DB", err)
	}

	sqlDB.SetMaxIdleConns(10)           // 设置空闲连接池中连接的最大数量
	sqlDB.SetMaxOpenConns(100)          // 设置打开数据库连接的最大数量
	sqlDB.SetConnMaxLifetime(time.Hour) // 设置了连接可复用的最大时间

	log.Info("MySQL database connected successfully")
}

// Migrate 自动建表并补齐唯一索引。
// tags 表的 (name, type) 与 ai_tag_suggestions 表的 (user_id, name) 唯一约束
// 是打标管道幂等性的前提，由模型上的 uniqueIndex 标记声明。
func Migrate() {
	err := DB.AutoMigrate(
		&model.User{},
		&model.Tag{},
		&model.Photo{},
		&model.UserAiSetting{},
		&model.AiTagSuggestion{},
	)
	if err != nil {
		log.Fatal("failed to migrate database schema", err)
	}
	log.Info("Database schema migrated successfully")
}
