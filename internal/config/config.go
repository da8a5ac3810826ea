// Package config 负责加载和管理应用程序的配置。
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// 全局配置变量，存储从配置文件加载的所有设置。
var Conf Config

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Log      LogConfig      `mapstructure:"log"`
	Storage  StorageConfig  `mapstructure:"storage"`
	AI       AIConfig       `mapstructure:"ai"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// DatabaseConfig 存储所有数据库连接的配置。
type DatabaseConfig struct {
	MySQL MySQLConfig `mapstructure:"mysql"`
	Redis RedisConfig `mapstructure:"redis"`
}

// MySQLConfig 存储 MySQL 数据库的配置。
type MySQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig 存储 Redis 的配置。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// JWTConfig 存储 JWT 相关的配置。
type JWTConfig struct {
	Secret                 string `mapstructure:"secret"`
	AccessTokenExpireHours int    `mapstructure:"access_token_expire_hours"`
	RefreshTokenExpireDays int    `mapstructure:"refresh_token_expire_days"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// StorageConfig 存储图片文件存储相关的配置。
type StorageConfig struct {
	// WebRoot 是静态资源根目录，原图与缩略图保存在其下的 uploads 目录中。
	WebRoot string `mapstructure:"web_root"`
	// MaxUploadMB 限制单次上传的图片大小（MB）。
	MaxUploadMB int `mapstructure:"max_upload_mb"`
}

// AIConfig 存储 AI 打标管道相关的配置。
// API Key、模型等凭据按用户存储在数据库中，这里只有进程级的默认值与限制。
type AIConfig struct {
	// DefaultModel 在用户未配置模型时使用。
	DefaultModel string `mapstructure:"default_model"`
	// MaxTags 是每张图片直接应用的 AI 标签数量上限。
	MaxTags int `mapstructure:"max_tags"`
	// SuggestionLimit 是每张图片产生的候选标签数量上限。
	SuggestionLimit int `mapstructure:"suggestion_limit"`
	// RequestTimeoutSeconds 是单次视觉模型调用的超时时间。
	// 单消费者队列中一次挂起的调用会阻塞所有后续任务，必须设置有界超时。
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds"`
	// VocabularyCacheMinutes 是用户词表在 Redis 中的缓存时长（分钟）。
	VocabularyCacheMinutes int `mapstructure:"vocabulary_cache_minutes"`
}

// Init 初始化配置加载，从指定的路径读取 YAML 文件并解析到 Conf 变量中。
func Init(configPath string) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		panic(fmt.Errorf("读取配置文件失败: %w", err))
	}

	if err := viper.Unmarshal(&Conf); err != nil {
		panic(fmt.Errorf("无法将配置解析到结构体中: %w", err))
	}
}
