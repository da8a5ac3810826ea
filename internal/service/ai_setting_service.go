package service

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"pai-photo-go/internal/model"
	"pai-photo-go/internal/repository"
	"pai-photo-go/internal/tagging"
)

// AiSettingView 是对外暴露的 AI 配置视图。
// API Key 永远不回传，只回传是否已配置的标记。
type AiSettingView struct {
	Provider  string `json:"provider"`
	Model     string `json:"model"`
	Endpoint  string `json:"endpoint"`
	HasApiKey bool   `json:"hasApiKey"`
}

// AiSettingUpdate 是一次配置保存请求。
// ApiKey 为 nil 表示保留现有 Key，非 nil 时覆盖（空串即清除）。
type AiSettingUpdate struct {
	Model    string
	Endpoint string
	ApiKey   *string
}

// AiSettingService 接口定义了用户 AI 配置的业务操作。
type AiSettingService interface {
	Get(userID uint) (*AiSettingView, error)
	Save(userID uint, update AiSettingUpdate) (*AiSettingView, error)
}

// aiSettingService 是 AiSettingService 接口的实现。
type aiSettingService struct {
	settingRepo  repository.AiSettingRepository
	defaultModel string
}

// NewAiSettingService 创建一个新的 AiSettingService 实例。
// defaultModel 为空时落内置默认模型。
func NewAiSettingService(settingRepo repository.AiSettingRepository, defaultModel string) AiSettingService {
	if strings.TrimSpace(defaultModel) == "" {
		defaultModel = tagging.DefaultModel
	}
	return &aiSettingService{settingRepo: settingRepo, defaultModel: defaultModel}
}

// Get 返回用户的 AI 配置视图；尚未配置时返回默认值。
func (s *aiSettingService) Get(userID uint) (*AiSettingView, error) {
	setting, err := s.settingRepo.FindByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &AiSettingView{
				Provider: tagging.DefaultProvider,
				Model:    s.defaultModel,
			}, nil
		}
		return nil, err
	}
	return viewOf(setting), nil
}

// Save 保存用户的 AI 配置。服务商固定为 OpenAI 兼容接口，
// 模型为空时落默认模型。
func (s *aiSettingService) Save(userID uint, update AiSettingUpdate) (*AiSettingView, error) {
	setting, err := s.settingRepo.FindByUserID(userID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		setting = &model.UserAiSetting{UserID: userID}
	}

	setting.Provider = tagging.DefaultProvider
	setting.Model = strings.TrimSpace(update.Model)
	if setting.Model == "" {
		setting.Model = s.defaultModel
	}

	if endpoint := strings.TrimSpace(update.Endpoint); endpoint != "" {
		setting.Endpoint = &endpoint
	} else {
		setting.Endpoint = nil
	}

	// 未提交新 Key 时保留旧 Key，避免前端被迫回传明文
	if update.ApiKey != nil {
		setting.ApiKey = strings.TrimSpace(*update.ApiKey)
	}

	if err := s.settingRepo.Save(setting); err != nil {
		return nil, err
	}
	return viewOf(setting), nil
}

func viewOf(setting *model.UserAiSetting) *AiSettingView {
	view := &AiSettingView{
		Provider:  setting.Provider,
		Model:     setting.Model,
		HasApiKey: strings.TrimSpace(setting.ApiKey) != "",
	}
	if setting.Endpoint != nil {
		view.Endpoint = *setting.Endpoint
	}
	return view
}
