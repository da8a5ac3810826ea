package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pai-photo-go/internal/middleware"
	"pai-photo-go/internal/service"
	"pai-photo-go/pkg/log"
)

// AiSettingHandler 负责处理用户 AI 配置相关的 API 请求。
type AiSettingHandler struct {
	settingService service.AiSettingService
}

// NewAiSettingHandler 创建一个新的 AiSettingHandler 实例。
func NewAiSettingHandler(settingService service.AiSettingService) *AiSettingHandler {
	return &AiSettingHandler{settingService: settingService}
}

// Get 返回当前用户的 AI 配置（API Key 只回传是否已配置）。
func (h *AiSettingHandler) Get(c *gin.Context) {
	userID := middleware.CurrentUserID(c)

	view, err := h.settingService.Get(userID)
	if err != nil {
		log.Errorf("GetAiSetting: 查询配置失败, userId: %d, error: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器内部错误"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "data": view})
}

// SaveAiSettingRequest 定义了保存 AI 配置 API 的请求体结构。
// apiKey 缺省表示保留现有 Key。
type SaveAiSettingRequest struct {
	Model    string  `json:"model"`
	Endpoint string  `json:"endpoint"`
	ApiKey   *string `json:"apiKey"`
}

// Save 保存当前用户的 AI 配置。
func (h *AiSettingHandler) Save(c *gin.Context) {
	userID := middleware.CurrentUserID(c)

	var req SaveAiSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求负载"})
		return
	}

	view, err := h.settingService.Save(userID, service.AiSettingUpdate{
		Model:    req.Model,
		Endpoint: req.Endpoint,
		ApiKey:   req.ApiKey,
	})
	if err != nil {
		log.Errorf("SaveAiSetting: 保存配置失败, userId: %d, error: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "保存失败"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "保存成功", "data": view})
}
