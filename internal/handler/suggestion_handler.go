package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"pai-photo-go/internal/middleware"
	"pai-photo-go/internal/service"
	"pai-photo-go/pkg/log"
)

// SuggestionHandler 负责处理 AI 候选标签相关的 API 请求。
type SuggestionHandler struct {
	suggestionService service.SuggestionService
}

// NewSuggestionHandler 创建一个新的 SuggestionHandler 实例。
func NewSuggestionHandler(suggestionService service.SuggestionService) *SuggestionHandler {
	return &SuggestionHandler{suggestionService: suggestionService}
}

// List 返回当前用户所有待确认的候选标签。
func (h *SuggestionHandler) List(c *gin.Context) {
	userID := middleware.CurrentUserID(c)

	suggestions, err := h.suggestionService.ListPending(userID)
	if err != nil {
		log.Errorf("ListSuggestions: 查询候选标签失败, userId: %d, error: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器内部错误"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "data": suggestions})
}

// Adopt 采纳一条候选标签。
func (h *SuggestionHandler) Adopt(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	suggestionID, ok := pathID(c)
	if !ok {
		return
	}

	suggestion, err := h.suggestionService.Adopt(userID, suggestionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "候选标签不存在"})
			return
		}
		log.Errorf("AdoptSuggestion: 采纳失败, id: %d, error: %v", suggestionID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器内部错误"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "已采纳", "data": suggestion})
}

// Dismiss 忽略一条候选标签。
func (h *SuggestionHandler) Dismiss(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	suggestionID, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.suggestionService.Dismiss(userID, suggestionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "候选标签不存在"})
			return
		}
		log.Errorf("DismissSuggestion: 忽略失败, id: %d, error: %v", suggestionID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器内部错误"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "已忽略"})
}
