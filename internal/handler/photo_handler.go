package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"pai-photo-go/internal/config"
	"pai-photo-go/internal/middleware"
	"pai-photo-go/internal/repository"
	"pai-photo-go/internal/service"
	"pai-photo-go/pkg/log"
)

// PhotoHandler 负责处理所有与图片相关的 API 请求。
type PhotoHandler struct {
	photoService service.PhotoService
}

// NewPhotoHandler 创建一个新的 PhotoHandler 实例。
func NewPhotoHandler(photoService service.PhotoService) *PhotoHandler {
	return &PhotoHandler{photoService: photoService}
}

// Upload 处理图片上传的请求（multipart/form-data）。
// 表单字段：file（必填）、description、tags（逗号分隔的手动标签）。
func (h *PhotoHandler) Upload(c *gin.Context) {
	userID := middleware.CurrentUserID(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少上传文件"})
		return
	}
	maxBytes := int64(config.Conf.Storage.MaxUploadMB) << 20
	if maxBytes > 0 && fileHeader.Size > maxBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "文件大小超出限制"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无法读取上传文件"})
		return
	}
	defer file.Close()

	description := c.PostForm("description")
	manualTags := splitTags(c.PostForm("tags"))

	photo, err := h.photoService.Upload(userID, fileHeader.Filename, file, description, manualTags)
	if err != nil {
		log.Errorf("Upload: 图片上传失败, userId: %d, error: %v", userID, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "上传失败：" + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "上传成功",
		"data":    photo,
	})
}

// List 处理图片列表查询的请求。
// 查询参数：tag、keyword、from、to（2006-01-02）、sort、page、pageSize。
func (h *PhotoHandler) List(c *gin.Context) {
	userID := middleware.CurrentUserID(c)

	filter := repository.PhotoFilter{
		Tag:      c.Query("tag"),
		Keyword:  c.Query("keyword"),
		Sort:     c.Query("sort"),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "pageSize", 20),
	}
	if from, ok := queryDate(c, "from"); ok {
		filter.From = &from
	}
	if to, ok := queryDate(c, "to"); ok {
		// 上界取到当日末尾
		end := to.Add(24*time.Hour - time.Nanosecond)
		filter.To = &end
	}

	photos, total, err := h.photoService.List(userID, filter)
	if err != nil {
		log.Errorf("List: 查询图片列表失败, userId: %d, error: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器内部错误"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code": http.StatusOK,
		"data": gin.H{
			"list":     photos,
			"total":    total,
			"page":     filter.Page,
			"pageSize": filter.PageSize,
		},
	})
}

// Detail 处理单张图片详情的请求。
func (h *PhotoHandler) Detail(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	photoID, ok := pathID(c)
	if !ok {
		return
	}

	photo, err := h.photoService.Detail(userID, photoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "图片不存在"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器内部错误"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "data": photo})
}

// EditPhotoRequest 定义了图片编辑 API 的请求体结构。
// description/tags 均为可选：缺省字段不改动。
type EditPhotoRequest struct {
	Description *string   `json:"description"`
	Tags        *[]string `json:"tags"`
}

// Edit 处理图片编辑的请求。
func (h *PhotoHandler) Edit(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	photoID, ok := pathID(c)
	if !ok {
		return
	}

	var req EditPhotoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求负载"})
		return
	}

	var manualTags []string
	if req.Tags != nil {
		manualTags = *req.Tags
		if manualTags == nil {
			manualTags = []string{}
		}
	}

	photo, err := h.photoService.Edit(userID, photoID, req.Description, manualTags)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "图片不存在"})
			return
		}
		log.Errorf("Edit: 编辑图片失败, photoId: %d, error: %v", photoID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器内部错误"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "保存成功", "data": photo})
}

// ReplaceFile 处理图片文件替换的请求（multipart/form-data）。
// 表单字段：file（必填）、saveAsNew（"true" 时另存为新图）。
func (h *PhotoHandler) ReplaceFile(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	photoID, ok := pathID(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少上传文件"})
		return
	}
	maxBytes := int64(config.Conf.Storage.MaxUploadMB) << 20
	if maxBytes > 0 && fileHeader.Size > maxBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "文件大小超出限制"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无法读取上传文件"})
		return
	}
	defer file.Close()

	saveAsNew := c.PostForm("saveAsNew") == "true"

	photo, err := h.photoService.ReplaceFile(userID, photoID, fileHeader.Filename, file, saveAsNew)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "图片不存在"})
			return
		}
		log.Errorf("ReplaceFile: 替换图片文件失败, photoId: %d, error: %v", photoID, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "保存失败：" + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "保存成功", "data": photo})
}

// Delete 处理图片删除的请求。
func (h *PhotoHandler) Delete(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	photoID, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.photoService.Delete(userID, photoID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "图片不存在"})
			return
		}
		log.Errorf("Delete: 删除图片失败, photoId: %d, error: %v", photoID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器内部错误"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "删除成功"})
}

// Retag 为指定图片重新提交一次 AI 打标任务。
func (h *PhotoHandler) Retag(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	photoID, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.photoService.Retag(userID, photoID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "图片不存在"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器内部错误"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "打标任务已提交"})
}

// pathID 解析路径参数 :id，非法时直接写出 400 响应。
func pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的 ID"})
		return 0, false
	}
	return uint(id), true
}

// queryInt 解析整数查询参数，缺省或非法时返回默认值。
func queryInt(c *gin.Context, key string, fallback int) int {
	value, err := strconv.Atoi(c.Query(key))
	if err != nil || value < 1 {
		return fallback
	}
	return value
}

// queryDate 解析 2006-01-02 格式的日期查询参数。
func queryDate(c *gin.Context, key string) (time.Time, bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// splitTags 将逗号分隔的标签串拆成标签名列表。
func splitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == '，'
	})
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			tags = append(tags, trimmed)
		}
	}
	return tags
}
