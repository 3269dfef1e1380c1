package handler

import (
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"nova/internal/ai"
	"nova/internal/service"
)

// ImageHandler 图片生成处理器
type ImageHandler struct {
	sessions *Sessions
	mediaSvc *service.MediaService
}

// NewImageHandler 创建图片生成处理器
func NewImageHandler(sessions *Sessions, mediaSvc *service.MediaService) *ImageHandler {
	return &ImageHandler{sessions: sessions, mediaSvc: mediaSvc}
}

// GenerateImageRequest 图片生成请求
type GenerateImageRequest struct {
	Prompt      string `json:"prompt" binding:"required"` // 提示词
	AspectRatio string `json:"aspect_ratio,omitempty"`    // 宽高比，默认 1:1
}

// ImageResponse 图片生成/编辑响应
type ImageResponse struct {
	ItemID   string `json:"item_id"`   // 媒体历史条目ID
	DataURL  string `json:"data_url"`  // 完整图片
	MIMEType string `json:"mime_type"` // MIME类型
}

// Generate 文生图
// @Summary      文生图
// @Description  按提示词生成图片，结果记入媒体历史（缩略图）
// @Tags         媒体
// @Accept       json
// @Produce      json
// @Param        request  body  GenerateImageRequest  true  "生成请求"
// @Success      200  {object}  ImageResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      502  {object}  ErrorResponse
// @Router       /api/v1/images/generations [post]
func (h *ImageHandler) Generate(c *gin.Context) {
	session, ok := h.sessions.FromContext(c)
	if !ok {
		return
	}

	var req GenerateImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40001,
			Message: "Invalid request body",
			Detail:  err.Error(),
		})
		return
	}

	result, err := h.mediaSvc.GenerateImage(c.Request.Context(), session, req.Prompt, req.AspectRatio)
	if err != nil {
		if errors.Is(err, service.ErrInvalidAspectRatio) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Code: 40004, Message: err.Error()})
			return
		}
		c.JSON(http.StatusBadGateway, ErrorResponse{Code: 50201, Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, ImageResponse{
		ItemID:   result.ItemID,
		DataURL:  result.DataURL,
		MIMEType: result.MIMEType,
	})
}

// EditImageRequest 图片编辑请求
type EditImageRequest struct {
	Prompt      string `json:"prompt" binding:"required"`       // 编辑指令
	ImageBase64 string `json:"image_base64" binding:"required"` // 原图（base64）
	MIMEType    string `json:"mime_type,omitempty"`             // 原图MIME类型
}

// Edit 图片编辑
// @Summary      图片编辑
// @Description  按提示词编辑图片，历史里的提示词带 "(Edit) " 前缀
// @Tags         媒体
// @Accept       json
// @Produce      json
// @Param        request  body  EditImageRequest  true  "编辑请求"
// @Success      200  {object}  ImageResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      502  {object}  ErrorResponse
// @Router       /api/v1/images/edits [post]
func (h *ImageHandler) Edit(c *gin.Context) {
	session, ok := h.sessions.FromContext(c)
	if !ok {
		return
	}

	var req EditImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40001,
			Message: "Invalid request body",
			Detail:  err.Error(),
		})
		return
	}

	image, err := base64.StdEncoding.DecodeString(req.ImageBase64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40002,
			Message: "Invalid image payload",
			Detail:  err.Error(),
		})
		return
	}
	mimeType := req.MIMEType
	if mimeType == "" {
		mimeType = "image/png"
	}

	result, err := h.mediaSvc.EditImage(c.Request.Context(), session, req.Prompt, image, mimeType)
	if err != nil {
		if errors.Is(err, ai.ErrNoImageReturned) {
			c.JSON(http.StatusBadGateway, ErrorResponse{Code: 50202, Message: err.Error()})
			return
		}
		c.JSON(http.StatusBadGateway, ErrorResponse{Code: 50201, Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, ImageResponse{
		ItemID:   result.ItemID,
		DataURL:  result.DataURL,
		MIMEType: result.MIMEType,
	})
}
