package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"nova/internal/service"
)

// VideoHandler 视频生成处理器
type VideoHandler struct {
	sessions *Sessions
	mediaSvc *service.MediaService
}

// NewVideoHandler 创建视频生成处理器
func NewVideoHandler(sessions *Sessions, mediaSvc *service.MediaService) *VideoHandler {
	return &VideoHandler{sessions: sessions, mediaSvc: mediaSvc}
}

// GenerateVideoRequest 视频生成请求
type GenerateVideoRequest struct {
	Prompt     string `json:"prompt" binding:"required"` // 提示词
	Resolution string `json:"resolution,omitempty"`      // 分辨率提示，折叠进提示词
}

// VideoResponse 视频生成响应
type VideoResponse struct {
	ItemID   string `json:"item_id"`
	VideoURL string `json:"video_url"`
}

// Generate 文生视频
// @Summary      文生视频
// @Description  提交生成任务并轮询到完成。轮询受最大次数和总时限
// @Description  双重约束，超限返回 504 而不是挂起
// @Tags         媒体
// @Accept       json
// @Produce      json
// @Param        request  body  GenerateVideoRequest  true  "生成请求"
// @Success      200  {object}  VideoResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      502  {object}  ErrorResponse
// @Failure      504  {object}  ErrorResponse
// @Router       /api/v1/videos/generations [post]
func (h *VideoHandler) Generate(c *gin.Context) {
	session, ok := h.sessions.FromContext(c)
	if !ok {
		return
	}

	var req GenerateVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40001,
			Message: "Invalid request body",
			Detail:  err.Error(),
		})
		return
	}

	result, err := h.mediaSvc.GenerateVideo(c.Request.Context(), session, req.Prompt, req.Resolution)
	if err != nil {
		if errors.Is(err, service.ErrVideoTimeout) {
			c.JSON(http.StatusGatewayTimeout, ErrorResponse{Code: 50401, Message: err.Error()})
			return
		}
		c.JSON(http.StatusBadGateway, ErrorResponse{Code: 50201, Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, VideoResponse{
		ItemID:   result.ItemID,
		VideoURL: result.VideoURL,
	})
}
