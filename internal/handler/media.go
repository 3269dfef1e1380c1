package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// MediaHandler 媒体历史处理器
type MediaHandler struct {
	sessions *Sessions
}

// NewMediaHandler 创建媒体历史处理器
func NewMediaHandler(sessions *Sessions) *MediaHandler {
	return &MediaHandler{sessions: sessions}
}

// List 媒体历史
// @Summary      媒体历史
// @Description  当前用户的生成历史，新的在前
// @Tags         媒体
// @Produce      json
// @Success      200  {array}   map[string]interface{}
// @Failure      401  {object}  ErrorResponse
// @Router       /api/v1/media [get]
func (h *MediaHandler) List(c *gin.Context) {
	session, ok := h.sessions.FromContext(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, session.Media.List())
}

// Delete 删除媒体历史条目
// @Summary      删除媒体历史条目
// @Description  目标不存在时容忍为 no-op，幂等返回 204
// @Tags         媒体
// @Param        id  path  string  true  "条目ID"
// @Success      204
// @Failure      401  {object}  ErrorResponse
// @Router       /api/v1/media/{id} [delete]
func (h *MediaHandler) Delete(c *gin.Context) {
	session, ok := h.sessions.FromContext(c)
	if !ok {
		return
	}
	session.Media.Delete(c.Param("id"))
	c.Status(http.StatusNoContent)
}
