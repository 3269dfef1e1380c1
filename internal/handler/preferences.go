package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"nova/internal/service"
	"nova/internal/store"
)

// PreferencesHandler 偏好处理器
// 主题和语言偏好独立于会话状态持久化，登出不清除
type PreferencesHandler struct {
	sessions *Sessions
	gate     *service.SessionService
}

// NewPreferencesHandler 创建偏好处理器
func NewPreferencesHandler(sessions *Sessions, gate *service.SessionService) *PreferencesHandler {
	return &PreferencesHandler{sessions: sessions, gate: gate}
}

// Get 查询偏好
// @Summary      查询偏好
// @Tags         会话
// @Produce      json
// @Success      200  {object}  store.Preferences
// @Failure      401  {object}  ErrorResponse
// @Router       /api/v1/session/preferences [get]
func (h *PreferencesHandler) Get(c *gin.Context) {
	session, ok := h.sessions.FromContext(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, session.Preferences())
}

// UpdatePreferencesRequest 更新偏好请求
type UpdatePreferencesRequest struct {
	Theme    string `json:"theme" binding:"required"`    // light / dark
	Language string `json:"language" binding:"required"` // en / zh
}

// Update 更新偏好
// @Summary      更新偏好
// @Tags         会话
// @Accept       json
// @Produce      json
// @Param        request  body  UpdatePreferencesRequest  true  "更新请求"
// @Success      200  {object}  store.Preferences
// @Failure      400  {object}  ErrorResponse
// @Router       /api/v1/session/preferences [put]
func (h *PreferencesHandler) Update(c *gin.Context) {
	session, ok := h.sessions.FromContext(c)
	if !ok {
		return
	}

	var req UpdatePreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40001,
			Message: "Invalid request body",
			Detail:  err.Error(),
		})
		return
	}

	prefs := store.Preferences{Theme: req.Theme, Language: req.Language}
	if err := h.gate.UpdatePreferences(session, prefs); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 50001, Message: "failed to save preferences"})
		return
	}
	c.JSON(http.StatusOK, prefs)
}
