package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"nova/internal/model/chat"
	"nova/internal/service"
)

// ModeHandler 思考模式处理器
type ModeHandler struct {
	sessions *Sessions
	gate     *service.SessionService
}

// NewModeHandler 创建思考模式处理器
func NewModeHandler(sessions *Sessions, gate *service.SessionService) *ModeHandler {
	return &ModeHandler{sessions: sessions, gate: gate}
}

// GetMode 查询当前思考模式
// @Summary      查询思考模式
// @Tags         会话
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      401  {object}  ErrorResponse
// @Router       /api/v1/session/mode [get]
func (h *ModeHandler) GetMode(c *gin.Context) {
	session, ok := h.sessions.FromContext(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"mode": string(session.Mode())})
}

// ChangeModeRequest 切换思考模式请求
type ChangeModeRequest struct {
	Mode      string `json:"mode" binding:"required"` // 目标模式
	Confirmed bool   `json:"confirmed"`               // 当前会话非空时必须为 true
}

// ChangeMode 切换思考模式
// @Summary      切换思考模式
// @Description  当前会话已有消息时需要 confirmed=true，切换后新开一个
// @Description  携带新模式的会话；未确认的切换被拒绝且什么都不变
// @Tags         会话
// @Accept       json
// @Produce      json
// @Param        request  body  ChangeModeRequest  true  "切换请求"
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /api/v1/session/mode [put]
func (h *ModeHandler) ChangeMode(c *gin.Context) {
	session, ok := h.sessions.FromContext(c)
	if !ok {
		return
	}

	var req ChangeModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40001,
			Message: "Invalid request body",
			Detail:  err.Error(),
		})
		return
	}

	newConvID, err := h.gate.ChangeMode(session, chat.ThinkingMode(req.Mode), req.Confirmed)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidMode):
			c.JSON(http.StatusBadRequest, ErrorResponse{Code: 40003, Message: err.Error()})
		case errors.Is(err, service.ErrConfirmRequired):
			c.JSON(http.StatusConflict, ErrorResponse{Code: 40902, Message: err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 50001, Message: err.Error()})
		}
		return
	}

	resp := gin.H{"mode": string(session.Mode())}
	if newConvID != "" {
		resp["new_conversation_id"] = newConvID
	}
	c.JSON(http.StatusOK, resp)
}
