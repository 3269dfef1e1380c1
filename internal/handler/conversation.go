package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"nova/internal/pkg/id"
	"nova/internal/service"
)

// ConversationHandler 会话管理处理器
type ConversationHandler struct {
	sessions *Sessions
	gate     *service.SessionService
}

// NewConversationHandler 创建会话管理处理器
func NewConversationHandler(sessions *Sessions, gate *service.SessionService) *ConversationHandler {
	return &ConversationHandler{sessions: sessions, gate: gate}
}

// ConversationSummary 会话列表项
type ConversationSummary struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	MessageCount int    `json:"message_count"`
	CreatedAt    string `json:"created_at"`
	Active       bool   `json:"active"`
}

// List 会话列表
// @Summary      会话列表
// @Description  返回当前用户的全部会话，新建在前
// @Tags         会话
// @Produce      json
// @Success      200  {array}   ConversationSummary
// @Failure      401  {object}  ErrorResponse
// @Router       /api/v1/conversations [get]
func (h *ConversationHandler) List(c *gin.Context) {
	session, ok := h.sessions.FromContext(c)
	if !ok {
		return
	}

	activeID := session.Transcript.ActiveID()
	conversations := session.Transcript.List()

	out := make([]ConversationSummary, 0, len(conversations))
	for _, conv := range conversations {
		out = append(out, ConversationSummary{
			ID:           conv.ID,
			Title:        conv.Title,
			MessageCount: len(conv.Messages),
			CreatedAt:    id.CreatedAt(conv.ID).Format(time.RFC3339),
			Active:       conv.ID == activeID,
		})
	}
	c.JSON(http.StatusOK, out)
}

// Create 新建会话
// @Summary      新建会话
// @Description  新建空会话并设为当前会话，思考模式重置为默认值
// @Tags         会话
// @Produce      json
// @Success      201  {object}  map[string]string
// @Failure      401  {object}  ErrorResponse
// @Router       /api/v1/conversations [post]
func (h *ConversationHandler) Create(c *gin.Context) {
	session, ok := h.sessions.FromContext(c)
	if !ok {
		return
	}

	convID := h.gate.NewConversation(session)
	c.JSON(http.StatusCreated, gin.H{"id": convID})
}

// Get 会话详情
// @Summary      会话详情
// @Tags         会话
// @Produce      json
// @Param        id   path      string  true  "会话ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  ErrorResponse
// @Router       /api/v1/conversations/{id} [get]
func (h *ConversationHandler) Get(c *gin.Context) {
	session, ok := h.sessions.FromContext(c)
	if !ok {
		return
	}

	conv, found := session.Transcript.Get(c.Param("id"))
	if !found {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Code:    40401,
			Message: "conversation not found",
		})
		return
	}
	c.JSON(http.StatusOK, conv)
}

// Delete 删除会话
// @Summary      删除会话
// @Description  删除会话；目标不存在时容忍为 no-op，幂等返回 204
// @Tags         会话
// @Param        id  path  string  true  "会话ID"
// @Success      204
// @Failure      401  {object}  ErrorResponse
// @Router       /api/v1/conversations/{id} [delete]
func (h *ConversationHandler) Delete(c *gin.Context) {
	session, ok := h.sessions.FromContext(c)
	if !ok {
		return
	}

	session.Transcript.Delete(c.Param("id"))
	c.Status(http.StatusNoContent)
}

// Select 切换当前会话
// @Summary      切换当前会话
// @Description  目标不存在时容忍为 no-op
// @Tags         会话
// @Produce      json
// @Param        id  path  string  true  "会话ID"
// @Success      200  {object}  map[string]string
// @Failure      401  {object}  ErrorResponse
// @Router       /api/v1/conversations/{id}/select [post]
func (h *ConversationHandler) Select(c *gin.Context) {
	session, ok := h.sessions.FromContext(c)
	if !ok {
		return
	}

	session.Transcript.Select(c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"active_id": session.Transcript.ActiveID()})
}
