package handler

import (
	"encoding/base64"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"nova/internal/model"
	"nova/internal/model/chat"
	"nova/internal/service"
	"nova/internal/store"
)

// ChatHandler 对话处理器
type ChatHandler struct {
	sessions *Sessions
	chatSvc  *service.ChatService
}

// NewChatHandler 创建对话处理器
func NewChatHandler(sessions *Sessions, chatSvc *service.ChatService) *ChatHandler {
	return &ChatHandler{sessions: sessions, chatSvc: chatSvc}
}

// SendMessageRequest 发送消息请求
type SendMessageRequest struct {
	Message        string `json:"message" binding:"required"` // 消息文本（必填）
	ConversationID string `json:"conversation_id,omitempty"`  // 目标会话，空则用当前会话
	ImageBase64    string `json:"image_base64,omitempty"`     // 图片附件（base64）
	ImageMIMEType  string `json:"image_mime_type,omitempty"`  // 附件MIME类型
}

// SendMessage 发送消息（SSE流式响应）
// @Summary      发送消息
// @Description  发送一条用户消息，以SSE逐片段返回模型响应。
// @Description  没有当前会话时自动新建一个并在首个事件里返回其ID
// @Tags         对话
// @Accept       json
// @Produce      text/event-stream
// @Param        request  body  SendMessageRequest  true  "发送请求"
// @Success      200
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /api/v1/chat/messages [post]
func (h *ChatHandler) SendMessage(c *gin.Context) {
	session, ok := h.sessions.FromContext(c)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40001,
			Message: "Invalid request body",
			Detail:  err.Error(),
		})
		return
	}

	attachment, err := decodeAttachment(req.ImageBase64, req.ImageMIMEType)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40002,
			Message: "Invalid image attachment",
			Detail:  err.Error(),
		})
		return
	}

	// 指定了目标会话就先切换；目标不存在（比如刚被删除）时直接 404，
	// 不让发送静默落到别的会话上
	if req.ConversationID != "" {
		if _, exists := session.Transcript.Get(req.ConversationID); !exists {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Code:    40401,
				Message: "conversation not found",
			})
			return
		}
		session.Transcript.Select(req.ConversationID)
	}

	convID, events, err := h.chatSvc.SendMessage(c.Request.Context(), session, req.Message, attachment)
	if err != nil {
		status := http.StatusInternalServerError
		code := 50001
		switch {
		case errors.Is(err, store.ErrSendInFlight), errors.Is(err, service.ErrPendingOccupied):
			status = http.StatusConflict
			code = 40901
		case errors.Is(err, store.ErrConversationNotFound):
			status = http.StatusNotFound
			code = 40401
		}
		c.JSON(status, ErrorResponse{Code: code, Message: err.Error()})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	c.SSEvent("conversation", gin.H{"id": convID})
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		ev, open := <-events
		if !open {
			return false
		}
		switch {
		case ev.Err != nil:
			c.SSEvent("error", gin.H{"message": ev.Err.Error()})
		case ev.Done:
			c.SSEvent("done", model.ChatChunk{Done: true})
		case len(ev.Sources) > 0:
			c.SSEvent("sources", ev.Sources)
		default:
			c.SSEvent("message", model.ChatChunk{Content: ev.Fragment})
		}
		return true
	})
}

// decodeAttachment 解码图片附件
func decodeAttachment(imageBase64, mimeType string) (*chat.Attachment, error) {
	if imageBase64 == "" {
		return nil, nil
	}
	data, err := base64.StdEncoding.DecodeString(imageBase64)
	if err != nil {
		return nil, err
	}
	if mimeType == "" {
		mimeType = "image/png"
	}
	return &chat.Attachment{Data: data, MIMEType: mimeType}, nil
}
