package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"

	"nova/internal/ai"
	"nova/internal/model/chat"
	"nova/internal/store"
)

// ErrNoTarget 发送既没有目标会话，暂存也失败
var ErrNoTarget = errors.New("no target conversation for send")

// ChatBackend 对话后端
// 生产实现是 ai.Client，测试用假流替换
type ChatBackend interface {
	OpenSession(ctx context.Context, mode chat.ThinkingMode, history []chat.Message) (ai.ChatSession, error)
}

// StreamEvent 一次发送对外吐出的事件
// Fragment / Sources / Err / Done 互斥，按流式到达顺序交付
type StreamEvent struct {
	Fragment string
	Sources  []chat.Source
	Err      error
	Done     bool
}

// ChatService 对话服务 - 流式响应合并器
// 职责: 编排一次发送的完整生命周期：采集上下文、追加用户消息和
// MODEL 占位、逐片段合并流式响应、收尾附加引用来源。
// 中途出错时把错误标注追加到已有的部分文本之后，不回滚不重试
type ChatService struct {
	backend ChatBackend
}

// NewChatService 创建对话服务
func NewChatService(backend ChatBackend) *ChatService {
	return &ChatService{backend: backend}
}

// SendMessage 发送一条用户消息并流式返回响应
// 没有当前会话时走待发送解析器：意图先入槽，新会话创建被存储
// 确认后再取回派发，整个过程恰好产出一个会话
func (s *ChatService) SendMessage(ctx context.Context, session *Session, prompt string, attachment *chat.Attachment) (string, <-chan StreamEvent, error) {
	convID := session.Transcript.ActiveID()
	if convID == "" {
		if err := session.Resolver.Stage(SendIntent{Prompt: prompt, Attachment: attachment}); err != nil {
			return "", nil, err
		}
		session.setMode(chat.DefaultMode)
		session.Transcript.Create()

		intent, ok := session.Resolver.Take()
		if !ok {
			return "", nil, ErrNoTarget
		}
		convID = intent.ConversationID
		prompt = intent.Prompt
		attachment = intent.Attachment
	}

	events, err := s.run(ctx, session, convID, prompt, attachment)
	if err != nil {
		return "", nil, err
	}
	return convID, events, nil
}

// run 执行一次发送
// 上下文历史在追加新消息之前采集，新的用户消息只经由
// SendStream 进入模型
func (s *ChatService) run(ctx context.Context, session *Session, convID, prompt string, attachment *chat.Attachment) (<-chan StreamEvent, error) {
	transcript := session.Transcript

	if err := transcript.BeginSend(convID); err != nil {
		return nil, err
	}

	history := transcript.History(convID)

	if err := transcript.AppendUserMessage(convID, prompt, attachmentDataURL(attachment)); err != nil {
		transcript.EndSend(convID)
		return nil, err
	}
	if err := transcript.AppendModelPlaceholder(convID); err != nil {
		transcript.EndSend(convID)
		return nil, err
	}

	suffix := errorSuffix(session.Preferences().Language)

	chatSession, err := s.backend.OpenSession(ctx, session.Mode(), history)
	if err != nil {
		s.failSend(transcript, convID, suffix, err, "failed to open chat session")
		return nil, err
	}

	stream, err := chatSession.SendStream(ctx, prompt, attachment)
	if err != nil {
		s.failSend(transcript, convID, suffix, err, "failed to start stream")
		return nil, err
	}

	events := make(chan StreamEvent, 16)
	go s.consume(ctx, transcript, convID, stream, suffix, events)
	return events, nil
}

// consume 逐片段合并流式响应
// 片段按到达顺序累加到末尾的 MODEL 消息上；引用来源随末段携带，
// 流结束后至多附加一次。存储侧的合并不依赖消费端：
// 客户端断开后事件直接丢弃，收尾（清发送标记、关流）照常执行
func (s *ChatService) consume(ctx context.Context, transcript *store.TranscriptStore, convID string, stream ai.Stream, suffix string, events chan<- StreamEvent) {
	defer close(events)
	defer stream.Close()
	defer transcript.EndSend(convID)

	emit := func(ev StreamEvent) {
		select {
		case events <- ev:
		case <-ctx.Done():
		}
	}

	var sources []chat.Source
	for {
		frag, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.Error().Err(err).Str("conversation_id", convID).Msg("stream failed")
			if appendErr := transcript.AppendErrorSuffix(convID, suffix); appendErr != nil {
				log.Warn().Err(appendErr).Str("conversation_id", convID).Msg("failed to annotate partial text")
			}
			emit(StreamEvent{Err: err})
			return
		}
		if frag.Text != "" {
			if appendErr := transcript.AppendFragment(convID, frag.Text); appendErr != nil {
				log.Warn().Err(appendErr).Str("conversation_id", convID).Msg("fragment dropped")
				emit(StreamEvent{Err: appendErr})
				return
			}
			emit(StreamEvent{Fragment: frag.Text})
		}
		if len(frag.Sources) > 0 {
			sources = frag.Sources
		}
	}

	if len(sources) > 0 {
		if err := transcript.AttachSources(convID, sources); err != nil {
			log.Warn().Err(err).Str("conversation_id", convID).Msg("failed to attach sources")
		} else {
			emit(StreamEvent{Sources: sources})
		}
	}
	emit(StreamEvent{Done: true})
}

// failSend 发送在进入流式阶段前就失败
// 占位消息已经在，错误标注照样附加，保持会话可渲染
func (s *ChatService) failSend(transcript *store.TranscriptStore, convID, suffix string, cause error, msg string) {
	log.Error().Err(cause).Str("conversation_id", convID).Msg(msg)
	if err := transcript.AppendErrorSuffix(convID, suffix); err != nil {
		log.Warn().Err(err).Str("conversation_id", convID).Msg("failed to annotate partial text")
	}
	transcript.EndSend(convID)
}

// errorSuffix 按语言偏好返回追加到部分文本后的错误标注
func errorSuffix(language string) string {
	message := "Sorry, something went wrong. Please try again."
	if language == "zh" {
		message = "抱歉，出错了，请稍后再试。"
	}
	return fmt.Sprintf("\n\n**%s**", message)
}

// attachmentDataURL 把图片附件编码为可直接渲染的 data URL
func attachmentDataURL(attachment *chat.Attachment) string {
	if attachment == nil {
		return ""
	}
	return dataURL(attachment.MIMEType, attachment.Data)
}
