package ai

import (
	"context"
	"errors"
	"io"
	"iter"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"nova/internal/model/chat"
)

// Fragment 流式响应片段
// Text 是本片段新增的文本；Sources 只在末一个片段上可能非空，
// 携带联网搜索的 grounding 引用
type Fragment struct {
	Text    string
	Sources []chat.Source
}

// Stream 一次发送产生的片段序列
// Recv 逐个返回片段，序列结束返回 io.EOF；片段必须按返回顺序应用，
// 后端契约不产生乱序，这里也不做防御性重排
type Stream interface {
	Recv() (Fragment, error)
	Close()
}

// ChatSession 会话句柄
// 携带思考模式配置和既有消息上下文，一次 SendStream 对应一次发送
type ChatSession interface {
	SendStream(ctx context.Context, prompt string, attachment *chat.Attachment) (Stream, error)
}

// OpenSession 按思考模式和既有消息创建会话
func (c *Client) OpenSession(ctx context.Context, mode chat.ThinkingMode, history []chat.Message) (ChatSession, error) {
	if c.chatModel != nil {
		return newEinoSession(c.chatModel, mode, history), nil
	}
	return c.openGenaiSession(ctx, mode, history)
}

// --- GenAI (gemini) ---

type genaiSession struct {
	chat *genai.Chat
}

func (c *Client) openGenaiSession(ctx context.Context, mode chat.ThinkingMode, history []chat.Message) (*genaiSession, error) {
	contents := make([]*genai.Content, 0, len(history))
	for _, msg := range history {
		role := genai.RoleUser
		if msg.Role == chat.RoleModel {
			role = genai.RoleModel
		}
		// 即使内容为空也要保留 text part，保持 API 兼容
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: msg.Text}},
		})
	}

	session, err := c.genai.Chats.Create(ctx, c.cfg.ChatModel, modeConfig(mode), contents)
	if err != nil {
		return nil, err
	}
	return &genaiSession{chat: session}, nil
}

func (s *genaiSession) SendStream(ctx context.Context, prompt string, attachment *chat.Attachment) (Stream, error) {
	var parts []genai.Part
	// 图片附件放在文本之前
	if attachment != nil {
		parts = append(parts, genai.Part{
			InlineData: &genai.Blob{Data: attachment.Data, MIMEType: attachment.MIMEType},
		})
	}
	parts = append(parts, genai.Part{Text: prompt})

	next, stop := iter.Pull2(s.chat.SendMessageStream(ctx, parts...))
	return &genaiStream{next: next, stop: stop}, nil
}

type genaiStream struct {
	next func() (*genai.GenerateContentResponse, error, bool)
	stop func()
}

func (s *genaiStream) Recv() (Fragment, error) {
	resp, err, ok := s.next()
	if !ok {
		return Fragment{}, io.EOF
	}
	if err != nil {
		return Fragment{}, err
	}
	return Fragment{
		Text:    resp.Text(),
		Sources: sourcesFrom(resp),
	}, nil
}

func (s *genaiStream) Close() {
	s.stop()
}

// sourcesFrom 从 grounding 元数据中提取网页来源
func sourcesFrom(resp *genai.GenerateContentResponse) []chat.Source {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil
	}
	gm := resp.Candidates[0].GroundingMetadata
	if gm == nil || len(gm.GroundingChunks) == 0 {
		return nil
	}

	var sources []chat.Source
	for _, chunk := range gm.GroundingChunks {
		if chunk.Web == nil || chunk.Web.URI == "" || chunk.Web.Title == "" {
			continue
		}
		sources = append(sources, chat.Source{URI: chunk.Web.URI, Title: chunk.Web.Title})
	}
	return sources
}

// --- Eino (openai/ark) ---

func newEinoSession(m einomodel.BaseChatModel, mode chat.ThinkingMode, history []chat.Message) ChatSession {
	messages := make([]*schema.Message, 0, len(history)+1)
	if instruction := systemInstruction(mode); instruction != "" {
		messages = append(messages, schema.SystemMessage(instruction))
	}
	for _, msg := range history {
		if msg.Role == chat.RoleModel {
			messages = append(messages, schema.AssistantMessage(msg.Text, nil))
		} else {
			messages = append(messages, schema.UserMessage(msg.Text))
		}
	}
	return &einoChatSession{model: m, messages: messages}
}

type einoChatSession struct {
	model    einomodel.BaseChatModel
	messages []*schema.Message
}

func (s *einoChatSession) SendStream(ctx context.Context, prompt string, attachment *chat.Attachment) (Stream, error) {
	if attachment != nil {
		return nil, errors.New("image input requires the gemini provider")
	}

	msgs := append(append([]*schema.Message{}, s.messages...), schema.UserMessage(prompt))
	reader, err := s.model.Stream(ctx, msgs)
	if err != nil {
		return nil, err
	}
	return &einoStream{reader: reader}, nil
}

type einoStream struct {
	reader *schema.StreamReader[*schema.Message]
}

func (s *einoStream) Recv() (Fragment, error) {
	msg, err := s.reader.Recv()
	if err != nil {
		// io.EOF 原样透传，表示序列结束
		return Fragment{}, err
	}
	return Fragment{Text: msg.Content}, nil
}

func (s *einoStream) Close() {
	s.reader.Close()
}
