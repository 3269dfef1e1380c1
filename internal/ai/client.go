package ai

import (
	"context"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"nova/internal/ai/component"
	"nova/internal/config"
)

// Client AI 能力层客户端
// 职责: 封装对话、图片生成/编辑、视频生成能力，提供统一接口。
// 文本对话按 Provider 分流：gemini 走 GenAI 原生会话（支持联网 grounding
// 和图片输入），openai/ark 走 Eino ChatModel（纯文本）；
// 图片和视频生成始终走 GenAI
type Client struct {
	cfg       *config.AIConfig
	genai     *genai.Client
	chatModel einomodel.ChatModel // openai/ark provider 时非空
}

// NewClient 创建 AI 客户端
func NewClient(ctx context.Context, cfg *config.AIConfig) (*Client, error) {
	if cfg.APIKey == "" {
		log.Warn().Msg("AI API key not configured, provider calls will fail")
	}

	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	c := &Client{
		cfg:   cfg,
		genai: genaiClient,
	}

	// gemini 之外的对话 Provider 需要初始化 Eino ChatModel
	if cfg.Provider == "openai" || cfg.Provider == "ark" {
		chatModel, err := component.NewChatModel(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create chat model: %w", err)
		}
		c.chatModel = chatModel
	}

	return c, nil
}

// Provider 当前文本对话 Provider
func (c *Client) Provider() string {
	if c.cfg.Provider == "" {
		return "gemini"
	}
	return c.cfg.Provider
}

// Close 关闭客户端
func (c *Client) Close() error {
	// genai/eino 客户端无需显式关闭
	return nil
}
