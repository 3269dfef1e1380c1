package ai

import (
	"google.golang.org/genai"

	"nova/internal/model/chat"
)

// 各思考模式的系统提示词
const (
	lightInstruction = "You are a helpful assistant. Keep your answers concise and to the point."

	deepThoughtInstruction = "You are a world-class expert and advanced reasoner. Break down complex problems " +
		"into smaller, manageable steps. Think logically and thoroughly to provide comprehensive, in-depth, " +
		"and accurate answers. Use your search tool to find the most current and relevant information to " +
		"support your reasoning. Explain your reasoning process clearly."

	codeMasterInstruction = "You are Deepseek Coder, a powerful AI programming assistant. Your strengths are " +
		"in understanding complex coding requests, generating high-quality, efficient, and well-documented " +
		"code in multiple languages. You excel at providing runnable examples, explaining code logic clearly, " +
		"and offering insights into best practices, debugging, and optimization. Use your search tool to " +
		"access the latest documentation and real-world examples to ensure your code is up-to-date. Fulfill " +
		"the user's request with precision and expertise."

	searchInstruction = "You are an expert researcher. You MUST use the Google Search tool to find the most " +
		"current and relevant information to answer the user's query. Prioritize real-time data, news, and " +
		"recent developments. Do not rely on your internal knowledge for topics that may have changed. Cite " +
		"your sources."
)

// modeConfig 返回思考模式对应的 GenAI 会话配置
// 四个固定预设：系统提示词 + 采样参数 + 是否挂载联网搜索工具
func modeConfig(mode chat.ThinkingMode) *genai.GenerateContentConfig {
	switch mode {
	case chat.ModeLight:
		// 低延迟模式关闭思考
		return &genai.GenerateContentConfig{
			ThinkingConfig:    &genai.ThinkingConfig{ThinkingBudget: genai.Ptr(int32(0))},
			SystemInstruction: systemContent(lightInstruction),
		}
	case chat.ModeDeepThought:
		return &genai.GenerateContentConfig{
			Tools:             []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
			Temperature:       genai.Ptr(float32(0.9)),
			TopP:              genai.Ptr(float32(0.95)),
			TopK:              genai.Ptr(float32(64)),
			SystemInstruction: systemContent(deepThoughtInstruction),
		}
	case chat.ModeCodeMaster:
		return &genai.GenerateContentConfig{
			Tools:             []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
			SystemInstruction: systemContent(codeMasterInstruction),
		}
	case chat.ModeSearch:
		return &genai.GenerateContentConfig{
			Tools:             []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
			SystemInstruction: systemContent(searchInstruction),
		}
	default:
		return &genai.GenerateContentConfig{}
	}
}

// systemInstruction 返回思考模式对应的纯文本系统提示词（eino provider 使用）
func systemInstruction(mode chat.ThinkingMode) string {
	switch mode {
	case chat.ModeLight:
		return lightInstruction
	case chat.ModeDeepThought:
		return deepThoughtInstruction
	case chat.ModeCodeMaster:
		return codeMasterInstruction
	case chat.ModeSearch:
		return searchInstruction
	default:
		return ""
	}
}

func systemContent(text string) *genai.Content {
	return &genai.Content{Parts: []*genai.Part{{Text: text}}}
}
