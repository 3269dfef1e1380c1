package chat

// Role 消息角色
type Role string

const (
	RoleUser  Role = "USER"  // 用户消息
	RoleModel Role = "MODEL" // 模型回复
)

// Source 回答引用的网页来源（联网搜索 grounding 产生）
type Source struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

// Message 对话中的一条消息
// 消息一旦追加即不可变，唯一的例外是正在流式接收的 MODEL 消息：
// 它的 Text 随片段到达逐步累加，Sources 在流结束后至多附加一次
type Message struct {
	Role    Role     `json:"role"`
	Text    string   `json:"text"`
	Image   string   `json:"image,omitempty"` // base64 data URL
	Sources []Source `json:"sources,omitempty"`
}

// Attachment 随消息上传的图片附件
// Data 为原始字节，发送时由 AI 层转换为 inline-data part
type Attachment struct {
	Data     []byte `json:"data"`
	MIMEType string `json:"mime_type"`
}
