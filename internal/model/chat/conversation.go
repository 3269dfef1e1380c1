package chat

// TitleMaxLen 会话标题最大长度（取首条用户消息前40个字符）
const TitleMaxLen = 40

// Conversation 一个会话及其完整消息记录
// ID 在创建时生成，全局唯一且按创建时间有序，UI 的排序键直接由 ID 导出；
// Title 由首条用户消息固化，之后不再变化；Messages 只会追加，
// 单条消息不支持删除，只能删除整个会话
type Conversation struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Messages []Message `json:"messages"`

	// InFlight 标记该会话有一个未完成的发送
	// 每个会话各自持有标记，互不相关的会话并发发送不会被串行化；
	// 不持久化，进程重启后不存在未完成的发送
	InFlight bool `json:"-"`
}

// Clone 深拷贝会话（持久化快照和对外返回时使用，避免共享内部切片）
func (c *Conversation) Clone() *Conversation {
	out := &Conversation{
		ID:       c.ID,
		Title:    c.Title,
		InFlight: c.InFlight,
	}
	if c.Messages != nil {
		out.Messages = make([]Message, len(c.Messages))
		copy(out.Messages, c.Messages)
		for i := range out.Messages {
			if c.Messages[i].Sources != nil {
				out.Messages[i].Sources = make([]Source, len(c.Messages[i].Sources))
				copy(out.Messages[i].Sources, c.Messages[i].Sources)
			}
		}
	}
	return out
}

// DeriveTitle 从首条用户消息导出标题（前40个字符，按 rune 截断避免拆散多字节字符）
func DeriveTitle(text string) string {
	runes := []rune(text)
	if len(runes) <= TitleMaxLen {
		return text
	}
	return string(runes[:TitleMaxLen])
}
