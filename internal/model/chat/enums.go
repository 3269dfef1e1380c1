package chat

// ThinkingMode 思考模式
// 决定后端配置：系统提示词、采样参数、是否启用联网搜索。
// 模式属于"当前编辑上下文"而非会话本身，但一旦会话有了消息，
// 切换模式需要确认并强制新建会话，效果上等于按会话冻结
type ThinkingMode string

const (
	ModeLight       ThinkingMode = "Light"        // 低延迟，关闭思考
	ModeDeepThought ThinkingMode = "Deep Thought" // 深度推理，高温采样
	ModeCodeMaster  ThinkingMode = "Code Master"  // 编程助手
	ModeSearch      ThinkingMode = "Search"       // 联网搜索（默认）
)

// DefaultMode 新建会话时的默认模式
const DefaultMode = ModeSearch

// IsValid 检查模式是否有效
func (m ThinkingMode) IsValid() bool {
	switch m {
	case ModeLight, ModeDeepThought, ModeCodeMaster, ModeSearch:
		return true
	}
	return false
}

// String 返回模式字符串
func (m ThinkingMode) String() string {
	return string(m)
}

// GroundingEnabled 该模式是否启用联网搜索
func (m ThinkingMode) GroundingEnabled() bool {
	return m == ModeDeepThought || m == ModeCodeMaster || m == ModeSearch
}
