package media

// Kind 媒体生成类型
type Kind string

const (
	KindImage     Kind = "image"      // 文生图
	KindImageEdit Kind = "image_edit" // 图片编辑
	KindVideo     Kind = "video"      // 文生视频
)

// IsValid 检查类型是否有效
func (k Kind) IsValid() bool {
	return k == KindImage || k == KindImageEdit || k == KindVideo
}

// Item 媒体生成历史记录
// 只追加、按创建倒序（新的在前）、可按 ID 删除，不支持任何更新。
// ImageURL 保存的是缩略图而非原图，原图在生成后即丢弃（有损缓存策略，
// 为的是不超出本地存储配额）
type Item struct {
	ID        string `json:"id"`
	Kind      Kind   `json:"kind"`
	Prompt    string `json:"prompt"`
	ImageURL  string `json:"imageUrl"`           // 缩略图 data URL
	VideoURL  string `json:"videoUrl,omitempty"` // 视频落地后的访问 URL
	Timestamp string `json:"timestamp"`          // ISO-8601
}
