package store

import (
	"sync"
	"time"

	"nova/internal/model/media"
	"nova/internal/pkg/id"
)

// MediaStore 媒体生成历史存储
// 只追加（新的在前）、可按 ID 删除，没有其他变更操作。
// 会话记录存储的简化同门：没有流式合并，没有当前选择
type MediaStore struct {
	mu      sync.Mutex
	items   []media.Item
	onMutat []func()
}

// NewMediaStore 创建空的媒体历史存储
func NewMediaStore() *MediaStore {
	return &MediaStore{}
}

// Subscribe 订阅变更（持久化层使用）
func (s *MediaStore) Subscribe(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onMutat = append(s.onMutat, fn)
}

// Record 记录一条媒体生成历史，新记录排在最前，返回其ID
func (s *MediaStore) Record(kind media.Kind, prompt, imageURL, videoURL string) string {
	s.mu.Lock()
	item := media.Item{
		ID:        id.NewOrdered(string(kind)),
		Kind:      kind,
		Prompt:    prompt,
		ImageURL:  imageURL,
		VideoURL:  videoURL,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	s.items = append([]media.Item{item}, s.items...)
	subs := s.onMutat
	s.mu.Unlock()

	for _, fn := range subs {
		fn()
	}
	return item.ID
}

// Delete 按 ID 删除一条历史，目标不存在时为 no-op 且不触发通知
func (s *MediaStore) Delete(itemID string) {
	s.mu.Lock()
	before := len(s.items)
	out := s.items[:0]
	for _, item := range s.items {
		if item.ID != itemID {
			out = append(out, item)
		}
	}
	s.items = out
	if len(s.items) == before {
		s.mu.Unlock()
		return
	}
	subs := s.onMutat
	s.mu.Unlock()

	for _, fn := range subs {
		fn()
	}
}

// List 返回全部历史的拷贝（新的在前）
func (s *MediaStore) List() []media.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]media.Item, len(s.items))
	copy(out, s.items)
	return out
}

// Snapshot 等同于 List，持久化快照用
func (s *MediaStore) Snapshot() []media.Item {
	return s.List()
}

// Replace 用持久化快照整体替换内存状态（登录加载用，不触发事件）
func (s *MediaStore) Replace(items []media.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make([]media.Item, len(items))
	copy(s.items, items)
}

// Clear 清空全部历史（登出用，不触发事件）
func (s *MediaStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
}

// Len 历史条数
func (s *MediaStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
