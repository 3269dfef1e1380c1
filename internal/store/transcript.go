package store

import (
	"errors"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"nova/internal/model/chat"
	"nova/internal/pkg/id"
)

var (
	// ErrConversationNotFound 目标会话不存在
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrSendInFlight 该会话已有一个未完成的发送
	ErrSendInFlight = errors.New("a send is already in flight for this conversation")
)

// EventKind 状态变更事件类型
type EventKind int

const (
	EventCreated EventKind = iota // 会话创建
	EventDeleted                  // 会话删除
	EventMutated                  // 会话内容变更（消息追加、片段合并等）
)

// Event 状态变更事件
// 每一次成功的变更都会通知订阅者：持久化层据此落盘，
// 待发送解析器据此判断目标会话是否就绪
type Event struct {
	Kind           EventKind
	ConversationID string
}

// TranscriptStore 会话记录存储
// 会话ID到会话的内存映射，本规格的核心可变状态机。
// 所有变更在一把锁内同步完成，任何时刻对外都是一致、可直接渲染的状态；
// 事件通知在锁外进行，订阅者可以安全地回调回本存储
type TranscriptStore struct {
	mu       sync.Mutex
	chats    map[string]*chat.Conversation
	activeID string
	subs     []func(Event)

	// missingTargets 统计对不存在会话的 Select/Delete 调用
	// 策略上容忍为 no-op，但计数留作诊断
	missingTargets atomic.Int64
}

// NewTranscriptStore 创建空的会话存储
func NewTranscriptStore() *TranscriptStore {
	return &TranscriptStore{
		chats: make(map[string]*chat.Conversation),
	}
}

// Subscribe 订阅状态变更事件
// 订阅需在并发使用前完成，事件在变更已生效后、锁外回调
func (s *TranscriptStore) Subscribe(fn func(Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

func (s *TranscriptStore) notify(ev Event) {
	for _, fn := range s.subs {
		fn(ev)
	}
}

// Create 新建空会话并设为当前会话，返回新ID
// ID 按创建时间有序，排序键可直接由 ID 导出
func (s *TranscriptStore) Create() string {
	s.mu.Lock()
	newID := id.NewOrdered("chat")
	s.chats[newID] = &chat.Conversation{ID: newID, Title: "New Chat"}
	s.activeID = newID
	subs := s.subs
	s.mu.Unlock()

	for _, fn := range subs {
		fn(Event{Kind: EventCreated, ConversationID: newID})
	}
	return newID
}

// Select 切换当前会话
// 目标不存在时容忍为 no-op，记录诊断日志
func (s *TranscriptStore) Select(convID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chats[convID]; !ok {
		s.missingTargets.Add(1)
		log.Warn().Str("conversation_id", convID).Str("op", "select").Msg("missing_target")
		return
	}
	s.activeID = convID
}

// ActiveID 返回当前会话ID，无当前会话返回空串
func (s *TranscriptStore) ActiveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// Delete 删除会话
// 删除的是当前会话时清空当前选择；目标不存在时容忍为 no-op
func (s *TranscriptStore) Delete(convID string) {
	s.mu.Lock()
	if _, ok := s.chats[convID]; !ok {
		s.missingTargets.Add(1)
		log.Warn().Str("conversation_id", convID).Str("op", "delete").Msg("missing_target")
		s.mu.Unlock()
		return
	}
	delete(s.chats, convID)
	if s.activeID == convID {
		s.activeID = ""
	}
	subs := s.subs
	s.mu.Unlock()

	for _, fn := range subs {
		fn(Event{Kind: EventDeleted, ConversationID: convID})
	}
}

// Exists 检查会话是否存在
func (s *TranscriptStore) Exists(convID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.chats[convID]
	return ok
}

// Get 返回会话的深拷贝
func (s *TranscriptStore) Get(convID string) (*chat.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.chats[convID]
	if !ok {
		return nil, false
	}
	return conv.Clone(), true
}

// History 返回会话当前的消息列表拷贝（发送前采集上下文用）
func (s *TranscriptStore) History(convID string) []chat.Message {
	conv, ok := s.Get(convID)
	if !ok {
		return nil
	}
	return conv.Messages
}

// List 返回所有会话（新建在前，按 ID 倒序）
func (s *TranscriptStore) List() []*chat.Conversation {
	s.mu.Lock()
	out := make([]*chat.Conversation, 0, len(s.chats))
	for _, conv := range s.chats {
		out = append(out, conv.Clone())
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

// AppendUserMessage 追加用户消息
// 首条消息同时固化会话标题（取前40个字符），之后标题不再变化
func (s *TranscriptStore) AppendUserMessage(convID, text, imageDataURL string) error {
	s.mu.Lock()
	conv, ok := s.chats[convID]
	if !ok {
		s.mu.Unlock()
		return ErrConversationNotFound
	}
	if len(conv.Messages) == 0 {
		conv.Title = chat.DeriveTitle(text)
	}
	conv.Messages = append(conv.Messages, chat.Message{
		Role:  chat.RoleUser,
		Text:  text,
		Image: imageDataURL,
	})
	subs := s.subs
	s.mu.Unlock()

	for _, fn := range subs {
		fn(Event{Kind: EventMutated, ConversationID: convID})
	}
	return nil
}

// AppendModelPlaceholder 追加空的 MODEL 消息，作为流式合并的目标
func (s *TranscriptStore) AppendModelPlaceholder(convID string) error {
	s.mu.Lock()
	conv, ok := s.chats[convID]
	if !ok {
		s.mu.Unlock()
		return ErrConversationNotFound
	}
	conv.Messages = append(conv.Messages, chat.Message{Role: chat.RoleModel})
	subs := s.subs
	s.mu.Unlock()

	for _, fn := range subs {
		fn(Event{Kind: EventMutated, ConversationID: convID})
	}
	return nil
}

// AppendFragment 把一个流式片段累加到末尾的 MODEL 消息上
// 片段按到达顺序应用，累加赋值而不是每次重算全量文本
func (s *TranscriptStore) AppendFragment(convID, fragment string) error {
	s.mu.Lock()
	conv, ok := s.chats[convID]
	if !ok {
		s.mu.Unlock()
		return ErrConversationNotFound
	}
	n := len(conv.Messages)
	if n == 0 || conv.Messages[n-1].Role != chat.RoleModel {
		s.mu.Unlock()
		return errors.New("trailing message is not a model placeholder")
	}
	conv.Messages[n-1].Text += fragment
	subs := s.subs
	s.mu.Unlock()

	for _, fn := range subs {
		fn(Event{Kind: EventMutated, ConversationID: convID})
	}
	return nil
}

// AppendErrorSuffix 发送中断时把固定的错误标注追加到已有的部分文本之后
// 不回滚已合并的片段，错误标注本身也是会话内容的一部分
func (s *TranscriptStore) AppendErrorSuffix(convID, suffix string) error {
	return s.AppendFragment(convID, suffix)
}

// AttachSources 流结束后把引用来源附加到末尾的 MODEL 消息上，至多一次
func (s *TranscriptStore) AttachSources(convID string, sources []chat.Source) error {
	if len(sources) == 0 {
		return nil
	}
	s.mu.Lock()
	conv, ok := s.chats[convID]
	if !ok {
		s.mu.Unlock()
		return ErrConversationNotFound
	}
	n := len(conv.Messages)
	if n == 0 || conv.Messages[n-1].Role != chat.RoleModel {
		s.mu.Unlock()
		return errors.New("trailing message is not a model message")
	}
	if conv.Messages[n-1].Sources != nil {
		s.mu.Unlock()
		return errors.New("sources already attached")
	}
	conv.Messages[n-1].Sources = sources
	subs := s.subs
	s.mu.Unlock()

	for _, fn := range subs {
		fn(Event{Kind: EventMutated, ConversationID: convID})
	}
	return nil
}

// BeginSend 标记会话进入发送中状态
// 同一会话同时只允许一个未完成的发送，第二个发送直接拒绝而不是静默吞掉
func (s *TranscriptStore) BeginSend(convID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.chats[convID]
	if !ok {
		return ErrConversationNotFound
	}
	if conv.InFlight {
		return ErrSendInFlight
	}
	conv.InFlight = true
	return nil
}

// EndSend 清除发送中标记
func (s *TranscriptStore) EndSend(convID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if conv, ok := s.chats[convID]; ok {
		conv.InFlight = false
	}
}

// InFlight 查询会话是否在发送中
func (s *TranscriptStore) InFlight(convID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.chats[convID]
	return ok && conv.InFlight
}

// Snapshot 返回全量深拷贝（持久化用）
func (s *TranscriptStore) Snapshot() map[string]*chat.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]*chat.Conversation, len(s.chats))
	for cid, conv := range s.chats {
		out[cid] = conv.Clone()
	}
	return out
}

// Replace 用持久化快照整体替换内存状态（登录加载用，不触发事件）
func (s *TranscriptStore) Replace(chats map[string]*chat.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats = make(map[string]*chat.Conversation, len(chats))
	for cid, conv := range chats {
		c := conv.Clone()
		c.InFlight = false
		s.chats[cid] = c
	}
	s.activeID = ""
}

// Clear 清空全部会话和当前选择（登出用，不触发事件）
func (s *TranscriptStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats = make(map[string]*chat.Conversation)
	s.activeID = ""
}

// Len 会话数量
func (s *TranscriptStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.chats)
}

// MissingTargets 返回 missing-target 诊断计数
func (s *TranscriptStore) MissingTargets() int64 {
	return s.missingTargets.Load()
}
