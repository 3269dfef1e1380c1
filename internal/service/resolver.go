package service

import (
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"nova/internal/model/chat"
	"nova/internal/store"
)

// ErrPendingOccupied 待发送槽已被占用
var ErrPendingOccupied = errors.New("a pending send is already staged")

// SendIntent 一次待发送的消息意图
// ConversationID 为空表示绑定到下一个被创建的会话
type SendIntent struct {
	Prompt         string
	Attachment     *chat.Attachment
	ConversationID string
}

// PendingSendResolver 待发送解析器
// 单槽：发送发生在没有目标会话的时刻时，意图先入槽，
// 存储确认目标会话存在后绑定目标，由发送方取回派发。目标在取回前
// 被删除则整个意图作废，不重建会话也不补发。占用中的槽拒绝新的暂存
type PendingSendResolver struct {
	mu      sync.Mutex
	pending *SendIntent
}

// NewPendingSendResolver 创建解析器并订阅存储事件
func NewPendingSendResolver(transcript *store.TranscriptStore) *PendingSendResolver {
	r := &PendingSendResolver{}
	transcript.Subscribe(r.onEvent)
	return r
}

// Stage 暂存一个发送意图
func (r *PendingSendResolver) Stage(intent SendIntent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pending != nil {
		return ErrPendingOccupied
	}
	r.pending = &intent
	return nil
}

// Take 取走已绑定目标会话的意图并清槽
// 只有经 resolve 绑定过目标的意图才可取走
func (r *PendingSendResolver) Take() (SendIntent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pending == nil || r.pending.ConversationID == "" {
		return SendIntent{}, false
	}
	intent := *r.pending
	r.pending = nil
	return intent, true
}

// Pending 返回当前暂存的意图（诊断和测试用）
func (r *PendingSendResolver) Pending() *SendIntent {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pending == nil {
		return nil
	}
	cp := *r.pending
	return &cp
}

func (r *PendingSendResolver) onEvent(ev store.Event) {
	switch ev.Kind {
	case store.EventCreated:
		r.resolve(ev.ConversationID)
	case store.EventDeleted:
		r.drop(ev.ConversationID)
	}
}

// resolve 目标会话就绪，绑定意图等待取回
func (r *PendingSendResolver) resolve(convID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pending == nil || r.pending.ConversationID != "" {
		return
	}
	r.pending.ConversationID = convID
}

// drop 目标会话在取回前被删除，意图作废
func (r *PendingSendResolver) drop(convID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pending != nil && r.pending.ConversationID == convID {
		log.Warn().Str("conversation_id", convID).Msg("pending send dropped, target deleted")
		r.pending = nil
	}
}
