package service

import (
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"nova/internal/model/auth"
	"nova/internal/model/chat"
	"nova/internal/store"
)

var (
	// ErrConfirmRequired 会话非空时切换思考模式需要显式确认
	ErrConfirmRequired = errors.New("mode change requires confirmation")

	// ErrInvalidMode 未知的思考模式
	ErrInvalidMode = errors.New("invalid thinking mode")
)

// Session 一个已登录身份的全部会话状态
// 对话记录、媒体历史、思考模式、偏好都挂在这里，
// 身份登出即整体清除（偏好除外）
type Session struct {
	Identity   *auth.Identity
	Transcript *store.TranscriptStore
	Media      *store.MediaStore
	Resolver   *PendingSendResolver

	mu    sync.Mutex
	mode  chat.ThinkingMode
	prefs store.Preferences

	// persistMu 串行化该身份的落盘；detached 在登出时置位，
	// 之后任何迟到的落盘都被丢弃，不会把已清除的状态写回去
	persistMu sync.Mutex
	detached  bool
}

// Mode 当前思考模式
func (s *Session) Mode() chat.ThinkingMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

func (s *Session) setMode(mode chat.ThinkingMode) {
	s.mu.Lock()
	s.mode = mode
	s.mu.Unlock()
}

// Preferences 当前偏好
func (s *Session) Preferences() store.Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prefs
}

// SessionService 会话身份门
// 状态机只有两态：SignedOut / SignedIn(identity)，由认证服务的
// 登录/登出通知驱动。身份之间不存在直接切换路径，必须先经过登出
type SessionService struct {
	mu        sync.Mutex
	sessions  map[string]*Session
	persister *store.Persister
}

// NewSessionService 创建会话身份门
func NewSessionService(persister *store.Persister) *SessionService {
	return &SessionService{
		sessions:  make(map[string]*Session),
		persister: persister,
	}
}

// SignIn 登录通知：为身份装载会话状态
// 从持久层恢复对话记录和媒体历史（缺失或损坏视为空），
// 并接上变更事件到持久化的管道
func (s *SessionService) SignIn(identity *auth.Identity) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.sessions[identity.ID]; ok {
		return existing
	}

	session := &Session{
		Identity:   identity,
		Transcript: store.NewTranscriptStore(),
		Media:      store.NewMediaStore(),
		mode:       chat.DefaultMode,
		prefs:      s.persister.LoadPreferences(identity.ID),
	}
	session.Resolver = NewPendingSendResolver(session.Transcript)

	session.Transcript.Replace(s.persister.LoadChats(identity.ID))
	session.Media.Replace(s.persister.LoadMedia(identity.ID))

	// 每次变更都异步落盘，同一身份的写入串行，崩溃最多丢最后一次变更
	session.Transcript.Subscribe(func(ev store.Event) {
		go s.persistChats(session)
	})
	session.Media.Subscribe(func() {
		go s.persistMedia(session)
	})

	s.sessions[identity.ID] = session
	log.Info().Str("user_id", identity.ID).
		Int("conversations", session.Transcript.Len()).
		Int("media_items", session.Media.Len()).
		Msg("session loaded")
	return session
}

// persistChats 落盘对话记录
// 快照在 persistMu 内采集，串行写入保证后落盘的一定不比先落盘的旧
func (s *SessionService) persistChats(session *Session) {
	session.persistMu.Lock()
	defer session.persistMu.Unlock()
	if session.detached {
		return
	}
	s.persister.SaveChats(session.Identity.ID, session.Transcript.Snapshot())
}

// persistMedia 落盘媒体历史
func (s *SessionService) persistMedia(session *Session) {
	session.persistMu.Lock()
	defer session.persistMu.Unlock()
	if session.detached {
		return
	}
	s.persister.SaveMedia(session.Identity.ID, session.Media.Snapshot())
}

// SignOut 登出通知：清内存并删除持久化键
// 对话记录和媒体历史一并清除，偏好保留。
// 删除键排在该身份所有在途落盘之后，detached 挡住之后到达的落盘，
// 登出后的持久层不会再被写回
func (s *SessionService) SignOut(userID string) {
	s.mu.Lock()
	session, ok := s.sessions[userID]
	delete(s.sessions, userID)
	s.mu.Unlock()

	if ok {
		session.persistMu.Lock()
		session.detached = true
		session.Transcript.Clear()
		session.Media.Clear()
		s.persister.Clear(userID)
		session.persistMu.Unlock()
	} else {
		s.persister.Clear(userID)
	}
	log.Info().Str("user_id", userID).Msg("session cleared")
}

// Ensure 返回身份对应的会话，不存在则装载
// 服务重启后首个带合法 Token 的请求会走到这里完成懒恢复
func (s *SessionService) Ensure(identity *auth.Identity) *Session {
	s.mu.Lock()
	existing, ok := s.sessions[identity.ID]
	s.mu.Unlock()
	if ok {
		return existing
	}
	return s.SignIn(identity)
}

// Get 返回身份对应的会话
func (s *SessionService) Get(userID string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[userID]
	return session, ok
}

// NewConversation 用户主动新建会话
// 思考模式重置为默认值
func (s *SessionService) NewConversation(session *Session) string {
	session.setMode(chat.DefaultMode)
	return session.Transcript.Create()
}

// ChangeMode 切换思考模式
// 当前会话已有消息时必须显式确认；确认后的切换会新开一个
// 携带新模式的会话，原会话保持原样
func (s *SessionService) ChangeMode(session *Session, mode chat.ThinkingMode, confirmed bool) (newConvID string, err error) {
	if !mode.IsValid() {
		return "", ErrInvalidMode
	}
	if mode == session.Mode() {
		return "", nil
	}

	activeID := session.Transcript.ActiveID()
	if activeID != "" {
		if conv, ok := session.Transcript.Get(activeID); ok && len(conv.Messages) > 0 {
			if !confirmed {
				return "", ErrConfirmRequired
			}
			session.setMode(mode)
			return session.Transcript.Create(), nil
		}
	}

	session.setMode(mode)
	return "", nil
}

// UpdatePreferences 更新并持久化偏好
func (s *SessionService) UpdatePreferences(session *Session, prefs store.Preferences) error {
	session.mu.Lock()
	session.prefs = prefs
	uid := session.Identity.ID
	session.mu.Unlock()
	return s.persister.SavePreferences(uid, prefs)
}
