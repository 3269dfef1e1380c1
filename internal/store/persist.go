package store

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"nova/internal/model/chat"
	"nova/internal/model/media"
	"nova/internal/pkg/kvstore"
)

// SchemaVersion 持久化快照格式版本
// 版本不匹配按解析失败处理：放弃旧数据从空状态开始，而不是错误地解析
const SchemaVersion = 1

// 持久化 key 按身份作用域划分，身份 A 的数据不可能被身份 B 加载
func chatsKey(userID string) string { return "sess:" + userID + ":chats" }
func mediaKey(userID string) string { return "sess:" + userID + ":media" }
func prefsKey(userID string) string { return "pref:" + userID }

// chatSnapshot 会话记录持久化格式
type chatSnapshot struct {
	SchemaVersion int                           `json:"schema_version"`
	Chats         map[string]*chat.Conversation `json:"chats"`
}

// mediaSnapshot 媒体历史持久化格式
type mediaSnapshot struct {
	SchemaVersion int          `json:"schema_version"`
	Items         []media.Item `json:"items"`
}

// Preferences 用户偏好（主题、语言）
// 登出时不清除，下次同一身份登录继续生效
type Preferences struct {
	Theme    string `json:"theme"`
	Language string `json:"language"`
}

// DefaultPreferences 默认偏好
func DefaultPreferences() Preferences {
	return Preferences{Theme: "dark", Language: "en"}
}

// Persister 会话状态持久化
// 每次内存变更后尽力而为地镜像到本地存储；写失败只记日志不上抛，
// 崩溃最多丢最近一次变更，这是明确接受的风险
type Persister struct {
	kv *kvstore.Store
}

// NewPersister 创建持久化器
func NewPersister(kv *kvstore.Store) *Persister {
	return &Persister{kv: kv}
}

// SaveChats 保存会话记录快照
func (p *Persister) SaveChats(userID string, chats map[string]*chat.Conversation) {
	snap := chatSnapshot{SchemaVersion: SchemaVersion, Chats: chats}
	if err := p.kv.SetJSON(chatsKey(userID), snap); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("failed to persist chats")
	}
}

// LoadChats 加载会话记录快照
// 没有历史数据不是错误；解析失败或版本不匹配降级为空状态
func (p *Persister) LoadChats(userID string) map[string]*chat.Conversation {
	var snap chatSnapshot
	err := p.kv.GetJSON(chatsKey(userID), &snap)
	switch {
	case errors.Is(err, kvstore.ErrKeyNotFound):
		return map[string]*chat.Conversation{}
	case err != nil:
		log.Warn().Err(err).Str("user_id", userID).Msg("failed to load chats, starting empty")
		return map[string]*chat.Conversation{}
	case snap.SchemaVersion != SchemaVersion:
		log.Warn().
			Int("stored_version", snap.SchemaVersion).
			Int("expected_version", SchemaVersion).
			Str("user_id", userID).
			Msg("chat snapshot schema mismatch, starting empty")
		return map[string]*chat.Conversation{}
	}
	if snap.Chats == nil {
		return map[string]*chat.Conversation{}
	}
	return snap.Chats
}

// SaveMedia 保存媒体历史快照
func (p *Persister) SaveMedia(userID string, items []media.Item) {
	snap := mediaSnapshot{SchemaVersion: SchemaVersion, Items: items}
	if err := p.kv.SetJSON(mediaKey(userID), snap); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("failed to persist media history")
	}
}

// LoadMedia 加载媒体历史快照
func (p *Persister) LoadMedia(userID string) []media.Item {
	var snap mediaSnapshot
	err := p.kv.GetJSON(mediaKey(userID), &snap)
	switch {
	case errors.Is(err, kvstore.ErrKeyNotFound):
		return nil
	case err != nil:
		log.Warn().Err(err).Str("user_id", userID).Msg("failed to load media history, starting empty")
		return nil
	case snap.SchemaVersion != SchemaVersion:
		log.Warn().
			Int("stored_version", snap.SchemaVersion).
			Int("expected_version", SchemaVersion).
			Str("user_id", userID).
			Msg("media snapshot schema mismatch, starting empty")
		return nil
	}
	return snap.Items
}

// SavePreferences 保存用户偏好
func (p *Persister) SavePreferences(userID string, prefs Preferences) error {
	if err := p.kv.SetJSON(prefsKey(userID), prefs); err != nil {
		return fmt.Errorf("failed to persist preferences: %w", err)
	}
	return nil
}

// LoadPreferences 加载用户偏好，没有存过则返回默认值
func (p *Persister) LoadPreferences(userID string) Preferences {
	var prefs Preferences
	if err := p.kv.GetJSON(prefsKey(userID), &prefs); err != nil {
		return DefaultPreferences()
	}
	if prefs.Theme == "" {
		prefs.Theme = "dark"
	}
	if prefs.Language == "" {
		prefs.Language = "en"
	}
	return prefs
}

// Clear 删除身份名下的会话记录和媒体历史（偏好保留）
func (p *Persister) Clear(userID string) {
	if err := p.kv.Delete(chatsKey(userID), mediaKey(userID)); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("failed to erase session state")
	}
}

// HasChats 检查身份名下是否有持久化的会话记录（测试用）
func (p *Persister) HasChats(userID string) bool {
	_, err := p.kv.Get(chatsKey(userID))
	return err == nil
}

// HasMedia 检查身份名下是否有持久化的媒体历史（测试用）
func (p *Persister) HasMedia(userID string) bool {
	_, err := p.kv.Get(mediaKey(userID))
	return err == nil
}
