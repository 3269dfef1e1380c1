package store

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"nova/internal/config"
	"nova/internal/model/chat"
	"nova/internal/model/media"
	"nova/internal/pkg/kvstore"
)

func newTestKV(t *testing.T) *kvstore.Store {
	t.Helper()
	kv, err := kvstore.Open(&config.StoreConfig{InMemory: true})
	if err != nil {
		t.Fatalf("failed to open in-memory kv store: %v", err)
	}
	t.Cleanup(func() { kv.Close() })
	return kv
}

func TestPersister_Roundtrip(t *testing.T) {
	Convey("Persister 快照保存与恢复测试", t, func() {
		kv := newTestKV(t)
		p := NewPersister(kv)

		Convey("会话记录存取往返", func() {
			src := NewTranscriptStore()
			convID := src.Create()
			So(src.AppendUserMessage(convID, "你好", ""), ShouldBeNil)
			So(src.AppendModelPlaceholder(convID), ShouldBeNil)
			So(src.AppendFragment(convID, "回复"), ShouldBeNil)

			p.SaveChats("user-1", src.Snapshot())

			loaded := p.LoadChats("user-1")
			So(len(loaded), ShouldEqual, 1)
			So(loaded[convID].Title, ShouldEqual, "你好")
			So(len(loaded[convID].Messages), ShouldEqual, 2)
			So(loaded[convID].Messages[1].Text, ShouldEqual, "回复")
		})

		Convey("媒体历史存取往返", func() {
			items := []media.Item{
				{ID: "img_1", Kind: media.KindImage, Prompt: "a cat", ImageURL: "data:image/jpeg;base64,xxx"},
			}
			p.SaveMedia("user-1", items)

			loaded := p.LoadMedia("user-1")
			So(len(loaded), ShouldEqual, 1)
			So(loaded[0].Prompt, ShouldEqual, "a cat")
		})

		Convey("没有历史数据的身份加载为空", func() {
			So(p.LoadChats("nobody"), ShouldBeEmpty)
			So(p.LoadMedia("nobody"), ShouldBeEmpty)
		})

		Convey("身份之间的数据互不可见", func() {
			src := NewTranscriptStore()
			src.Create()
			p.SaveChats("user-a", src.Snapshot())

			So(p.LoadChats("user-b"), ShouldBeEmpty)
		})
	})
}

func TestPersister_Degradation(t *testing.T) {
	Convey("Persister 损坏数据降级测试", t, func() {
		kv := newTestKV(t)
		p := NewPersister(kv)

		Convey("版本不匹配的快照降级为空状态", func() {
			So(kv.SetJSON("sess:user-1:chats", map[string]any{
				"schema_version": SchemaVersion + 1,
				"chats": map[string]any{
					"chat_1": map[string]any{"id": "chat_1", "title": "old"},
				},
			}), ShouldBeNil)

			So(p.LoadChats("user-1"), ShouldBeEmpty)
		})

		Convey("不可解析的快照降级为空状态", func() {
			So(kv.Set("sess:user-1:chats", []byte("not json{")), ShouldBeNil)
			So(kv.Set("sess:user-1:media", []byte("not json{")), ShouldBeNil)

			So(p.LoadChats("user-1"), ShouldBeEmpty)
			So(p.LoadMedia("user-1"), ShouldBeEmpty)
		})
	})
}

func TestPersister_ClearAndPreferences(t *testing.T) {
	Convey("Persister 登出清除与偏好保留测试", t, func() {
		kv := newTestKV(t)
		p := NewPersister(kv)

		chats := map[string]*chat.Conversation{
			"chat_1": {ID: "chat_1", Title: "hello"},
		}
		p.SaveChats("user-1", chats)
		p.SaveMedia("user-1", []media.Item{{ID: "img_1", Kind: media.KindImage}})
		So(p.SavePreferences("user-1", Preferences{Theme: "light", Language: "zh"}), ShouldBeNil)

		Convey("Clear 删除会话和媒体，偏好保留", func() {
			p.Clear("user-1")

			So(p.HasChats("user-1"), ShouldBeFalse)
			So(p.HasMedia("user-1"), ShouldBeFalse)

			prefs := p.LoadPreferences("user-1")
			So(prefs.Theme, ShouldEqual, "light")
			So(prefs.Language, ShouldEqual, "zh")
		})

		Convey("没存过偏好时返回默认值", func() {
			prefs := p.LoadPreferences("fresh-user")
			So(prefs.Theme, ShouldEqual, "dark")
			So(prefs.Language, ShouldEqual, "en")
		})
	})
}
