package service

import (
	"fmt"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"nova/internal/config"
	"nova/internal/model/auth"
	"nova/internal/model/chat"
	"nova/internal/pkg/kvstore"
	"nova/internal/store"
)

func newTestGate(t *testing.T) (*SessionService, *store.Persister) {
	t.Helper()
	kv, err := kvstore.Open(&config.StoreConfig{InMemory: true})
	if err != nil {
		t.Fatalf("failed to open in-memory kv store: %v", err)
	}
	t.Cleanup(func() { kv.Close() })
	persister := store.NewPersister(kv)
	return NewSessionService(persister), persister
}

// waitPersisted 等待异步落盘完成
func waitPersisted(check func() bool) bool {
	for i := 0; i < 100; i++ {
		if check() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

func TestSessionService_SignInOut(t *testing.T) {
	Convey("SessionService 身份门测试", t, func() {
		gate, persister := newTestGate(t)
		identity := &auth.Identity{ID: "user-1", DisplayName: "Tester"}

		Convey("登录装载空状态并接上持久化管道", func() {
			session := gate.SignIn(identity)
			So(session.Transcript.Len(), ShouldEqual, 0)
			So(session.Mode(), ShouldEqual, chat.DefaultMode)

			convID := session.Transcript.Create()
			So(session.Transcript.AppendUserMessage(convID, "hello", ""), ShouldBeNil)

			So(waitPersisted(func() bool { return persister.HasChats("user-1") }), ShouldBeTrue)
		})

		Convey("重复登录返回同一个会话", func() {
			first := gate.SignIn(identity)
			second := gate.SignIn(identity)
			So(second, ShouldEqual, first)
		})

		Convey("登出清内存并删除持久化键", func() {
			session := gate.SignIn(identity)
			convID := session.Transcript.Create()
			So(session.Transcript.AppendUserMessage(convID, "hello", ""), ShouldBeNil)
			session.Media.Record("image", "a cat", "thumb", "")
			So(waitPersisted(func() bool {
				return persister.HasChats("user-1") && persister.HasMedia("user-1")
			}), ShouldBeTrue)

			gate.SignOut("user-1")

			So(session.Transcript.Len(), ShouldEqual, 0)
			So(session.Media.Len(), ShouldEqual, 0)
			So(persister.HasChats("user-1"), ShouldBeFalse)
			So(persister.HasMedia("user-1"), ShouldBeFalse)

			_, ok := gate.Get("user-1")
			So(ok, ShouldBeFalse)
		})

		Convey("登出紧跟在变更之后，迟到的落盘不会把状态写回", func() {
			ids := make([]string, 50)
			for i := range ids {
				uid := fmt.Sprintf("user-race-%d", i)
				ids[i] = uid
				session := gate.SignIn(&auth.Identity{ID: uid})
				convID := session.Transcript.Create()
				So(session.Transcript.AppendUserMessage(convID, "hello", ""), ShouldBeNil)
				session.Media.Record("image", "a cat", "thumb", "")
				// 不等落盘完成，立即登出
				gate.SignOut(uid)
			}

			// 给在途落盘足够的着陆时间，持久层必须始终为空
			resurrected := waitPersisted(func() bool {
				for _, uid := range ids {
					if persister.HasChats(uid) || persister.HasMedia(uid) {
						return true
					}
				}
				return false
			})
			So(resurrected, ShouldBeFalse)
		})

		Convey("再次登录从持久化状态恢复", func() {
			session := gate.SignIn(identity)
			convID := session.Transcript.Create()
			So(session.Transcript.AppendUserMessage(convID, "remember me", ""), ShouldBeNil)
			So(waitPersisted(func() bool { return persister.HasChats("user-1") }), ShouldBeTrue)

			// 模拟进程重启：新的门，同一个持久层
			gate2 := NewSessionService(persister)
			restored := gate2.Ensure(identity)

			So(restored.Transcript.Len(), ShouldEqual, 1)
			conv, ok := restored.Transcript.Get(convID)
			So(ok, ShouldBeTrue)
			So(conv.Messages[0].Text, ShouldEqual, "remember me")

			Convey("恢复后没有当前选择", func() {
				So(restored.Transcript.ActiveID(), ShouldBeEmpty)
			})
		})

		Convey("偏好跨登出保留", func() {
			session := gate.SignIn(identity)
			So(gate.UpdatePreferences(session, store.Preferences{Theme: "light", Language: "zh"}), ShouldBeNil)

			gate.SignOut("user-1")
			again := gate.SignIn(identity)

			So(again.Preferences().Theme, ShouldEqual, "light")
			So(again.Preferences().Language, ShouldEqual, "zh")
		})
	})
}

func TestSessionService_ChangeMode(t *testing.T) {
	Convey("SessionService 思考模式切换测试", t, func() {
		gate, _ := newTestGate(t)
		session := gate.SignIn(&auth.Identity{ID: "user-1"})

		Convey("未知模式被拒绝", func() {
			_, err := gate.ChangeMode(session, "Turbo", false)
			So(err, ShouldEqual, ErrInvalidMode)
		})

		Convey("空会话上切换直接生效，不新建会话", func() {
			session.Transcript.Create()
			newID, err := gate.ChangeMode(session, chat.ModeLight, false)
			So(err, ShouldBeNil)
			So(newID, ShouldBeEmpty)
			So(session.Mode(), ShouldEqual, chat.ModeLight)
			So(session.Transcript.Len(), ShouldEqual, 1)
		})

		Convey("非空会话上未确认的切换被拒绝且什么都不变", func() {
			convID := session.Transcript.Create()
			So(session.Transcript.AppendUserMessage(convID, "hi", ""), ShouldBeNil)

			_, err := gate.ChangeMode(session, chat.ModeDeepThought, false)
			So(err, ShouldEqual, ErrConfirmRequired)
			So(session.Mode(), ShouldEqual, chat.DefaultMode)
			So(session.Transcript.Len(), ShouldEqual, 1)
		})

		Convey("非空会话上确认的切换新开携带新模式的会话", func() {
			convID := session.Transcript.Create()
			So(session.Transcript.AppendUserMessage(convID, "hi", ""), ShouldBeNil)

			newID, err := gate.ChangeMode(session, chat.ModeDeepThought, true)
			So(err, ShouldBeNil)
			So(newID, ShouldNotBeEmpty)
			So(newID, ShouldNotEqual, convID)
			So(session.Mode(), ShouldEqual, chat.ModeDeepThought)
			So(session.Transcript.ActiveID(), ShouldEqual, newID)

			Convey("原会话保持原样", func() {
				conv, ok := session.Transcript.Get(convID)
				So(ok, ShouldBeTrue)
				So(len(conv.Messages), ShouldEqual, 1)
			})
		})

		Convey("切到当前模式是 no-op", func() {
			newID, err := gate.ChangeMode(session, session.Mode(), false)
			So(err, ShouldBeNil)
			So(newID, ShouldBeEmpty)
		})

		Convey("用户主动新建会话时模式重置为默认值", func() {
			session.setMode(chat.ModeCodeMaster)
			gate.NewConversation(session)
			So(session.Mode(), ShouldEqual, chat.DefaultMode)
		})
	})
}
