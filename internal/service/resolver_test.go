package service

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"nova/internal/store"
)

func TestPendingSendResolver(t *testing.T) {
	Convey("PendingSendResolver 待发送解析测试", t, func() {
		transcript := store.NewTranscriptStore()
		resolver := NewPendingSendResolver(transcript)

		Convey("占用中的槽拒绝新的暂存", func() {
			So(resolver.Stage(SendIntent{Prompt: "first"}), ShouldBeNil)
			So(resolver.Stage(SendIntent{Prompt: "second"}), ShouldEqual, ErrPendingOccupied)
		})

		Convey("会话创建后意图绑定到新会话", func() {
			So(resolver.Stage(SendIntent{Prompt: "hello"}), ShouldBeNil)

			convID := transcript.Create()

			pending := resolver.Pending()
			So(pending, ShouldNotBeNil)
			So(pending.ConversationID, ShouldEqual, convID)

			Convey("绑定后的意图可被取走，槽清空", func() {
				intent, ok := resolver.Take()
				So(ok, ShouldBeTrue)
				So(intent.Prompt, ShouldEqual, "hello")
				So(intent.ConversationID, ShouldEqual, convID)
				So(resolver.Pending(), ShouldBeNil)
			})
		})

		Convey("未绑定目标的意图不可取走", func() {
			So(resolver.Stage(SendIntent{Prompt: "hello"}), ShouldBeNil)
			_, ok := resolver.Take()
			So(ok, ShouldBeFalse)
		})

		Convey("已绑定的意图不被后续创建改写", func() {
			So(resolver.Stage(SendIntent{Prompt: "hello"}), ShouldBeNil)

			first := transcript.Create()
			transcript.Create()

			pending := resolver.Pending()
			So(pending, ShouldNotBeNil)
			So(pending.ConversationID, ShouldEqual, first)
		})

		Convey("目标在派发前被删除则意图作废", func() {
			So(resolver.Stage(SendIntent{Prompt: "doomed"}), ShouldBeNil)

			convID := transcript.Create()
			So(resolver.Pending(), ShouldNotBeNil)

			transcript.Delete(convID)
			So(resolver.Pending(), ShouldBeNil)

			Convey("不重建会话也不补发", func() {
				So(transcript.Len(), ShouldEqual, 0)
			})
		})
	})
}
