package store

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"nova/internal/model/media"
)

func TestMediaStore(t *testing.T) {
	Convey("MediaStore 媒体历史测试", t, func() {
		s := NewMediaStore()

		Convey("记录按新建在前排列", func() {
			a := s.Record(media.KindImage, "prompt A", "thumb-a", "")
			b := s.Record(media.KindImage, "prompt B", "thumb-b", "")
			c := s.Record(media.KindVideo, "prompt C", "", "https://cdn.example.com/c.mp4")

			items := s.List()
			So(len(items), ShouldEqual, 3)
			So(items[0].ID, ShouldEqual, c)
			So(items[1].ID, ShouldEqual, b)
			So(items[2].ID, ShouldEqual, a)
			So(items[0].VideoURL, ShouldNotBeEmpty)
			So(items[2].Prompt, ShouldEqual, "prompt A")
		})

		Convey("按ID删除，不存在时为 no-op", func() {
			a := s.Record(media.KindImage, "prompt A", "thumb-a", "")
			b := s.Record(media.KindImage, "prompt B", "thumb-b", "")

			s.Delete(a)
			So(s.Len(), ShouldEqual, 1)
			So(s.List()[0].ID, ShouldEqual, b)

			s.Delete("img_0000000000000_deadbeef")
			So(s.Len(), ShouldEqual, 1)
		})

		Convey("每条记录带时间戳", func() {
			s.Record(media.KindImageEdit, "(Edit) make it blue", "thumb", "")
			So(s.List()[0].Timestamp, ShouldNotBeEmpty)
			So(s.List()[0].Kind, ShouldEqual, media.KindImageEdit)
		})

		Convey("变更触发订阅回调", func() {
			var calls int
			s.Subscribe(func() { calls++ })

			id := s.Record(media.KindImage, "p", "t", "")
			s.Delete(id)
			So(calls, ShouldEqual, 2)

			Convey("目标不存在的删除不触发回调", func() {
				s.Delete("img_0000000000000_deadbeef")
				So(calls, ShouldEqual, 2)
			})
		})

		Convey("快照替换用于登录恢复", func() {
			s.Record(media.KindImage, "old", "t", "")
			snapshot := s.Snapshot()

			restored := NewMediaStore()
			restored.Replace(snapshot)
			So(restored.Len(), ShouldEqual, 1)
			So(restored.List()[0].Prompt, ShouldEqual, "old")
		})
	})
}
