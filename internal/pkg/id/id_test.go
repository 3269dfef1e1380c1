package id

import (
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestID(t *testing.T) {
	Convey("ID 生成测试", t, func() {
		Convey("New 生成合法UUID", func() {
			So(IsValid(New()), ShouldBeTrue)
			So(IsValid("not-a-uuid"), ShouldBeFalse)
		})

		Convey("NewOrdered 带前缀且字典序等于创建序", func() {
			first := NewOrdered("chat")
			time.Sleep(2 * time.Millisecond)
			second := NewOrdered("chat")

			So(strings.HasPrefix(first, "chat_"), ShouldBeTrue)
			So(second, ShouldBeGreaterThan, first)
		})

		Convey("CreatedAt 从ID恢复创建时间", func() {
			before := time.Now().Add(-time.Second)
			id := NewOrdered("img")
			after := time.Now().Add(time.Second)

			created := CreatedAt(id)
			So(created.After(before), ShouldBeTrue)
			So(created.Before(after), ShouldBeTrue)
		})

		Convey("畸形ID的创建时间为零值", func() {
			So(CreatedAt("garbage").IsZero(), ShouldBeTrue)
		})
	})
}
