package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"nova/internal/ai"
	"nova/internal/model/auth"
	"nova/internal/model/chat"
	"nova/internal/store"
)

// fakeStream 预置片段序列的假流
type fakeStream struct {
	fragments []ai.Fragment
	failAfter int // 吐出这么多片段后返回错误；-1 表示正常结束
	pos       int
	closed    bool
}

func (f *fakeStream) Recv() (ai.Fragment, error) {
	if f.failAfter >= 0 && f.pos == f.failAfter {
		return ai.Fragment{}, errors.New("provider stream broken")
	}
	if f.pos >= len(f.fragments) {
		return ai.Fragment{}, io.EOF
	}
	frag := f.fragments[f.pos]
	f.pos++
	return frag, nil
}

func (f *fakeStream) Close() { f.closed = true }

type fakeChatSession struct {
	stream *fakeStream
}

func (f *fakeChatSession) SendStream(ctx context.Context, prompt string, attachment *chat.Attachment) (ai.Stream, error) {
	return f.stream, nil
}

type fakeBackend struct {
	stream      *fakeStream
	openErr     error
	lastMode    chat.ThinkingMode
	lastHistory []chat.Message
}

func (f *fakeBackend) OpenSession(ctx context.Context, mode chat.ThinkingMode, history []chat.Message) (ai.ChatSession, error) {
	f.lastMode = mode
	f.lastHistory = history
	if f.openErr != nil {
		return nil, f.openErr
	}
	return &fakeChatSession{stream: f.stream}, nil
}

func newTestSession() *Session {
	s := &Session{
		Identity:   &auth.Identity{ID: "user-test"},
		Transcript: store.NewTranscriptStore(),
		Media:      store.NewMediaStore(),
		mode:       chat.DefaultMode,
		prefs:      store.DefaultPreferences(),
	}
	s.Resolver = NewPendingSendResolver(s.Transcript)
	return s
}

// collect 读空事件通道
func collect(events <-chan StreamEvent) []StreamEvent {
	var out []StreamEvent
	for ev := range events {
		out = append(out, ev)
	}
	return out
}

func textFragments(texts ...string) []ai.Fragment {
	out := make([]ai.Fragment, len(texts))
	for i, t := range texts {
		out[i] = ai.Fragment{Text: t}
	}
	return out
}

func TestChatService_Merge(t *testing.T) {
	Convey("ChatService 流式合并测试", t, func() {
		session := newTestSession()
		convID := session.Transcript.Create()

		Convey("片段按到达顺序合并为完整回复", func() {
			backend := &fakeBackend{stream: &fakeStream{
				fragments: textFragments("Hel", "lo, ", "world"),
				failAfter: -1,
			}}
			svc := NewChatService(backend)

			gotID, events, err := svc.SendMessage(context.Background(), session, "打个招呼", nil)
			So(err, ShouldBeNil)
			So(gotID, ShouldEqual, convID)

			evs := collect(events)
			So(evs[len(evs)-1].Done, ShouldBeTrue)

			conv, _ := session.Transcript.Get(convID)
			So(len(conv.Messages), ShouldEqual, 2)
			So(conv.Messages[0].Role, ShouldEqual, chat.RoleUser)
			So(conv.Messages[0].Text, ShouldEqual, "打个招呼")
			So(conv.Messages[1].Role, ShouldEqual, chat.RoleModel)
			So(conv.Messages[1].Text, ShouldEqual, "Hello, world")

			Convey("发送结束后可以再次发送", func() {
				So(session.Transcript.InFlight(convID), ShouldBeFalse)
			})
		})

		Convey("上下文历史在追加新消息之前采集", func() {
			So(session.Transcript.AppendUserMessage(convID, "旧消息", ""), ShouldBeNil)
			So(session.Transcript.AppendModelPlaceholder(convID), ShouldBeNil)
			So(session.Transcript.AppendFragment(convID, "旧回复"), ShouldBeNil)

			backend := &fakeBackend{stream: &fakeStream{
				fragments: textFragments("ok"),
				failAfter: -1,
			}}
			svc := NewChatService(backend)

			_, events, err := svc.SendMessage(context.Background(), session, "新消息", nil)
			So(err, ShouldBeNil)
			collect(events)

			// 历史只含之前的两条，新消息经由 SendStream 进入模型
			So(len(backend.lastHistory), ShouldEqual, 2)
			So(backend.lastHistory[0].Text, ShouldEqual, "旧消息")
		})

		Convey("末段携带的引用来源附加且只附加一次", func() {
			sources := []chat.Source{{URI: "https://example.com/a", Title: "A"}}
			backend := &fakeBackend{stream: &fakeStream{
				fragments: []ai.Fragment{
					{Text: "answer "},
					{Text: "done", Sources: sources},
				},
				failAfter: -1,
			}}
			svc := NewChatService(backend)

			_, events, err := svc.SendMessage(context.Background(), session, "查一下", nil)
			So(err, ShouldBeNil)

			var sourcesEvents int
			for _, ev := range collect(events) {
				if len(ev.Sources) > 0 {
					sourcesEvents++
				}
			}
			So(sourcesEvents, ShouldEqual, 1)

			conv, _ := session.Transcript.Get(convID)
			So(len(conv.Messages[1].Sources), ShouldEqual, 1)
			So(conv.Messages[1].Sources[0].Title, ShouldEqual, "A")
		})
	})
}

func TestChatService_StreamError(t *testing.T) {
	Convey("ChatService 流中断测试", t, func() {
		session := newTestSession()
		convID := session.Transcript.Create()

		Convey("中断时错误标注追加到部分文本，不回滚", func() {
			backend := &fakeBackend{stream: &fakeStream{
				fragments: textFragments("partial "),
				failAfter: 1,
			}}
			svc := NewChatService(backend)

			_, events, err := svc.SendMessage(context.Background(), session, "hi", nil)
			So(err, ShouldBeNil)

			evs := collect(events)
			So(evs[len(evs)-1].Err, ShouldNotBeNil)

			conv, _ := session.Transcript.Get(convID)
			So(conv.Messages[1].Text, ShouldStartWith, "partial ")
			So(conv.Messages[1].Text, ShouldEndWith, "**Sorry, something went wrong. Please try again.**")

			Convey("发送中标记已清除", func() {
				So(session.Transcript.InFlight(convID), ShouldBeFalse)
			})
		})

		Convey("语言偏好决定错误标注文案", func() {
			session.prefs.Language = "zh"
			backend := &fakeBackend{stream: &fakeStream{failAfter: 0}}
			svc := NewChatService(backend)

			_, events, err := svc.SendMessage(context.Background(), session, "hi", nil)
			So(err, ShouldBeNil)
			collect(events)

			conv, _ := session.Transcript.Get(convID)
			So(conv.Messages[1].Text, ShouldContainSubstring, "抱歉")
		})

		Convey("会话打开失败时错误标注同样落在占位上", func() {
			backend := &fakeBackend{openErr: errors.New("no provider")}
			svc := NewChatService(backend)

			_, _, err := svc.SendMessage(context.Background(), session, "hi", nil)
			So(err, ShouldNotBeNil)

			conv, _ := session.Transcript.Get(convID)
			So(len(conv.Messages), ShouldEqual, 2)
			So(conv.Messages[1].Text, ShouldContainSubstring, "**")
			So(session.Transcript.InFlight(convID), ShouldBeFalse)
		})
	})
}

func TestChatService_InFlight(t *testing.T) {
	Convey("ChatService 单发送约束测试", t, func() {
		session := newTestSession()
		convID := session.Transcript.Create()

		Convey("同一会话发送中时第二个发送被拒绝", func() {
			So(session.Transcript.BeginSend(convID), ShouldBeNil)

			backend := &fakeBackend{stream: &fakeStream{failAfter: -1}}
			svc := NewChatService(backend)

			_, _, err := svc.SendMessage(context.Background(), session, "again", nil)
			So(errors.Is(err, store.ErrSendInFlight), ShouldBeTrue)

			// 被拒绝的发送没有留下任何消息
			conv, _ := session.Transcript.Get(convID)
			So(conv.Messages, ShouldBeEmpty)
		})
	})
}

func TestChatService_PendingSend(t *testing.T) {
	Convey("ChatService 无目标发送测试", t, func() {
		session := newTestSession()

		Convey("没有当前会话时恰好产出一个会话", func() {
			backend := &fakeBackend{stream: &fakeStream{
				fragments: textFragments("reply"),
				failAfter: -1,
			}}
			svc := NewChatService(backend)

			convID, events, err := svc.SendMessage(context.Background(), session, "first message", nil)
			So(err, ShouldBeNil)
			So(convID, ShouldNotBeEmpty)
			collect(events)

			So(session.Transcript.Len(), ShouldEqual, 1)
			So(session.Transcript.ActiveID(), ShouldEqual, convID)

			conv, _ := session.Transcript.Get(convID)
			So(len(conv.Messages), ShouldEqual, 2)
			So(conv.Messages[0].Text, ShouldEqual, "first message")
			So(conv.Title, ShouldEqual, "first message")

			Convey("槽已清空，后续发送不受影响", func() {
				So(session.Resolver.Pending(), ShouldBeNil)
			})
		})
	})
}

func TestChatService_ConsumerGone(t *testing.T) {
	Convey("ChatService 消费端断开测试", t, func() {
		session := newTestSession()
		convID := session.Transcript.Create()

		texts := make([]string, 64)
		for i := range texts {
			texts[i] = "x"
		}
		backend := &fakeBackend{stream: &fakeStream{
			fragments: textFragments(texts...),
			failAfter: -1,
		}}
		svc := NewChatService(backend)

		ctx, cancel := context.WithCancel(context.Background())
		gotID, _, err := svc.SendMessage(ctx, session, "hello", nil)
		So(err, ShouldBeNil)
		So(gotID, ShouldEqual, convID)

		// 模拟客户端断开：事件通道无人读取，请求上下文被取消。
		// 片段数远超通道缓冲，消费循环必须不被写满的通道卡死
		cancel()

		cleared := false
		for i := 0; i < 100; i++ {
			if !session.Transcript.InFlight(convID) {
				cleared = true
				break
			}
			time.Sleep(10 * time.Millisecond)
		}

		Convey("发送标记最终被清除，会话不会卡死", func() {
			So(cleared, ShouldBeTrue)

			Convey("片段照常合并进存储", func() {
				conv, ok := session.Transcript.Get(convID)
				So(ok, ShouldBeTrue)
				last := conv.Messages[len(conv.Messages)-1]
				So(last.Role, ShouldEqual, chat.RoleModel)
				So(last.Text, ShouldEqual, strings.Repeat("x", 64))
			})

			Convey("后续发送不再被拒", func() {
				So(session.Transcript.BeginSend(convID), ShouldBeNil)
				session.Transcript.EndSend(convID)
			})
		})
	})
}
