package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"google.golang.org/genai"

	"nova/internal/ai"
	"nova/internal/config"
	"nova/internal/model/media"
	"nova/internal/pkg/storage"
)

// testPNG 生成一张可解码的小图
func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 30), G: uint8(y * 30), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test png: %v", err)
	}
	return buf.Bytes()
}

type fakeImageBackend struct {
	image   []byte
	genErr  error
	editErr error
}

func (f *fakeImageBackend) GenerateImages(ctx context.Context, prompt, aspectRatio string, count int) ([][]byte, error) {
	if f.genErr != nil {
		return nil, f.genErr
	}
	return [][]byte{f.image}, nil
}

func (f *fakeImageBackend) EditImage(ctx context.Context, prompt string, image []byte, mimeType string) ([]byte, error) {
	if f.editErr != nil {
		return nil, f.editErr
	}
	return f.image, nil
}

// fakeVideoBackend 前 readyAfter 次轮询返回未就绪
type fakeVideoBackend struct {
	readyAfter int32
	polls      atomic.Int32
	submitErr  error
}

func (f *fakeVideoBackend) SubmitVideo(ctx context.Context, prompt, resolution string) (*ai.VideoOperation, error) {
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return &ai.VideoOperation{}, nil
}

func (f *fakeVideoBackend) PollVideo(ctx context.Context, op *ai.VideoOperation) (*genai.Video, error) {
	if f.polls.Add(1) <= f.readyAfter {
		return nil, ai.ErrVideoNotReady
	}
	return &genai.Video{}, nil
}

func (f *fakeVideoBackend) DownloadVideo(ctx context.Context, video *genai.Video) ([]byte, error) {
	return []byte("fake-mp4-bytes"), nil
}

// fakeStorage 记录上传内容的内存存储
type fakeStorage struct {
	uploads map[string][]byte
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{uploads: map[string][]byte{}}
}

func (f *fakeStorage) Upload(ctx context.Context, key string, data io.Reader, contentType string) (string, error) {
	b, err := io.ReadAll(data)
	if err != nil {
		return "", err
	}
	f.uploads[key] = b
	return "http://storage.test/" + key, nil
}

func (f *fakeStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	b, ok := f.uploads[key]
	if !ok {
		return nil, errors.New("not found")
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (f *fakeStorage) Delete(ctx context.Context, key string) error { return nil }

func (f *fakeStorage) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := f.uploads[key]
	return ok, nil
}

func (f *fakeStorage) GetFileInfo(ctx context.Context, key string) (*storage.FileInfo, error) {
	return nil, errors.New("not supported")
}

func (f *fakeStorage) GetStorageType() string { return "fake" }

func testVideoConfig() *config.VideoConfig {
	return &config.VideoConfig{
		PollInterval: time.Millisecond,
		MaxAttempts:  5,
		Timeout:      time.Second,
	}
}

func TestMediaService_Images(t *testing.T) {
	Convey("MediaService 图片生成测试", t, func() {
		session := newTestSession()
		images := &fakeImageBackend{image: testPNG(t)}
		svc := NewMediaService(images, &fakeVideoBackend{}, newFakeStorage(), testVideoConfig())

		Convey("生成结果记入媒体历史，历史里存缩略图", func() {
			result, err := svc.GenerateImage(context.Background(), session, "a red fox", "1:1")
			So(err, ShouldBeNil)
			So(result.ItemID, ShouldNotBeEmpty)
			So(result.DataURL, ShouldStartWith, "data:image/png;base64,")

			items := session.Media.List()
			So(len(items), ShouldEqual, 1)
			So(items[0].Kind, ShouldEqual, media.KindImage)
			So(items[0].Prompt, ShouldEqual, "a red fox")
			So(items[0].ImageURL, ShouldStartWith, "data:image/jpeg;base64,")
		})

		Convey("不支持的宽高比被拒绝", func() {
			_, err := svc.GenerateImage(context.Background(), session, "a fox", "2:1")
			So(err, ShouldEqual, ErrInvalidAspectRatio)
			So(session.Media.Len(), ShouldEqual, 0)
		})

		Convey("编辑结果的历史提示词带 (Edit) 前缀", func() {
			result, err := svc.EditImage(context.Background(), session, "make it blue", testPNG(t), "image/png")
			So(err, ShouldBeNil)
			So(result.ItemID, ShouldNotBeEmpty)

			items := session.Media.List()
			So(items[0].Kind, ShouldEqual, media.KindImageEdit)
			So(strings.HasPrefix(items[0].Prompt, "(Edit) "), ShouldBeTrue)
		})

		Convey("后端失败时历史不留条目", func() {
			images.genErr = errors.New("quota exceeded")
			_, err := svc.GenerateImage(context.Background(), session, "a fox", "1:1")
			So(err, ShouldNotBeNil)
			So(session.Media.Len(), ShouldEqual, 0)
		})
	})
}

func TestMediaService_VideoPolling(t *testing.T) {
	Convey("MediaService 视频轮询测试", t, func() {
		session := newTestSession()
		blobStore := newFakeStorage()

		Convey("轮询到完成后结果物化到存储并记入历史", func() {
			videos := &fakeVideoBackend{readyAfter: 2}
			svc := NewMediaService(&fakeImageBackend{}, videos, blobStore, testVideoConfig())

			result, err := svc.GenerateVideo(context.Background(), session, "a flying car", "720p")
			So(err, ShouldBeNil)
			So(result.VideoURL, ShouldStartWith, "http://storage.test/videos/")
			So(videos.polls.Load(), ShouldEqual, 3)

			items := session.Media.List()
			So(len(items), ShouldEqual, 1)
			So(items[0].Kind, ShouldEqual, media.KindVideo)
			So(items[0].VideoURL, ShouldEqual, result.VideoURL)

			Convey("字节确实落在我们自己的存储里", func() {
				So(len(blobStore.uploads), ShouldEqual, 1)
			})
		})

		Convey("超出最大轮询次数后返回超时而不是挂起", func() {
			videos := &fakeVideoBackend{readyAfter: 1000}
			svc := NewMediaService(&fakeImageBackend{}, videos, blobStore, testVideoConfig())

			_, err := svc.GenerateVideo(context.Background(), session, "never done", "")
			So(errors.Is(err, ErrVideoTimeout), ShouldBeTrue)
			So(videos.polls.Load(), ShouldEqual, 5)
			So(session.Media.Len(), ShouldEqual, 0)
		})

		Convey("上下文取消立即停止轮询", func() {
			videos := &fakeVideoBackend{readyAfter: 1000}
			svc := NewMediaService(&fakeImageBackend{}, videos, blobStore, testVideoConfig())

			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			_, err := svc.GenerateVideo(ctx, session, "cancelled", "")
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})
}
