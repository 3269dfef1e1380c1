package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"nova/internal/ai"
	"nova/internal/config"
	"nova/internal/model/media"
	"nova/internal/pkg/id"
	"nova/internal/pkg/storage"
	"nova/internal/pkg/thumbnail"
)

var (
	// ErrInvalidAspectRatio 不支持的宽高比
	ErrInvalidAspectRatio = errors.New("invalid aspect ratio")

	// ErrVideoTimeout 视频生成在时限内未完成
	ErrVideoTimeout = errors.New("video generation timed out")
)

// ImageBackend 图片生成后端
type ImageBackend interface {
	GenerateImages(ctx context.Context, prompt, aspectRatio string, count int) ([][]byte, error)
	EditImage(ctx context.Context, prompt string, image []byte, mimeType string) ([]byte, error)
}

// VideoBackend 视频生成后端
type VideoBackend interface {
	SubmitVideo(ctx context.Context, prompt, resolution string) (*ai.VideoOperation, error)
	PollVideo(ctx context.Context, op *ai.VideoOperation) (*genai.Video, error)
	DownloadVideo(ctx context.Context, video *genai.Video) ([]byte, error)
}

// MediaService 媒体生成服务
// 职责: 编排图片/视频生成，生成缩略图，把结果写入媒体历史。
// 历史里只存缩略图或指向存储后端的URL，不存原始大图
type MediaService struct {
	images   ImageBackend
	videos   VideoBackend
	storage  storage.Storage
	videoCfg *config.VideoConfig
}

// NewMediaService 创建媒体生成服务
func NewMediaService(images ImageBackend, videos VideoBackend, store storage.Storage, videoCfg *config.VideoConfig) *MediaService {
	return &MediaService{
		images:   images,
		videos:   videos,
		storage:  store,
		videoCfg: videoCfg,
	}
}

// ImageResult 一次图片生成/编辑的结果
type ImageResult struct {
	ItemID   string // 媒体历史条目ID
	DataURL  string // 完整图片，data URL 形式
	MIMEType string
}

// GenerateImage 按提示词生成图片并记入媒体历史
func (s *MediaService) GenerateImage(ctx context.Context, session *Session, prompt, aspectRatio string) (*ImageResult, error) {
	if aspectRatio == "" {
		aspectRatio = "1:1"
	}
	if !ai.IsValidAspectRatio(aspectRatio) {
		return nil, ErrInvalidAspectRatio
	}

	images, err := s.images.GenerateImages(ctx, prompt, aspectRatio, 1)
	if err != nil {
		return nil, err
	}
	raw := images[0]

	itemID := s.record(session, media.KindImage, prompt, raw)
	return &ImageResult{
		ItemID:   itemID,
		DataURL:  dataURL("image/png", raw),
		MIMEType: "image/png",
	}, nil
}

// EditImage 按提示词编辑图片并记入媒体历史
// 历史里的提示词带 "(Edit) " 前缀以区分来源
func (s *MediaService) EditImage(ctx context.Context, session *Session, prompt string, image []byte, mimeType string) (*ImageResult, error) {
	edited, err := s.images.EditImage(ctx, prompt, image, mimeType)
	if err != nil {
		return nil, err
	}

	itemID := s.record(session, media.KindImageEdit, "(Edit) "+prompt, edited)
	return &ImageResult{
		ItemID:   itemID,
		DataURL:  dataURL("image/png", edited),
		MIMEType: "image/png",
	}, nil
}

// record 生成缩略图并写入媒体历史
// 缩略图失败时条目照常入史，只是没有预览
func (s *MediaService) record(session *Session, kind media.Kind, prompt string, image []byte) string {
	thumb, err := thumbnail.Create(image, thumbnail.DefaultMaxSize)
	if err != nil {
		log.Warn().Err(err).Msg("failed to create thumbnail")
		thumb = ""
	}
	return session.Media.Record(kind, prompt, thumb, "")
}

// VideoResult 一次视频生成的结果
type VideoResult struct {
	ItemID   string
	VideoURL string
}

// GenerateVideo 提交视频生成任务并轮询到完成
// 固定间隔轮询，受最大次数和总时限双重约束，超限返回
// ErrVideoTimeout 而不是无限等待。结果字节先物化到存储后端，
// 历史里记的是本服务own的URL而不是供应商的临时地址
func (s *MediaService) GenerateVideo(ctx context.Context, session *Session, prompt, resolution string) (*VideoResult, error) {
	op, err := s.videos.SubmitVideo(ctx, prompt, resolution)
	if err != nil {
		return nil, err
	}

	logger := log.With().Str("operation", op.Name()).Logger()
	logger.Info().Str("prompt", prompt).Msg("video generation submitted")

	video, err := s.pollUntilDone(ctx, op, &logger)
	if err != nil {
		return nil, err
	}

	data, err := s.videos.DownloadVideo(ctx, video)
	if err != nil {
		return nil, fmt.Errorf("failed to download video: %w", err)
	}

	key := fmt.Sprintf("videos/%s.mp4", id.New())
	url, err := s.storage.Upload(ctx, key, bytes.NewReader(data), "video/mp4")
	if err != nil {
		return nil, fmt.Errorf("failed to store video: %w", err)
	}

	itemID := session.Media.Record(media.KindVideo, prompt, "", url)
	logger.Info().Str("url", url).Msg("video generation completed")
	return &VideoResult{ItemID: itemID, VideoURL: url}, nil
}

func (s *MediaService) pollUntilDone(ctx context.Context, op *ai.VideoOperation, logger *zerolog.Logger) (*genai.Video, error) {
	deadline := time.Now().Add(s.videoCfg.Timeout)
	ticker := time.NewTicker(s.videoCfg.PollInterval)
	defer ticker.Stop()

	for attempt := 1; attempt <= s.videoCfg.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
		if time.Now().After(deadline) {
			return nil, ErrVideoTimeout
		}

		video, err := s.videos.PollVideo(ctx, op)
		if errors.Is(err, ai.ErrVideoNotReady) {
			logger.Debug().Int("attempt", attempt).Msg("video not ready")
			continue
		}
		if err != nil {
			return nil, err
		}
		return video, nil
	}
	return nil, ErrVideoTimeout
}

// dataURL 把图片字节编码为可直接渲染的 data URL
func dataURL(mimeType string, data []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
}
