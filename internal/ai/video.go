package ai

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// ErrVideoNotReady 轮询时任务尚未完成
var ErrVideoNotReady = errors.New("video generation not ready")

// ErrNoVideoReturned 任务完成但响应中没有视频
var ErrNoVideoReturned = errors.New("the AI did not return a video")

// VideoOperation 一次视频生成任务的句柄，跨轮询传递
type VideoOperation struct {
	op *genai.GenerateVideosOperation
}

// Name 任务标识，用于日志
func (o *VideoOperation) Name() string {
	if o == nil || o.op == nil {
		return ""
	}
	return o.op.Name
}

// SubmitVideo 提交视频生成任务
// 分辨率没有独立参数，按惯例折叠进提示词
func (c *Client) SubmitVideo(ctx context.Context, prompt, resolution string) (*VideoOperation, error) {
	full := prompt
	if resolution != "" {
		full = fmt.Sprintf("%s, %s resolution, cinematic quality", prompt, resolution)
	}

	op, err := c.genai.Models.GenerateVideos(ctx, c.cfg.VideoModel, full, nil, &genai.GenerateVideosConfig{
		NumberOfVideos: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to submit video generation: %w", err)
	}
	return &VideoOperation{op: op}, nil
}

// PollVideo 查询任务进度
// 未完成返回 ErrVideoNotReady，完成则返回结果视频
func (c *Client) PollVideo(ctx context.Context, op *VideoOperation) (*genai.Video, error) {
	refreshed, err := c.genai.Operations.GetVideosOperation(ctx, op.op, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to poll video operation: %w", err)
	}
	op.op = refreshed

	if !refreshed.Done {
		return nil, ErrVideoNotReady
	}
	if refreshed.Response == nil || len(refreshed.Response.GeneratedVideos) == 0 {
		return nil, ErrNoVideoReturned
	}
	video := refreshed.Response.GeneratedVideos[0].Video
	if video == nil {
		return nil, ErrNoVideoReturned
	}
	return video, nil
}

// DownloadVideo 取回视频字节
// inline 返回的任务直接携带字节，否则走文件下载接口
func (c *Client) DownloadVideo(ctx context.Context, video *genai.Video) ([]byte, error) {
	if len(video.VideoBytes) > 0 {
		return video.VideoBytes, nil
	}
	data, err := c.genai.Files.Download(ctx, video, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to download video: %w", err)
	}
	return data, nil
}
