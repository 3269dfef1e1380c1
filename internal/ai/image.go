package ai

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// ValidAspectRatios 图片生成支持的宽高比
var ValidAspectRatios = []string{"1:1", "3:4", "4:3", "9:16", "16:9"}

// ErrNoImageReturned 编辑请求的响应中没有图片 part
var ErrNoImageReturned = errors.New("the AI did not return an image")

// IsValidAspectRatio 校验宽高比取值
func IsValidAspectRatio(ratio string) bool {
	for _, r := range ValidAspectRatios {
		if r == ratio {
			return true
		}
	}
	return false
}

// GenerateImages 按提示词生成 PNG 图片，返回每张图片的原始字节
func (c *Client) GenerateImages(ctx context.Context, prompt, aspectRatio string, count int) ([][]byte, error) {
	if count <= 0 {
		count = 1
	}

	resp, err := c.genai.Models.GenerateImages(ctx, c.cfg.ImageModel, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: int32(count),
		OutputMIMEType: "image/png",
		AspectRatio:    aspectRatio,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate images: %w", err)
	}
	if len(resp.GeneratedImages) == 0 {
		return nil, ErrNoImageReturned
	}

	images := make([][]byte, 0, len(resp.GeneratedImages))
	for _, gi := range resp.GeneratedImages {
		if gi.Image == nil || len(gi.Image.ImageBytes) == 0 {
			continue
		}
		images = append(images, gi.Image.ImageBytes)
	}
	if len(images) == 0 {
		return nil, ErrNoImageReturned
	}
	return images, nil
}

// EditImage 按提示词编辑一张图片，返回编辑后的图片字节
// 模型以 IMAGE+TEXT 双模态响应，只取第一个图片 part
func (c *Client) EditImage(ctx context.Context, prompt string, image []byte, mimeType string) ([]byte, error) {
	contents := []*genai.Content{{
		Role: genai.RoleUser,
		Parts: []*genai.Part{
			{InlineData: &genai.Blob{Data: image, MIMEType: mimeType}},
			{Text: prompt},
		},
	}}

	resp, err := c.genai.Models.GenerateContent(ctx, c.cfg.ImageEditModel, contents, &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE", "TEXT"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to edit image: %w", err)
	}

	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData.Data, nil
			}
		}
	}
	return nil, ErrNoImageReturned
}
