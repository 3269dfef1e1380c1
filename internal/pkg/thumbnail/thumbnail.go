package thumbnail

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
)

// DefaultMaxSize 缩略图最长边像素
const DefaultMaxSize = 256

// DefaultQuality JPEG 压缩质量
const DefaultQuality = 80

// Create 将原始图片缩小为缩略图，返回 JPEG data URL
// 媒体历史只保存缩略图，原图在生成后即丢弃，避免撑爆本地存储配额
func Create(data []byte, maxSize int) (string, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return "", fmt.Errorf("invalid image dimensions: %dx%d", width, height)
	}

	dstW, dstH := fit(width, height, maxSize)
	dst := scale(src, dstW, dstH)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: DefaultQuality}); err != nil {
		return "", fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// fit 等比缩放到最长边不超过 maxSize
func fit(width, height, maxSize int) (int, int) {
	if width <= maxSize && height <= maxSize {
		return width, height
	}
	if width > height {
		return maxSize, height * maxSize / width
	}
	return width * maxSize / height, maxSize
}

// scale 最近邻缩放
// 缩略图用途对画质不敏感，不值得为此引入插值依赖
func scale(src image.Image, dstW, dstH int) image.Image {
	srcBounds := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	for y := 0; y < dstH; y++ {
		srcY := srcBounds.Min.Y + y*srcBounds.Dy()/dstH
		for x := 0; x < dstW; x++ {
			srcX := srcBounds.Min.X + x*srcBounds.Dx()/dstW
			dst.Set(x, y, src.At(srcX, srcY))
		}
	}
	return dst
}
