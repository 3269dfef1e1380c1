package id

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// New 生成新的UUID（string格式）
func New() string {
	return uuid.New().String()
}

// IsValid 验证UUID格式是否有效
func IsValid(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// NewOrdered 生成按创建时间排序的ID
// 格式: <prefix>_<毫秒时间戳13位>_<uuid前8位>
// 毫秒时间戳固定13位，字典序即创建顺序，UI 侧按 ID 排序即可
func NewOrdered(prefix string) string {
	return fmt.Sprintf("%s_%013d_%s", prefix, time.Now().UnixMilli(), uuid.New().String()[:8])
}

// CreatedAt 从有序ID中解析创建时间
// 解析失败返回零值时间
func CreatedAt(id string) time.Time {
	parts := strings.Split(id, "_")
	if len(parts) < 2 {
		return time.Time{}
	}
	ms, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
