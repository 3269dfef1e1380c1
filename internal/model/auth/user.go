package auth

import (
	"time"
)

// User 用户实体
// ID使用UUID格式（string）
type User struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"` // 用户名（唯一）
	Email       string     `json:"email"`    // 邮箱（唯一）
	Password    string     `json:"-"`        // 密码（加密存储，不返回）
	DisplayName string     `json:"display_name,omitempty"`
	PhotoURL    string     `json:"photo_url,omitempty"`
	Status      UserStatus `json:"status"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Identity 已认证身份（会话作用域的主体）
// 会话状态（对话记录、媒体历史）全部挂在一个 Identity 下，
// 身份切换必须先经过登出，不存在 A 直接切到 B 的路径
type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name,omitempty"`
	PhotoURL    string `json:"photo_url,omitempty"`
	Email       string `json:"email,omitempty"`
}

// IdentityOf 从用户实体构造身份
func IdentityOf(u *User) *Identity {
	display := u.DisplayName
	if display == "" {
		display = u.Username
	}
	return &Identity{
		ID:          u.ID,
		DisplayName: display,
		PhotoURL:    u.PhotoURL,
		Email:       u.Email,
	}
}

// UserStatus 用户状态
type UserStatus string

const (
	UserStatusActive UserStatus = "active" // 激活
	UserStatusBanned UserStatus = "banned" // 禁用
)

// IsValid 检查状态是否有效
func (s UserStatus) IsValid() bool {
	return s == UserStatusActive || s == UserStatusBanned
}

// String 返回状态字符串
func (s UserStatus) String() string {
	return string(s)
}
