package auth

import (
	"nova/internal/service"
)

// Handler 认证处理器
// 所有auth相关的Handler方法都通过这个结构体访问Service。
// 登录/登出在认证完成后顺带驱动会话身份门的状态迁移
type Handler struct {
	authService *service.AuthService
	gate        *service.SessionService
}

// NewHandler 创建认证处理器
func NewHandler(authService *service.AuthService, gate *service.SessionService) *Handler {
	return &Handler{
		authService: authService,
		gate:        gate,
	}
}
