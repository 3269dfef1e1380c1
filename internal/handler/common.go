package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"nova/internal/model/auth"
	"nova/internal/pkg/ctxutil"
	"nova/internal/service"
)

// ErrorResponse 错误响应（所有API共用）
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// Sessions 会话访问器
// Handler 共用：从请求上下文取出认证过的用户，确保其会话已装载。
// 服务重启后首个请求在这里完成懒恢复
type Sessions struct {
	gate *service.SessionService
	auth *service.AuthService
}

// NewSessions 创建会话访问器
func NewSessions(gate *service.SessionService, authSvc *service.AuthService) *Sessions {
	return &Sessions{gate: gate, auth: authSvc}
}

// FromContext 取出当前请求对应的会话
// 失败时直接写出错误响应并返回 false
func (s *Sessions) FromContext(c *gin.Context) (*service.Session, bool) {
	userID, ok := ctxutil.GetUserID(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Code:    40101,
			Message: "unauthorized",
		})
		return nil, false
	}

	if session, ok := s.gate.Get(userID); ok {
		return session, true
	}

	user, err := s.auth.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Code:    40101,
			Message: "unauthorized",
		})
		return nil, false
	}
	return s.gate.Ensure(auth.IdentityOf(user)), true
}
