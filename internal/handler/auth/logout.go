package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// LogoutRequest 登出请求
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"` // Refresh Token（必填）
}

// Logout 退出登录
// @Summary      退出登录
// @Description  吊销Refresh Token并清除该身份的会话状态：
// @Description  对话记录和媒体历史（内存+存储）一并清除，偏好保留
// @Tags         认证
// @Accept       json
// @Produce      json
// @Param        request  body      LogoutRequest  true  "登出请求"
// @Success      200     {object}  map[string]string
// @Failure      400     {object}  ErrorResponse
// @Failure      401     {object}  ErrorResponse
// @Router       /api/v1/auth/logout [post]
func (h *Handler) Logout(c *gin.Context) {
	var req LogoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40001,
			Message: "Invalid request body",
			Detail:  err.Error(),
		})
		return
	}

	userID, err := h.authService.Logout(c.Request.Context(), req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Code: 40102, Message: err.Error()})
		return
	}

	// 登出即 SignedOut 迁移：清内存并删除持久化键
	h.gate.SignOut(userID)

	c.JSON(http.StatusOK, gin.H{"message": "signed out"})
}
