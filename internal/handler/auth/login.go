package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	authModel "nova/internal/model/auth"
	"nova/internal/service"
)

// LoginRequest 用户登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"` // 用户名（必填）
	Password string `json:"password" binding:"required"` // 密码（必填）
}

// LoginResponseData 登录响应数据
type LoginResponseData struct {
	AccessToken  string   `json:"access_token"`  // Access Token
	RefreshToken string   `json:"refresh_token"` // Refresh Token
	ExpiresIn    int      `json:"expires_in"`    // 过期时间（秒）
	TokenType    string   `json:"token_type"`    // Token类型：Bearer
	User         UserInfo `json:"user"`          // 用户信息
}

// Login 用户登录
// @Summary      用户登录
// @Description  登录成功后装载该身份的会话状态（对话记录、媒体历史）
// @Tags         认证
// @Accept       json
// @Produce      json
// @Param        request  body      LoginRequest  true  "登录请求"
// @Success      200     {object}  LoginResponseData
// @Failure      400     {object}  ErrorResponse
// @Failure      401     {object}  ErrorResponse
// @Router       /api/v1/auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40001,
			Message: "Invalid request body",
			Detail:  err.Error(),
		})
		return
	}

	result, err := h.authService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound), errors.Is(err, service.ErrInvalidPassword):
			c.JSON(http.StatusUnauthorized, ErrorResponse{Code: 40101, Message: "invalid username or password"})
		case errors.Is(err, service.ErrUserBanned):
			c.JSON(http.StatusForbidden, ErrorResponse{Code: 40301, Message: err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 50001, Message: err.Error()})
		}
		return
	}

	// 登录即 SignedIn 迁移：装载会话状态
	h.gate.SignIn(authModel.IdentityOf(result.User))

	c.JSON(http.StatusOK, LoginResponseData{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		ExpiresIn:    result.ExpiresIn,
		TokenType:    result.TokenType,
		User:         toUserInfo(result.User),
	})
}
