package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"nova/internal/service"
)

// RegisterRequest 用户注册请求
type RegisterRequest struct {
	Username    string `json:"username" binding:"required,min=3,max=32"` // 用户名（必填）
	Password    string `json:"password" binding:"required,min=6"`        // 密码（必填）
	Email       string `json:"email" binding:"omitempty,email"`          // 邮箱（可选）
	DisplayName string `json:"display_name,omitempty"`                   // 显示名（可选）
}

// RegisterResponseData 注册响应数据
type RegisterResponseData struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Status   string `json:"status"`
}

// Register 用户注册
// @Summary      用户注册
// @Description  注册新用户，注册后即可登录
// @Tags         认证
// @Accept       json
// @Produce      json
// @Param        request  body      RegisterRequest  true  "注册请求"
// @Success      201     {object}  RegisterResponseData
// @Failure      400     {object}  ErrorResponse
// @Failure      409     {object}  ErrorResponse
// @Router       /api/v1/auth/register [post]
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40001,
			Message: "Invalid request body",
			Detail:  err.Error(),
		})
		return
	}

	result, err := h.authService.Register(c.Request.Context(), req.Username, req.Email, req.Password, req.DisplayName)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserAlreadyExists), errors.Is(err, service.ErrEmailTaken):
			c.JSON(http.StatusConflict, ErrorResponse{Code: 40901, Message: err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 50001, Message: err.Error()})
		}
		return
	}

	c.JSON(http.StatusCreated, RegisterResponseData{
		UserID:   result.UserID,
		Username: result.Username,
		Status:   result.Status,
	})
}
