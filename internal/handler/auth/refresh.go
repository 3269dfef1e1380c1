package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"nova/internal/service"
)

// RefreshRequest 刷新Token请求
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"` // Refresh Token（必填）
}

// RefreshResponseData 刷新Token响应数据
type RefreshResponseData struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// Refresh 刷新Access Token
// @Summary      刷新Token
// @Tags         认证
// @Accept       json
// @Produce      json
// @Param        request  body      RefreshRequest  true  "刷新请求"
// @Success      200     {object}  RefreshResponseData
// @Failure      400     {object}  ErrorResponse
// @Failure      401     {object}  ErrorResponse
// @Router       /api/v1/auth/refresh [post]
func (h *Handler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40001,
			Message: "Invalid request body",
			Detail:  err.Error(),
		})
		return
	}

	result, err := h.authService.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidToken), errors.Is(err, service.ErrExpiredToken):
			c.JSON(http.StatusUnauthorized, ErrorResponse{Code: 40102, Message: err.Error()})
		case errors.Is(err, service.ErrUserBanned):
			c.JSON(http.StatusForbidden, ErrorResponse{Code: 40301, Message: err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 50001, Message: err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, RefreshResponseData{
		AccessToken: result.AccessToken,
		ExpiresIn:   result.ExpiresIn,
		TokenType:   result.TokenType,
	})
}
