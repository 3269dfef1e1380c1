package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"nova/internal/pkg/ctxutil"
)

// GetMe 获取当前用户信息
// @Summary      当前用户
// @Tags         认证
// @Produce      json
// @Success      200  {object}  UserInfo
// @Failure      401  {object}  ErrorResponse
// @Router       /api/v1/auth/me [get]
func (h *Handler) GetMe(c *gin.Context) {
	userID, ok := ctxutil.GetUserID(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Code:    40101,
			Message: "unauthorized",
		})
		return
	}

	user, err := h.authService.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Code:    40401,
			Message: "user not found",
		})
		return
	}

	c.JSON(http.StatusOK, toUserInfo(user))
}
