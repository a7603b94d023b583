package handler

import (
	"net/http"

	"delivops/internal/middleware"
	"delivops/pkg/response"

	"github.com/gin-gonic/gin"
)

type MeResponse struct {
	TenantID string   `json:"tenantId"`
	Sub      string   `json:"sub"`
	Roles    []string `json:"roles"`
}

type AuthHandler struct{}

func NewAuthHandler() *AuthHandler {
	return &AuthHandler{}
}

func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/auth/me", h.Me)
}

// Me returns the caller's identity as seen by the API
// @Summary      Current identity
// @Tags         auth
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=MeResponse}
// @Failure      401  {object}  response.Response
// @Router       /api/auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Unauthorized"))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, MeResponse{
		TenantID: middleware.TenantID(c).String(),
		Sub:      identity.Sub,
		Roles:    identity.Roles.Slice(),
	}))
}
