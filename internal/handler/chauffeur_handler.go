package handler

import (
	"net/http"

	"delivops/internal/middleware"
	"delivops/internal/model"
	"delivops/internal/service"
	"delivops/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ChauffeurHandler struct {
	chauffeurService service.ChauffeurService
	log              *zap.Logger
}

func NewChauffeurHandler(chauffeurService service.ChauffeurService, log *zap.Logger) *ChauffeurHandler {
	return &ChauffeurHandler{chauffeurService: chauffeurService, log: log}
}

func (h *ChauffeurHandler) RegisterRoutes(router *gin.RouterGroup) {
	chauffeurs := router.Group("/chauffeurs")
	chauffeurs.Use(middleware.RequireRoles(model.RoleAdmin))
	{
		chauffeurs.GET("", h.ListChauffeurs)
		chauffeurs.GET("/count", h.CountChauffeurs)
		chauffeurs.POST("", h.CreateChauffeur)
		chauffeurs.PATCH("/:id", h.UpdateChauffeur)
		chauffeurs.DELETE("/:id", h.DeleteChauffeur)
	}
}

// ListChauffeurs lists the tenant's drivers
// @Summary      List chauffeurs
// @Tags         chauffeurs
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.ChauffeurResponse}
// @Router       /api/chauffeurs [get]
func (h *ChauffeurHandler) ListChauffeurs(c *gin.Context) {
	chauffeurs, err := h.chauffeurService.List(c.Request.Context(), middleware.TenantID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, chauffeurs))
}

// CountChauffeurs returns the driver count and the subscribed quota
// @Summary      Count chauffeurs
// @Tags         chauffeurs
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=service.ChauffeurCountResponse}
// @Router       /api/chauffeurs/count [get]
func (h *ChauffeurHandler) CountChauffeurs(c *gin.Context) {
	count, err := h.chauffeurService.Count(c.Request.Context(), middleware.TenantID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, count))
}

// CreateChauffeur registers a driver and sends the activation email
// @Summary      Create chauffeur
// @Tags         chauffeurs
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  service.CreateChauffeurRequest  true  "Chauffeur payload"
// @Success      201  {object}  response.Response{data=service.ChauffeurResponse}
// @Failure      400  {object}  response.Response
// @Router       /api/chauffeurs [post]
func (h *ChauffeurHandler) CreateChauffeur(c *gin.Context) {
	var req service.CreateChauffeurRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}

	chauffeur, err := h.chauffeurService.Create(c.Request.Context(), middleware.TenantID(c), actorSub(c), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, chauffeur))
}

// UpdateChauffeur applies a partial update
// @Summary      Update chauffeur
// @Tags         chauffeurs
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                          true  "Chauffeur ID"
// @Param        payload  body  service.UpdateChauffeurRequest  true  "Fields to change"
// @Success      200  {object}  response.Response{data=service.ChauffeurResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/chauffeurs/{id} [patch]
func (h *ChauffeurHandler) UpdateChauffeur(c *gin.Context) {
	var req service.UpdateChauffeurRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}

	chauffeur, err := h.chauffeurService.Update(c.Request.Context(), middleware.TenantID(c), actorSub(c), c.Param("id"), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, chauffeur))
}

// DeleteChauffeur removes a driver without tours
// @Summary      Delete chauffeur
// @Tags         chauffeurs
// @Security     BearerAuth
// @Param        id  path  string  true  "Chauffeur ID"
// @Success      204
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/chauffeurs/{id} [delete]
func (h *ChauffeurHandler) DeleteChauffeur(c *gin.Context) {
	if err := h.chauffeurService.Delete(c.Request.Context(), middleware.TenantID(c), actorSub(c), c.Param("id")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
