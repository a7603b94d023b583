package handler

import (
	"net/http"
	"strconv"

	"delivops/internal/middleware"
	"delivops/internal/model"
	"delivops/internal/service"
	"delivops/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ClientHandler struct {
	clientService service.ClientService
	log           *zap.Logger
}

func NewClientHandler(clientService service.ClientService, log *zap.Logger) *ClientHandler {
	return &ClientHandler{clientService: clientService, log: log}
}

func (h *ClientHandler) RegisterRoutes(router *gin.RouterGroup) {
	admin := middleware.RequireRoles(model.RoleAdmin)

	clients := router.Group("/clients")
	{
		clients.GET("", middleware.RequireRoles(model.RoleChauffeur, model.RoleAdmin), h.ListClients)
		clients.POST("", admin, h.CreateClient)
		clients.GET("/history", admin, h.ClientHistory)
		clients.PATCH("/:clientId", admin, h.UpdateClient)
		clients.DELETE("/:clientId", admin, h.DeleteClient)
		clients.POST("/:clientId/reactivate", admin, h.ReactivateClient)

		clients.POST("/:clientId/categories", admin, h.CreateCategory)
		clients.PATCH("/:clientId/categories/:categoryId", admin, h.UpdateCategory)
		clients.DELETE("/:clientId/categories/:categoryId", admin, h.DeleteCategory)
		clients.POST("/:clientId/categories/:categoryId/reactivate", admin, h.ReactivateCategory)
		clients.GET("/:clientId/categories/:categoryId/tariffs", admin, h.ListTariffs)
	}
}

// ListClients returns clients with their categories and current prices
// @Summary      List clients
// @Tags         clients
// @Security     BearerAuth
// @Produce      json
// @Param        include_inactive  query  bool  false  "Include deactivated clients and categories"
// @Success      200  {object}  response.Response{data=[]service.ClientResponse}
// @Router       /api/clients [get]
func (h *ClientHandler) ListClients(c *gin.Context) {
	includeInactive, _ := strconv.ParseBool(c.DefaultQuery("include_inactive", "false"))

	clients, err := h.clientService.ListClients(c.Request.Context(), middleware.TenantID(c), includeInactive)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, clients))
}

// CreateClient creates a new client
// @Summary      Create client
// @Tags         clients
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  service.CreateClientRequest  true  "Client payload"
// @Success      201  {object}  response.Response{data=service.ClientResponse}
// @Failure      400  {object}  response.Response
// @Router       /api/clients [post]
func (h *ClientHandler) CreateClient(c *gin.Context) {
	var req service.CreateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}

	client, err := h.clientService.CreateClient(c.Request.Context(), middleware.TenantID(c), actorSub(c), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, client))
}

// ClientHistory returns per-client declaration activity
// @Summary      Client history
// @Tags         clients
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.ClientHistoryResponse}
// @Router       /api/clients/history [get]
func (h *ClientHandler) ClientHistory(c *gin.Context) {
	history, err := h.clientService.ClientHistory(c.Request.Context(), middleware.TenantID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, history))
}

// UpdateClient renames a client
// @Summary      Update client
// @Tags         clients
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        clientId  path  string                       true  "Client ID"
// @Param        payload   body  service.UpdateClientRequest  true  "Fields to change"
// @Success      200  {object}  response.Response{data=service.ClientResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/clients/{clientId} [patch]
func (h *ClientHandler) UpdateClient(c *gin.Context) {
	var req service.UpdateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}

	client, err := h.clientService.UpdateClient(c.Request.Context(), middleware.TenantID(c), actorSub(c), c.Param("clientId"), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, client))
}

// DeleteClient deactivates a client and its categories
// @Summary      Deactivate client
// @Tags         clients
// @Security     BearerAuth
// @Param        clientId  path  string  true  "Client ID"
// @Success      204
// @Failure      404  {object}  response.Response
// @Router       /api/clients/{clientId} [delete]
func (h *ClientHandler) DeleteClient(c *gin.Context) {
	if err := h.clientService.DeleteClient(c.Request.Context(), middleware.TenantID(c), actorSub(c), c.Param("clientId")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ReactivateClient reactivates a client and its categories
// @Summary      Reactivate client
// @Tags         clients
// @Security     BearerAuth
// @Produce      json
// @Param        clientId  path  string  true  "Client ID"
// @Success      200  {object}  response.Response{data=service.ClientResponse}
// @Router       /api/clients/{clientId}/reactivate [post]
func (h *ClientHandler) ReactivateClient(c *gin.Context) {
	client, err := h.clientService.ReactivateClient(c.Request.Context(), middleware.TenantID(c), actorSub(c), c.Param("clientId"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, client))
}

// CreateCategory adds a tariff category to a client
// @Summary      Create category
// @Tags         clients
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        clientId  path  string                         true  "Client ID"
// @Param        payload   body  service.CreateCategoryRequest  true  "Category payload"
// @Success      201  {object}  response.Response{data=service.CategoryResponse}
// @Router       /api/clients/{clientId}/categories [post]
func (h *ClientHandler) CreateCategory(c *gin.Context) {
	var req service.CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}

	category, err := h.clientService.CreateCategory(c.Request.Context(), middleware.TenantID(c), actorSub(c), c.Param("clientId"), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, category))
}

// UpdateCategory edits a category and its current or future tariff
// @Summary      Update category
// @Tags         clients
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        clientId    path  string                         true  "Client ID"
// @Param        categoryId  path  string                         true  "Category ID"
// @Param        payload     body  service.UpdateCategoryRequest  true  "Fields to change"
// @Success      200  {object}  response.Response{data=service.CategoryResponse}
// @Router       /api/clients/{clientId}/categories/{categoryId} [patch]
func (h *ClientHandler) UpdateCategory(c *gin.Context) {
	var req service.UpdateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}

	category, err := h.clientService.UpdateCategory(c.Request.Context(), middleware.TenantID(c), actorSub(c), c.Param("clientId"), c.Param("categoryId"), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, category))
}

// DeleteCategory deactivates a category
// @Summary      Deactivate category
// @Tags         clients
// @Security     BearerAuth
// @Param        clientId    path  string  true  "Client ID"
// @Param        categoryId  path  string  true  "Category ID"
// @Success      204
// @Router       /api/clients/{clientId}/categories/{categoryId} [delete]
func (h *ClientHandler) DeleteCategory(c *gin.Context) {
	if err := h.clientService.DeleteCategory(c.Request.Context(), middleware.TenantID(c), actorSub(c), c.Param("clientId"), c.Param("categoryId")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ReactivateCategory reactivates a category
// @Summary      Reactivate category
// @Tags         clients
// @Security     BearerAuth
// @Produce      json
// @Param        clientId    path  string  true  "Client ID"
// @Param        categoryId  path  string  true  "Category ID"
// @Success      200  {object}  response.Response{data=service.CategoryResponse}
// @Router       /api/clients/{clientId}/categories/{categoryId}/reactivate [post]
func (h *ClientHandler) ReactivateCategory(c *gin.Context) {
	category, err := h.clientService.ReactivateCategory(c.Request.Context(), middleware.TenantID(c), actorSub(c), c.Param("clientId"), c.Param("categoryId"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, category))
}

// ListTariffs returns the tariff versions of a category, newest first
// @Summary      Category tariffs
// @Tags         clients
// @Security     BearerAuth
// @Produce      json
// @Param        clientId    path  string  true  "Client ID"
// @Param        categoryId  path  string  true  "Category ID"
// @Success      200  {object}  response.Response{data=[]service.TariffResponse}
// @Router       /api/clients/{clientId}/categories/{categoryId}/tariffs [get]
func (h *ClientHandler) ListTariffs(c *gin.Context) {
	tariffs, err := h.clientService.ListTariffs(c.Request.Context(), middleware.TenantID(c), c.Param("clientId"), c.Param("categoryId"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, tariffs))
}
