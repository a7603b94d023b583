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

type MonitoringHandler struct {
	monitoringService service.MonitoringService
	log               *zap.Logger
}

func NewMonitoringHandler(monitoringService service.MonitoringService, log *zap.Logger) *MonitoringHandler {
	return &MonitoringHandler{monitoringService: monitoringService, log: log}
}

func (h *MonitoringHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/monitoring")
	group.Use(middleware.RequireRoles(model.RoleGlobalSupervision))
	{
		group.GET("/overview", h.Overview)
	}
}

// Overview summarises account activity and the latest pseudonymised events
// @Summary      Monitoring overview
// @Tags         monitoring
// @Security     BearerAuth
// @Produce      json
// @Param        limit  query  int  false  "Number of recent events (default 10)"
// @Success      200  {object}  response.Response{data=service.MonitoringOverview}
// @Router       /api/monitoring/overview [get]
func (h *MonitoringHandler) Overview(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	overview, err := h.monitoringService.Overview(c.Request.Context(), middleware.TenantID(c), limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, overview))
}
