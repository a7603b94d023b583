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

type TourHandler struct {
	tourService service.TourService
	log         *zap.Logger
}

func NewTourHandler(tourService service.TourService, log *zap.Logger) *TourHandler {
	return &TourHandler{tourService: tourService, log: log}
}

func (h *TourHandler) RegisterRoutes(router *gin.RouterGroup) {
	tours := router.Group("/tours")
	{
		tours.POST("/pickup", middleware.RequireRoles(model.RoleChauffeur), h.CreatePickup)
		tours.GET("/pending", middleware.RequireRoles(model.RoleChauffeur), h.ListPending)
		tours.PUT("/:tourId/delivery", middleware.RequireRoles(model.RoleChauffeur), h.SubmitDelivery)
		tours.GET("/activity-summary", middleware.RequireRoles(model.RoleAdmin), h.ActivitySummary)
	}
}

// CreatePickup records the parcels a driver collected from a client
// @Summary      Record pickup
// @Tags         tours
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  service.CreatePickupRequest  true  "Pickup payload"
// @Success      201  {object}  response.Response{data=service.TourResponse}
// @Failure      400  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Router       /api/tours/pickup [post]
func (h *TourHandler) CreatePickup(c *gin.Context) {
	var req service.CreatePickupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}

	tour, err := h.tourService.CreatePickup(c.Request.Context(), middleware.TenantID(c), actorSub(c), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, tour))
}

// ListPending lists the caller's tours awaiting delivery
// @Summary      Pending tours
// @Tags         tours
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.TourResponse}
// @Router       /api/tours/pending [get]
func (h *TourHandler) ListPending(c *gin.Context) {
	tours, err := h.tourService.ListPending(c.Request.Context(), middleware.TenantID(c), actorSub(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, tours))
}

// SubmitDelivery reconciles delivered quantities and closes the tour
// @Summary      Submit delivery
// @Tags         tours
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        tourId   path  string                         true  "Tour ID"
// @Param        payload  body  service.SubmitDeliveryRequest  true  "Delivered quantities"
// @Success      200  {object}  response.Response{data=service.TourResponse}
// @Failure      400  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/tours/{tourId}/delivery [put]
func (h *TourHandler) SubmitDelivery(c *gin.Context) {
	var req service.SubmitDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}

	tour, err := h.tourService.SubmitDelivery(c.Request.Context(), middleware.TenantID(c), actorSub(c), c.Param("tourId"), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, tour))
}

// ActivitySummary reports open and closed tours over a date range
// @Summary      Activity summary
// @Tags         tours
// @Security     BearerAuth
// @Produce      json
// @Param        start_date  query  string  false  "First day (YYYY-MM-DD), default today"
// @Param        end_date    query  string  false  "Last day (YYYY-MM-DD), default start_date"
// @Success      200  {object}  response.Response{data=service.ActivitySummaryResponse}
// @Router       /api/tours/activity-summary [get]
func (h *TourHandler) ActivitySummary(c *gin.Context) {
	summary, err := h.tourService.ActivitySummary(c.Request.Context(), middleware.TenantID(c), c.Query("start_date"), c.Query("end_date"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, summary))
}
