package handler

import (
	"bytes"
	"net/http"

	"delivops/internal/export"
	"delivops/internal/middleware"
	"delivops/internal/model"
	"delivops/internal/service"
	"delivops/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ReportHandler struct {
	declarationService service.DeclarationService
	log                *zap.Logger
}

func NewReportHandler(declarationService service.DeclarationService, log *zap.Logger) *ReportHandler {
	return &ReportHandler{declarationService: declarationService, log: log}
}

func (h *ReportHandler) RegisterRoutes(router *gin.RouterGroup) {
	reports := router.Group("/reports/declarations")
	reports.Use(middleware.RequireRoles(model.RoleAdmin))
	{
		reports.GET("", h.ListDeclarations)
		reports.POST("", h.CreateDeclaration)
		reports.PUT("/:id", h.UpdateDeclaration)
		reports.DELETE("/:id", h.DeleteDeclaration)
		reports.GET("/export.csv", h.ExportCSV)
		reports.GET("/export.xlsx", h.ExportXLSX)
	}
}

// ListDeclarations returns declaration lines matching the filters
// @Summary      List declarations
// @Tags         reports
// @Security     BearerAuth
// @Produce      json
// @Param        date_from  query  string  false  "From date (YYYY-MM-DD)"
// @Param        date_to    query  string  false  "To date (YYYY-MM-DD)"
// @Param        client_id  query  string  false  "Client ID"
// @Param        driver_id  query  string  false  "Driver ID"
// @Success      200  {object}  response.Response{data=[]service.DeclarationResponse}
// @Router       /api/reports/declarations [get]
func (h *ReportHandler) ListDeclarations(c *gin.Context) {
	rows, ok := h.query(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rows))
}

// CreateDeclaration records a manual declaration line
// @Summary      Create declaration
// @Tags         reports
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  service.CreateDeclarationRequest  true  "Declaration payload"
// @Success      201  {object}  response.Response{data=service.DeclarationResponse}
// @Failure      400  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/reports/declarations [post]
func (h *ReportHandler) CreateDeclaration(c *gin.Context) {
	var req service.CreateDeclarationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}

	line, err := h.declarationService.Create(c.Request.Context(), middleware.TenantID(c), actorSub(c), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, line))
}

// UpdateDeclaration adjusts quantities or the estimated amount of a line
// @Summary      Update declaration
// @Tags         reports
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                            true  "Tour item ID"
// @Param        payload  body  service.UpdateDeclarationRequest  true  "Fields to change"
// @Success      200  {object}  response.Response{data=service.DeclarationResponse}
// @Failure      400  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/reports/declarations/{id} [put]
func (h *ReportHandler) UpdateDeclaration(c *gin.Context) {
	var req service.UpdateDeclarationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}

	line, err := h.declarationService.Update(c.Request.Context(), middleware.TenantID(c), actorSub(c), c.Param("id"), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, line))
}

// DeleteDeclaration removes a line, and its tour once empty
// @Summary      Delete declaration
// @Tags         reports
// @Security     BearerAuth
// @Param        id  path  string  true  "Tour item ID"
// @Success      204
// @Failure      404  {object}  response.Response
// @Router       /api/reports/declarations/{id} [delete]
func (h *ReportHandler) DeleteDeclaration(c *gin.Context) {
	if err := h.declarationService.Delete(c.Request.Context(), middleware.TenantID(c), actorSub(c), c.Param("id")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ExportCSV downloads the filtered declarations as CSV
// @Summary      Export declarations (CSV)
// @Tags         reports
// @Security     BearerAuth
// @Produce      text/csv
// @Router       /api/reports/declarations/export.csv [get]
func (h *ReportHandler) ExportCSV(c *gin.Context) {
	rows, ok := h.query(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, rows); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename=declarations.csv")
	c.Data(http.StatusOK, export.CSVContentType, buf.Bytes())
}

// ExportXLSX downloads the filtered declarations as a workbook
// @Summary      Export declarations (XLSX)
// @Tags         reports
// @Security     BearerAuth
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Router       /api/reports/declarations/export.xlsx [get]
func (h *ReportHandler) ExportXLSX(c *gin.Context) {
	rows, ok := h.query(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, rows); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename=declarations.xlsx")
	c.Data(http.StatusOK, export.XLSXContentType, buf.Bytes())
}

func (h *ReportHandler) query(c *gin.Context) ([]service.DeclarationResponse, bool) {
	var q service.DeclarationQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid query parameters: "+err.Error()))
		return nil, false
	}
	rows, err := h.declarationService.List(c.Request.Context(), middleware.TenantID(c), q)
	if err != nil {
		respondError(c, h.log, err)
		return nil, false
	}
	return rows, true
}
