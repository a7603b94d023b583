package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"delivops/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
		wantLogged bool
	}{
		{"not found", apperror.NotFound("Client not found"), http.StatusNotFound, `"error":"Client not found"`, false},
		{"wrapped bad request", fmt.Errorf("ctx: %w", apperror.BadRequest("Invalid date range")), http.StatusBadRequest, `"error":"Invalid date range"`, false},
		{"conflict", apperror.Conflict("Driver has tours"), http.StatusConflict, `"error":"Driver has tours"`, false},
		{"internal", errors.New("connection reset"), http.StatusInternalServerError, `"error":"Internal server error"`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zap.ErrorLevel)
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			respondError(c, zap.New(core), tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
			assert.NotContains(t, rec.Body.String(), "connection reset")
			assert.Equal(t, tt.wantLogged, logs.Len() == 1)
		})
	}
}

func TestIsoDateValidator(t *testing.T) {
	gin.SetMode(gin.TestMode)
	require.NoError(t, RegisterValidators())

	type payload struct {
		Date string `json:"date" binding:"required,isodate"`
	}
	r := gin.New()
	r.POST("/", func(c *gin.Context) {
		var p payload
		if err := c.ShouldBindJSON(&p); err != nil {
			invalidPayload(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})

	for body, want := range map[string]int{
		`{"date":"2026-10-14"}`: http.StatusNoContent,
		`{"date":"14/10/2026"}`: http.StatusBadRequest,
		`{"date":"2026-02-30"}`: http.StatusBadRequest,
		`{}`:                    http.StatusBadRequest,
	} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, body)
	}
}
