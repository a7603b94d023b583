package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareLabelsByRoutePattern(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()
	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/tours/:tourId", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	for _, id := range []string{"a", "b"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/tours/"+id, nil))
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("/tours/:tourId", "418")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("unknown", "404")))
}

func TestDomainCounters(t *testing.T) {
	m := New()
	m.TourPickup(3)
	m.TourPickup(2)
	m.TourDelivery(4)
	m.DeclarationAdjusted("create")
	m.DeclarationAdjusted("create")
	m.DeclarationAdjusted("delete")

	assert.Equal(t, 5.0, testutil.ToFloat64(m.pickups))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.deliveries))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.adjustments.WithLabelValues("create")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.adjustments.WithLabelValues("delete")))
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New()
	m.TourDelivery(1)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "delivops_tour_deliveries_total 1"))

	var nilMetrics *Metrics
	w = httptest.NewRecorder()
	nilMetrics.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	nilMetrics.TourPickup(1)
}
