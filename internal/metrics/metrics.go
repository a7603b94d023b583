// Package metrics exposes Prometheus collectors for the API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the HTTP and domain collectors on a private registry.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	pickups     prometheus.Counter
	deliveries  prometheus.Counter
	adjustments *prometheus.CounterVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "delivops_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "delivops_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	pickups := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "delivops_tour_pickups_total",
		Help: "Parcels recorded at pickup.",
	})
	deliveries := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "delivops_tour_deliveries_total",
		Help: "Parcels reconciled at delivery.",
	})
	adjustments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "delivops_declaration_adjustments_total",
		Help: "Manual declaration changes by action.",
	}, []string{"action"})

	registry.MustRegister(
		requests, duration, pickups, deliveries, adjustments,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		pickups:         pickups,
		deliveries:      deliveries,
		adjustments:     adjustments,
	}
}

// Handler serves the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records the request count and latency per matched route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) TourPickup(parcels int) {
	if m == nil {
		return
	}
	m.pickups.Add(float64(parcels))
}

func (m *Metrics) TourDelivery(parcels int) {
	if m == nil {
		return
	}
	m.deliveries.Add(float64(parcels))
}

func (m *Metrics) DeclarationAdjusted(action string) {
	if m == nil {
		return
	}
	m.adjustments.WithLabelValues(action).Inc()
}
