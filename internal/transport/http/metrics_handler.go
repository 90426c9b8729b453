package http

import (
	"net/http"

	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apiv1 "statementcheck/pkg/contracts/api/v1"
)

// HubStats reports progress-stream counters. *websocket.Hub implements it.
type HubStats interface {
	Stats() map[string]int64
}

// CacheStats reports the analysis result cache size. *services.AnalysisService implements it.
type CacheStats interface {
	CachedResults() int
}

// MetricsHandler serves the Prometheus exposition and a JSON stats summary
type MetricsHandler struct {
	prometheus http.Handler
	hub        HubStats
	cache      CacheStats
}

// NewMetricsHandler creates a new metrics handler. A nil prometheus handler
// falls back to the default registry.
func NewMetricsHandler(prometheus http.Handler, hub HubStats, cache CacheStats) *MetricsHandler {
	if prometheus == nil {
		prometheus = promhttp.Handler()
	}
	return &MetricsHandler{prometheus: prometheus, hub: hub, cache: cache}
}

// Prometheus handles GET /metrics
func (h *MetricsHandler) Prometheus(w http.ResponseWriter, r *http.Request) {
	h.prometheus.ServeHTTP(w, r)
}

// GetStats handles GET /api/v1/stats
func (h *MetricsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]interface{}{}
	if h.hub != nil {
		stats["websocket"] = h.hub.Stats()
	}
	if h.cache != nil {
		n := h.cache.CachedResults()
		stats["cache"] = map[string]interface{}{
			"enabled": n >= 0,
			"items":   max(n, 0),
		}
	}
	render.JSON(w, r, apiv1.NewSuccessResponse(stats))
}
