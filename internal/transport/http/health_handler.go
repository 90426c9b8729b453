package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"statementcheck/internal/services"
)

// HealthHandler serves the health endpoints and the version. None of them touch
// a statement, so they stay outside the request timeout.
type HealthHandler struct {
	service *services.HealthService
	logger  *slog.Logger
}

func NewHealthHandler(service *services.HealthService, logger *slog.Logger) *HealthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthHandler{service: service, logger: logger.With(slog.String("handler", "health"))}
}

// HealthCheck handles GET /api/v1/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.HealthCheck(r.Context()))
}

// ReadinessCheck handles GET /api/v1/health/ready and answers 503 while a
// component is missing, so a load balancer holds traffic back.
func (h *HealthHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	readiness := h.service.ReadinessCheck(r.Context())
	if readiness.Status != "ready" {
		h.logger.WarnContext(r.Context(), "not ready", slog.Any("services", readiness.Services))
		render.Status(r, http.StatusServiceUnavailable)
	}
	render.JSON(w, r, readiness)
}

func (h *HealthHandler) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.LivenessCheck(r.Context()))
}

func (h *HealthHandler) Version(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Version())
}
