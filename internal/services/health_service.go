package services

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"statementcheck/pkg/contracts"
	apiv1 "statementcheck/pkg/contracts/api/v1"
)

// ClientCounter reports connected progress-stream clients. *websocket.Hub implements it.
type ClientCounter interface {
	ClientCount() int
}

// HealthService provides health check functionality
type HealthService struct {
	clients   ClientCounter
	analysis  *AnalysisService
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the readiness and liveness responses
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Runtime   map[string]interface{}   `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

// ServiceHealth represents individual component health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// NewHealthService creates a health service. Both dependencies may be nil,
// which reports the matching component as not ready.
func NewHealthService(clients ClientCounter, analysis *AnalysisService, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		clients:   clients,
		analysis:  analysis,
		startTime: time.Now(),
		logger:    logger.With(slog.String("component", "health_service")),
	}
}

// HealthCheck returns the liveness summary served by the health endpoint.
func (hs *HealthService) HealthCheck(ctx context.Context) apiv1.HealthResponse {
	resp := apiv1.HealthResponse{
		Status:  "ok",
		Version: contracts.Version,
		Uptime:  time.Since(hs.startTime).Round(time.Second).String(),
	}
	if hs.clients != nil {
		resp.Clients = hs.clients.ClientCount()
	}
	hs.logger.DebugContext(ctx, "HealthCheck: completed", slog.String("uptime", resp.Uptime))
	return resp
}

// ReadinessCheck reports whether every component is wired.
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   contracts.Version,
		Services: map[string]ServiceHealth{
			"analysis":  hs.checkAnalysis(),
			"websocket": hs.checkWebSocket(),
		},
	}
	for _, sh := range status.Services {
		if sh.Status != "ready" {
			status.Status = "not_ready"
			break
		}
	}
	return status
}

// LivenessCheck returns runtime statistics.
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   contracts.Version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// Version returns version information
func (hs *HealthService) Version() contracts.VersionInfo {
	return contracts.GetVersionInfo()
}

func (hs *HealthService) checkAnalysis() ServiceHealth {
	if hs.analysis == nil {
		return ServiceHealth{Status: "not_ready", Message: "analysis service not initialized"}
	}
	msg := "result cache disabled"
	if n := hs.analysis.CachedResults(); n >= 0 {
		msg = "result cache enabled"
	}
	return ServiceHealth{Status: "ready", Message: msg}
}

func (hs *HealthService) checkWebSocket() ServiceHealth {
	if hs.clients == nil {
		return ServiceHealth{Status: "not_ready", Message: "websocket hub not initialized"}
	}
	return ServiceHealth{Status: "ready"}
}
