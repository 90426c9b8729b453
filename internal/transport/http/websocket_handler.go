package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	apierrors "statementcheck/internal/errors"
	"statementcheck/internal/infrastructure"
	"statementcheck/internal/middleware"
	ws "statementcheck/internal/websocket"
)

// WebSocketHandler upgrades /ws connections and attaches them to the progress hub
type WebSocketHandler struct {
	hub            *ws.Hub
	allowedOrigins []string
	upgrader       websocket.Upgrader
	logger         *slog.Logger
	errorHandler   *apierrors.ErrorHandler
}

// NewWebSocketHandler creates the handler. An empty allowedOrigins list accepts any origin.
func NewWebSocketHandler(hub *ws.Hub, allowedOrigins []string, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *WebSocketHandler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &WebSocketHandler{
		hub:            hub,
		allowedOrigins: allowedOrigins,
		logger:         logger.With(slog.String("handler", "websocket")),
		errorHandler:   errorHandler,
	}
	opts := hub.Options()
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  opts.ReadBufferSize,
		WriteBufferSize: opts.WriteBufferSize,
		CheckOrigin:     h.checkOrigin,
		Error: func(w http.ResponseWriter, r *http.Request, status int, reason error) {
			h.logger.WarnContext(r.Context(), "WebSocket upgrade error",
				slog.Int("status", status),
				slog.String("reason", reason.Error()),
				slog.String("origin", r.Header.Get("Origin")))
			h.errorHandler.HandleError(w, r, apierrors.UpgradeFailed(status, reason))
		},
	}
	return h
}

// ServeHTTP handles GET /ws
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	traceID := middleware.GetRequestID(ctx)
	if traceID == "" {
		traceID = infrastructure.NewTraceID()
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already answered the request.
		return
	}

	client := ws.ServeWS(h.hub, conn, traceID)
	h.logger.InfoContext(ctx, "WebSocket client connected",
		slog.String("client_id", client.ID()),
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("trace_id", traceID))
}

// checkOrigin allows requests without an Origin header and same-host origins.
func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.allowedOrigins) == 0 {
		return true
	}
	if strings.EqualFold(strings.TrimPrefix(strings.TrimPrefix(origin, "http://"), "https://"), r.Host) {
		return true
	}
	for _, allowed := range h.allowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	h.logger.WarnContext(r.Context(), "WebSocket origin not allowed",
		slog.String("origin", origin),
		slog.Any("allowed_origins", h.allowedOrigins))
	return false
}
