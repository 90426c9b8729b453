package http

import (
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apierrors "statementcheck/internal/errors"
)

// LogRequest is one entry reported by the browser dashboard, typically a
// failed upload or a dropped progress stream.
type LogRequest struct {
	Level   string                 `json:"level" validate:"omitempty,oneof=debug info warn error"`
	Message string                 `json:"message" validate:"required,max=2048"`
	Source  string                 `json:"source,omitempty" validate:"max=256"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// ClientLogHandler writes dashboard entries into the server log under the
// caller's request id.
type ClientLogHandler struct {
	logger       *slog.Logger
	validate     *validator.Validate
	errorHandler *apierrors.ErrorHandler
}

func NewClientLogHandler(logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ClientLogHandler {
	if logger == nil {
		logger = slog.Default()
	}
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		return name
	})
	return &ClientLogHandler{
		logger:       logger.With(slog.String("component", "client")),
		validate:     v,
		errorHandler: errorHandler,
	}
}

// Handle handles POST /api/v1/logs. Accepted entries get 204.
func (h *ClientLogHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var req LogRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			err = apierrors.ErrValidation(fe.Field(), "failed "+fe.Tag()+" check")
		}
		h.errorHandler.HandleError(w, r, err)
		return
	}

	attrs := make([]slog.Attr, 0, 2)
	if req.Source != "" {
		attrs = append(attrs, slog.String("source", req.Source))
	}
	if len(req.Data) > 0 {
		attrs = append(attrs, slog.Any("data", req.Data))
	}
	h.logger.LogAttrs(r.Context(), clientLevel(req.Level), req.Message, attrs...)

	w.WriteHeader(http.StatusNoContent)
}

func clientLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}
