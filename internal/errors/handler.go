package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"runtime/debug"

	"github.com/go-chi/chi/v5/middleware"
)

// Problem type URIs.
const (
	TypeValidation       = "/errors/validation"
	TypeNotFound         = "/errors/not-found"
	TypeMethodNotAllowed = "/errors/method-not-allowed"
	TypeUnsupportedMedia = "/errors/unsupported-media-type"
	TypeRateLimit        = "/errors/rate-limit"
	TypeInternal         = "/errors/internal"
	TypeTimeout          = "/errors/timeout"
	TypePayloadTooLarge  = "/errors/payload-too-large"
	TypeUpgradeFailed    = "/errors/websocket-upgrade"
	TypeExportFailed     = "/errors/export/failed"

	TypeNoTransactionHeader   = "/errors/report/no-transaction-header"
	TypeMissingRequiredColumn = "/errors/report/missing-required-column"
	TypeNoValidTransactions   = "/errors/report/no-valid-transactions"
	TypeUnparseableFile       = "/errors/report/unparseable-file"
)

type problemClass struct {
	problemType string
	title       string
}

// classes maps request codes and report kinds to their problem type.
var classes = map[string]problemClass{
	CodeInvalidRequest:       {TypeValidation, "Invalid Request"},
	CodeValidationFailed:     {TypeValidation, "Validation Failed"},
	CodeMissingContentType:   {TypeValidation, "Missing Content Type"},
	CodeUnsupportedMediaType: {TypeUnsupportedMedia, "Unsupported Media Type"},
	CodePayloadTooLarge:      {TypePayloadTooLarge, "Payload Too Large"},
	CodeRateLimitExceeded:    {TypeRateLimit, "Too Many Requests"},
	CodeUpgradeFailed:        {TypeUpgradeFailed, "WebSocket Upgrade Failed"},

	KindNoTransactionHeader:   {TypeNoTransactionHeader, "No Transaction Header"},
	KindMissingRequiredColumn: {TypeMissingRequiredColumn, "Missing Required Column"},
	KindNoValidTransactions:   {TypeNoValidTransactions, "No Valid Transactions"},
	KindUnparseableFile:       {TypeUnparseableFile, "Unparseable File"},
}

// ErrorHandler writes every failure as application/problem+json.
type ErrorHandler struct {
	logger       *slog.Logger
	includeStack bool
}

// NewErrorHandler returns a handler that logs through logger. includeStack
// adds the goroutine stack to each problem and is meant for development.
func NewErrorHandler(logger *slog.Logger, includeStack bool) *ErrorHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ErrorHandler{
		logger:       logger.With(slog.String("component", "error_handler")),
		includeStack: includeStack,
	}
}

func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	problem := h.ErrorToProblem(err, r)

	level := slog.LevelWarn
	if problem.Status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(r.Context(), level, "request failed",
		slog.String("error", err.Error()),
		slog.Int("status", problem.Status),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	h.write(w, r, problem)
}

// ErrorToProblem classifies err. Report kinds become 422 so a client can
// tell a bad statement from a bad request.
func (h *ErrorHandler) ErrorToProblem(err error, r *http.Request) *ProblemDetails {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewProblemDetails(r, http.StatusGatewayTimeout, TypeTimeout, "Request Timeout",
			"The analysis did not finish within the request timeout")
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		class, ok := classes[apiErr.Code]
		if !ok {
			class = problemClass{TypeInternal, http.StatusText(apiErr.Status)}
		}
		problem := NewProblemDetails(r, apiErr.Status, class.problemType, class.title, apiErr.Message).
			WithExtension("error_code", apiErr.Code)
		if apiErr.Details != nil {
			problem.WithExtension("details", apiErr.Details)
		}
		return problem
	}

	if IsReportError(err) {
		kind := KindOf(err)
		class := classes[kind]
		problem := NewProblemDetails(r, http.StatusUnprocessableEntity, class.problemType, class.title, err.Error()).
			WithExtension("error_kind", kind)
		if role, ok := MissingRole(err); ok {
			problem.WithExtension("role", role)
		}
		return problem
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		switch appErr.Type {
		case ErrTypeValidation:
			return NewProblemDetails(r, http.StatusBadRequest, TypeValidation, "Validation Failed", appErr.Error())
		case ErrTypeNotFound:
			return NewProblemDetails(r, http.StatusNotFound, TypeNotFound, "Not Found", appErr.Error())
		case ErrTypeExport:
			return NewProblemDetails(r, http.StatusInternalServerError, TypeExportFailed, "Export Failed", appErr.Message)
		}
	}

	return NewProblemDetails(r, http.StatusInternalServerError, TypeInternal, "Internal Server Error",
		"An unexpected error occurred while processing the request")
}

// HandlePanic answers 500 for a recovered panic.
func (h *ErrorHandler) HandlePanic(w http.ResponseWriter, r *http.Request, recovered interface{}) {
	h.logger.ErrorContext(r.Context(), "panic recovered",
		slog.Any("panic", recovered),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("stack", string(debug.Stack())),
	)

	problem := NewProblemDetails(r, http.StatusInternalServerError, TypeInternal, "Internal Server Error",
		"An unexpected error occurred")
	if h.includeStack {
		problem.WithExtension("panic", fmt.Sprintf("%v", recovered))
	}
	h.write(w, r, problem)
}

func (h *ErrorHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.write(w, r, NewProblemDetails(r, http.StatusNotFound, TypeNotFound, "Not Found",
		"No endpoint matches this path"))
}

func (h *ErrorHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.write(w, r, NewProblemDetails(r, http.StatusMethodNotAllowed, TypeMethodNotAllowed, "Method Not Allowed",
		fmt.Sprintf("Method %s is not allowed for this endpoint", r.Method)))
}

func (h *ErrorHandler) write(w http.ResponseWriter, r *http.Request, problem *ProblemDetails) {
	problem.WithExtension("trace_id", middleware.GetReqID(r.Context()))
	if h.includeStack {
		problem.WithExtension("stack", stackTrace())
	}
	body, err := json.Marshal(problem)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to encode problem", slog.String("error", err.Error()))
		http.Error(w, http.StatusText(problem.Status), problem.Status)
		return
	}
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(problem.Status)
	w.Write(body)
}

func stackTrace() string {
	buf := make([]byte, 8<<10)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}
