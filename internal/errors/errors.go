package errors

import (
	"net/http"
)

// Codes carried in the error_code member of request-level problems.
const (
	CodeInvalidRequest       = "INVALID_REQUEST"
	CodeValidationFailed     = "VALIDATION_FAILED"
	CodeMissingContentType   = "MISSING_CONTENT_TYPE"
	CodeUnsupportedMediaType = "UNSUPPORTED_MEDIA_TYPE"
	CodePayloadTooLarge      = "PAYLOAD_TOO_LARGE"
	CodeRateLimitExceeded    = "RATE_LIMIT_EXCEEDED"
	CodeUpgradeFailed        = "WEBSOCKET_UPGRADE_FAILED"
)

// APIError rejects a request before any statement is read: a malformed
// form, a body over the limit, a refused upgrade.
type APIError struct {
	Status  int
	Code    string
	Message string
	Details interface{}
}

func (e *APIError) Error() string {
	return e.Message
}

// ValidationError names the request field that failed.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func New(status int, code, message string) *APIError {
	return &APIError{Status: status, Code: code, Message: message}
}

func NewWithDetails(status int, code, message string, details interface{}) *APIError {
	return &APIError{Status: status, Code: code, Message: message, Details: details}
}

// ErrRateLimitExceeded is returned by the per-client limiter.
var ErrRateLimitExceeded = New(http.StatusTooManyRequests, CodeRateLimitExceeded, "Too many requests from this client")

// InvalidRequestWithError reports a body or form that could not be decoded.
func InvalidRequestWithError(err error) *APIError {
	return NewWithDetails(http.StatusBadRequest, CodeInvalidRequest, "Request could not be decoded", err.Error())
}

// ErrValidation reports one rejected field.
func ErrValidation(field, message string) *APIError {
	return NewWithDetails(http.StatusBadRequest, CodeValidationFailed, "Request validation failed",
		ValidationError{Field: field, Message: message})
}

// PayloadTooLarge reports a body or an uploaded statement over its limit.
func PayloadTooLarge(details interface{}) *APIError {
	return NewWithDetails(http.StatusRequestEntityTooLarge, CodePayloadTooLarge,
		"Uploaded statement exceeds the size limit", details)
}

// UpgradeFailed reports a refused WebSocket handshake with the status the
// upgrader chose.
func UpgradeFailed(status int, reason error) *APIError {
	return NewWithDetails(status, CodeUpgradeFailed, "WebSocket upgrade failed", reason.Error())
}
