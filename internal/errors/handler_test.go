package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statementcheck/internal/shared/testutil"
)

func TestErrorHandler_HandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, TypeTimeout},
		{"api error", InvalidRequestWithError(fmt.Errorf("eof")), http.StatusBadRequest, TypeValidation},
		{"rate limited", ErrRateLimitExceeded, http.StatusTooManyRequests, TypeRateLimit},
		{"payload too large", PayloadTooLarge(nil), http.StatusRequestEntityTooLarge, TypePayloadTooLarge},
		{"no header", NewNoTransactionHeaderError("a.csv", 100), http.StatusUnprocessableEntity, TypeNoTransactionHeader},
		{"missing column", fmt.Errorf("wrap: %w", NewMissingColumnError("a.csv", "profit")), http.StatusUnprocessableEntity, TypeMissingRequiredColumn},
		{"no transactions", NewNoValidTransactionsError("a.csv", 3, 3, 0), http.StatusUnprocessableEntity, TypeNoValidTransactions},
		{"unparseable", NewUnparseableFileError("a.bin", fmt.Errorf("eof")), http.StatusUnprocessableEntity, TypeUnparseableFile},
		{"app validation", NewAppValidationError("bad threshold"), http.StatusBadRequest, TypeValidation},
		{"export", NewExportError("xlsx", fmt.Errorf("closed")), http.StatusInternalServerError, TypeExportFailed},
		{"generic", fmt.Errorf("boom"), http.StatusInternalServerError, TypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, _ := testutil.NewTestLogger(t)
			h := NewErrorHandler(logger, false)

			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", nil)
			h.HandleError(w, r, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantType, body["type"])
			assert.Equal(t, "/api/v1/analyze", body["instance"])
			assert.Contains(t, body, "trace_id")
			assert.NotContains(t, body, "stack")
		})
	}
}

func TestErrorHandler_ReportProblemCarriesKindAndRole(t *testing.T) {
	h := NewErrorHandler(nil, false)
	r := httptest.NewRequest(http.MethodPost, "/api/v1/export", nil)

	problem := h.ErrorToProblem(NewMissingColumnError("a.csv", "time"), r)

	assert.Equal(t, http.StatusUnprocessableEntity, problem.Status)
	assert.Equal(t, KindMissingRequiredColumn, problem.Extensions["error_kind"])
	assert.Equal(t, "time", problem.Extensions["role"])
}

func TestErrorHandler_HandleNil(t *testing.T) {
	h := NewErrorHandler(nil, false)
	w := httptest.NewRecorder()

	h.HandleError(w, httptest.NewRequest(http.MethodGet, "/", nil), nil)

	assert.Equal(t, 0, w.Body.Len())
}

func TestErrorHandler_HandlePanicWithStack(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	h := NewErrorHandler(logger, true)

	w := httptest.NewRecorder()
	h.HandlePanic(w, httptest.NewRequest(http.MethodGet, "/boom", nil), "kaput")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "kaput", body["panic"])
	assert.Contains(t, body, "stack")
	assert.True(t, handler.ContainsMessage("panic recovered"))
}

func TestErrorHandler_NotFoundAndMethodNotAllowed(t *testing.T) {
	h := NewErrorHandler(nil, false)

	w := httptest.NewRecorder()
	h.NotFound(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	h.MethodNotAllowed(w, httptest.NewRequest(http.MethodDelete, "/api/v1/analyze", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Contains(t, w.Body.String(), "DELETE")
	assert.Contains(t, w.Body.String(), TypeMethodNotAllowed)
}
