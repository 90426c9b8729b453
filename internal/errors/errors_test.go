package errors

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIErrorConstructors(t *testing.T) {
	tests := []struct {
		name       string
		err        *APIError
		wantStatus int
		wantCode   string
		wantDetail interface{}
	}{
		{
			name:       "validation",
			err:        ErrValidation("percent_threshold", "must be greater than 0"),
			wantStatus: http.StatusBadRequest,
			wantCode:   CodeValidationFailed,
			wantDetail: ValidationError{Field: "percent_threshold", Message: "must be greater than 0"},
		},
		{
			name:       "undecodable form",
			err:        InvalidRequestWithError(errors.New("multipart: NextPart: EOF")),
			wantStatus: http.StatusBadRequest,
			wantCode:   CodeInvalidRequest,
			wantDetail: "multipart: NextPart: EOF",
		},
		{
			name:       "too large",
			err:        PayloadTooLarge(map[string]interface{}{"max_size": int64(10)}),
			wantStatus: http.StatusRequestEntityTooLarge,
			wantCode:   CodePayloadTooLarge,
			wantDetail: map[string]interface{}{"max_size": int64(10)},
		},
		{
			name:       "upgrade keeps status",
			err:        UpgradeFailed(http.StatusForbidden, errors.New("origin not allowed")),
			wantStatus: http.StatusForbidden,
			wantCode:   CodeUpgradeFailed,
			wantDetail: "origin not allowed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantStatus, tt.err.Status)
			assert.Equal(t, tt.wantCode, tt.err.Code)
			assert.Equal(t, tt.wantDetail, tt.err.Details)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestProblemDetails_ExtensionsNeverReplaceStandardMembers(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/api/v1/export", nil)
	p := NewProblemDetails(r, http.StatusBadRequest, TypeValidation, "Validation Failed", "x").
		WithExtension("status", 999).
		WithExtension("errors", []string{"a"})

	out, err := json.Marshal(p)
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &body))
	assert.Equal(t, float64(http.StatusBadRequest), body["status"])
	assert.Equal(t, "/api/v1/export", body["instance"])
	assert.Equal(t, []interface{}{"a"}, body["errors"])
}

func TestProblemDetails_OmitsEmptyDetail(t *testing.T) {
	out, err := json.Marshal(NewProblemDetails(nil, http.StatusNotFound, TypeNotFound, "Not Found", ""))
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &body))
	assert.NotContains(t, body, "detail")
	assert.NotContains(t, body, "instance")
}
