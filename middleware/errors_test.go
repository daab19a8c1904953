package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Error responses must work as soon as the package loads. Handlers write
// error responses long before main configures anything, so the package-level
// logger has to be live without an InitLogger call.
func TestErrorHandlerWorksWithoutExplicitInit(t *testing.T) {
	require.NotNil(t, Logger)

	rec := httptest.NewRecorder()
	RespondNotFound(rec, errors.New("item 42 not found"), "req-abc")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var apiErr APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	assert.Equal(t, ErrCodeNotFound, apiErr.Error)
	assert.Equal(t, "item 42 not found", apiErr.Details)
	assert.Equal(t, "req-abc", apiErr.RequestID)
}

func TestErrorHandlerResponseShapes(t *testing.T) {
	tests := []struct {
		name       string
		respond    func(http.ResponseWriter, error, string)
		wantStatus int
		wantCode   ErrorCode
	}{
		{"bad request", RespondBadRequest, http.StatusBadRequest, ErrCodeBadRequest},
		{"validation", RespondValidationError, http.StatusBadRequest, ErrCodeValidation},
		{"queue full", RespondQueueFull, http.StatusServiceUnavailable, ErrCodeQueueFull},
		{"conflict", RespondConflict, http.StatusConflict, ErrCodeConflict},
		{"internal", RespondInternalError, http.StatusInternalServerError, ErrCodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.respond(rec, errors.New("boom"), "req-1")

			assert.Equal(t, tt.wantStatus, rec.Code)

			var apiErr APIError
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
			assert.Equal(t, tt.wantCode, apiErr.Error)
			assert.NotEmpty(t, apiErr.Message)
		})
	}
}

func TestInitLoggerReplacesLogger(t *testing.T) {
	before := Logger
	InitLogger()
	require.NotNil(t, Logger)
	assert.NotSame(t, before, Logger)
}
