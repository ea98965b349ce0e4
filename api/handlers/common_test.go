package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BaSui01/lanmirror/internal/ctxkeys"
	"github.com/BaSui01/lanmirror/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// =============================================================================
// 🧪 Common 函数测试
// =============================================================================

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	WriteJSON(w, http.StatusAccepted, map[string]string{"message": "hello"})

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.JSONEq(t, `{"message":"hello"}`, w.Body.String())
}

func TestWriteSuccess(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r = r.WithContext(ctxkeys.WithRequestID(r.Context(), "req-1"))
	w := httptest.NewRecorder()

	WriteSuccess(w, r, map[string]string{"key": "value"})

	assert.Equal(t, http.StatusOK, w.Code)
	var resp Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.Nil(t, resp.Error)
	assert.Equal(t, "req-1", resp.RequestID)
	assert.False(t, resp.Timestamp.IsZero())
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        *types.Error
		wantStatus int
	}{
		{"explicit status", types.NewError(types.ErrInvalidRequest, "bad").WithHTTPStatus(http.StatusTeapot), http.StatusTeapot},
		{"mapped invalid request", types.NewError(types.ErrInvalidRequest, "bad"), http.StatusBadRequest},
		{"mapped staging failure", types.NewError(types.ErrStagingFailed, "no assets").WithCause(errors.New("io")), http.StatusServiceUnavailable},
		{"retryable conflict", types.NewError(types.ErrBindConflict, "in use").WithRetryable(true), http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, nil, tt.err, zap.NewNop())

			assert.Equal(t, tt.wantStatus, w.Code)
			var resp Response
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, string(tt.err.Code), resp.Error.Code)
			assert.Equal(t, tt.err.Message, resp.Error.Message)
			assert.Equal(t, tt.err.Retryable, resp.Error.Retryable)
		})
	}
}

func TestMapErrorCodeToHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusMethodNotAllowed, mapErrorCodeToHTTPStatus(types.ErrMethodNotAllowed))
	assert.Equal(t, http.StatusServiceUnavailable, mapErrorCodeToHTTPStatus(types.ErrPortsExhausted))
	assert.Equal(t, http.StatusServiceUnavailable, mapErrorCodeToHTTPStatus(types.ErrPlatformUnsupported))
	assert.Equal(t, http.StatusInternalServerError, mapErrorCodeToHTTPStatus(types.ErrInternalError))
	assert.Equal(t, http.StatusInternalServerError, mapErrorCodeToHTTPStatus("SOMETHING_ELSE"))
}

func TestResponseWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := NewResponseWriter(rec)

	rw.WriteHeader(http.StatusNotFound)
	rw.WriteHeader(http.StatusOK) // 第二次被忽略
	n, err := rw.Write([]byte("missing"))
	require.NoError(t, err)

	assert.Equal(t, 7, n)
	assert.Equal(t, http.StatusNotFound, rw.StatusCode)
	assert.Equal(t, int64(7), rw.BytesWritten)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, rec, rw.Unwrap())

	_, _, err = rw.Hijack()
	assert.Error(t, err, "recorder does not support hijacking")
}
