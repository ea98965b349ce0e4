package handlers

import (
	"bufio"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/BaSui01/lanmirror/internal/ctxkeys"
	"github.com/BaSui01/lanmirror/types"
	"go.uber.org/zap"
)

// =============================================================================
// 📦 通用响应结构
// =============================================================================

// Response 统一 API 响应结构
type Response struct {
	Success   bool       `json:"success"`
	Data      any        `json:"data,omitempty"`
	Error     *ErrorInfo `json:"error,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
	RequestID string     `json:"request_id,omitempty"`
}

// ErrorInfo 错误信息结构
type ErrorInfo struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Retryable  bool   `json:"retryable,omitempty"`
	HTTPStatus int    `json:"-"` // 不序列化到 JSON
}

// =============================================================================
// 🎯 响应辅助函数
// =============================================================================

// WriteJSON 写入 JSON 响应
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)

	// 头已写出，编码失败只能放弃
	_ = json.NewEncoder(w).Encode(data)
}

// WriteSuccess 写入成功响应
func WriteSuccess(w http.ResponseWriter, r *http.Request, data any) {
	WriteJSON(w, http.StatusOK, Response{
		Success:   true,
		Data:      data,
		Timestamp: time.Now(),
		RequestID: requestID(r),
	})
}

// WriteError 写入错误响应（从 types.Error）
func WriteError(w http.ResponseWriter, r *http.Request, err *types.Error, logger *zap.Logger) {
	status := err.HTTPStatus
	if status == 0 {
		status = mapErrorCodeToHTTPStatus(err.Code)
	}

	if logger != nil {
		logger.Warn("API error",
			zap.String("code", string(err.Code)),
			zap.String("message", err.Message),
			zap.Int("status", status),
			zap.Bool("retryable", err.Retryable),
			zap.Error(err.Cause),
		)
	}

	WriteJSON(w, status, Response{
		Success: false,
		Error: &ErrorInfo{
			Code:       string(err.Code),
			Message:    err.Message,
			Retryable:  err.Retryable,
			HTTPStatus: status,
		},
		Timestamp: time.Now(),
		RequestID: requestID(r),
	})
}

// WriteErrorMessage 写入简单错误消息
func WriteErrorMessage(w http.ResponseWriter, r *http.Request, status int, code types.ErrorCode, message string, logger *zap.Logger) {
	WriteError(w, r, types.NewError(code, message).WithHTTPStatus(status), logger)
}

func requestID(r *http.Request) string {
	if r == nil {
		return ""
	}
	id, _ := ctxkeys.RequestID(r.Context())
	return id
}

// =============================================================================
// 🔄 错误码到 HTTP 状态码映射
// =============================================================================

func mapErrorCodeToHTTPStatus(code types.ErrorCode) int {
	switch code {
	case types.ErrInvalidRequest:
		return http.StatusBadRequest
	case types.ErrMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case types.ErrBindConflict:
		return http.StatusConflict

	case types.ErrPlatformUnsupported, types.ErrAddressUnavailable, types.ErrStagingFailed,
		types.ErrBindFailed, types.ErrPortsExhausted, types.ErrServiceDisposed, types.ErrServiceUnavailable:
		return http.StatusServiceUnavailable
	case types.ErrRequestFailed, types.ErrInternalError:
		return http.StatusInternalServerError

	default:
		return http.StatusInternalServerError
	}
}

// =============================================================================
// 📊 响应包装器（用于捕获状态码）
// =============================================================================

// ResponseWriter 包装 http.ResponseWriter 以捕获状态码与响应大小
type ResponseWriter struct {
	http.ResponseWriter
	StatusCode   int
	BytesWritten int64
	Written      bool
}

// NewResponseWriter 创建新的 ResponseWriter
func NewResponseWriter(w http.ResponseWriter) *ResponseWriter {
	return &ResponseWriter{
		ResponseWriter: w,
		StatusCode:     http.StatusOK,
	}
}

// WriteHeader 重写 WriteHeader 以捕获状态码
func (rw *ResponseWriter) WriteHeader(code int) {
	if !rw.Written {
		rw.StatusCode = code
		rw.Written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

// Write 重写 Write 以标记已写入
func (rw *ResponseWriter) Write(b []byte) (int, error) {
	if !rw.Written {
		rw.WriteHeader(http.StatusOK)
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.BytesWritten += int64(n)
	return n, err
}

// Unwrap 供 http.ResponseController 访问底层连接（WebSocket 升级需要）
func (rw *ResponseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Hijack 透传连接接管，状态码记为 101
func (rw *ResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("underlying ResponseWriter does not support hijacking")
	}
	rw.StatusCode = http.StatusSwitchingProtocols
	rw.Written = true
	return h.Hijack()
}
