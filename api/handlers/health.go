package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// =============================================================================
// 🏥 健康检查 Handler
// =============================================================================

// HealthHandler 健康检查处理器
type HealthHandler struct {
	logger *zap.Logger
	checks []HealthCheck
	mu     sync.RWMutex
}

// HealthCheck 健康检查接口
type HealthCheck interface {
	Name() string
	Check(ctx context.Context) error
}

// HealthStatus 健康状态响应
type HealthStatus struct {
	Status    string                 `json:"status"` // "healthy", "unhealthy"
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// CheckResult 单个检查结果
type CheckResult struct {
	Status  string `json:"status"` // "pass", "fail"
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// NewHealthHandler 创建健康检查处理器
func NewHealthHandler(logger *zap.Logger) *HealthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthHandler{
		logger: logger.With(zap.String("component", "health")),
		checks: make([]HealthCheck, 0),
	}
}

// RegisterCheck 注册就绪检查
func (h *HealthHandler) RegisterCheck(check HealthCheck) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks = append(h.checks, check)
}

// =============================================================================
// 🎯 HTTP 处理程序
// =============================================================================

// HandleHealth 处理 /health 请求
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
	})
}

// HandleHealthz 处理 /healthz 请求（存活探针，只要进程在响应即可）
func (h *HealthHandler) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	h.HandleHealth(w, r)
}

// HandleReady 处理 /ready 请求，任一检查失败返回 503
func (h *HealthHandler) HandleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	h.mu.RLock()
	checks := make([]HealthCheck, len(h.checks))
	copy(checks, h.checks)
	h.mu.RUnlock()

	status := HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
		Checks:    make(map[string]CheckResult, len(checks)),
	}

	allHealthy := true
	for _, check := range checks {
		start := time.Now()
		err := check.Check(ctx)
		latency := time.Since(start)

		result := CheckResult{
			Status:  "pass",
			Latency: latency.String(),
		}
		if err != nil {
			result.Status = "fail"
			result.Message = err.Error()
			allHealthy = false

			h.logger.Debug("readiness check failed",
				zap.String("check", check.Name()),
				zap.Error(err),
				zap.Duration("latency", latency),
			)
		}
		status.Checks[check.Name()] = result
	}

	if !allHealthy {
		status.Status = "unhealthy"
		WriteJSON(w, http.StatusServiceUnavailable, status)
		return
	}

	WriteJSON(w, http.StatusOK, status)
}

// HandleVersion 返回构建信息
func (h *HealthHandler) HandleVersion(info any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteSuccess(w, r, info)
	}
}

// =============================================================================
// 🔧 函数式健康检查
// =============================================================================

// CheckFunc 将函数适配为 HealthCheck
type CheckFunc struct {
	name  string
	check func(ctx context.Context) error
}

// NewCheck 创建函数式健康检查
func NewCheck(name string, check func(ctx context.Context) error) *CheckFunc {
	return &CheckFunc{name: name, check: check}
}

func (c *CheckFunc) Name() string {
	return c.name
}

func (c *CheckFunc) Check(ctx context.Context) error {
	return c.check(ctx)
}
