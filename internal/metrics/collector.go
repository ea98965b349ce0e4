// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器
//
// 所有 Record 方法对 nil 接收者安全，未启用指标时可直接传 nil。
type Collector struct {
	// HTTP 指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpResponseSize    *prometheus.HistogramVec

	// 服务生命周期指标
	serverStartsTotal *prometheus.CounterVec
	bindAttemptsTotal *prometheus.CounterVec
	serverRunning     prometheus.Gauge
	serverPort        prometheus.Gauge
	statusTransitions *prometheus.CounterVec
	statusSubscribers prometheus.Gauge

	// 资源暂存指标
	stagingRunsTotal  *prometheus.CounterVec
	stagingFilesTotal *prometheus.CounterVec
	stagingDuration   prometheus.Histogram

	logger *zap.Logger
}

// NewCollector 创建指标收集器
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	// HTTP 指标
	c.httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests served by the mirror",
		},
		[]string{"method", "kind", "status"},
	)

	c.httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "kind"},
	)

	c.httpResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_response_size_bytes",
			Help:      "HTTP response size in bytes",
			Buckets:   prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "kind"},
	)

	// 服务生命周期指标
	c.serverStartsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "server_starts_total",
			Help:      "Total number of server start attempts by result",
		},
		[]string{"result"},
	)

	c.bindAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bind_attempts_total",
			Help:      "Total number of listener bind attempts by outcome",
		},
		[]string{"outcome"}, // ok, conflict, fatal
	)

	c.serverRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "server_running",
		Help:      "1 when the mirror server is running",
	})

	c.serverPort = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "server_port",
		Help:      "Port the mirror server is bound to, 0 when stopped",
	})

	c.statusTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_transitions_total",
			Help:      "Total number of published status transitions",
		},
		[]string{"state"}, // running, stopped, error
	)

	c.statusSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "status_subscribers",
		Help:      "Number of active status subscribers",
	})

	// 资源暂存指标
	c.stagingRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "staging_runs_total",
			Help:      "Total number of asset staging runs by result",
		},
		[]string{"result"}, // reused, staged, failed
	)

	c.stagingFilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "staging_files_total",
			Help:      "Total number of staged files by result",
		},
		[]string{"result"}, // copied, failed
	)

	c.stagingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "staging_duration_seconds",
		Help:      "Asset staging duration in seconds",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	})

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 🎯 HTTP 指标记录
// =============================================================================

// RecordHTTPRequest 记录 HTTP 请求
func (c *Collector) RecordHTTPRequest(method, kind string, status int, duration time.Duration, responseSize int64) {
	if c == nil {
		return
	}
	c.httpRequestsTotal.WithLabelValues(method, kind, statusCode(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, kind).Observe(duration.Seconds())
	c.httpResponseSize.WithLabelValues(method, kind).Observe(float64(responseSize))
}

// =============================================================================
// 🚀 生命周期指标记录
// =============================================================================

// RecordStart 记录一次启动尝试
func (c *Collector) RecordStart(result string) {
	if c == nil {
		return
	}
	c.serverStartsTotal.WithLabelValues(result).Inc()
}

// RecordBindAttempt 记录一次端口绑定尝试
func (c *Collector) RecordBindAttempt(outcome string) {
	if c == nil {
		return
	}
	c.bindAttemptsTotal.WithLabelValues(outcome).Inc()
}

// RecordStatus 记录状态变更并同步运行状态
func (c *Collector) RecordStatus(running bool, port int, failed bool) {
	if c == nil {
		return
	}
	state := "stopped"
	switch {
	case running:
		state = "running"
	case failed:
		state = "error"
	}
	c.statusTransitions.WithLabelValues(state).Inc()

	if running {
		c.serverRunning.Set(1)
		c.serverPort.Set(float64(port))
	} else {
		c.serverRunning.Set(0)
		c.serverPort.Set(0)
	}
}

// SetSubscribers 记录当前状态订阅者数量
func (c *Collector) SetSubscribers(n int) {
	if c == nil {
		return
	}
	c.statusSubscribers.Set(float64(n))
}

// =============================================================================
// 📦 暂存指标记录
// =============================================================================

// RecordStaging 记录一次暂存
func (c *Collector) RecordStaging(result string, copied, failed int, duration time.Duration) {
	if c == nil {
		return
	}
	c.stagingRunsTotal.WithLabelValues(result).Inc()
	c.stagingFilesTotal.WithLabelValues("copied").Add(float64(copied))
	c.stagingFilesTotal.WithLabelValues("failed").Add(float64(failed))
	if result != "reused" {
		c.stagingDuration.Observe(duration.Seconds())
	}
}

// =============================================================================
// 🔧 辅助函数
// =============================================================================

// statusCode 将 HTTP 状态码转换为字符串
func statusCode(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
