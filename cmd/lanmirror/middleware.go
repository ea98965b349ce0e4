package main

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/BaSui01/lanmirror/api/handlers"
	"github.com/BaSui01/lanmirror/internal/ctxkeys"
	"github.com/BaSui01/lanmirror/internal/metrics"
	"github.com/BaSui01/lanmirror/internal/router"
	"github.com/BaSui01/lanmirror/types"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"
)

// Middleware 类型定义
type Middleware func(http.Handler) http.Handler

// Chain 将多个中间件串联，第一个位于最外层
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// Recovery panic 恢复中间件
func Recovery(logger *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic recovered",
						zap.Any("error", err),
						zap.String("path", r.URL.Path),
						zap.Stack("stack"),
					)
					handlers.WriteErrorMessage(w, r, http.StatusInternalServerError,
						types.ErrInternalError, "internal server error", nil)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// RequestLogger 请求日志中间件。镜像服务每个静态资源都会产生一条记录，
// 因此可以指定记录级别。
func RequestLogger(logger *zap.Logger, level zapcore.Level) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := handlers.NewResponseWriter(w)
			next.ServeHTTP(rw, r)

			lvl := level
			if rw.StatusCode >= http.StatusInternalServerError {
				lvl = zapcore.WarnLevel
			}
			if ce := logger.Check(lvl, "request"); ce != nil {
				id, _ := ctxkeys.RequestID(r.Context())
				fields := []zap.Field{
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", rw.StatusCode),
					zap.Int64("bytes", rw.BytesWritten),
					zap.Duration("duration", time.Since(start)),
					zap.String("remote_addr", r.RemoteAddr),
					zap.String("request_id", id),
				}
				if traceID, ok := ctxkeys.TraceID(r.Context()); ok {
					fields = append(fields, zap.String("trace_id", traceID))
				}
				ce.Write(fields...)
			}
		})
	}
}

// =============================================================================
// MetricsMiddleware: records HTTP request metrics via metrics.Collector
// =============================================================================

// MetricsMiddleware records request duration, status and response size. The
// path is reduced to a resource kind so label cardinality stays bounded no
// matter which routes the single-page app uses.
func MetricsMiddleware(collector *metrics.Collector) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := handlers.NewResponseWriter(w)

			next.ServeHTTP(rw, r)

			collector.RecordHTTPRequest(
				r.Method,
				router.Kind(r.URL.Path),
				rw.StatusCode,
				time.Since(start),
				rw.BytesWritten,
			)
		})
	}
}

// =============================================================================
// OTelTracing: OpenTelemetry HTTP tracing middleware
// =============================================================================

// OTelTracing creates a server span per request using the global tracer,
// continuing any incoming trace context.
func OTelTracing(tracerName string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

			ctx, span := otel.Tracer(tracerName).Start(ctx, r.Method+" "+router.Kind(r.URL.Path),
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					semconv.HTTPRequestMethodKey.String(r.Method),
					semconv.URLPath(r.URL.Path),
				),
			)
			defer span.End()

			if sc := span.SpanContext(); sc.HasTraceID() {
				ctx = ctxkeys.WithTraceID(ctx, sc.TraceID().String())
			}

			rw := handlers.NewResponseWriter(w)
			next.ServeHTTP(rw, r.WithContext(ctx))

			span.SetAttributes(attribute.Int("http.response.status_code", rw.StatusCode))
			if rw.StatusCode >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(rw.StatusCode))
			}
		})
	}
}

// RateLimiter 基于 IP 的请求限流中间件。只挂在镜像服务上，
// 429 响应与其他镜像响应一样携带 CORS 头。
func RateLimiter(ctx context.Context, rps float64, burst int, logger *zap.Logger) Middleware {
	type visitor struct {
		limiter  *rate.Limiter
		lastSeen time.Time
	}
	var (
		mu       sync.Mutex
		visitors = make(map[string]*visitor)
	)
	// 后台清理过期 visitor
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				mu.Lock()
				for ip, v := range visitors {
					if time.Since(v.lastSeen) > 3*time.Minute {
						delete(visitors, ip)
					}
				}
				mu.Unlock()
			}
		}
	}()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}
			mu.Lock()
			v, exists := visitors[ip]
			if !exists {
				v = &visitor{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
				visitors[ip] = v
			}
			v.lastSeen = time.Now()
			mu.Unlock()

			if !v.limiter.Allow() {
				logger.Debug("rate limit exceeded", zap.String("ip", ip))
				router.SetCORS(w.Header())
				handlers.WriteErrorMessage(w, r, http.StatusTooManyRequests,
					types.ErrRequestFailed, "too many requests", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CORS 控制面跨域中间件。allowedOrigins 为空时不设置任何 CORS 头，
// 带 Origin 的预检请求返回 403。
func CORS(allowedOrigins []string) Middleware {
	originSet := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		originSet[o] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}
			if _, ok := originSet[origin]; !ok {
				if r.Method == http.MethodOptions {
					w.WriteHeader(http.StatusForbidden)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
			w.Header().Set("Access-Control-Max-Age", "86400")
			w.Header().Add("Vary", "Origin")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequestID 为每个请求分配 X-Request-ID 并写入 context，保留客户端提供的值
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-ID")
			if id == "" || len(id) > 128 {
				id = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", id)
			next.ServeHTTP(w, r.WithContext(ctxkeys.WithRequestID(r.Context(), id)))
		})
	}
}

// SecurityHeaders adds response headers that do not interfere with the
// mirrored app loading its own scripts and styles.
func SecurityHeaders() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			next.ServeHTTP(w, r)
		})
	}
}
