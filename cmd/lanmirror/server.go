package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"

	"github.com/BaSui01/lanmirror/api/handlers"
	"github.com/BaSui01/lanmirror/config"
	"github.com/BaSui01/lanmirror/internal/assets"
	"github.com/BaSui01/lanmirror/internal/metrics"
	"github.com/BaSui01/lanmirror/internal/mirror"
	"github.com/BaSui01/lanmirror/internal/netaddr"
	"github.com/BaSui01/lanmirror/internal/server"
	"github.com/BaSui01/lanmirror/internal/telemetry"
	"github.com/BaSui01/lanmirror/web"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// =============================================================================
// 🖥️ Server 结构
// =============================================================================

// Server 组装镜像服务与本机控制面
type Server struct {
	cfg       *config.Config
	logger    *zap.Logger
	telemetry *telemetry.Providers

	metricsCollector *metrics.Collector
	resolver         *netaddr.Resolver
	stager           *assets.Stager
	mirror           *mirror.Service

	healthHandler *handlers.HealthHandler
	statusHandler *handlers.StatusHandler
	controlServer *server.Manager

	// Rate limiter 生命周期管理
	rateLimiterCancel context.CancelFunc
}

// NewServer 创建新的服务器实例
func NewServer(cfg *config.Config, logger *zap.Logger, providers *telemetry.Providers) (*Server, error) {
	bundle, err := openBundle(cfg.Assets.BundleDir)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:              cfg,
		logger:           logger,
		telemetry:        providers,
		metricsCollector: metrics.NewCollector("lanmirror", logger),
	}

	s.resolver = newResolver(cfg, logger)
	s.stager = newStager(cfg, bundle, logger,
		assets.WithMetrics(s.metricsCollector),
		assets.WithTracerProvider(providers.TracerProvider()),
	)

	rateLimiterCtx, rateLimiterCancel := context.WithCancel(context.Background())
	s.rateLimiterCancel = rateLimiterCancel

	s.mirror = mirror.NewService(s.resolver, s.stager, mirror.Config{
		MaxBindAttempts: cfg.Server.MaxBindAttempts,
		HTTP: server.Config{
			ReadTimeout:    cfg.Server.ReadTimeout,
			WriteTimeout:   cfg.Server.WriteTimeout,
			IdleTimeout:    cfg.Server.IdleTimeout,
			MaxHeaderBytes: 1 << 20,
		},
	}, logger,
		mirror.WithMetrics(s.metricsCollector),
		mirror.WithMiddleware(s.mirrorMiddleware(rateLimiterCtx)),
	)

	s.healthHandler = handlers.NewHealthHandler(logger)
	s.healthHandler.RegisterCheck(handlers.ReadinessCheck(s.mirror))
	s.statusHandler = handlers.NewStatusHandler(s.mirror, cfg.Server.Port, cfg.Server.CORSAllowedOrigins, logger)

	return s, nil
}

// mirrorMiddleware 镜像服务的中间件链
func (s *Server) mirrorMiddleware(ctx context.Context) func(http.Handler) http.Handler {
	chain := []Middleware{
		Recovery(s.logger),
		RequestID(),
		OTelTracing("lanmirror/mirror"),
		MetricsMiddleware(s.metricsCollector),
		RequestLogger(s.logger.Named("mirror"), zapcore.DebugLevel),
		SecurityHeaders(),
	}
	if s.cfg.Server.RateLimitRPS > 0 {
		chain = append(chain, RateLimiter(ctx, float64(s.cfg.Server.RateLimitRPS), s.cfg.Server.RateLimitBurst, s.logger))
	}
	return func(h http.Handler) http.Handler {
		return Chain(h, chain...)
	}
}

// =============================================================================
// 🚀 启动流程
// =============================================================================

// Start 启动控制面，然后启动镜像服务。控制面可用时镜像启动失败不致命，
// 可以通过 API 重试。
func (s *Server) Start(ctx context.Context) error {
	if addr := s.cfg.ControlAddress(); addr != "" {
		if err := s.startControlServer(addr); err != nil {
			return fmt.Errorf("failed to start control server: %w", err)
		}
	}

	if err := s.mirror.Start(ctx, s.cfg.Server.Port); err != nil {
		if s.controlServer == nil {
			return err
		}
		s.logger.Warn("mirror server not started, retry through the control API",
			zap.String("control_addr", s.controlServer.Addr()),
			zap.Error(err),
		)
		return nil
	}

	st := s.mirror.Status()
	s.logger.Info("LAN mirror available",
		zap.String("url", st.URL),
		zap.Int("port", st.Port),
	)
	return nil
}

// startControlServer 启动本机控制面
func (s *Server) startControlServer(addr string) error {
	mux := http.NewServeMux()

	// 健康检查端点
	mux.HandleFunc("GET /health", s.healthHandler.HandleHealth)
	mux.HandleFunc("GET /healthz", s.healthHandler.HandleHealthz)
	mux.HandleFunc("GET /ready", s.healthHandler.HandleReady)
	mux.HandleFunc("GET /version", s.healthHandler.HandleVersion(telemetry.ReadBuildInfo()))
	mux.Handle("GET /metrics", promhttp.Handler())

	// 镜像控制 API
	mux.HandleFunc("GET /api/v1/status", s.statusHandler.HandleStatus)
	mux.HandleFunc("GET /api/v1/status/stream", s.statusHandler.HandleStream)
	mux.HandleFunc("POST /api/v1/server/start", s.statusHandler.HandleStart)
	mux.HandleFunc("POST /api/v1/server/stop", s.statusHandler.HandleStop)

	handler := Chain(mux,
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		RequestLogger(s.logger.Named("control"), zapcore.InfoLevel),
		CORS(s.cfg.Server.CORSAllowedOrigins),
	)

	// 状态流是长连接，控制面不设置写超时
	s.controlServer = server.NewManager(handler, server.Config{
		Addr:            addr,
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		IdleTimeout:     s.cfg.Server.IdleTimeout,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}, s.logger)

	if err := s.controlServer.Start(); err != nil {
		s.controlServer = nil
		return err
	}

	s.logger.Info("control server started", zap.String("addr", s.controlServer.Addr()))
	return nil
}

// =============================================================================
// 🛑 关闭流程
// =============================================================================

// Wait 阻塞直到 ctx 结束或控制面异常退出
func (s *Server) Wait(ctx context.Context) {
	var controlErrs <-chan error
	if s.controlServer != nil {
		controlErrs = s.controlServer.Errors()
	}

	select {
	case <-ctx.Done():
		s.logger.Info("received shutdown signal")
	case err := <-controlErrs:
		s.logger.Error("control server exited unexpectedly", zap.Error(err))
	}
}

// Shutdown 关闭所有服务
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("starting shutdown")

	if s.rateLimiterCancel != nil {
		s.rateLimiterCancel()
	}

	// 1. 停止镜像服务并关闭状态流（WebSocket 订阅随之结束）
	s.mirror.Dispose()

	var errs []error

	// 2. 关闭控制面
	if s.controlServer != nil {
		if err := s.controlServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("control server: %w", err))
		}
	}

	// 3. 删除本进程的暂存目录
	if err := s.stager.Cleanup(); err != nil {
		errs = append(errs, fmt.Errorf("staging cleanup: %w", err))
	}

	// 4. 刷新遥测数据
	if err := s.telemetry.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("telemetry: %w", err))
	}

	err := errors.Join(errs...)
	if err != nil {
		s.logger.Error("shutdown completed with errors", zap.Error(err))
	} else {
		s.logger.Info("shutdown completed")
	}
	return err
}

// =============================================================================
// 🔧 组件构造
// =============================================================================

// openBundle 未指定目录时使用内嵌资源包
func openBundle(dir string) (fs.FS, error) {
	if dir == "" {
		return web.Bundle(), nil
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("open bundle directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("bundle path %s is not a directory", dir)
	}
	return os.DirFS(dir), nil
}

func newResolver(cfg *config.Config, logger *zap.Logger) *netaddr.Resolver {
	var opts []netaddr.Option
	if len(cfg.Network.WiFiPatterns) > 0 {
		opts = append(opts, netaddr.WithPatterns(cfg.Network.WiFiPatterns))
	}
	return netaddr.NewResolver(logger, opts...)
}

func newStager(cfg *config.Config, bundle fs.FS, logger *zap.Logger, opts ...assets.Option) *assets.Stager {
	return assets.NewStager(bundle, assets.Config{
		StagingRoot:  cfg.Assets.StagingDir,
		ManifestPath: cfg.Assets.ManifestPath,
		EntryFile:    cfg.Assets.EntryFile,
		Fallback:     cfg.Assets.FallbackFiles,
		Concurrency:  cfg.Assets.CopyConcurrency,
	}, logger, opts...)
}
