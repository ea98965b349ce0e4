package mirror

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"runtime"
	"sync"

	"github.com/BaSui01/lanmirror/internal/metrics"
	"github.com/BaSui01/lanmirror/internal/router"
	"github.com/BaSui01/lanmirror/internal/server"
	"github.com/BaSui01/lanmirror/types"

	"go.uber.org/zap"
)

// PlatformUnsupportedMessage is the status error reported where sockets
// cannot be bound.
const PlatformUnsupportedMessage = "local server is not supported on this platform"

// DefaultMaxBindAttempts bounds port probing on EADDRINUSE.
const DefaultMaxBindAttempts = 10

// ErrDisposed is returned by Start after Dispose.
var ErrDisposed = types.NewError(types.ErrServiceDisposed, "mirror service has been disposed")

// AddressResolver finds the LAN IPv4 address to advertise.
type AddressResolver interface {
	Resolve(ctx context.Context) (string, error)
}

// AssetStager prepares the directory to serve.
type AssetStager interface {
	Prepare(ctx context.Context) (string, error)
	EntryFile() string
}

// Config configures a Service.
type Config struct {
	// MaxBindAttempts 端口冲突时的最大尝试次数（含首次）
	MaxBindAttempts int
	// HTTP 镜像服务器参数，Addr 不使用
	HTTP server.Config
}

// DefaultConfig returns the default Service configuration.
func DefaultConfig() Config {
	return Config{
		MaxBindAttempts: DefaultMaxBindAttempts,
		HTTP:            server.DefaultConfig(),
	}
}

// =============================================================================
// 🪞 镜像服务
// =============================================================================

// Service owns the mirror HTTP server and its status stream.
type Service struct {
	resolver AddressResolver
	stager   AssetStager
	cfg      Config

	logger     *zap.Logger
	metrics    *metrics.Collector
	middleware func(http.Handler) http.Handler
	supported  bool
	listen     listenFunc

	mu       sync.Mutex
	srv      *server.Manager
	runDone  chan struct{}
	disposed bool

	status *Broadcaster
}

// Option configures a Service.
type Option func(*Service)

// WithMiddleware wraps the file router of every started server.
func WithMiddleware(mw func(http.Handler) http.Handler) Option {
	return func(s *Service) { s.middleware = mw }
}

// WithMetrics records lifecycle metrics on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Service) { s.metrics = c }
}

// WithPlatformSupport overrides socket support detection.
func WithPlatformSupport(supported bool) Option {
	return func(s *Service) { s.supported = supported }
}

// NewService creates a stopped Service.
func NewService(resolver AddressResolver, stager AssetStager, cfg Config, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxBindAttempts <= 0 {
		cfg.MaxBindAttempts = DefaultMaxBindAttempts
	}

	s := &Service{
		resolver:  resolver,
		stager:    stager,
		cfg:       cfg,
		logger:    logger.With(zap.String("component", "mirror")),
		supported: platformSupportsSockets(),
		listen:    listenTCP4,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.status = NewBroadcaster(StoppedStatus(""), logger, s.metrics)
	return s
}

// Status returns the latest status.
func (s *Service) Status() Status {
	return s.status.Current()
}

// Subscribe registers fn for status updates, starting with the current one.
func (s *Service) Subscribe(fn StatusHandler) *Subscription {
	return s.status.Subscribe(fn)
}

// IsRunning reports whether the server is serving.
func (s *Service) IsRunning() bool {
	return s.Status().Running
}

// Start resolves the LAN address, stages assets and binds the first free
// port at or above port. It returns nil immediately when already running.
// Failures are published as a stopped status carrying the same description.
func (s *Service) Start(ctx context.Context, port int) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return ErrDisposed
	}
	if s.srv != nil {
		s.metrics.RecordStart("already_running")
		s.logger.Debug("start ignored, server already running", zap.String("url", s.Status().URL))
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic during start", zap.Any("panic", r), zap.Stack("stack"))
			err = s.fail(types.NewError(types.ErrInternalError, fmt.Sprintf("unexpected failure while starting: %v", r)))
		}
	}()

	if !s.supported {
		return s.fail(types.NewError(types.ErrPlatformUnsupported, PlatformUnsupportedMessage))
	}

	s.logger.Info("starting mirror server", zap.Int("port", port))

	ip, err := s.resolver.Resolve(ctx)
	if err != nil {
		return s.fail(types.NewError(types.ErrAddressUnavailable,
			"could not determine a LAN IPv4 address; connect to a network and retry").WithCause(err))
	}

	root, err := s.stager.Prepare(ctx)
	if err != nil {
		if !types.HasCode(err, types.ErrStagingFailed) {
			err = types.NewError(types.ErrStagingFailed,
				"failed to stage web assets; check that the web build was packaged").WithCause(err)
		}
		return s.fail(err)
	}

	ln, bound, err := s.bind(ctx, port)
	if err != nil {
		return s.fail(err)
	}

	var handler http.Handler = router.New(root, s.logger, router.WithEntryFile(s.stager.EntryFile()))
	if s.middleware != nil {
		handler = s.middleware(handler)
	}

	mgr := server.NewManager(handler, s.cfg.HTTP, s.logger)
	if err := mgr.Serve(ln); err != nil {
		_ = ln.Close()
		return s.fail(types.NewError(types.ErrBindFailed, "failed to start serving").WithCause(err))
	}

	s.srv = mgr
	s.runDone = make(chan struct{})
	go s.watch(mgr, s.runDone)

	st := RunningStatus(ip, bound)
	s.publish(st)
	s.metrics.RecordStart("started")
	s.logger.Info("mirror server started",
		zap.String("url", st.URL),
		zap.String("root", root),
		zap.Int("requested_port", port),
	)
	return nil
}

// bind 从 port 开始依次尝试，仅在地址被占用时递增
func (s *Service) bind(ctx context.Context, port int) (net.Listener, int, error) {
	var lastErr error
	for attempt := 0; attempt < s.cfg.MaxBindAttempts; attempt++ {
		candidate := port + attempt
		if candidate > 65535 {
			break
		}

		ln, err := s.listen(ctx, candidate)
		if err == nil {
			s.metrics.RecordBindAttempt("bound")
			bound := candidate
			if addr, ok := ln.Addr().(*net.TCPAddr); ok {
				bound = addr.Port
			}
			return ln, bound, nil
		}

		if !isAddrInUse(err) {
			s.metrics.RecordBindAttempt("error")
			return nil, 0, types.NewError(types.ErrBindFailed,
				fmt.Sprintf("failed to bind port %d", candidate)).WithCause(err)
		}

		s.metrics.RecordBindAttempt("conflict")
		s.logger.Warn("port in use, trying next",
			zap.Int("port", candidate),
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", s.cfg.MaxBindAttempts),
		)
		lastErr = types.NewError(types.ErrBindConflict, fmt.Sprintf("port %d is in use", candidate)).
			WithRetryable(true).
			WithCause(err)
	}

	return nil, 0, types.NewError(types.ErrPortsExhausted,
		fmt.Sprintf("no free port found starting at %d after %d attempts", port, s.cfg.MaxBindAttempts)).
		WithCause(lastErr)
}

// watch 服务异常退出时发布 Stopped
func (s *Service) watch(mgr *server.Manager, done <-chan struct{}) {
	select {
	case <-done:
	case err := <-mgr.Errors():
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.srv != mgr {
			return
		}
		_ = mgr.Close()
		s.srv = nil
		close(s.runDone)
		s.runDone = nil
		s.logger.Error("mirror server exited unexpectedly", zap.Error(err))
		s.publish(StoppedStatus(fmt.Sprintf("server stopped unexpectedly: %v", err)))
	}
}

// Stop force-closes the server. Calling Stop while stopped republishes the
// stopped status.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Service) stopLocked() {
	if s.srv == nil {
		s.logger.Debug("stop requested while not running")
		s.publish(StoppedStatus(""))
		return
	}

	if err := s.srv.Close(); err != nil {
		s.logger.Warn("error while closing mirror server", zap.Error(err))
	}
	close(s.runDone)
	s.srv = nil
	s.runDone = nil

	s.publish(StoppedStatus(""))
	s.logger.Info("mirror server stopped")
}

// Dispose stops the server and closes the status stream permanently.
func (s *Service) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return
	}
	s.stopLocked()
	s.disposed = true
	s.status.Close()
	s.logger.Info("mirror service disposed")
}

func (s *Service) fail(err error) error {
	msg := describe(err)
	s.logger.Error("failed to start mirror server", zap.Error(err))
	s.metrics.RecordStart("failed")
	s.publish(StoppedStatus(msg))
	return err
}

func (s *Service) publish(st Status) {
	s.metrics.RecordStatus(st.Running, st.Port, st.Failed())
	s.status.Publish(st)
}

// describe 生成面向用户的错误描述
func describe(err error) string {
	var e *types.Error
	if errors.As(err, &e) {
		if e.Cause != nil {
			return e.Message + ": " + describe(e.Cause)
		}
		return e.Message
	}
	return err.Error()
}

func platformSupportsSockets() bool {
	switch runtime.GOOS {
	case "js", "wasip1":
		return false
	default:
		return true
	}
}
