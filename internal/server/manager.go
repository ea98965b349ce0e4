package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrServerClosed is returned when starting a Manager that was closed.
var ErrServerClosed = errors.New("server is closed")

// =============================================================================
// 🌐 HTTP 服务器管理器
// =============================================================================

// Manager HTTP 服务器管理器，每个实例只服务一次
type Manager struct {
	server   *http.Server
	listener net.Listener
	errCh    chan error
	config   Config
	logger   *zap.Logger
	mu       sync.RWMutex
	closed   bool
}

// Config 服务器配置
type Config struct {
	// 监听地址，仅 Start 使用
	Addr string `yaml:"addr" json:"addr"`

	// 读取超时
	ReadTimeout time.Duration `yaml:"read_timeout" json:"read_timeout"`

	// 写入超时
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`

	// 空闲超时
	IdleTimeout time.Duration `yaml:"idle_timeout" json:"idle_timeout"`

	// 最大请求头大小
	MaxHeaderBytes int `yaml:"max_header_bytes" json:"max_header_bytes"`

	// 优雅关闭超时
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// DefaultConfig 返回默认服务器配置
func DefaultConfig() Config {
	return Config{
		Addr:            "127.0.0.1:9091",
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    60 * time.Second,
		IdleTimeout:     120 * time.Second,
		MaxHeaderBytes:  1 << 20, // 1 MB
		ShutdownTimeout: 5 * time.Second,
	}
}

// NewManager 创建服务器管理器
func NewManager(handler http.Handler, config Config, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	server := &http.Server{
		Addr:           config.Addr,
		Handler:        handler,
		ReadTimeout:    config.ReadTimeout,
		WriteTimeout:   config.WriteTimeout,
		IdleTimeout:    config.IdleTimeout,
		MaxHeaderBytes: config.MaxHeaderBytes,
	}

	return &Manager{
		server: server,
		errCh:  make(chan error, 1),
		config: config,
		logger: logger.With(zap.String("component", "http_server")),
	}
}

// =============================================================================
// 🎯 核心方法
// =============================================================================

// Start 监听 Config.Addr 并启动服务（非阻塞）
func (m *Manager) Start() error {
	listener, err := net.Listen("tcp", m.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", m.config.Addr, err)
	}
	if err := m.Serve(listener); err != nil {
		_ = listener.Close()
		return err
	}
	return nil
}

// Serve 在已绑定的 listener 上启动服务（非阻塞）。
// 成功后 listener 的所有权转移给 Manager。
func (m *Manager) Serve(listener net.Listener) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrServerClosed
	}
	if m.listener != nil {
		return fmt.Errorf("server already started")
	}

	m.listener = listener
	m.logger.Info("starting HTTP server", zap.String("addr", listener.Addr().String()))

	go m.serve(listener)

	return nil
}

func (m *Manager) serve(listener net.Listener) {
	if err := m.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		m.logger.Error("HTTP server failed", zap.Error(err))
		select {
		case m.errCh <- err:
		default:
		}
	}
}

// Close 立即关闭监听器与所有活动连接，不等待请求完成
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true

	err := m.server.Close()
	m.listener = nil
	if err != nil {
		m.logger.Warn("HTTP server close reported an error", zap.Error(err))
		return err
	}
	m.logger.Info("HTTP server closed")
	return nil
}

// Shutdown 优雅关闭服务器
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}

	m.closed = true
	m.logger.Info("shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, m.config.ShutdownTimeout)
	defer cancel()

	if err := m.server.Shutdown(shutdownCtx); err != nil {
		m.logger.Error("HTTP server shutdown failed, forcing close", zap.Error(err))
		_ = m.server.Close()
		m.listener = nil
		return err
	}

	m.listener = nil

	m.logger.Info("HTTP server stopped")
	return nil
}

// Errors returns asynchronous server errors.
func (m *Manager) Errors() <-chan error {
	return m.errCh
}

// =============================================================================
// 🔧 辅助方法
// =============================================================================

// Addr 返回实际监听地址，未启动时返回配置地址
func (m *Manager) Addr() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.listener != nil {
		return m.listener.Addr().String()
	}
	return m.config.Addr
}

// IsRunning 检查服务器是否正在服务
func (m *Manager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listener != nil && !m.closed
}
