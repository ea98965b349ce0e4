// Resolver 与 Stager 是镜像服务依赖的测试模拟实现。
//
// 支持固定返回值、错误注入与 panic 注入。
package mocks

import (
	"context"
	"sync"
	"sync/atomic"
)

// --- Resolver ---

// Resolver 返回固定局域网地址
type Resolver struct {
	mu    sync.Mutex
	ip    string
	err   error
	calls atomic.Int32
}

// NewResolver 创建返回 ip 的 Resolver
func NewResolver(ip string) *Resolver {
	return &Resolver{ip: ip}
}

// WithError 设置解析错误
func (r *Resolver) WithError(err error) *Resolver {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
	return r
}

// Resolve 实现地址解析
func (r *Resolver) Resolve(context.Context) (string, error) {
	r.calls.Add(1)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return "", r.err
	}
	return r.ip, nil
}

// Calls 返回调用次数
func (r *Resolver) Calls() int { return int(r.calls.Load()) }

// --- Stager ---

// Stager 返回固定暂存目录
type Stager struct {
	mu       sync.Mutex
	dir      string
	entry    string
	err      error
	panicMsg string
	calls    atomic.Int32
}

// NewStager 创建返回 dir 的 Stager
func NewStager(dir string) *Stager {
	return &Stager{dir: dir, entry: "index.html"}
}

// WithError 设置暂存错误
func (s *Stager) WithError(err error) *Stager {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
	return s
}

// WithPanic 让 Prepare 以 msg panic
func (s *Stager) WithPanic(msg string) *Stager {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.panicMsg = msg
	return s
}

// Prepare 实现资源暂存
func (s *Stager) Prepare(context.Context) (string, error) {
	s.calls.Add(1)
	s.mu.Lock()
	dir, err, msg := s.dir, s.err, s.panicMsg
	s.mu.Unlock()
	if msg != "" {
		panic(msg)
	}
	if err != nil {
		return "", err
	}
	return dir, nil
}

// EntryFile 返回入口文件名
func (s *Stager) EntryFile() string { return s.entry }

// Calls 返回调用次数
func (s *Stager) Calls() int { return int(s.calls.Load()) }
