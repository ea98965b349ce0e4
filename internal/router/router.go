package router

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"go.uber.org/zap"
)

const (
	forbiddenBody = "Forbidden"
	internalBody  = "Internal server error"
)

// corsHeaders 除 403 外的每个响应都会携带
var corsHeaders = map[string]string{
	"Access-Control-Allow-Origin":  "*",
	"Access-Control-Allow-Methods": "GET, OPTIONS",
	"Access-Control-Allow-Headers": "*",
}

// Router serves files from a staged directory with single-page-app fallback.
type Router struct {
	root      string
	entryFile string
	logger    *zap.Logger

	// 文件访问钩子，测试中可替换
	stat     func(string) (os.FileInfo, error)
	readFile func(string) ([]byte, error)
}

// Option configures a Router.
type Option func(*Router)

// WithEntryFile overrides the file served for "/" and unknown routes.
func WithEntryFile(name string) Option {
	return func(r *Router) {
		if name != "" {
			r.entryFile = name
		}
	}
}

// New creates a Router rooted at root.
func New(root string, logger *zap.Logger, opts ...Option) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Router{
		root:      root,
		entryFile: "index.html",
		logger:    logger.With(zap.String("component", "router")),
		stat:      os.Stat,
		readFile:  os.ReadFile,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Root returns the directory being served.
func (rt *Router) Root() string { return rt.root }

// ServeHTTP implements http.Handler.
func (rt *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			rt.logger.Error("panic while serving request",
				zap.String("path", req.URL.Path),
				zap.Any("panic", rec),
				zap.Stack("stack"),
			)
			writeText(w, http.StatusInternalServerError, internalBody, true)
		}
	}()

	reqPath := req.URL.Path
	if HasTraversal(reqPath) {
		rt.logger.Warn("rejected path traversal attempt",
			zap.String("path", reqPath),
			zap.String("remote_addr", req.RemoteAddr),
		)
		writeText(w, http.StatusForbidden, forbiddenBody, false)
		return
	}

	if req.Method == http.MethodOptions {
		SetCORS(w.Header())
		w.WriteHeader(http.StatusNoContent)
		return
	}

	rel := strings.TrimLeft(reqPath, "/")
	if rel == "" {
		rel = rt.entryFile
	}

	served, err := rt.serveFile(w, rel, ContentType(rel))
	if err != nil {
		rt.fail(w, reqPath, err)
		return
	}
	if served {
		return
	}

	// 单页应用回退
	served, err = rt.serveFile(w, rt.entryFile, "text/html")
	if err != nil {
		rt.fail(w, reqPath, err)
		return
	}
	if served {
		rt.logger.Debug("served entry file for unknown route", zap.String("path", reqPath))
		return
	}

	writeText(w, http.StatusNotFound, "Not found: "+reqPath, true)
}

// serveFile writes rel when it names a regular file under the root. It
// returns false without writing when the file does not exist.
func (rt *Router) serveFile(w http.ResponseWriter, rel, contentType string) (bool, error) {
	target := filepath.Join(rt.root, filepath.FromSlash(rel))

	info, err := rt.stat(target)
	if err != nil {
		if isMissing(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", rel, err)
	}
	if !info.Mode().IsRegular() {
		return false, nil
	}

	data, err := rt.readFile(target)
	if err != nil {
		if isMissing(err) {
			return false, nil
		}
		return false, fmt.Errorf("read %s: %w", rel, err)
	}

	h := w.Header()
	h.Set("Content-Type", contentType)
	h.Set("Content-Length", strconv.Itoa(len(data)))
	SetCORS(h)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		rt.logger.Debug("client went away", zap.String("path", rel), zap.Error(err))
	}
	return true, nil
}

func (rt *Router) fail(w http.ResponseWriter, reqPath string, err error) {
	rt.logger.Error("failed to serve request",
		zap.String("path", reqPath),
		zap.Error(err),
	)
	writeText(w, http.StatusInternalServerError, internalBody, true)
}

// HasTraversal reports whether p contains a ".." segment, treating both
// '/' and '\' as separators.
func HasTraversal(p string) bool {
	for _, seg := range strings.FieldsFunc(p, func(r rune) bool { return r == '/' || r == '\\' }) {
		if seg == ".." {
			return true
		}
	}
	return false
}

// SetCORS writes the permissive CORS headers carried by every mirror
// response except 403.
func SetCORS(h http.Header) {
	for k, v := range corsHeaders {
		h.Set(k, v)
	}
}

func writeText(w http.ResponseWriter, status int, body string, cors bool) {
	h := w.Header()
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set("Content-Length", strconv.Itoa(len(body)))
	if cors {
		SetCORS(h)
	} else {
		for k := range corsHeaders {
			h.Del(k)
		}
	}
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

// isMissing 判断路径不可能对应文件：不存在、中间段是普通文件（ENOTDIR），
// 或路径本身非法（如含 NUL 字节时的 EINVAL）
func isMissing(err error) bool {
	return errors.Is(err, fs.ErrNotExist) ||
		errors.Is(err, syscall.ENOTDIR) ||
		errors.Is(err, fs.ErrInvalid) ||
		errors.Is(err, syscall.EINVAL)
}
