package assets

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/BaSui01/lanmirror/internal/metrics"
	"github.com/BaSui01/lanmirror/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// StagedDirName is the directory created under the staging root.
const StagedDirName = "web_build"

// stagingRootPattern names the per-Stager temporary root created when no
// staging root is configured.
const stagingRootPattern = "lanmirror-*"

// Config configures a Stager.
type Config struct {
	// StagingRoot holds the staged directory. Empty means a private
	// temporary directory created on first Prepare and removed by Cleanup.
	StagingRoot string
	// ManifestPath is the manifest location inside the bundle.
	ManifestPath string
	// EntryFile must exist after staging.
	EntryFile string
	// Fallback is staged when the manifest cannot be read.
	Fallback []string
	// Concurrency bounds parallel copies.
	Concurrency int
}

// Report describes the most recent Prepare call.
type Report struct {
	Dir          string        `json:"dir"`
	Reused       bool          `json:"reused"`
	UsedFallback bool          `json:"used_fallback"`
	Copied       int           `json:"copied"`
	Failed       []string      `json:"failed,omitempty"`
	Duration     time.Duration `json:"duration"`
}

// Stager copies a manifest-described bundle into a servable directory.
// Prepare calls are serialized.
type Stager struct {
	bundle  fs.FS
	cfg     Config
	logger  *zap.Logger
	metrics *metrics.Collector
	tracer  trace.Tracer

	mu       sync.Mutex
	root     string
	ownsRoot bool
	staged   string
	last     Report
}

// Option configures a Stager.
type Option func(*Stager)

// WithMetrics records staging metrics on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Stager) { s.metrics = c }
}

// WithTracerProvider records staging spans on tp.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Stager) { s.tracer = tp.Tracer("lanmirror/assets") }
}

// NewStager creates a Stager reading from bundle.
func NewStager(bundle fs.FS, cfg Config, logger *zap.Logger, opts ...Option) *Stager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.EntryFile == "" {
		cfg.EntryFile = "index.html"
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}

	s := &Stager{
		bundle: bundle,
		cfg:    cfg,
		root:   cfg.StagingRoot,
		logger: logger.With(zap.String("component", "asset_stager")),
		tracer: otel.Tracer("lanmirror/assets"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dir returns the directory Prepare stages into. It is empty until the
// temporary root exists when no staging root was configured.
func (s *Stager) Dir() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirLocked()
}

func (s *Stager) dirLocked() string {
	if s.root == "" {
		return ""
	}
	return filepath.Join(s.root, StagedDirName)
}

// ensureRoot creates the private temporary root once per Stager.
func (s *Stager) ensureRoot() error {
	if s.root != "" {
		return nil
	}
	root, err := os.MkdirTemp("", stagingRootPattern)
	if err != nil {
		return fmt.Errorf("create staging root: %w", err)
	}
	s.root = root
	s.ownsRoot = true
	return nil
}

// Cleanup removes the temporary root created by Prepare. A configured
// staging root is left in place.
func (s *Stager) Cleanup() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ownsRoot {
		return nil
	}
	root := s.root
	s.root, s.ownsRoot, s.staged = "", false, ""
	if err := os.RemoveAll(root); err != nil {
		return fmt.Errorf("remove staging root %s: %w", root, err)
	}
	s.logger.Debug("staging root removed", zap.String("root", root))
	return nil
}

// EntryFile returns the configured entry file.
func (s *Stager) EntryFile() string {
	return s.cfg.EntryFile
}

// LastReport returns the report of the most recent Prepare call.
func (s *Stager) LastReport() Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.last
	r.Failed = append([]string(nil), s.last.Failed...)
	return r
}

// Prepare stages the bundle and returns the staged directory. A directory
// staged earlier in this process is reused while its entry file exists.
func (s *Stager) Prepare(ctx context.Context) (dir string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, span := s.tracer.Start(ctx, "assets.Prepare")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if s.staged != "" && isFile(filepath.Join(s.staged, filepath.FromSlash(s.cfg.EntryFile))) {
		s.last = Report{Dir: s.staged, Reused: true}
		s.metrics.RecordStaging("reused", 0, 0, 0)
		span.SetAttributes(attribute.Bool("assets.reused", true))
		s.logger.Debug("reusing staged assets", zap.String("dir", s.staged))
		return s.staged, nil
	}

	start := time.Now()
	s.staged = ""
	if err := s.ensureRoot(); err != nil {
		s.metrics.RecordStaging("failed", 0, 0, time.Since(start))
		return "", err
	}
	dir = s.dirLocked()

	if err := os.RemoveAll(dir); err != nil {
		s.metrics.RecordStaging("failed", 0, 0, time.Since(start))
		return "", fmt.Errorf("purge staged directory %s: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		s.metrics.RecordStaging("failed", 0, 0, time.Since(start))
		return "", fmt.Errorf("create staged directory %s: %w", dir, err)
	}

	manifest, usedFallback := s.loadManifest()
	span.SetAttributes(
		attribute.Int("assets.manifest_entries", len(manifest)),
		attribute.Bool("assets.fallback_manifest", usedFallback),
	)

	copied, failed := s.copyAll(ctx, dir, manifest)
	report := Report{
		Dir:          dir,
		UsedFallback: usedFallback,
		Copied:       copied,
		Failed:       failed,
		Duration:     time.Since(start),
	}
	s.last = report

	if err := ctx.Err(); err != nil {
		s.metrics.RecordStaging("failed", copied, len(failed), report.Duration)
		return "", fmt.Errorf("staging interrupted: %w", err)
	}

	entry := filepath.Join(dir, filepath.FromSlash(s.cfg.EntryFile))
	if !isFile(entry) {
		s.metrics.RecordStaging("failed", copied, len(failed), report.Duration)
		s.logger.Error("entry file missing after staging",
			zap.String("entry", s.cfg.EntryFile),
			zap.Int("copied", copied),
			zap.Int("failed", len(failed)),
		)
		return "", types.NewError(types.ErrStagingFailed, fmt.Sprintf(
			"web assets not available: %s missing after staging %d of %d files; the web build may not have been packaged",
			s.cfg.EntryFile, copied, len(manifest)))
	}

	s.staged = dir
	s.metrics.RecordStaging("staged", copied, len(failed), report.Duration)
	s.logger.Info("assets staged",
		zap.String("dir", dir),
		zap.Int("copied", copied),
		zap.Int("failed", len(failed)),
		zap.Bool("fallback_manifest", usedFallback),
		zap.Duration("duration", report.Duration),
	)
	return dir, nil
}

func (s *Stager) loadManifest() (Manifest, bool) {
	manifest, err := ReadManifest(s.bundle, s.cfg.ManifestPath)
	if err == nil && len(manifest) > 0 {
		return manifest, false
	}
	if err == nil {
		err = fmt.Errorf("manifest %s is empty", s.cfg.ManifestPath)
	}

	s.logger.Warn("manifest unavailable, staging fallback file list",
		zap.Error(err),
		zap.Strings("fallback", s.cfg.Fallback),
	)
	fallback := make(Manifest, 0, len(s.cfg.Fallback))
	for _, f := range s.cfg.Fallback {
		if e := normalizeEntry(f); e != "" {
			fallback = append(fallback, e)
		}
	}
	return fallback, true
}

// copyAll copies every entry, tolerating per-file failures.
func (s *Stager) copyAll(ctx context.Context, dir string, manifest Manifest) (int, []string) {
	var (
		mu     sync.Mutex
		copied int
		failed []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)

	for _, rel := range manifest {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			err := s.copyOne(dir, rel)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed = append(failed, rel)
				s.logger.Warn("failed to stage asset", zap.String("path", rel), zap.Error(err))
				return nil
			}
			copied++
			return nil
		})
	}
	_ = g.Wait()

	return copied, failed
}

func (s *Stager) copyOne(dir, rel string) error {
	if !fs.ValidPath(rel) || rel == "." {
		return fmt.Errorf("invalid asset path %q", rel)
	}

	data, err := fs.ReadFile(s.bundle, rel)
	if err != nil {
		return fmt.Errorf("load from bundle: %w", err)
	}

	target := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create parent directory: %w", err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", target, err)
	}
	return nil
}

func isFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}
