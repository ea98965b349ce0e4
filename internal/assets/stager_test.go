package assets

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/BaSui01/lanmirror/testutil"
	"github.com/BaSui01/lanmirror/testutil/fixtures"
	"github.com/BaSui01/lanmirror/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
)

func newTestStager(t *testing.T, bundle fs.FS) *Stager {
	t.Helper()
	return NewStager(bundle, Config{
		StagingRoot:  t.TempDir(),
		ManifestPath: fixtures.ManifestName,
		EntryFile:    "index.html",
		Fallback:     []string{"index.html", "main.js"},
		Concurrency:  4,
	}, zap.NewNop())
}

func TestStager_Prepare(t *testing.T) {
	s := newTestStager(t, fixtures.WebBundle())

	dir, err := s.Prepare(testutil.TestContext(t))
	require.NoError(t, err)
	assert.Equal(t, s.Dir(), dir)
	assert.Equal(t, StagedDirName, filepath.Base(dir))

	data, err := os.ReadFile(filepath.Join(dir, "assets", "app.js"))
	require.NoError(t, err)
	assert.Equal(t, "console.log('app')", string(data))

	r := s.LastReport()
	assert.Equal(t, 4, r.Copied)
	assert.Empty(t, r.Failed)
	assert.False(t, r.Reused)
	assert.False(t, r.UsedFallback)
}

func TestStager_ReusesStagedDirectory(t *testing.T) {
	s := newTestStager(t, fixtures.WebBundle())

	first, err := s.Prepare(testutil.TestContext(t))
	require.NoError(t, err)

	marker := filepath.Join(first, "marker.txt")
	require.NoError(t, os.WriteFile(marker, []byte("x"), 0o644))

	second, err := s.Prepare(testutil.TestContext(t))
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.FileExists(t, marker, "reused directory must not be purged")
	assert.True(t, s.LastReport().Reused)
}

func TestStager_RestagesWhenEntryRemoved(t *testing.T) {
	s := newTestStager(t, fixtures.WebBundle())

	dir, err := s.Prepare(testutil.TestContext(t))
	require.NoError(t, err)

	stale := filepath.Join(dir, "stale.txt")
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o644))
	require.NoError(t, os.Remove(filepath.Join(dir, "index.html")))

	dir2, err := s.Prepare(testutil.TestContext(t))
	require.NoError(t, err)
	assert.Equal(t, dir, dir2)
	assert.FileExists(t, filepath.Join(dir2, "index.html"))
	assert.NoFileExists(t, stale, "restaging purges previous content")
	assert.False(t, s.LastReport().Reused)
}

func TestStager_SkipsFailedFiles(t *testing.T) {
	bundle := fixtures.FailingFS{FS: fixtures.WebBundle(), Fail: map[string]bool{"assets/app.js": true}}
	s := newTestStager(t, bundle)

	dir, err := s.Prepare(testutil.TestContext(t))
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dir, "index.html"))
	assert.FileExists(t, filepath.Join(dir, "main.js"))
	assert.FileExists(t, filepath.Join(dir, "styles.css"))
	assert.NoFileExists(t, filepath.Join(dir, "assets", "app.js"))

	r := s.LastReport()
	assert.Equal(t, 3, r.Copied)
	assert.Equal(t, []string{"assets/app.js"}, r.Failed)
}

func TestStager_MissingEntryFails(t *testing.T) {
	bundle := fixtures.FailingFS{FS: fixtures.WebBundle(), Fail: map[string]bool{"index.html": true}}
	s := newTestStager(t, bundle)

	_, err := s.Prepare(testutil.TestContext(t))
	require.Error(t, err)
	assert.Equal(t, types.ErrStagingFailed, types.GetErrorCode(err))
	assert.Contains(t, err.Error(), "index.html")
	assert.Contains(t, err.Error(), "packaged")
}

func TestStager_FallbackManifest(t *testing.T) {
	bundle := fixtures.WebBundle()
	delete(bundle, fixtures.ManifestName)
	s := newTestStager(t, bundle)

	dir, err := s.Prepare(testutil.TestContext(t))
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dir, "index.html"))
	assert.FileExists(t, filepath.Join(dir, "main.js"))
	assert.NoFileExists(t, filepath.Join(dir, "styles.css"))
	assert.True(t, s.LastReport().UsedFallback)
}

func TestStager_EmptyManifestUsesFallback(t *testing.T) {
	bundle := fixtures.WebBundle()
	bundle[fixtures.ManifestName] = &fstest.MapFile{Data: []byte("# nothing\n")}
	s := newTestStager(t, bundle)

	_, err := s.Prepare(testutil.TestContext(t))
	require.NoError(t, err)
	assert.True(t, s.LastReport().UsedFallback)
}

func TestStager_RejectsUnsafeEntries(t *testing.T) {
	bundle := fixtures.WebBundle()
	bundle[fixtures.ManifestName] = &fstest.MapFile{Data: []byte("index.html\n../escape.txt\nsub/../../x\n")}
	root := t.TempDir()
	s := NewStager(bundle, Config{
		StagingRoot:  root,
		ManifestPath: fixtures.ManifestName,
		Concurrency:  2,
	}, nil)

	dir, err := s.Prepare(testutil.TestContext(t))
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(root, "escape.txt"))
	assert.Len(t, s.LastReport().Failed, 2)
	assert.FileExists(t, filepath.Join(dir, "index.html"))
}

func TestStager_CancelledContext(t *testing.T) {
	s := newTestStager(t, fixtures.WebBundle())
	_, err := s.Prepare(testutil.CancelledContext())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewStager_Defaults(t *testing.T) {
	s := NewStager(fixtures.WebBundle(), Config{}, nil)
	assert.Equal(t, "index.html", s.EntryFile())
	assert.Empty(t, s.Dir())
}

func TestStager_PrivateStagingRootPerInstance(t *testing.T) {
	first := NewStager(fixtures.WebBundle(), Config{ManifestPath: fixtures.ManifestName}, nil)
	second := NewStager(fixtures.WebBundle(), Config{ManifestPath: fixtures.ManifestName}, nil)
	t.Cleanup(func() {
		_ = first.Cleanup()
		_ = second.Cleanup()
	})

	dir1, err := first.Prepare(testutil.TestContext(t))
	require.NoError(t, err)
	dir2, err := second.Prepare(testutil.TestContext(t))
	require.NoError(t, err)

	assert.NotEqual(t, dir1, dir2)
	assert.Equal(t, StagedDirName, filepath.Base(dir1))
	assert.FileExists(t, filepath.Join(dir1, "index.html"), "staging a second instance keeps the first")
	assert.FileExists(t, filepath.Join(dir2, "index.html"))

	root := filepath.Dir(dir1)
	require.NoError(t, first.Cleanup())
	assert.NoDirExists(t, root)
	assert.Empty(t, first.Dir())
	assert.DirExists(t, dir2)
}

func TestStager_CleanupKeepsConfiguredRoot(t *testing.T) {
	s := newTestStager(t, fixtures.WebBundle())
	dir, err := s.Prepare(testutil.TestContext(t))
	require.NoError(t, err)

	require.NoError(t, s.Cleanup())
	assert.DirExists(t, dir)
}

func TestStager_RecordsSpan(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	bundle := fixtures.FailingFS{FS: fixtures.WebBundle(), Fail: map[string]bool{"index.html": true}}
	s := NewStager(bundle, Config{
		StagingRoot:  t.TempDir(),
		ManifestPath: fixtures.ManifestName,
		Concurrency:  2,
	}, zap.NewNop(), WithTracerProvider(tp))

	_, err := s.Prepare(testutil.TestContext(t))
	require.Error(t, err)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "assets.Prepare", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}
