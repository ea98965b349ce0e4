package router

import (
	"errors"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"syscall"
	"testing"

	"github.com/BaSui01/lanmirror/testutil"
	"github.com/BaSui01/lanmirror/testutil/fixtures"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"
)

const indexHTML = fixtures.IndexHTML

func stageDir(t testing.TB, withIndex bool) string {
	t.Helper()
	return testutil.TempTree(t, fixtures.StagedFiles(withIndex))
}

func serve(h http.Handler, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/", nil)
	req.URL.Path = path
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func assertCORS(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Headers"))
}

func TestRouter_ServesFiles(t *testing.T) {
	r := New(stageDir(t, true), zap.NewNop())

	tests := []struct {
		path        string
		contentType string
		body        string
	}{
		{"/", "text/html", indexHTML},
		{"", "text/html", indexHTML},
		{"/index.html", "text/html", indexHTML},
		{"/main.js", "application/javascript", "console.log('main')"},
		{"/styles.css", "text/css", "body{}"},
		{"/assets/app.js", "application/javascript", "console.log('app')"},
		{"/logo.PNG", "image/png", "png"},
		{"/data.bin", "application/octet-stream", "bin"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := serve(r, http.MethodGet, tt.path)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.contentType, rec.Header().Get("Content-Type"))
			assert.Equal(t, tt.body, rec.Body.String())
			assert.Equal(t, len(tt.body), mustAtoi(t, rec.Header().Get("Content-Length")))
			assertCORS(t, rec)
		})
	}
}

func TestRouter_SPAFallback(t *testing.T) {
	r := New(stageDir(t, true), zap.NewNop())

	for _, p := range []string{"/dashboard/settings", "/assets", "/missing.js", "/main.js/child"} {
		rec := serve(r, http.MethodGet, p)
		assert.Equal(t, http.StatusOK, rec.Code, p)
		assert.Equal(t, "text/html", rec.Header().Get("Content-Type"), p)
		assert.Equal(t, indexHTML, rec.Body.String(), p)
		assertCORS(t, rec)
	}
}

func TestRouter_NotFoundWithoutEntry(t *testing.T) {
	r := New(stageDir(t, false), zap.NewNop())

	rec := serve(r, http.MethodGet, "/dashboard")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not found: /dashboard", rec.Body.String())
	assertCORS(t, rec)

	rec = serve(r, http.MethodGet, "/main.js")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_InvalidPathFallsBackToEntry(t *testing.T) {
	r := New(stageDir(t, true), zap.NewNop())

	rec := serve(r, http.MethodGet, "/x\x00y")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html", rec.Header().Get("Content-Type"))
	assert.Equal(t, indexHTML, rec.Body.String())
	assertCORS(t, rec)

	realStat := r.stat
	r.stat = func(name string) (os.FileInfo, error) {
		if strings.HasSuffix(name, "bad-name") {
			return nil, &fs.PathError{Op: "stat", Path: name, Err: syscall.EINVAL}
		}
		return realStat(name)
	}
	rec = serve(r, http.MethodGet, "/bad-name")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, indexHTML, rec.Body.String())
}

func TestRouter_RejectsTraversal(t *testing.T) {
	dir := stageDir(t, true)
	r := New(dir, zap.NewNop())
	r.stat = func(string) (os.FileInfo, error) {
		t.Fatal("filesystem must not be touched for traversal paths")
		return nil, nil
	}

	for _, p := range []string{"/../etc/passwd", "/assets/../../secret", "/..", `/..\windows\system.ini`, `\..\x`} {
		rec := serve(r, http.MethodGet, p)
		assert.Equal(t, http.StatusForbidden, rec.Code, p)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"), p)
	}

	rec := serve(r, http.MethodOptions, "/../x")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRouter_DotsInNamesAreNotTraversal(t *testing.T) {
	assert.False(t, HasTraversal("/a..b/c"))
	assert.False(t, HasTraversal("/...js"))
	assert.True(t, HasTraversal("a/../b"))
}

func TestRouter_Options(t *testing.T) {
	r := New(stageDir(t, true), zap.NewNop())

	rec := serve(r, http.MethodOptions, "/main.js")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
	assertCORS(t, rec)
}

func TestRouter_InternalErrors(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	r := New(stageDir(t, true), zap.New(core))
	r.readFile = func(string) ([]byte, error) { return nil, errors.New("disk on fire") }

	rec := serve(r, http.MethodGet, "/main.js")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", rec.Body.String())
	assertCORS(t, rec)
	require.Equal(t, 1, logs.FilterMessage("failed to serve request").Len())
}

func TestRouter_RecoversPanics(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	r := New(stageDir(t, true), zap.New(core))
	r.stat = func(string) (os.FileInfo, error) { panic("boom") }

	rec := serve(r, http.MethodGet, "/main.js")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", rec.Body.String())

	entries := logs.FilterMessage("panic while serving request").All()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].ContextMap(), "stack")
}

func TestRouter_CustomEntryFile(t *testing.T) {
	dir := stageDir(t, false)
	testutil.WriteTree(t, dir, map[string]string{"app.html": "app"})
	r := New(dir, nil, WithEntryFile("app.html"))

	rec := serve(r, http.MethodGet, "/")
	assert.Equal(t, "app", rec.Body.String())
	rec = serve(r, http.MethodGet, "/route")
	assert.Equal(t, "app", rec.Body.String())
}

func TestContentTypeAndKind(t *testing.T) {
	assert.Equal(t, "font/woff2", ContentType("a/b.woff2"))
	assert.Equal(t, "image/jpeg", ContentType("photo.JPEG"))
	assert.Equal(t, "application/wasm", ContentType("x.wasm"))
	assert.Equal(t, "application/octet-stream", ContentType("README"))

	assert.Equal(t, "document", Kind("/"))
	assert.Equal(t, "script", Kind("/main.js"))
	assert.Equal(t, "image", Kind("/favicon.ico"))
	assert.Equal(t, "route", Kind("/dashboard"))
	assert.Equal(t, "other", Kind("/file.bin"))
}

// =============================================================================
// 🎲 属性测试
// =============================================================================

var segmentGen = rapid.StringMatching(`[a-z0-9_-]{1,8}`)

func TestProperty_TraversalAlwaysForbidden(t *testing.T) {
	r := New(stageDir(t, true), zap.NewNop())

	rapid.Check(t, func(rt *rapid.T) {
		before := rapid.SliceOfN(segmentGen, 0, 3).Draw(rt, "before")
		after := rapid.SliceOfN(segmentGen, 0, 3).Draw(rt, "after")
		sep := rapid.SampledFrom([]string{"/", `\`}).Draw(rt, "sep")

		segs := append(append(append([]string{}, before...), ".."), after...)
		p := "/" + strings.Join(segs, sep)

		rec := serve(r, http.MethodGet, p)
		if rec.Code != http.StatusForbidden {
			rt.Fatalf("path %q: got %d, want 403", p, rec.Code)
		}
		if rec.Header().Get("Access-Control-Allow-Origin") != "" {
			rt.Fatalf("path %q: 403 must not carry CORS headers", p)
		}
	})
}

func TestProperty_UnknownRoutesFallBackToEntry(t *testing.T) {
	r := New(stageDir(t, true), zap.NewNop())

	rapid.Check(t, func(rt *rapid.T) {
		segs := rapid.SliceOfN(segmentGen, 1, 4).Draw(rt, "segments")
		p := "/missing-" + strings.Join(segs, "/")

		rec := serve(r, http.MethodGet, p)
		if rec.Code != http.StatusOK || rec.Body.String() != indexHTML {
			rt.Fatalf("path %q: got %d %q", p, rec.Code, rec.Body.String())
		}
		if ct := rec.Header().Get("Content-Type"); ct != "text/html" {
			rt.Fatalf("path %q: content type %q", p, ct)
		}
	})
}

func mustAtoi(t *testing.T, s string) int {
	t.Helper()
	n, err := strconv.Atoi(s)
	require.NoError(t, err)
	return n
}
