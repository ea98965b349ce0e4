// =============================================================================
// 🧪 测试辅助函数
// =============================================================================
// 提供通用的测试辅助函数和断言
//
// 使用方法:
//
//	dir := testutil.WriteTree(t, t.TempDir(), fixtures.StagedFiles(true))
//	testutil.AssertEventuallyTrue(t, func() bool { return condition }, 5*time.Second)
// =============================================================================
package testutil

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// =============================================================================
// 🎯 上下文辅助
// =============================================================================

// TestContext 返回带超时的测试上下文
func TestContext(t testing.TB) context.Context {
	return TestContextWithTimeout(t, 30*time.Second)
}

// TestContextWithTimeout 返回带自定义超时的测试上下文
func TestContextWithTimeout(t testing.TB, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}

// CancelledContext 返回已取消的上下文
func CancelledContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

// =============================================================================
// 📁 文件树辅助
// =============================================================================

// WriteTree 在 dir 下按斜杠路径写出 files，返回 dir
func WriteTree(t testing.TB, dir string, files map[string]string) string {
	t.Helper()
	for name, body := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", p, err)
		}
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}
	return dir
}

// TempTree 创建独立临时目录并写出 files，测试结束时删除
func TempTree(t testing.TB, files map[string]string) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "lanmirror-test-*")
	if err != nil {
		t.Fatalf("mkdtemp: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	return WriteTree(t, dir, files)
}

// =============================================================================
// ⏳ 异步断言
// =============================================================================

// AssertEventuallyTrue 断言条件最终为真
func AssertEventuallyTrue(t testing.TB, condition func() bool, timeout time.Duration) {
	t.Helper()
	if !WaitFor(condition, timeout) {
		t.Errorf("condition did not become true within %v", timeout)
	}
}

// WaitFor 轮询等待条件满足
func WaitFor(condition func() bool, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return condition()
}

// WaitForChannel 等待通道产出一个值
func WaitForChannel[T any](ch <-chan T, timeout time.Duration) (T, bool) {
	select {
	case v, ok := <-ch:
		return v, ok
	case <-time.After(timeout):
		var zero T
		return zero, false
	}
}

// =============================================================================
// 🔧 数据工具
// =============================================================================

// MustJSON 序列化失败时 panic
func MustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(data)
}

// MustParseJSON 反序列化失败时 panic
func MustParseJSON[T any](s string) T {
	var v T
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		panic(err)
	}
	return v
}
