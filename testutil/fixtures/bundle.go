// =============================================================================
// 📦 测试数据工厂 - Web 构建包
// =============================================================================
package fixtures

import (
	"errors"
	"io/fs"
	"testing/fstest"
)

// IndexHTML 样例入口页内容
const IndexHTML = "<html><body>mirror</body></html>"

// ManifestName 样例清单文件名
const ManifestName = "asset_manifest.txt"

// WebBundle 返回带清单的样例构建包
func WebBundle() fstest.MapFS {
	return fstest.MapFS{
		ManifestName:    {Data: []byte("# web build\nindex.html\nmain.js\nstyles.css\nassets/app.js\n")},
		"index.html":    {Data: []byte(IndexHTML)},
		"main.js":       {Data: []byte("console.log('main')")},
		"styles.css":    {Data: []byte("body{}")},
		"assets/app.js": {Data: []byte("console.log('app')")},
	}
}

// StagedFiles 返回暂存目录样例内容，withIndex 控制是否包含入口页
func StagedFiles(withIndex bool) map[string]string {
	files := map[string]string{
		"main.js":       "console.log('main')",
		"styles.css":    "body{}",
		"assets/app.js": "console.log('app')",
		"logo.PNG":      "png",
		"data.bin":      "bin",
	}
	if withIndex {
		files["index.html"] = IndexHTML
	}
	return files
}

// ErrSimulatedRead FailingFS 注入的读取错误
var ErrSimulatedRead = errors.New("simulated read failure")

// FailingFS 对 Fail 中的路径返回读取错误
type FailingFS struct {
	fs.FS
	Fail map[string]bool
}

// Open 实现 fs.FS
func (f FailingFS) Open(name string) (fs.File, error) {
	if f.Fail[name] {
		return nil, &fs.PathError{Op: "open", Path: name, Err: ErrSimulatedRead}
	}
	return f.FS.Open(name)
}
