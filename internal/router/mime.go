package router

import (
	"path"
	"strings"
)

const defaultContentType = "application/octet-stream"

// contentTypes 扩展名到 MIME 类型的固定映射
var contentTypes = map[string]string{
	".html":  "text/html",
	".css":   "text/css",
	".js":    "application/javascript",
	".json":  "application/json",
	".png":   "image/png",
	".jpg":   "image/jpeg",
	".jpeg":  "image/jpeg",
	".gif":   "image/gif",
	".svg":   "image/svg+xml",
	".ico":   "image/x-icon",
	".woff":  "font/woff",
	".woff2": "font/woff2",
	".ttf":   "font/ttf",
	".wasm":  "application/wasm",
}

// ContentType returns the MIME type for name based on its extension.
// Matching is case-insensitive; unknown extensions map to
// application/octet-stream.
func ContentType(name string) string {
	if ct, ok := contentTypes[strings.ToLower(path.Ext(name))]; ok {
		return ct
	}
	return defaultContentType
}

// Kind classifies a request path into a small, fixed set of labels suitable
// for metrics.
func Kind(p string) string {
	if p == "" || p == "/" {
		return "document"
	}
	switch ContentType(p) {
	case "text/html":
		return "document"
	case "application/javascript":
		return "script"
	case "text/css":
		return "style"
	case "application/json":
		return "data"
	case "application/wasm":
		return "wasm"
	case "font/woff", "font/woff2", "font/ttf":
		return "font"
	case defaultContentType:
		if path.Ext(p) == "" {
			return "route"
		}
		return "other"
	default:
		return "image"
	}
}
