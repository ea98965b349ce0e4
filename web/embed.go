// Package web holds the sample web bundle compiled into the binary.
//
// A real deployment points assets.bundle_dir at the packaging step's output;
// the embedded bundle keeps the binary usable on its own.
package web

import (
	"embed"
	"io/fs"
)

//go:embed all:dist
var embedFS embed.FS

// Bundle returns the embedded bundle rooted at dist.
func Bundle() fs.FS {
	sub, err := fs.Sub(embedFS, "dist")
	if err != nil {
		// dist is embedded at build time, so Sub cannot fail.
		panic(err)
	}
	return sub
}
