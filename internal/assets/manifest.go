package assets

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"strings"
)

// Manifest is the ordered list of bundle-relative paths to stage.
type Manifest []string

// ParseManifest reads a newline-delimited manifest. Blank lines and lines
// starting with '#' are skipped; "./" and "/" prefixes are stripped and
// duplicates keep their first position.
func ParseManifest(r io.Reader) (Manifest, error) {
	var (
		out  Manifest
		seen = make(map[string]struct{})
	)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		entry := normalizeEntry(scanner.Text())
		if entry == "" {
			continue
		}
		if _, dup := seen[entry]; dup {
			continue
		}
		seen[entry] = struct{}{}
		out = append(out, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan manifest: %w", err)
	}
	return out, nil
}

// ReadManifest loads and parses the manifest at name inside bundle.
func ReadManifest(bundle fs.FS, name string) (Manifest, error) {
	data, err := fs.ReadFile(bundle, name)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", name, err)
	}
	return ParseManifest(bytes.NewReader(data))
}

// Contains reports whether the manifest lists entry.
func (m Manifest) Contains(entry string) bool {
	for _, e := range m {
		if e == entry {
			return true
		}
	}
	return false
}

func normalizeEntry(line string) string {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return ""
	}
	line = strings.ReplaceAll(line, "\\", "/")
	for strings.HasPrefix(line, "./") {
		line = strings.TrimPrefix(line, "./")
	}
	return strings.TrimLeft(line, "/")
}
