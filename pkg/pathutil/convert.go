// Package pathutil converts between the absolute paths the pipeline uses
// internally and the root-relative paths shown to users and matched
// against glob patterns.
package pathutil

import (
	"path/filepath"
	"strings"
)

// ToRelative converts an absolute path to relative based on a root directory.
// Falls back to the original path if conversion fails or path is already relative.
//
// Examples:
//   - ToRelative("/work/app/out/A.semanticdb", "/work/app") → "out/A.semanticdb"
//   - ToRelative("/other/file.semanticdb", "/work/app") → "/other/file.semanticdb" (outside root)
//   - ToRelative("out/A.semanticdb", "/work/app") → "out/A.semanticdb" (already relative)
func ToRelative(absPath, rootDir string) string {
	if absPath == "" || rootDir == "" {
		return absPath
	}
	if !filepath.IsAbs(absPath) {
		return absPath
	}

	absPath = filepath.Clean(absPath)
	rootDir = filepath.Clean(rootDir)

	relPath, err := filepath.Rel(rootDir, absPath)
	if err != nil {
		// Conversion failed (e.g., different drives on Windows)
		return absPath
	}

	// A ".." prefix means the file is outside the root; the absolute path
	// is clearer than a chain of parent references.
	if strings.HasPrefix(relPath, "..") {
		return absPath
	}

	return relPath
}

// ToSlashRelative normalizes a path for glob matching: relative to root,
// with forward slashes regardless of platform. Falls back to the original
// path when Rel fails.
func ToSlashRelative(path, rootDir string) string {
	relPath, err := filepath.Rel(rootDir, path)
	if err != nil {
		relPath = path
	}
	return filepath.ToSlash(relPath)
}
