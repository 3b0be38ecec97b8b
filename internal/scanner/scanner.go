// Package scanner discovers semantic metadata files under classpath roots.
package scanner

import (
	"context"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/semview/semview/internal/debug"
	"github.com/semview/semview/internal/errors"
	"github.com/semview/semview/internal/semanticdb"
	"github.com/semview/semview/pkg/pathutil"
)

// Scanner walks classpath roots and collects metadata file paths. The
// returned slice is safe for parallel consumption; the scanner itself does
// no parallel work.
type Scanner struct {
	// Pre-compiled glob patterns for fast matching
	compiledInclusions []string
	compiledExclusions []string
}

// New creates a scanner with optional include/exclude glob patterns,
// matched against root-relative slash paths.
func New(include, exclude []string) *Scanner {
	s := &Scanner{}
	s.compiledInclusions = append(s.compiledInclusions, include...)
	s.compiledExclusions = append(s.compiledExclusions, exclude...)
	return s
}

// ScanRoots visits every regular file under each root in order and returns
// the paths of recognized metadata files. Filesystem errors abort the root
// being walked and propagate; the scanner performs no partial recovery.
func (s *Scanner) ScanRoots(ctx context.Context, roots []string) ([]string, error) {
	var files []string
	for _, root := range roots {
		found, err := s.scanRoot(ctx, root)
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}
	return files, nil
}

func (s *Scanner) scanRoot(ctx context.Context, root string) ([]string, error) {
	var files []string

	// Track visited directories to prevent infinite loops from symlink cycles
	visitedDirs := make(map[string]bool)

	debug.LogScan("Starting classpath scan of %s\n", root)

	err := filepath.Walk(root, func(path string, info os.FileInfo, walkErr error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if walkErr != nil {
			return errors.NewScanError(root, path, walkErr)
		}

		if info.IsDir() {
			// Check for symlink cycles - prevent infinite loops
			realPath, err := filepath.EvalSymlinks(path)
			if err != nil {
				debug.LogScan("Skipping unresolvable symlink: %s (error: %v)\n", path, err)
				return filepath.SkipDir
			}
			if visitedDirs[realPath] {
				debug.LogScan("Cycle detected, skipping already visited: %s -> %s\n", path, realPath)
				return filepath.SkipDir
			}
			visitedDirs[realPath] = true

			// Early directory pruning - skip entire excluded directories
			if path != root {
				relPath := pathutil.ToSlashRelative(path, root)
				if s.shouldExclude(relPath) || s.shouldExclude(relPath+"/") {
					return filepath.SkipDir
				}
			}
			return nil
		}

		if !semanticdb.IsDocumentPath(path) {
			return nil
		}

		relPath := pathutil.ToSlashRelative(path, root)
		if s.shouldExclude(relPath) || !s.shouldInclude(relPath) {
			return nil
		}

		files = append(files, path)
		return nil
	})
	if err != nil {
		if _, ok := err.(*errors.ScanError); ok {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, errors.NewScanError(root, root, err)
	}

	debug.LogScan("Found %d metadata files under %s (visited %d directories)\n",
		len(files), root, len(visitedDirs))
	return files, nil
}

// shouldExclude checks if a path matches any exclusion pattern
func (s *Scanner) shouldExclude(path string) bool {
	for _, pattern := range s.compiledExclusions {
		matched, err := doublestar.Match(pattern, path)
		if err != nil {
			// Bad pattern shouldn't break scanning
			continue
		}
		if matched {
			return true
		}
	}
	return false
}

// shouldInclude checks if a path matches any inclusion pattern
func (s *Scanner) shouldInclude(path string) bool {
	// If no inclusion patterns, include everything
	if len(s.compiledInclusions) == 0 {
		return true
	}
	for _, pattern := range s.compiledInclusions {
		matched, err := doublestar.Match(pattern, path)
		if err != nil {
			continue
		}
		if matched {
			return true
		}
	}
	return false
}
