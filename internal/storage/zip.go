package storage

import (
	"archive/zip"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/semview/semview/internal/errors"
)

// FixedZipTime ensures byte-for-byte reproducible archives (1980-01-01 UTC).
var FixedZipTime = time.Unix(315532800, 0).UTC()

// ZipStore writes every blob into one archive opened as a virtual
// filesystem. The zip writer is not concurrency-safe, so entry writes are
// serialized behind a mutex; that trades parallelism for far fewer
// directory entries on very large outputs. The archive is written to a
// temporary file and renamed into place on Close.
type ZipStore struct {
	mu     sync.Mutex
	target string
	tmp    string
	file   *os.File
	zw     *zip.Writer
	used   map[string]struct{}
	closed bool
}

// NewZipStore creates the archive's parent directory and opens a temporary
// archive file next to the target.
func NewZipStore(target string) (*ZipStore, error) {
	if dir := filepath.Dir(target); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.NewWriteError("create", target, err)
		}
	}
	tmp := target + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return nil, errors.NewWriteError("create", target, err)
	}
	return &ZipStore{
		target: target,
		tmp:    tmp,
		file:   file,
		zw:     zip.NewWriter(file),
		used:   make(map[string]struct{}),
	}, nil
}

// WriteFile adds one entry to the archive.
func (s *ZipStore) WriteFile(name string, data []byte) error {
	entry := SanitizePath(name)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.NewWriteError("write", name, fmt.Errorf("store already closed"))
	}
	if _, ok := s.used[entry]; ok {
		return errors.NewWriteError("write", name, fmt.Errorf("duplicate archive entry %q", entry))
	}
	s.used[entry] = struct{}{}

	w, err := s.zw.CreateHeader(&zip.FileHeader{
		Name:     entry,
		Method:   zip.Deflate,
		Modified: FixedZipTime,
	})
	if err != nil {
		return errors.NewWriteError("write", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return errors.NewWriteError("write", name, err)
	}
	return nil
}

// Close finalizes the archive and renames it over the target. On failure
// the temporary archive is removed, leaving no partial output.
func (s *ZipStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.zw.Close(); err != nil {
		s.file.Close()
		os.Remove(s.tmp)
		return errors.NewWriteError("close", s.target, err)
	}
	if err := s.file.Close(); err != nil {
		os.Remove(s.tmp)
		return errors.NewWriteError("close", s.target, err)
	}
	if err := os.Rename(s.tmp, s.target); err != nil {
		os.Remove(s.tmp)
		return errors.NewWriteError("rename", s.target, err)
	}
	return nil
}

// Abort discards the temporary archive without renaming it over the
// target. An existing target is left untouched. Safe to call after Close,
// where it does nothing.
func (s *ZipStore) Abort() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	s.zw.Close()
	s.file.Close()
	if err := os.Remove(s.tmp); err != nil {
		return errors.NewWriteError("abort", s.target, err)
	}
	return nil
}

// SanitizePath normalizes archive entry paths (forward slashes, no drive,
// no leading '/'), and removes '.' and '..' segments without escaping the
// root.
func SanitizePath(p string) string {
	s := filepath.ToSlash(p)
	if len(s) > 1 && s[1] == ':' {
		s = s[2:]
	}
	s = strings.TrimLeft(s, "/")
	parts := strings.Split(s, "/")
	stack := make([]string, 0, len(parts))
	for _, part := range parts {
		if part == "" || part == "." {
			continue
		}
		if part == ".." {
			if n := len(stack); n > 0 {
				stack = stack[:n-1]
			}
			continue
		}
		stack = append(stack, part)
	}
	s = strings.Join(stack, "/")
	if s == "" {
		return "entry"
	}
	return s
}
