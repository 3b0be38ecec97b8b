// Package storage persists the reconciled index: one content-addressed
// record per symbol, a workspace manifest, and per-document metadata
// copies. Output goes either to a directory tree or into a single zip
// container; both targets guarantee no partial file survives a failed
// write.
package storage

import (
	"os"
	"path/filepath"

	"github.com/semview/semview/internal/errors"
)

// Store writes named blobs under a target. Names use forward slashes.
// WriteFile is safe for concurrent use with distinct names; each write is
// all-or-nothing. Close publishes the target; Abort discards pending
// output instead, so a failed run never publishes a partial target.
type Store interface {
	WriteFile(name string, data []byte) error
	Close() error
	Abort() error
}

// Open prepares the output target. With zip set, target names the archive
// file; otherwise it names the output directory. With clean set, an
// existing target is removed first — a re-run always rebuilds from scratch.
func Open(target string, zip, clean bool) (Store, error) {
	if clean {
		if err := os.RemoveAll(target); err != nil {
			return nil, errors.NewWriteError("clean", target, err)
		}
	}
	if zip {
		return NewZipStore(target)
	}
	return NewDirStore(target)
}

// DirStore writes each blob as a file under a root directory using
// temp-file-then-rename, so readers never observe a half-written record.
type DirStore struct {
	root string
}

// NewDirStore creates the root directory if needed.
func NewDirStore(root string) (*DirStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, errors.NewWriteError("create", root, err)
	}
	return &DirStore{root: root}, nil
}

// WriteFile writes data under name relative to the store root.
func (s *DirStore) WriteFile(name string, data []byte) error {
	full := filepath.Join(s.root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return errors.NewWriteError("create", name, err)
	}

	tmp := full + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		os.Remove(tmp)
		return errors.NewWriteError("write", name, err)
	}
	if err := os.Rename(tmp, full); err != nil {
		os.Remove(tmp)
		return errors.NewWriteError("rename", name, err)
	}
	return nil
}

// Close is a no-op for directory targets.
func (s *DirStore) Close() error {
	return nil
}

// Abort is a no-op for directory targets: every record write is already
// atomic, so completed records are valid and the directory is left as-is
// for the next from-scratch run to clean.
func (s *DirStore) Abort() error {
	return nil
}
