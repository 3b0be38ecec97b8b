package storage

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirStoreWriteFile(t *testing.T) {
	root := t.TempDir()
	store, err := NewDirStore(filepath.Join(root, "out"))
	require.NoError(t, err)

	require.NoError(t, store.WriteFile("symbol/abc", []byte("record")))
	require.NoError(t, store.Close())

	data, err := os.ReadFile(filepath.Join(root, "out", "symbol", "abc"))
	require.NoError(t, err)
	assert.Equal(t, []byte("record"), data)
}

func TestDirStoreLeavesNoTempFiles(t *testing.T) {
	root := t.TempDir()
	store, err := NewDirStore(root)
	require.NoError(t, err)
	require.NoError(t, store.WriteFile("a/b/c", []byte("x")))

	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		require.NoError(t, err)
		if !info.IsDir() && strings.HasSuffix(path, ".tmp") {
			t.Errorf("temp file left behind: %s", path)
		}
		return nil
	})
	require.NoError(t, err)
}

func TestDirStoreConcurrentWrites(t *testing.T) {
	root := t.TempDir()
	store, err := NewDirStore(root)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			name := "symbol/" + strings.Repeat("ab", 4) + string(rune('a'+n%26)) + string(rune('0'+n/26))
			if err := store.WriteFile(name, []byte{byte(n)}); err != nil {
				t.Errorf("concurrent write failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	entries, err := os.ReadDir(filepath.Join(root, "symbol"))
	require.NoError(t, err)
	assert.Len(t, entries, 50)
}

func TestZipStoreRoundTrip(t *testing.T) {
	target := filepath.Join(t.TempDir(), "index.zip")
	store, err := NewZipStore(target)
	require.NoError(t, err)

	require.NoError(t, store.WriteFile("symbol/abc", []byte("record")))
	require.NoError(t, store.WriteFile("index.workspace", []byte("manifest")))
	require.NoError(t, store.Close())

	reader, err := zip.OpenReader(target)
	require.NoError(t, err)
	defer reader.Close()

	contents := make(map[string]string)
	for _, f := range reader.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		contents[f.Name] = string(data)

		assert.Equal(t, FixedZipTime, f.Modified.UTC(), "archive timestamps must be reproducible")
	}
	assert.Equal(t, "record", contents["symbol/abc"])
	assert.Equal(t, "manifest", contents["index.workspace"])
}

func TestZipStoreNoArchiveUntilClose(t *testing.T) {
	target := filepath.Join(t.TempDir(), "index.zip")
	store, err := NewZipStore(target)
	require.NoError(t, err)
	require.NoError(t, store.WriteFile("a", []byte("x")))

	_, err = os.Stat(target)
	assert.True(t, os.IsNotExist(err), "archive must not appear before Close")

	require.NoError(t, store.Close())
	_, err = os.Stat(target)
	assert.NoError(t, err)
}

func TestZipStoreRejectsDuplicateEntries(t *testing.T) {
	store, err := NewZipStore(filepath.Join(t.TempDir(), "index.zip"))
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.WriteFile("a", []byte("x")))
	assert.Error(t, store.WriteFile("a", []byte("y")))
}

func TestZipStoreAbortDiscardsArchive(t *testing.T) {
	target := filepath.Join(t.TempDir(), "index.zip")
	store, err := NewZipStore(target)
	require.NoError(t, err)
	require.NoError(t, store.WriteFile("symbol/abc", []byte("record")))

	require.NoError(t, store.Abort())

	_, err = os.Stat(target)
	assert.True(t, os.IsNotExist(err), "aborted archive must not be published")
	_, err = os.Stat(target + ".tmp")
	assert.True(t, os.IsNotExist(err), "abort must remove the temporary archive")

	assert.Error(t, store.WriteFile("b", []byte("y")))
	assert.NoError(t, store.Close())
}

func TestZipStoreAbortPreservesPreviousArchive(t *testing.T) {
	target := filepath.Join(t.TempDir(), "index.zip")
	require.NoError(t, os.WriteFile(target, []byte("previous"), 0644))

	store, err := NewZipStore(target)
	require.NoError(t, err)
	require.NoError(t, store.WriteFile("a", []byte("x")))
	require.NoError(t, store.Abort())

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "previous", string(data))
}

func TestOpenCleansExistingTarget(t *testing.T) {
	target := filepath.Join(t.TempDir(), "out")
	require.NoError(t, os.MkdirAll(target, 0755))
	stale := filepath.Join(target, "stale")
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0644))

	store, err := Open(target, false, true)
	require.NoError(t, err)
	defer store.Close()

	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
}

func TestSanitizePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"src/A.scala", "src/A.scala"},
		{"/abs/path", "abs/path"},
		{"a/../../b", "b"},
		{"./a/./b", "a/b"},
		{"C:/src/A.scala", "src/A.scala"},
		{"", "entry"},
		{"..", "entry"},
	}
	for _, tt := range tests {
		if got := SanitizePath(tt.in); got != tt.want {
			t.Errorf("SanitizePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
