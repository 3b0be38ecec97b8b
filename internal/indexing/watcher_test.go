package indexing

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRebuildWatcherTriggersOnChange(t *testing.T) {
	root := t.TempDir()

	rebuilt := make(chan struct{}, 1)
	watcher, err := NewRebuildWatcher([]string{root}, 50, func() {
		select {
		case rebuilt <- struct{}{}:
		default:
		}
	})
	require.NoError(t, err)
	require.NoError(t, watcher.Start())
	defer watcher.Stop()

	// Simulate the compiler dropping a fresh metadata file.
	require.NoError(t, os.WriteFile(filepath.Join(root, "A.scala.semanticdb"), []byte("x"), 0644))

	select {
	case <-rebuilt:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not trigger a rebuild")
	}
}

func TestRebuildWatcherCoalescesBursts(t *testing.T) {
	root := t.TempDir()

	rebuilds := make(chan struct{}, 16)
	watcher, err := NewRebuildWatcher([]string{root}, 100, func() {
		rebuilds <- struct{}{}
	})
	require.NoError(t, err)
	require.NoError(t, watcher.Start())
	defer watcher.Stop()

	// A burst of writes inside one debounce window.
	for i := 0; i < 5; i++ {
		name := filepath.Join(root, "file"+string(rune('a'+i))+".semanticdb")
		require.NoError(t, os.WriteFile(name, []byte("x"), 0644))
	}

	select {
	case <-rebuilds:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not trigger a rebuild")
	}

	// The burst collapsed into a single rebuild; nothing further pending.
	select {
	case <-rebuilds:
		t.Fatal("burst produced more than one rebuild")
	case <-time.After(500 * time.Millisecond):
	}
}

func TestRebuildWatcherSerializesRebuilds(t *testing.T) {
	root := t.TempDir()

	var inFlight atomic.Int32
	var overlapped atomic.Bool
	started := make(chan struct{}, 4)
	release := make(chan struct{})

	watcher, err := NewRebuildWatcher([]string{root}, 50, func() {
		if inFlight.Add(1) > 1 {
			overlapped.Store(true)
		}
		started <- struct{}{}
		<-release
		inFlight.Add(-1)
	})
	require.NoError(t, err)
	require.NoError(t, watcher.Start())

	require.NoError(t, os.WriteFile(filepath.Join(root, "A.scala.semanticdb"), []byte("x"), 0644))
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("first rebuild never started")
	}

	// Change arrives while the first rebuild is still running; once its
	// debounce elapses the second trigger must wait, not run alongside.
	require.NoError(t, os.WriteFile(filepath.Join(root, "B.scala.semanticdb"), []byte("y"), 0644))
	time.Sleep(300 * time.Millisecond)
	require.Equal(t, int32(1), inFlight.Load(), "second rebuild started before the first finished")

	close(release)
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("queued rebuild never ran")
	}

	require.NoError(t, watcher.Stop())
	require.False(t, overlapped.Load(), "rebuild invocations overlapped")
}

func TestRebuildWatcherStopIsIdempotentWithNoEvents(t *testing.T) {
	root := t.TempDir()
	watcher, err := NewRebuildWatcher([]string{root}, 50, func() {})
	require.NoError(t, err)
	require.NoError(t, watcher.Start())
	require.NoError(t, watcher.Stop())
}
