package indexing

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/semview/semview/internal/debug"
)

// RebuildWatcher watches classpath roots and triggers a full rebuild after
// a burst of changes settles. There is no incremental mode: every trigger
// reruns the whole pipeline from scratch, the debounce only coalesces
// change bursts from a compiler writing many metadata files.
type RebuildWatcher struct {
	roots        []string
	debounceTime time.Duration
	rebuild      func()

	watcher *fsnotify.Watcher
	timer   *time.Timer
	mu      sync.Mutex
	pending int

	// rebuildMu serializes rebuild invocations: a debounce timer may fire
	// while a previous rebuild is still running, and overlapping rebuilds
	// would race on the shared target.
	rebuildMu sync.Mutex

	done chan struct{}
	wg   sync.WaitGroup
}

// NewRebuildWatcher creates a watcher over the given roots. rebuild is
// invoked from the watcher's own goroutine, never concurrently with
// itself.
func NewRebuildWatcher(roots []string, debounceMs int, rebuild func()) (*RebuildWatcher, error) {
	if debounceMs <= 0 {
		debounceMs = 300
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &RebuildWatcher{
		roots:        roots,
		debounceTime: time.Duration(debounceMs) * time.Millisecond,
		rebuild:      rebuild,
		watcher:      watcher,
		done:         make(chan struct{}),
	}, nil
}

// Start registers all directories under the roots and begins watching.
func (w *RebuildWatcher) Start() error {
	for _, root := range w.roots {
		if err := w.addRecursive(root); err != nil {
			w.watcher.Close()
			return err
		}
	}

	w.wg.Add(1)
	go w.run()
	return nil
}

// Stop ends watching and waits for the event loop to exit. A rebuild in
// flight finishes first.
func (w *RebuildWatcher) Stop() error {
	close(w.done)
	err := w.watcher.Close()
	w.wg.Wait()

	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return err
}

// addRecursive registers root and every directory below it. fsnotify does
// not watch recursively on its own.
func (w *RebuildWatcher) addRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			debug.LogWatch("Skipping unwatchable path %s: %v\n", path, err)
			return nil
		}
		if info.IsDir() {
			if err := w.watcher.Add(path); err != nil {
				debug.LogWatch("Failed to watch %s: %v\n", path, err)
			}
		}
		return nil
	})
}

func (w *RebuildWatcher) run() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			// New directories must be registered before their contents
			// produce events.
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = w.addRecursive(event.Name)
				}
			}
			w.schedule(event.Name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			debug.LogWatch("Watcher error: %v\n", err)
		}
	}
}

// schedule resets the debounce timer for a change event.
func (w *RebuildWatcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending++
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounceTime, w.fire)

	debug.LogWatch("Scheduled rebuild for %s (pending events: %d)\n", path, w.pending)
}

func (w *RebuildWatcher) fire() {
	w.mu.Lock()
	pending := w.pending
	w.pending = 0
	w.mu.Unlock()

	if pending == 0 {
		return
	}

	select {
	case <-w.done:
		return
	default:
	}

	w.rebuildMu.Lock()
	defer w.rebuildMu.Unlock()

	debug.LogWatch("Starting full rebuild after %d change events\n", pending)
	start := time.Now()
	w.rebuild()
	debug.LogWatch("Completed rebuild in %v\n", time.Since(start))
}
