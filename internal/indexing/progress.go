package indexing

import (
	"sync"
	"sync/atomic"
	"time"
)

// IndexError records one recovered per-file failure (decode or read) for
// later display. Fatal errors never land here; they abort the run.
type IndexError struct {
	Path    string
	Stage   string
	Message string
}

// IndexingProgress is a point-in-time snapshot for progress rendering.
type IndexingProgress struct {
	FilesProcessed   int
	TotalFiles       int
	DocumentsMerged  int
	SymbolsWritten   int
	CurrentFile      string
	Errors           []IndexError
	IndexingProgress float64
	IsScanning       bool
	ElapsedTime      time.Duration
	FilesPerSecond   float64
}

// ProgressTracker tracks pipeline progress with thread-safe operations.
// Counters are atomic; only the current file and the error list take locks.
// Reporting is best-effort instrumentation, never a correctness dependency.
type ProgressTracker struct {
	totalFiles      int64 // atomic
	processedFiles  int64 // atomic
	mergedDocuments int64 // atomic
	writtenSymbols  int64 // atomic
	isScanning      int32 // atomic: 1 while scanning, 0 once totals are known

	currentFile   string
	currentFileMu sync.RWMutex

	errors   []IndexError
	errorsMu sync.RWMutex

	startTime time.Time
}

// NewProgressTracker creates a new progress tracker
func NewProgressTracker() *ProgressTracker {
	return &ProgressTracker{
		startTime:  time.Now(),
		isScanning: 1, // Start in scanning phase
	}
}

// SetTotal sets the total number of files to process and ends the scanning phase.
func (pt *ProgressTracker) SetTotal(total int) {
	atomic.StoreInt64(&pt.totalFiles, int64(total))
	atomic.StoreInt32(&pt.isScanning, 0)
}

// DocumentIndexed implements Observer; it counts one merged document.
// A metadata file can carry several documents, so this is tracked apart
// from the per-file counter.
func (pt *ProgressTracker) DocumentIndexed(uri string) {
	atomic.AddInt64(&pt.mergedDocuments, 1)
	pt.currentFileMu.Lock()
	pt.currentFile = uri
	pt.currentFileMu.Unlock()
}

// IncrementProcessed counts one metadata file whose processing finished,
// whether it decoded cleanly or was skipped.
func (pt *ProgressTracker) IncrementProcessed(path string) {
	atomic.AddInt64(&pt.processedFiles, 1)
	pt.currentFileMu.Lock()
	pt.currentFile = path
	pt.currentFileMu.Unlock()
}

// IncrementWritten counts one persisted symbol record.
func (pt *ProgressTracker) IncrementWritten() {
	atomic.AddInt64(&pt.writtenSymbols, 1)
}

// AddError records a recovered per-file error.
func (pt *ProgressTracker) AddError(err IndexError) {
	pt.errorsMu.Lock()
	pt.errors = append(pt.errors, err)
	pt.errorsMu.Unlock()
}

// ErrorCount returns the number of recovered errors so far.
func (pt *ProgressTracker) ErrorCount() int {
	pt.errorsMu.RLock()
	defer pt.errorsMu.RUnlock()
	return len(pt.errors)
}

// GetProgress returns current progress information
func (pt *ProgressTracker) GetProgress() IndexingProgress {
	total := atomic.LoadInt64(&pt.totalFiles)
	processed := atomic.LoadInt64(&pt.processedFiles)
	merged := atomic.LoadInt64(&pt.mergedDocuments)
	written := atomic.LoadInt64(&pt.writtenSymbols)
	isScanning := atomic.LoadInt32(&pt.isScanning) == 1

	pt.currentFileMu.RLock()
	currentFile := pt.currentFile
	pt.currentFileMu.RUnlock()

	pt.errorsMu.RLock()
	errorsCopy := make([]IndexError, len(pt.errors))
	copy(errorsCopy, pt.errors)
	pt.errorsMu.RUnlock()

	elapsed := time.Since(pt.startTime)
	var filesPerSecond float64
	if processed > 0 && elapsed > 0 {
		filesPerSecond = float64(processed) / elapsed.Seconds()
	}

	var indexingProgress float64
	if !isScanning && total > 0 {
		indexingProgress = float64(processed) / float64(total) * 100.0
		if indexingProgress > 100.0 {
			indexingProgress = 100.0
		}
	}

	return IndexingProgress{
		FilesProcessed:   int(processed),
		TotalFiles:       int(total),
		DocumentsMerged:  int(merged),
		SymbolsWritten:   int(written),
		CurrentFile:      currentFile,
		Errors:           errorsCopy,
		IndexingProgress: indexingProgress,
		IsScanning:       isScanning,
		ElapsedTime:      elapsed,
		FilesPerSecond:   filesPerSecond,
	}
}
