// Package indexing implements the symbol-index construction pipeline:
// bounded-parallel metadata parsing, the concurrent occurrence
// accumulator, the namespace reconciliation pass, and the parallel write
// of the final records.
package indexing

import (
	"context"
	"log"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/semview/semview/internal/config"
	"github.com/semview/semview/internal/debug"
	"github.com/semview/semview/internal/scanner"
	"github.com/semview/semview/internal/semanticdb"
	"github.com/semview/semview/internal/storage"
	"github.com/semview/semview/internal/types"
)

// maxErrorExcerpt bounds the detail logged for a recovered decode error.
const maxErrorExcerpt = 400

// Result summarizes one completed pipeline run.
type Result struct {
	Target         string
	FilesScanned   int
	DocumentsFound int
	SymbolsWritten int
	DecodeErrors   int
	Duration       time.Duration
}

// Pipeline runs one full rebuild: scan, parse+accumulate, reconcile,
// write. There is no incremental mode; a crash mid-run leaves a partially
// written target and re-running from scratch is the recovery path.
type Pipeline struct {
	cfg      *config.Config
	progress *ProgressTracker
}

// NewPipeline creates a pipeline for one run.
func NewPipeline(cfg *config.Config) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		progress: NewProgressTracker(),
	}
}

// Progress exposes the tracker for external progress rendering.
func (p *Pipeline) Progress() *ProgressTracker {
	return p.progress
}

// Run executes the full pipeline. Scan and write failures are fatal and
// returned; decode failures are logged and skipped.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := time.Now()

	sc := scanner.New(p.cfg.Include, p.cfg.Exclude)
	files, err := sc.ScanRoots(ctx, p.cfg.Index.Classpath)
	if err != nil {
		return nil, err
	}
	p.progress.SetTotal(len(files))

	acc := NewAccumulator()
	acc.SetObserver(p.progress)
	docs := newDocumentStore()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.ParseWorkers())
	for _, path := range files {
		path := path
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			p.processFile(acc, docs, path)
			p.progress.IncrementProcessed(path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	entries := acc.Reconcile()

	store, err := storage.Open(p.cfg.Index.Target, p.cfg.Index.Zip, p.cfg.Index.CleanTarget)
	if err != nil {
		return nil, err
	}
	if err := p.write(ctx, store, acc, entries, docs); err != nil {
		store.Abort()
		return nil, err
	}
	if err := store.Close(); err != nil {
		return nil, err
	}

	return &Result{
		Target:         p.cfg.Index.Target,
		FilesScanned:   len(files),
		DocumentsFound: docs.len(),
		SymbolsWritten: len(entries),
		DecodeErrors:   p.progress.ErrorCount(),
		Duration:       time.Since(start),
	}, nil
}

// processFile reads and decodes one metadata file and merges its documents.
// All failures here are recoverable: they are logged with a bounded excerpt
// and the file is skipped.
func (p *Pipeline) processFile(acc *Accumulator, docs *documentStore, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		p.skipFile(path, "read", err)
		return
	}

	container, err := semanticdb.Parse(path, data)
	if err != nil {
		p.skipFile(path, "decode", err)
		return
	}

	for i := range container.Documents {
		doc := &container.Documents[i]
		acc.AddDocument(doc)
		docs.add(doc)
	}
}

func (p *Pipeline) skipFile(path, stage string, err error) {
	msg := err.Error()
	if len(msg) > maxErrorExcerpt {
		msg = msg[:maxErrorExcerpt] + "..."
	}
	log.Printf("Warning: skipping %s (%s failed): %s", path, stage, msg)
	p.progress.AddError(IndexError{Path: path, Stage: stage, Message: msg})
}

// write persists all records: one task per symbol, plus the workspace
// manifest and the per-document metadata copies. Any write failure aborts
// the run.
func (p *Pipeline) write(ctx context.Context, store storage.Store, acc *Accumulator, entries []*types.SymbolIndex, docs *documentStore) error {
	writer := storage.NewIndexWriter(store)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.IndexWriteWorkers())

	for _, entry := range entries {
		entry := entry
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			if err := writer.WriteSymbolIndex(entry); err != nil {
				return err
			}
			p.progress.IncrementWritten()
			return nil
		})
	}

	for _, doc := range docs.all() {
		doc := doc
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			return writer.WriteDocument(doc)
		})
	}

	g.Go(func() error {
		return writer.WriteWorkspace(&types.Workspace{Filenames: acc.Filenames()})
	})

	if err := g.Wait(); err != nil {
		return err
	}

	debug.LogWrite("Wrote %d symbol records, %d document copies\n", len(entries), docs.len())
	return nil
}

// documentStore retains parsed documents for the copy-out phase, one per
// URI. When cross-platform variants carry the same URI the first merged
// document wins, mirroring the accumulator's definition policy.
type documentStore struct {
	mu    sync.Mutex
	byURI map[string]*semanticdb.TextDocument
	order []*semanticdb.TextDocument
}

func newDocumentStore() *documentStore {
	return &documentStore{byURI: make(map[string]*semanticdb.TextDocument)}
}

func (ds *documentStore) add(doc *semanticdb.TextDocument) {
	if doc.URI == "" {
		return
	}
	ds.mu.Lock()
	defer ds.mu.Unlock()
	if _, ok := ds.byURI[doc.URI]; ok {
		return
	}
	ds.byURI[doc.URI] = doc
	ds.order = append(ds.order, doc)
}

func (ds *documentStore) all() []*semanticdb.TextDocument {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	return append([]*semanticdb.TextDocument(nil), ds.order...)
}

func (ds *documentStore) len() int {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	return len(ds.order)
}
