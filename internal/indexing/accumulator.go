package indexing

import (
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/semview/semview/internal/semanticdb"
	"github.com/semview/semview/internal/types"
)

// numShards must be a power of two; the shard index is taken from the low
// bits of the symbol hash.
const numShards = 64

// Observer receives best-effort progress ticks from the accumulator. Ticks
// never affect correctness or ordering; a nil observer is valid.
type Observer interface {
	DocumentIndexed(uri string)
}

// Accumulator is the concurrent aggregation map keyed by symbol. Many
// documents are merged concurrently by independent workers; per-symbol
// updates are atomic with respect to concurrent updates to the same symbol,
// and updates to different symbols never block each other.
//
// Synchronization is two-level: each shard guards slot creation with a
// read-write mutex, and each slot guards its own definition/reference state
// with a dedicated mutex. Symbols land in shards by xxhash, so contention
// on one hot symbol stays confined to that symbol's slot.
type Accumulator struct {
	shards   [numShards]accumulatorShard
	files    filenameSet
	observer Observer
}

type accumulatorShard struct {
	mu    sync.RWMutex
	slots map[string]*symbolSlot
}

// symbolSlot holds everything accumulated for one global symbol.
type symbolSlot struct {
	mu         sync.Mutex
	definition *types.Position
	references map[string][]types.Range
}

// NewAccumulator creates an empty accumulator.
func NewAccumulator() *Accumulator {
	a := &Accumulator{}
	for i := range a.shards {
		a.shards[i].slots = make(map[string]*symbolSlot)
	}
	a.files.names = make(map[string]struct{})
	return a
}

// SetObserver installs a progress observer. Must be called before any
// AddDocument; the accumulator does not synchronize observer installation.
func (a *Accumulator) SetObserver(obs Observer) {
	a.observer = obs
}

// AddDocument merges one parsed document into the accumulation map.
// Safe for concurrent use; a single document must only be passed once and
// by one goroutine, which is what preserves in-file reference order.
func (a *Accumulator) AddDocument(doc *semanticdb.TextDocument) {
	a.files.add(doc.URI)

	for _, occ := range doc.Occurrences {
		// Local symbols cannot be referenced outside their defining file
		// and are never indexed.
		if !types.IsGlobalSymbol(occ.Symbol) {
			continue
		}

		slot := a.slotFor(occ.Symbol)
		slot.mu.Lock()
		switch occ.Role {
		case semanticdb.RoleDefinition:
			// First writer wins. Cross-platform variants of the same
			// logical symbol may both claim the definition; later claims
			// are dropped without diagnostic.
			if slot.definition == nil {
				slot.definition = &types.Position{
					Filename:       doc.URI,
					StartLine:      occ.Range.StartLine,
					StartCharacter: occ.Range.StartCharacter,
					EndLine:        occ.Range.EndLine,
					EndCharacter:   occ.Range.EndCharacter,
				}
			}
		case semanticdb.RoleReference:
			if slot.references == nil {
				slot.references = make(map[string][]types.Range)
			}
			slot.references[doc.URI] = append(slot.references[doc.URI], types.Range{
				StartLine:      occ.Range.StartLine,
				StartCharacter: occ.Range.StartCharacter,
				EndLine:        occ.Range.EndLine,
				EndCharacter:   occ.Range.EndCharacter,
			})
		}
		slot.mu.Unlock()
	}

	if a.observer != nil {
		a.observer.DocumentIndexed(doc.URI)
	}
}

// slotFor returns the slot for a symbol, creating it exactly once.
func (a *Accumulator) slotFor(symbol string) *symbolSlot {
	shard := &a.shards[xxhash.Sum64String(symbol)&(numShards-1)]

	shard.mu.RLock()
	slot, ok := shard.slots[symbol]
	shard.mu.RUnlock()
	if ok {
		return slot
	}

	shard.mu.Lock()
	defer shard.mu.Unlock()
	// Re-check under the write lock; another worker may have raced us here.
	if slot, ok := shard.slots[symbol]; ok {
		return slot
	}
	slot = &symbolSlot{}
	shard.slots[symbol] = slot
	return slot
}

// lookup returns the slot for symbol, or nil. Only valid once accumulation
// has finished (reconciliation phase); it takes no slot lock.
func (a *Accumulator) lookup(symbol string) *symbolSlot {
	shard := &a.shards[xxhash.Sum64String(symbol)&(numShards-1)]
	shard.mu.RLock()
	defer shard.mu.RUnlock()
	return shard.slots[symbol]
}

// SymbolCount returns the number of distinct global symbols observed.
func (a *Accumulator) SymbolCount() int {
	n := 0
	for i := range a.shards {
		shard := &a.shards[i]
		shard.mu.RLock()
		n += len(shard.slots)
		shard.mu.RUnlock()
	}
	return n
}

// Filenames returns all distinct source filenames encountered, in
// unspecified order.
func (a *Accumulator) Filenames() []string {
	return a.files.snapshot()
}

// filenameSet is a concurrent set of source filenames. It backs the
// workspace manifest; insertion order is not preserved.
type filenameSet struct {
	mu    sync.Mutex
	names map[string]struct{}
}

func (fs *filenameSet) add(name string) {
	if name == "" {
		return
	}
	fs.mu.Lock()
	fs.names[name] = struct{}{}
	fs.mu.Unlock()
}

func (fs *filenameSet) snapshot() []string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	names := make([]string, 0, len(fs.names))
	for name := range fs.names {
		names = append(names, name)
	}
	return names
}
