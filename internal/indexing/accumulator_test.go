package indexing

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semview/semview/internal/semanticdb"
	"github.com/semview/semview/internal/types"
)

func defOccurrence(symbol string, line int32) semanticdb.SymbolOccurrence {
	return semanticdb.SymbolOccurrence{
		Range:  semanticdb.Range{StartLine: line, EndLine: line, EndCharacter: 3},
		Symbol: symbol,
		Role:   semanticdb.RoleDefinition,
	}
}

func refOccurrence(symbol string, line int32) semanticdb.SymbolOccurrence {
	return semanticdb.SymbolOccurrence{
		Range:  semanticdb.Range{StartLine: line, EndLine: line, EndCharacter: 3},
		Symbol: symbol,
		Role:   semanticdb.RoleReference,
	}
}

func TestAccumulatorDiscardsLocalSymbols(t *testing.T) {
	acc := NewAccumulator()
	acc.AddDocument(&semanticdb.TextDocument{
		URI: "A.scala",
		Occurrences: []semanticdb.SymbolOccurrence{
			defOccurrence("local0", 1),
			refOccurrence("local1", 2),
			defOccurrence("pkg/Foo#", 3),
		},
	})

	assert.Equal(t, 1, acc.SymbolCount())
	assert.Nil(t, acc.lookup("local0"))
	assert.Nil(t, acc.lookup("local1"))
	assert.NotNil(t, acc.lookup("pkg/Foo#"))
}

func TestAccumulatorFirstDefinitionWins(t *testing.T) {
	acc := NewAccumulator()
	// Deterministic single-threaded replay: the JVM variant arrives first,
	// the JS variant's competing definition is silently dropped.
	acc.AddDocument(&semanticdb.TextDocument{
		URI:         "jvm/Foo.scala",
		Occurrences: []semanticdb.SymbolOccurrence{defOccurrence("pkg/Foo#", 1)},
	})
	acc.AddDocument(&semanticdb.TextDocument{
		URI:         "js/Foo.scala",
		Occurrences: []semanticdb.SymbolOccurrence{defOccurrence("pkg/Foo#", 7)},
	})

	slot := acc.lookup("pkg/Foo#")
	require.NotNil(t, slot)
	require.NotNil(t, slot.definition)
	assert.Equal(t, "jvm/Foo.scala", slot.definition.Filename)
	assert.Equal(t, int32(1), slot.definition.StartLine)
}

func TestAccumulatorPreservesInFileReferenceOrder(t *testing.T) {
	acc := NewAccumulator()
	const n = 100

	occurrences := make([]semanticdb.SymbolOccurrence, 0, n)
	for i := int32(0); i < n; i++ {
		occurrences = append(occurrences, refOccurrence("pkg/Foo#", i))
	}
	acc.AddDocument(&semanticdb.TextDocument{URI: "A.scala", Occurrences: occurrences})

	slot := acc.lookup("pkg/Foo#")
	require.NotNil(t, slot)
	refs := slot.references["A.scala"]
	require.Len(t, refs, n)
	for i, r := range refs {
		assert.Equal(t, int32(i), r.StartLine, "reference %d out of order", i)
	}
}

func TestAccumulatorDefinitionDoesNotCreateReferenceEntry(t *testing.T) {
	acc := NewAccumulator()
	acc.AddDocument(&semanticdb.TextDocument{
		URI:         "A.scala",
		Occurrences: []semanticdb.SymbolOccurrence{defOccurrence("pkg/Foo#", 1)},
	})

	slot := acc.lookup("pkg/Foo#")
	require.NotNil(t, slot)
	assert.Empty(t, slot.references["A.scala"])
}

// TestAccumulatorConcurrentSameSymbol hammers one symbol from many workers
// and verifies no reference update is lost and per-file order survives.
func TestAccumulatorConcurrentSameSymbol(t *testing.T) {
	acc := NewAccumulator()
	const workers = 16
	const refsPerWorker = 200

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			uri := fmt.Sprintf("File%d.scala", worker)
			occurrences := make([]semanticdb.SymbolOccurrence, 0, refsPerWorker+1)
			occurrences = append(occurrences, defOccurrence("pkg/Hot#", int32(worker)))
			for i := int32(0); i < refsPerWorker; i++ {
				occurrences = append(occurrences, refOccurrence("pkg/Hot#", i))
			}
			acc.AddDocument(&semanticdb.TextDocument{URI: uri, Occurrences: occurrences})
		}(w)
	}
	wg.Wait()

	slot := acc.lookup("pkg/Hot#")
	require.NotNil(t, slot)

	// Exactly one definition survived, from one of the racing workers.
	require.NotNil(t, slot.definition)
	assert.Less(t, slot.definition.StartLine, int32(workers))

	require.Len(t, slot.references, workers)
	for w := 0; w < workers; w++ {
		uri := fmt.Sprintf("File%d.scala", w)
		refs := slot.references[uri]
		require.Len(t, refs, refsPerWorker, "lost references for %s", uri)
		for i, r := range refs {
			require.Equal(t, int32(i), r.StartLine, "order violated for %s at %d", uri, i)
		}
	}
}

// TestAccumulatorConcurrentDistinctSymbols verifies get-or-create races
// resolve to a single slot per symbol.
func TestAccumulatorConcurrentDistinctSymbols(t *testing.T) {
	acc := NewAccumulator()
	const workers = 8
	const symbols = 500

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			uri := fmt.Sprintf("File%d.scala", worker)
			for s := 0; s < symbols; s++ {
				acc.AddDocument(&semanticdb.TextDocument{
					URI: uri,
					Occurrences: []semanticdb.SymbolOccurrence{
						refOccurrence(fmt.Sprintf("pkg/Sym%d#", s), int32(worker)),
					},
				})
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, symbols, acc.SymbolCount())
	for s := 0; s < symbols; s++ {
		slot := acc.lookup(fmt.Sprintf("pkg/Sym%d#", s))
		require.NotNil(t, slot)
		total := 0
		for _, refs := range slot.references {
			total += len(refs)
		}
		require.Equal(t, workers, total)
	}
}

func TestAccumulatorFilenames(t *testing.T) {
	acc := NewAccumulator()
	acc.AddDocument(&semanticdb.TextDocument{URI: "A.scala"})
	acc.AddDocument(&semanticdb.TextDocument{URI: "B.scala"})
	acc.AddDocument(&semanticdb.TextDocument{URI: "A.scala"})
	acc.AddDocument(&semanticdb.TextDocument{URI: ""})

	assert.ElementsMatch(t, []string{"A.scala", "B.scala"}, acc.Filenames())
}

func TestAccumulatorObserverTicks(t *testing.T) {
	acc := NewAccumulator()
	tracker := NewProgressTracker()
	acc.SetObserver(tracker)

	acc.AddDocument(&semanticdb.TextDocument{URI: "A.scala"})
	acc.AddDocument(&semanticdb.TextDocument{URI: "B.scala"})

	progress := tracker.GetProgress()
	assert.Equal(t, 2, progress.DocumentsMerged)
	assert.Equal(t, "B.scala", progress.CurrentFile)
}

func TestAccumulatorReferencePositions(t *testing.T) {
	acc := NewAccumulator()
	acc.AddDocument(&semanticdb.TextDocument{
		URI: "B.scala",
		Occurrences: []semanticdb.SymbolOccurrence{
			{
				Range:  semanticdb.Range{StartLine: 5, StartCharacter: 2, EndLine: 5, EndCharacter: 5},
				Symbol: "pkg/Foo#",
				Role:   semanticdb.RoleReference,
			},
		},
	})

	slot := acc.lookup("pkg/Foo#")
	require.NotNil(t, slot)
	assert.Equal(t, []types.Range{{StartLine: 5, StartCharacter: 2, EndLine: 5, EndCharacter: 5}},
		slot.references["B.scala"])
}
