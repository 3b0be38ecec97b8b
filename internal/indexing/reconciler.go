package indexing

import (
	"github.com/semview/semview/internal/debug"
	"github.com/semview/semview/internal/types"
)

// Reconcile resolves term/type namespace siblings and produces the final
// publishable entries. It must run strictly after every document has been
// merged: it reads the accumulation map without slot locking and mutates
// nothing inside it.
//
// Certain declarations are modeled as a pair of symbols sharing one name: a
// term-namespace entry (the singleton value) and a type-namespace entry
// (its generated type counterpart). The toolchain may emit the definition
// on one half and some references on the other. The type-side entry is the
// canonical published record: a type entry holding a definition absorbs the
// references of a definition-less term sibling, and that sibling is never
// published on its own. Entries that still lack a definition afterwards are
// dropped; a symbol that is only ever referenced is not a browsable entity,
// though its references survive on whichever entry claimed the definition.
func (a *Accumulator) Reconcile() []*types.SymbolIndex {
	// Term siblings whose references were grafted onto their type entry.
	consumed := make(map[string]struct{})
	grafted := 0

	for i := range a.shards {
		for symbol, slot := range a.shards[i].slots {
			if !types.IsTypeSymbol(symbol) || slot.definition == nil {
				continue
			}
			sibling := types.SiblingTerm(symbol)
			sibSlot := a.lookup(sibling)
			if sibSlot == nil || sibSlot.definition != nil {
				continue
			}
			consumed[sibling] = struct{}{}
			grafted++
		}
	}

	published := make([]*types.SymbolIndex, 0, a.SymbolCount())
	dropped := 0

	for i := range a.shards {
		for symbol, slot := range a.shards[i].slots {
			if _, ok := consumed[symbol]; ok {
				continue
			}
			if slot.definition == nil {
				dropped++
				continue
			}

			entry := &types.SymbolIndex{
				Symbol:     symbol,
				Definition: slot.definition,
				References: copyReferences(slot.references),
			}

			if types.IsTypeSymbol(symbol) {
				sibling := types.SiblingTerm(symbol)
				if _, ok := consumed[sibling]; ok {
					mergeReferences(entry, a.lookup(sibling).references)
				}
			}
			published = append(published, entry)
		}
	}

	debug.LogIndexing("Reconciled %d entries (%d sibling grafts, %d definition-less dropped)\n",
		len(published), grafted, dropped)
	return published
}

// copyReferences deep-copies a reference map so published entries never
// alias accumulator state.
func copyReferences(refs map[string][]types.Range) map[string][]types.Range {
	out := make(map[string][]types.Range, len(refs))
	for filename, ranges := range refs {
		out[filename] = append([]types.Range(nil), ranges...)
	}
	return out
}

// mergeReferences appends the sibling's per-file reference lists after the
// entry's own, keeping each file's internal order intact.
func mergeReferences(entry *types.SymbolIndex, refs map[string][]types.Range) {
	for filename, ranges := range refs {
		entry.References[filename] = append(entry.References[filename], ranges...)
	}
}
