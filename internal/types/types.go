// Package types defines the data model shared across the indexing pipeline:
// symbols, source positions, reference ranges, and the persisted index
// records. All types here are plain values with no synchronization; the
// concurrent structures that aggregate them live in internal/indexing.
package types

import "strings"

// Symbol namespace terminators. A symbol ending in one of these is global
// (referenceable from other files); everything else is local to its
// defining file and is excluded from the index.
const (
	// TermTerminator marks term-namespace symbols (values, methods, packages).
	TermTerminator = '.'

	// TypeTerminator marks type-namespace symbols (classes, traits, types).
	TypeTerminator = '#'
)

// IsGlobalSymbol reports whether sym can be referenced outside its defining
// file. Local symbols (synthetics, locals, parameters) carry no terminator
// and are never indexed.
func IsGlobalSymbol(sym string) bool {
	if sym == "" {
		return false
	}
	last := sym[len(sym)-1]
	return last == TermTerminator || last == TypeTerminator
}

// IsTermSymbol reports whether sym lives in the term namespace.
func IsTermSymbol(sym string) bool {
	return sym != "" && sym[len(sym)-1] == TermTerminator
}

// IsTypeSymbol reports whether sym lives in the type namespace.
func IsTypeSymbol(sym string) bool {
	return sym != "" && sym[len(sym)-1] == TypeTerminator
}

// SiblingTerm returns the term-namespace counterpart of a type symbol
// (same owner, same name). Returns "" if sym is not a type symbol.
func SiblingTerm(sym string) string {
	if !IsTypeSymbol(sym) {
		return ""
	}
	return sym[:len(sym)-1] + string(TermTerminator)
}

// SiblingType returns the type-namespace counterpart of a term symbol.
// Returns "" if sym is not a term symbol, or if it is a method symbol
// (methods end in "()." and have no type sibling). The indexer itself
// only walks the other direction (SiblingTerm); this is the lookup a
// consumer needs to go from a term symbol to its canonical record, since
// reconciliation files a consumed term's references under the type entry.
func SiblingType(sym string) string {
	if !IsTermSymbol(sym) || strings.HasSuffix(sym, "().") {
		return ""
	}
	return sym[:len(sym)-1] + string(TypeTerminator)
}

// Range is a location inside a source file without symbol context,
// expressed in zero-based line/character coordinates. Used for references.
type Range struct {
	StartLine      int32
	StartCharacter int32
	EndLine        int32
	EndCharacter   int32
}

// Position is a located definition: the owning filename plus the range the
// definition occupies. At most one Position is ever recorded per symbol.
type Position struct {
	Filename       string
	StartLine      int32
	StartCharacter int32
	EndLine        int32
	EndCharacter   int32
}

// Range returns just the location part of the position.
func (p Position) Range() Range {
	return Range{
		StartLine:      p.StartLine,
		StartCharacter: p.StartCharacter,
		EndLine:        p.EndLine,
		EndCharacter:   p.EndCharacter,
	}
}

// SymbolIndex is the unit of persisted output: one browsable entry per
// global symbol. References are grouped by source filename; within one
// filename the ranges preserve the order the occurrences were emitted by
// that file's document.
type SymbolIndex struct {
	Symbol     string
	Definition *Position
	References map[string][]Range
}

// Workspace is the manifest of all distinct source filenames the indexer
// encountered. Order is unspecified; it is built from a concurrent set.
type Workspace struct {
	Filenames []string
}
