// Package semanticdb models the per-compilation-unit semantic metadata
// format produced by the compiler toolchain, and decodes its two on-disk
// variants: protobuf-encoded (.semanticdb) and JSON-encoded
// (.semanticdb.json). The schema is owned by the toolchain; this package
// only reads the fields the indexer needs (document URIs and symbol
// occurrences) and tolerates unknown fields.
package semanticdb

import (
	"fmt"
	"strings"

	"github.com/semview/semview/internal/errors"
)

// Recognized metadata file suffixes.
const (
	BinarySuffix = ".semanticdb"
	JSONSuffix   = ".semanticdb.json"
)

// IsDocumentPath reports whether path names a semantic metadata file.
func IsDocumentPath(path string) bool {
	return strings.HasSuffix(path, BinarySuffix) || strings.HasSuffix(path, JSONSuffix)
}

// Role classifies a symbol occurrence.
type Role int32

const (
	RoleUnknown    Role = 0
	RoleReference  Role = 1
	RoleDefinition Role = 2
)

// String returns the wire name of the role.
func (r Role) String() string {
	switch r {
	case RoleReference:
		return "REFERENCE"
	case RoleDefinition:
		return "DEFINITION"
	default:
		return "UNKNOWN_ROLE"
	}
}

// Range is a zero-based line/character span inside the document's source file.
type Range struct {
	StartLine      int32 `json:"startLine"`
	StartCharacter int32 `json:"startCharacter"`
	EndLine        int32 `json:"endLine"`
	EndCharacter   int32 `json:"endCharacter"`
}

// SymbolOccurrence is one (range, symbol, role) triple found in a document.
type SymbolOccurrence struct {
	Range  Range  `json:"range"`
	Symbol string `json:"symbol"`
	Role   Role   `json:"role"`
}

// TextDocument holds the semantic metadata for one original source file.
type TextDocument struct {
	Schema      int32              `json:"schema,omitempty"`
	URI         string             `json:"uri"`
	Text        string             `json:"text,omitempty"`
	Occurrences []SymbolOccurrence `json:"occurrences"`
}

// TextDocuments is the top-level container stored in one metadata file.
// One file may carry several logical documents, though in practice the
// toolchain emits one document per file.
type TextDocuments struct {
	Documents []TextDocument `json:"documents"`
}

// Parse decodes one metadata file, dispatching on the file suffix.
// The JSON suffix is checked first because the binary suffix is a proper
// suffix of it. Unrecognized suffixes and malformed bytes both produce a
// DecodeError; callers log and skip the file.
func Parse(path string, data []byte) (*TextDocuments, error) {
	switch {
	case strings.HasSuffix(path, JSONSuffix):
		docs, err := UnmarshalJSON(data)
		if err != nil {
			return nil, errors.NewDecodeError(path, err)
		}
		return docs, nil
	case strings.HasSuffix(path, BinarySuffix):
		docs, err := Unmarshal(data)
		if err != nil {
			return nil, errors.NewDecodeError(path, err)
		}
		return docs, nil
	default:
		return nil, errors.NewDecodeError(path, fmt.Errorf("unrecognized metadata suffix"))
	}
}
