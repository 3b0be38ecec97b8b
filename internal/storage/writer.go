package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"path"

	"github.com/semview/semview/internal/debug"
	"github.com/semview/semview/internal/semanticdb"
	"github.com/semview/semview/internal/types"
)

// Output layout inside a target.
const (
	// SymbolDir holds one record per published symbol, named by digest.
	SymbolDir = "symbol"

	// WorkspaceFilename is the manifest of all known source filenames.
	WorkspaceFilename = "index.workspace"

	// SemanticdbDir holds one-document-per-file metadata copies for
	// on-demand retrieval by the serving layer.
	SemanticdbDir = "semanticdb"
)

// SymbolFilename derives the filesystem-safe record name for a symbol: the
// fixed-width hex SHA-256 digest of the symbol string. Symbols can be
// arbitrarily long and contain path separators; the digest sidesteps
// path-length and collision issues, and is stable across runs and
// processes so the serving layer can compute it independently.
func SymbolFilename(symbol string) string {
	sum := sha256.Sum256([]byte(symbol))
	return hex.EncodeToString(sum[:])
}

// IndexWriter serializes reconciled entries into a Store. Writes for
// distinct symbols are independent; callers may invoke the methods from
// concurrent workers.
type IndexWriter struct {
	store Store
}

// NewIndexWriter creates a writer over an opened store.
func NewIndexWriter(store Store) *IndexWriter {
	return &IndexWriter{store: store}
}

// WriteSymbolIndex persists one definition-bearing entry.
func (w *IndexWriter) WriteSymbolIndex(entry *types.SymbolIndex) error {
	name := path.Join(SymbolDir, SymbolFilename(entry.Symbol))
	debug.LogWrite("Writing %s as %s\n", entry.Symbol, name)
	return w.store.WriteFile(name, entry.Marshal())
}

// WriteWorkspace persists the workspace manifest.
func (w *IndexWriter) WriteWorkspace(ws *types.Workspace) error {
	return w.store.WriteFile(WorkspaceFilename, ws.Marshal())
}

// WriteDocument persists one metadata document under its original relative
// path, wrapped back into a single-document container.
func (w *IndexWriter) WriteDocument(doc *semanticdb.TextDocument) error {
	name := path.Join(SemanticdbDir, SanitizePath(doc.URI)+semanticdb.BinarySuffix)
	container := &semanticdb.TextDocuments{Documents: []semanticdb.TextDocument{*doc}}
	return w.store.WriteFile(name, container.Marshal())
}
