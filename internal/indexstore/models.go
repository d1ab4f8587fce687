package indexstore

import (
	"sync"
	"time"
)

// ChunkRecord is the persisted form of an indexed chunk.
type ChunkRecord struct {
	ID         string // Deterministic: "<source>#<chunk_index>"
	Source     string // Originating document path (relative to KB root)
	Title      string // Document title, shared across a document's chunks
	ChunkIndex int    // Ordinal position within the source document
	DocType    string // Heuristic document-type label ("annet" when nothing matched)
	Text       string // Chunk text content
}

// Bundle is the complete persisted index state: chunk metadata, the
// vector matrix (row i corresponds to Chunks[i]), and the vectorizer
// mode that produced it. Bundles are immutable once loaded and are
// replaced wholesale on rebuild.
type Bundle struct {
	Mode       string
	Dimension  int
	ModelState []byte // Serialized vectorizer state (tfidf only)
	BuiltAt    time.Time
	Chunks     []ChunkRecord
	Vectors    [][]float32

	byIDOnce sync.Once
	byID     map[string]int
}

// ChunkByID resolves a chunk by its identifier. Used when an external
// vector search returns point IDs instead of row indexes. Safe for
// concurrent use; the lookup map is built exactly once.
func (b *Bundle) ChunkByID(id string) (ChunkRecord, bool) {
	b.byIDOnce.Do(func() {
		b.byID = make(map[string]int, len(b.Chunks))
		for i, c := range b.Chunks {
			b.byID[c.ID] = i
		}
	})
	i, ok := b.byID[id]
	if !ok {
		return ChunkRecord{}, false
	}
	return b.Chunks[i], true
}
