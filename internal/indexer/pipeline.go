package indexer

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"askerfotball-ai/internal/contextutil"
	"askerfotball-ai/internal/indexstore"
	"askerfotball-ai/internal/kb"
	"askerfotball-ai/internal/vectorizer"
	"askerfotball-ai/internal/vectorstore"
)

// Pipeline rebuilds the retrieval index from the knowledge base: load
// documents, chunk, classify, vectorize, and persist the bundle. The
// SQLite bundle is the source of truth; when a vector store mirror is
// configured the vectors are additionally upserted there.
type Pipeline struct {
	loader     *kb.Loader
	vec        vectorizer.Vectorizer
	store      *indexstore.Store
	mirror     vectorstore.VectorStore
	collection string
	chunker    *Chunker
}

// NewPipeline creates an indexing pipeline. Mirror may be nil.
func NewPipeline(loader *kb.Loader, vec vectorizer.Vectorizer, store *indexstore.Store, mirror vectorstore.VectorStore, collection string, chunker *Chunker) *Pipeline {
	return &Pipeline{
		loader:     loader,
		vec:        vec,
		store:      store,
		mirror:     mirror,
		collection: collection,
		chunker:    chunker,
	}
}

// Rebuild builds a fresh bundle from the knowledge base and replaces
// the persisted one atomically. An empty knowledge base produces an
// empty but valid bundle.
func (p *Pipeline) Rebuild(ctx context.Context) (*indexstore.Bundle, *BuildStats, error) {
	logger := contextutil.LoggerFromContext(ctx)
	start := time.Now()

	docs, err := p.loader.Load(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load knowledge base: %w", err)
	}

	var chunks []indexstore.ChunkRecord
	var texts []string
	for _, doc := range docs {
		docType := Classify(filepath.Base(doc.Path), doc.Text)
		for i, text := range p.chunker.Split(doc.Text) {
			chunks = append(chunks, indexstore.ChunkRecord{
				ID:         fmt.Sprintf("%s#%d", doc.Path, i),
				Source:     doc.Path,
				Title:      doc.Title,
				ChunkIndex: i,
				DocType:    docType,
				Text:       text,
			})
			texts = append(texts, text)
		}
	}

	if err := p.vec.Fit(ctx, texts); err != nil {
		return nil, nil, fmt.Errorf("failed to fit vectorizer: %w", err)
	}
	vectors, err := p.vec.Transform(ctx, texts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to vectorize corpus: %w", err)
	}
	state, err := p.vec.State()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to serialize vectorizer state: %w", err)
	}

	bundle := &indexstore.Bundle{
		Mode:       p.vec.Mode(),
		Dimension:  p.vec.Dimension(),
		ModelState: state,
		BuiltAt:    time.Now().UTC(),
		Chunks:     chunks,
		Vectors:    vectors,
	}

	if err := p.store.Build(ctx, bundle); err != nil {
		return nil, nil, fmt.Errorf("failed to persist index: %w", err)
	}

	if p.mirror != nil {
		if err := p.mirrorBundle(ctx, bundle); err != nil {
			// The mirror is a read replica; the persisted bundle stays valid.
			logger.WarnContext(ctx, "failed to mirror index to vector store", "error", err)
		}
	}

	stats := &BuildStats{
		Documents: len(docs),
		Chunks:    len(chunks),
		Mode:      bundle.Mode,
		Dimension: bundle.Dimension,
		Duration:  time.Since(start),
	}
	logger.InfoContext(ctx, "index rebuild completed",
		"documents", stats.Documents, "chunks", stats.Chunks, "mode", stats.Mode, "dimension", stats.Dimension, "duration", stats.Duration)
	return bundle, stats, nil
}

// mirrorBundle upserts the bundle's vectors into the external vector store.
// The collection is (re)created on demand because the vector dimension is
// only known after fitting.
func (p *Pipeline) mirrorBundle(ctx context.Context, bundle *indexstore.Bundle) error {
	if err := p.mirror.EnsureCollection(ctx, p.collection, bundle.Dimension); err != nil {
		return err
	}
	points := make([]vectorstore.Point, len(bundle.Chunks))
	for i, c := range bundle.Chunks {
		points[i] = vectorstore.Point{
			ID:  c.ID,
			Vec: bundle.Vectors[i],
			Meta: map[string]any{
				"source":      c.Source,
				"title":       c.Title,
				"chunk_index": c.ChunkIndex,
				"doc_type":    c.DocType,
			},
		}
	}
	return p.mirror.Upsert(ctx, p.collection, points)
}
