// Command reindex rebuilds the persisted search index from the knowledge
// base without starting the API server.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	openai "github.com/sashabaranov/go-openai"

	"askerfotball-ai/internal/config"
	"askerfotball-ai/internal/indexer"
	"askerfotball-ai/internal/indexstore"
	"askerfotball-ai/internal/kb"
	"askerfotball-ai/internal/vectorizer"
	"askerfotball-ai/internal/vectorstore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))

	db, err := indexstore.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := indexstore.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	var vec vectorizer.Vectorizer
	if cfg.UseOpenAI {
		vec = vectorizer.NewOpenAI(openai.NewClient(cfg.OpenAIAPIKey), cfg.EmbedModel)
	} else {
		vec = vectorizer.NewTFIDF()
	}

	var mirror vectorstore.VectorStore
	if cfg.QdrantURL != "" {
		qdrantStore, err := vectorstore.NewQdrantStore(cfg.QdrantURL)
		if err != nil {
			log.Fatalf("Failed to create Qdrant client: %v", err)
		}
		mirror = qdrantStore
	}

	chunker, err := indexer.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		log.Fatalf("Failed to create chunker: %v", err)
	}

	loader := kb.NewLoader(cfg.KBDir)
	pipeline := indexer.NewPipeline(loader, vec, indexstore.NewStore(db), mirror, cfg.QdrantCollection, chunker)

	_, stats, err := pipeline.Rebuild(context.Background())
	if err != nil {
		log.Fatalf("Failed to rebuild index: %v", err)
	}
	slog.Info("Reindex finished",
		"documents", stats.Documents,
		"chunks", stats.Chunks,
		"mode", stats.Mode,
		"dimension", stats.Dimension,
		"duration", stats.Duration)
}
