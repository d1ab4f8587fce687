package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"

	openai "github.com/sashabaranov/go-openai"

	"askerfotball-ai/internal/answerer"
	"askerfotball-ai/internal/config"
	"askerfotball-ai/internal/handlers"
	"askerfotball-ai/internal/http"
	"askerfotball-ai/internal/indexer"
	"askerfotball-ai/internal/indexstore"
	"askerfotball-ai/internal/kb"
	"askerfotball-ai/internal/retriever"
	"askerfotball-ai/internal/vectorizer"
	"askerfotball-ai/internal/vectorstore"
)

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	// Initialize database
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
	slog.Info("Database initialized", "path", cfg.DBPath)

	store := indexstore.NewStore(db)

	// Vectorizer and answer generator, chosen by mode
	var (
		vec       vectorizer.Vectorizer
		generator answerer.Generator
	)
	if cfg.UseOpenAI {
		client := openai.NewClient(cfg.OpenAIAPIKey)
		vec = vectorizer.NewOpenAI(client, cfg.EmbedModel)
		generator = answerer.NewOpenAIGenerator(client, cfg.ChatModel)
	} else {
		vec = vectorizer.NewTFIDF()
	}
	slog.Info("Vectorizer configured", "mode", cfg.Mode())

	// Optional Qdrant mirror for similarity search
	var mirror vectorstore.VectorStore
	if cfg.QdrantURL != "" {
		qdrantStore, err := vectorstore.NewQdrantStore(cfg.QdrantURL)
		if err != nil {
			log.Fatalf("Failed to create Qdrant client: %v", err)
		}
		mirror = qdrantStore
		slog.Info("Qdrant mirror configured", "url", cfg.QdrantURL, "collection", cfg.QdrantCollection)
	}

	chunker, err := indexer.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		log.Fatalf("Failed to create chunker: %v", err)
	}

	// Create indexing pipeline
	loader := kb.NewLoader(cfg.KBDir)
	pipeline := indexer.NewPipeline(loader, vec, store, mirror, cfg.QdrantCollection, chunker)

	// Create answerer
	ret := retriever.New(float64(cfg.RerankBonus), float64(cfg.MinScore))
	var answerOpts []answerer.Option
	if generator != nil {
		answerOpts = append(answerOpts, answerer.WithGenerator(generator))
	}
	if cfg.UseOpenAI {
		answerOpts = append(answerOpts, answerer.WithEmbedder(vec))
	}
	if mirror != nil {
		answerOpts = append(answerOpts, answerer.WithVectorMirror(mirror, cfg.QdrantCollection))
	}
	ans := answerer.New(cfg.Mode(), ret, cfg.TopK, answerOpts...)

	// Load the persisted index, or build it from the knowledge base on
	// first start. A persisted index built in the other vectorizer mode
	// is stale by definition and gets rebuilt.
	ctx := context.Background()
	bundle, err := store.Load(ctx)
	switch {
	case errors.Is(err, indexstore.ErrIndexNotFound):
		slog.Info("No persisted index found, building from knowledge base", "kb_dir", cfg.KBDir)
		bundle, _, err = pipeline.Rebuild(ctx)
	case err == nil && bundle.Mode != cfg.Mode():
		slog.Info("Persisted index was built in a different mode, rebuilding",
			"index_mode", bundle.Mode, "mode", cfg.Mode())
		bundle, _, err = pipeline.Rebuild(ctx)
	}
	if err != nil {
		log.Fatalf("Failed to prepare index: %v", err)
	}
	if err := ans.SetBundle(bundle); err != nil {
		log.Fatalf("Failed to activate index: %v", err)
	}
	slog.Info("Index ready", "mode", bundle.Mode, "chunks", len(bundle.Chunks), "dimension", bundle.Dimension)

	if mirror != nil {
		if err := mirror.EnsureCollection(ctx, cfg.QdrantCollection, bundle.Dimension); err != nil {
			slog.Warn("Qdrant collection unavailable, falling back to local search", "error", err)
		}
	}

	// Create router with dependencies
	deps := &http.Deps{
		Ask:     handlers.NewAskHandler(ans),
		Health:  handlers.NewHealthHandler(db, ans, mirror, cfg.QdrantCollection),
		Reindex: handlers.NewReindexHandler(pipeline, ans),
	}
	router := http.NewRouter(deps)

	// Start API server
	addr := ":" + cfg.APIPort
	slog.Info("Starting API server", "addr", addr)
	if err := nethttp.ListenAndServe(addr, router); err != nil {
		log.Fatalf("API server failed to start: %v", err)
	}
}
