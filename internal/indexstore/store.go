package indexstore

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"askerfotball-ai/internal/contextutil"
)

// ErrIndexNotFound is returned by Load when no build has ever completed.
var ErrIndexNotFound = errors.New("index not found; run a rebuild first")

// Store persists index bundles in SQLite. Rebuild is the only mutation
// path: Build rewrites everything inside one transaction, so readers
// observe either the previous bundle or the new one, never a mix.
type Store struct {
	db *sql.DB
}

// NewStore creates a Store on an open database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Build atomically replaces the persisted bundle.
func (s *Store) Build(ctx context.Context, bundle *Bundle) error {
	logger := contextutil.LoggerFromContext(ctx)

	if len(bundle.Chunks) != len(bundle.Vectors) {
		return fmt.Errorf("chunk/vector count mismatch: %d chunks, %d vectors", len(bundle.Chunks), len(bundle.Vectors))
	}
	for i, vec := range bundle.Vectors {
		if len(vec) != bundle.Dimension {
			return fmt.Errorf("vector %d has %d dimensions, bundle declares %d", i, len(vec), bundle.Dimension)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks"); err != nil {
		return fmt.Errorf("failed to clear chunks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM index_meta"); err != nil {
		return fmt.Errorf("failed to clear index meta: %w", err)
	}

	builtAt := bundle.BuiltAt
	if builtAt.IsZero() {
		builtAt = time.Now().UTC()
	}
	_, err = tx.ExecContext(ctx,
		"INSERT INTO index_meta (id, mode, dimension, model_state, built_at) VALUES (1, ?, ?, ?, ?)",
		bundle.Mode, bundle.Dimension, bundle.ModelState, builtAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert index meta: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO chunks (pos, id, source, title, chunk_index, doc_type, text, vector) VALUES (?, ?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare chunk insert: %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	for i, c := range bundle.Chunks {
		_, err := stmt.ExecContext(ctx, i, c.ID, c.Source, c.Title, c.ChunkIndex, c.DocType, c.Text, encodeVector(bundle.Vectors[i]))
		if err != nil {
			return fmt.Errorf("failed to insert chunk %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit index build: %w", err)
	}

	logger.InfoContext(ctx, "index bundle persisted", "mode", bundle.Mode, "chunks", len(bundle.Chunks), "dimension", bundle.Dimension)
	return nil
}

// Load reads the full bundle. Returns ErrIndexNotFound when no build
// has been persisted.
func (s *Store) Load(ctx context.Context) (*Bundle, error) {
	bundle := &Bundle{}
	err := s.db.QueryRowContext(ctx,
		"SELECT mode, dimension, model_state, built_at FROM index_meta WHERE id = 1",
	).Scan(&bundle.Mode, &bundle.Dimension, &bundle.ModelState, &bundle.BuiltAt)
	if err == sql.ErrNoRows {
		return nil, ErrIndexNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read index meta: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, source, title, chunk_index, doc_type, text, vector FROM chunks ORDER BY pos")
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	for rows.Next() {
		var c ChunkRecord
		var blob []byte
		if err := rows.Scan(&c.ID, &c.Source, &c.Title, &c.ChunkIndex, &c.DocType, &c.Text, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		vec := decodeVector(blob)
		if len(vec) != bundle.Dimension {
			return nil, fmt.Errorf("chunk %s vector has %d dimensions, index declares %d", c.ID, len(vec), bundle.Dimension)
		}
		bundle.Chunks = append(bundle.Chunks, c)
		bundle.Vectors = append(bundle.Vectors, vec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return bundle, nil
}

// encodeVector packs a float32 vector as little-endian bytes.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return vec
}
