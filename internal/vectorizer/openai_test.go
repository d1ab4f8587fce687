package vectorizer

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

// newTestClient points a go-openai client at a stub server.
func newTestClient(t *testing.T, handler http.HandlerFunc) *openai.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"
	return openai.NewClientWithConfig(cfg)
}

func embeddingsResponse(vectors [][]float32) []byte {
	type datum struct {
		Object    string    `json:"object"`
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	}
	resp := struct {
		Object string  `json:"object"`
		Data   []datum `json:"data"`
		Model  string  `json:"model"`
	}{Object: "list", Model: "text-embedding-3-small"}
	for i, v := range vectors {
		resp.Data = append(resp.Data, datum{Object: "embedding", Embedding: v, Index: i})
	}
	out, _ := json.Marshal(resp)
	return out
}

func TestOpenAI_Transform(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(embeddingsResponse([][]float32{{3, 4}, {0, 2}}))
	})

	v := NewOpenAI(client, "text-embedding-3-small")
	rows, err := v.Transform(context.Background(), []string{"en", "to"})
	if err != nil {
		t.Fatalf("Transform() unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Transform() returned %d rows, want 2", len(rows))
	}
	if v.Dimension() != 2 {
		t.Errorf("Dimension() = %d, want 2", v.Dimension())
	}
	// {3,4} normalizes to {0.6, 0.8}.
	if math.Abs(float64(rows[0][0])-0.6) > 1e-6 || math.Abs(float64(rows[0][1])-0.8) > 1e-6 {
		t.Errorf("rows[0] = %v, want normalized {0.6, 0.8}", rows[0])
	}
}

func TestOpenAI_TransformServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"boom"}}`, http.StatusInternalServerError)
	})

	v := NewOpenAI(client, "text-embedding-3-small")
	if _, err := v.Transform(context.Background(), []string{"en"}); !errors.Is(err, ErrVectorization) {
		t.Errorf("Transform() on server error: got %v, want ErrVectorization", err)
	}
}

func TestOpenAI_TransformCountMismatch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(embeddingsResponse([][]float32{{1, 0}}))
	})

	v := NewOpenAI(client, "text-embedding-3-small")
	if _, err := v.Transform(context.Background(), []string{"en", "to"}); !errors.Is(err, ErrVectorization) {
		t.Errorf("Transform() on count mismatch: got %v, want ErrVectorization", err)
	}
}

func TestOpenAI_TransformDimensionDrift(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if calls == 0 {
			_, _ = w.Write(embeddingsResponse([][]float32{{1, 0}}))
		} else {
			_, _ = w.Write(embeddingsResponse([][]float32{{1, 0, 0}}))
		}
		calls++
	})

	v := NewOpenAI(client, "text-embedding-3-small")
	if _, err := v.Transform(context.Background(), []string{"en"}); err != nil {
		t.Fatalf("first Transform() unexpected error: %v", err)
	}
	if _, err := v.Transform(context.Background(), []string{"to"}); !errors.Is(err, ErrVectorization) {
		t.Errorf("Transform() on dimension drift: got %v, want ErrVectorization", err)
	}
}

func TestOpenAI_NoLocalState(t *testing.T) {
	v := NewOpenAI(nil, "text-embedding-3-small")
	if v.Mode() != ModeOpenAI {
		t.Errorf("Mode() = %q, want %q", v.Mode(), ModeOpenAI)
	}
	state, err := v.State()
	if err != nil || state != nil {
		t.Errorf("State() = (%v, %v), want (nil, nil)", state, err)
	}
	if err := v.Fit(context.Background(), []string{"x"}); err != nil {
		t.Errorf("Fit() should be a no-op, got %v", err)
	}
}

// One embedder instance serves both indexing and concurrent queries;
// the first calls may race to learn the dimension.
func TestOpenAI_TransformConcurrent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(embeddingsResponse([][]float32{{1, 0, 0}}))
	})
	v := NewOpenAI(client, "text-embedding-3-small")

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rows, err := v.Transform(context.Background(), []string{"billetter"})
			if err != nil {
				t.Errorf("Transform() unexpected error: %v", err)
				return
			}
			if len(rows) != 1 || len(rows[0]) != 3 {
				t.Errorf("Transform() returned unexpected shape %v", rows)
			}
		}()
	}
	wg.Wait()

	if v.Dimension() != 3 {
		t.Errorf("Dimension() = %d, want 3", v.Dimension())
	}
}
