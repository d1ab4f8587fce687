package retriever

import (
	"errors"
	"math"
	"testing"

	"askerfotball-ai/internal/indexstore"
)

func bundleWith(vectors [][]float32, docTypes ...string) *indexstore.Bundle {
	b := &indexstore.Bundle{Mode: "tfidf", Dimension: len(vectors[0])}
	for i, v := range vectors {
		dt := "annet"
		if i < len(docTypes) {
			dt = docTypes[i]
		}
		b.Chunks = append(b.Chunks, indexstore.ChunkRecord{
			ID:         "doc.md#" + string(rune('0'+i)),
			Source:     "doc.md",
			ChunkIndex: i,
			DocType:    dt,
			Text:       "tekst",
		})
		b.Vectors = append(b.Vectors, v)
	}
	return b
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"zero left", []float32{0, 0}, []float32{1, 1}, 0},
		{"zero right", []float32{1, 1}, []float32{0, 0}, 0},
		{"both zero", []float32{0, 0}, []float32{0, 0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cosine(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("cosine(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
			if sym := cosine(tt.b, tt.a); math.Abs(got-sym) > 1e-12 {
				t.Errorf("cosine is not symmetric: %v vs %v", got, sym)
			}
		})
	}
}

func TestRetriever_Search(t *testing.T) {
	r := New(0.15, 0.15)
	b := bundleWith([][]float32{
		{1, 0},
		{0, 1},
		{0.6, 0.8},
	})

	results, err := r.Search(b, []float32{1, 0}, 2)
	if err != nil {
		t.Fatalf("Search() unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Search() returned %d results, want 2", len(results))
	}
	if results[0].Chunk.ChunkIndex != 0 {
		t.Errorf("top result is chunk %d, want 0 (exact match)", results[0].Chunk.ChunkIndex)
	}
	if math.Abs(results[0].Similarity-1) > 1e-6 {
		t.Errorf("top similarity = %v, want 1", results[0].Similarity)
	}
	if results[1].Chunk.ChunkIndex != 2 {
		t.Errorf("second result is chunk %d, want 2", results[1].Chunk.ChunkIndex)
	}
}

func TestRetriever_Search_TopKLargerThanCorpus(t *testing.T) {
	r := New(0.15, 0.15)
	b := bundleWith([][]float32{{1, 0}, {0, 1}})

	results, err := r.Search(b, []float32{1, 0}, 50)
	if err != nil {
		t.Fatalf("Search() unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("Search() returned %d results, want all 2", len(results))
	}
}

func TestRetriever_Search_EmptyIndex(t *testing.T) {
	r := New(0.15, 0.15)
	b := &indexstore.Bundle{Mode: "tfidf", Dimension: 0}

	results, err := r.Search(b, nil, 5)
	if err != nil {
		t.Fatalf("Search() on empty index unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Search() on empty index returned %d results, want 0", len(results))
	}
}

func TestRetriever_Search_InvalidTopK(t *testing.T) {
	r := New(0.15, 0.15)
	b := bundleWith([][]float32{{1, 0}})

	if _, err := r.Search(b, []float32{1, 0}, 0); err == nil {
		t.Error("Search() with topK=0 should fail")
	}
	if _, err := r.Search(b, []float32{1, 0}, -3); err == nil {
		t.Error("Search() with negative topK should fail")
	}
}

func TestRetriever_Search_DimensionMismatch(t *testing.T) {
	r := New(0.15, 0.15)
	b := bundleWith([][]float32{{1, 0}})

	_, err := r.Search(b, []float32{1, 0, 0}, 5)
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Search() with mismatched query dimension = %v, want ErrDimensionMismatch", err)
	}
}

func TestRetriever_Search_Deterministic(t *testing.T) {
	r := New(0.15, 0.15)
	// Two chunks with identical vectors tie; stable sort must keep
	// original chunk order across calls.
	b := bundleWith([][]float32{{1, 0}, {1, 0}, {0, 1}})

	for i := 0; i < 5; i++ {
		results, err := r.Search(b, []float32{1, 0}, 3)
		if err != nil {
			t.Fatalf("Search() unexpected error: %v", err)
		}
		if results[0].Chunk.ChunkIndex != 0 || results[1].Chunk.ChunkIndex != 1 {
			t.Fatalf("tie broken inconsistently: got order %d, %d", results[0].Chunk.ChunkIndex, results[1].Chunk.ChunkIndex)
		}
	}
}

func TestRetriever_Rerank_DocTypeBonusFlipsOrder(t *testing.T) {
	// The unrelated chunk leads on raw similarity (0.60 vs 0.50), but
	// the 0.15 doc-type bonus exceeds the 0.10 gap and flips the order.
	r := New(0.15, 0.15)
	results := []Result{
		{Chunk: indexstore.ChunkRecord{ID: "a", DocType: "annet", Text: "treningstider for barn"}, Similarity: 0.60, Score: 0.60},
		{Chunk: indexstore.ChunkRecord{ID: "b", DocType: "billett", Text: "billetter koster 150 kroner"}, Similarity: 0.50, Score: 0.50},
	}

	reranked := r.Rerank(results, []string{"billett"}, nil, 2)
	if len(reranked) != 2 {
		t.Fatalf("Rerank() returned %d results, want 2", len(reranked))
	}
	if reranked[0].Chunk.ID != "b" {
		t.Errorf("top result = %q, want the ticketing chunk boosted above the raw leader", reranked[0].Chunk.ID)
	}
	if math.Abs(reranked[0].Score-0.65) > 1e-9 {
		t.Errorf("boosted score = %v, want 0.65", reranked[0].Score)
	}
}

func TestRetriever_Rerank_BonusSmallerThanGapKeepsOrder(t *testing.T) {
	// Same setup but the gap (0.20) exceeds the bonus (0.15): order holds.
	r := New(0.15, 0.15)
	results := []Result{
		{Chunk: indexstore.ChunkRecord{ID: "a", DocType: "annet", Text: "treningstider for barn"}, Similarity: 0.70, Score: 0.70},
		{Chunk: indexstore.ChunkRecord{ID: "b", DocType: "billett", Text: "billetter koster 150 kroner"}, Similarity: 0.50, Score: 0.50},
	}

	reranked := r.Rerank(results, []string{"billett"}, nil, 2)
	if reranked[0].Chunk.ID != "a" {
		t.Errorf("top result = %q, want the raw leader to stay on top", reranked[0].Chunk.ID)
	}
}

func TestRetriever_Rerank_TermMatchBonusIsCapped(t *testing.T) {
	r := New(0.15, 0.0)
	res := []Result{{
		Chunk:      indexstore.ChunkRecord{DocType: "annet", Text: "billett pris inngang sesongkort adgang kostnad kamp"},
		Similarity: 0.2,
		Score:      0.2,
	}}
	terms := []string{"billett", "pris", "inngang", "sesongkort", "adgang", "kostnad", "kamp"}

	reranked := r.Rerank(res, nil, terms, 1)
	if len(reranked) != 1 {
		t.Fatalf("Rerank() returned %d results, want 1", len(reranked))
	}
	// 7 matches at 0.02 each would be 0.14; the cap holds it at 0.10.
	if math.Abs(reranked[0].Bonus-0.10) > 1e-9 {
		t.Errorf("Bonus = %v, want capped at 0.10", reranked[0].Bonus)
	}
}

func TestRetriever_Rerank_FiltersBelowMinScore(t *testing.T) {
	r := New(0.15, 0.15)
	results := []Result{
		{Chunk: indexstore.ChunkRecord{ID: "a", DocType: "annet", Text: "x"}, Similarity: 0.05, Score: 0.05},
		{Chunk: indexstore.ChunkRecord{ID: "b", DocType: "annet", Text: "y"}, Similarity: 0.30, Score: 0.30},
	}

	reranked := r.Rerank(results, nil, nil, 5)
	if len(reranked) != 1 || reranked[0].Chunk.ID != "b" {
		t.Errorf("Rerank() = %v, want only the chunk above the score floor", reranked)
	}

	none := r.Rerank(results[:1], nil, nil, 5)
	if len(none) != 0 {
		t.Errorf("Rerank() with nothing above the floor returned %d results, want 0", len(none))
	}
}

func TestRetriever_Rerank_DoesNotMutateInput(t *testing.T) {
	r := New(0.15, 0.0)
	results := []Result{
		{Chunk: indexstore.ChunkRecord{ID: "a", DocType: "billett", Text: "billetter"}, Similarity: 0.5, Score: 0.5},
	}
	_ = r.Rerank(results, []string{"billett"}, []string{"billetter"}, 1)
	if results[0].Bonus != 0 || results[0].Score != 0.5 {
		t.Errorf("Rerank() mutated its input: %+v", results[0])
	}
}
