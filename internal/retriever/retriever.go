package retriever

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"askerfotball-ai/internal/indexstore"
)

// ErrDimensionMismatch means the query vector and the index live in
// different vector spaces; comparing them would produce garbage scores.
var ErrDimensionMismatch = errors.New("query vector dimension does not match index")

// termMatchBonusCap limits how much matching query terms can add on
// top of the document-type bonus.
const (
	termMatchBonusCap  = 0.10
	termMatchBonusStep = 0.02
)

// Result is one scored chunk from a retrieval call.
type Result struct {
	Chunk      indexstore.ChunkRecord
	Similarity float64 // Raw cosine similarity
	Bonus      float64 // Doc-type and term-match bonus, set by Rerank
	Score      float64 // Similarity + Bonus
}

// Retriever ranks indexed chunks against a query vector and blends in
// heuristic bonuses. The bonus magnitude and score floor are tuning
// knobs, not algorithmic constants.
type Retriever struct {
	docTypeBonus float64
	minScore     float64
}

// New creates a retriever with the given doc-type bonus and minimum
// blended score.
func New(docTypeBonus, minScore float64) *Retriever {
	return &Retriever{docTypeBonus: docTypeBonus, minScore: minScore}
}

// MinScore is the floor applied by Rerank.
func (r *Retriever) MinScore() float64 { return r.minScore }

// Search scores every chunk in the bundle by cosine similarity against
// the query vector and returns the topK best, similarity-ordered. Ties
// keep the original chunk order so repeated identical queries return
// identical rankings. An empty index yields an empty result; topK
// larger than the corpus returns everything.
func (r *Retriever) Search(bundle *indexstore.Bundle, queryVec []float32, topK int) ([]Result, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("topK must be positive, got %d", topK)
	}
	if len(bundle.Chunks) == 0 {
		return []Result{}, nil
	}
	if len(queryVec) != bundle.Dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d", ErrDimensionMismatch, len(queryVec), bundle.Dimension)
	}

	results := make([]Result, len(bundle.Chunks))
	for i, c := range bundle.Chunks {
		sim := cosine(queryVec, bundle.Vectors[i])
		results[i] = Result{Chunk: c, Similarity: sim, Score: sim}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if topK < len(results) {
		results = results[:topK]
	}
	return results, nil
}

// Rerank blends heuristic bonuses into raw similarity results: a fixed
// bonus when the chunk's doc type is among the hinted types, plus a
// small capped bonus per query term appearing in the chunk text. The
// reranked list is filtered by the minimum score and truncated to k;
// an empty result means no chunk cleared the floor.
func (r *Retriever) Rerank(results []Result, hintDocTypes, terms []string, k int) []Result {
	hinted := make(map[string]struct{}, len(hintDocTypes))
	for _, dt := range hintDocTypes {
		hinted[dt] = struct{}{}
	}

	reranked := make([]Result, len(results))
	for i, res := range results {
		bonus := 0.0
		if _, ok := hinted[res.Chunk.DocType]; ok {
			bonus += r.docTypeBonus
		}
		text := strings.ToLower(res.Chunk.Text)
		matches := 0
		for _, t := range terms {
			if strings.Contains(text, t) {
				matches++
			}
		}
		bonus += math.Min(termMatchBonusCap, termMatchBonusStep*float64(matches))

		res.Bonus = bonus
		res.Score = res.Similarity + bonus
		reranked[i] = res
	}
	sort.SliceStable(reranked, func(i, j int) bool { return reranked[i].Score > reranked[j].Score })

	good := reranked[:0:0]
	for _, res := range reranked {
		if res.Score >= r.minScore {
			good = append(good, res)
		}
	}
	if len(good) > k {
		good = good[:k]
	}
	return good
}

// cosine computes cosine similarity, defined as 0 when either vector
// has zero magnitude.
func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
