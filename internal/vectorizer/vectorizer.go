package vectorizer

import (
	"context"
	"errors"
	"math"
)

// Vectorizer modes. An index bundle records the mode that produced it;
// query-time vectors must come from the same mode.
const (
	ModeTFIDF  = "tfidf"
	ModeOpenAI = "openai"
)

// ErrVectorization is returned (wrapped) when a remote embedding call
// fails or produces malformed output. Callers decide whether to retry
// or abort the build.
var ErrVectorization = errors.New("vectorization failed")

// ErrNotFitted is returned when Transform is called on a local model
// that has not been fitted and has no restored state.
var ErrNotFitted = errors.New("vectorizer not fitted")

// Vectorizer converts texts into numeric vectors. Local implementations
// require a Fit pass over the corpus; remote ones do not.
type Vectorizer interface {
	// Mode identifies the vector space ("tfidf" or "openai").
	Mode() string
	// Fit prepares the model from the full corpus at index-build time.
	Fit(ctx context.Context, corpus []string) error
	// Transform converts texts into L2-normalized vectors, one row per text.
	Transform(ctx context.Context, texts []string) ([][]float32, error)
	// Dimension is the width of produced vectors; 0 until known.
	Dimension() int
	// State serializes the fitted model so query-time transforms can
	// reuse it. Remote modes return nil.
	State() ([]byte, error)
}

// l2Normalize scales v to unit length in place. Zero vectors stay zero.
func l2Normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
}
