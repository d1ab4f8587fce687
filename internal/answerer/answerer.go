package answerer

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"

	"askerfotball-ai/internal/contextutil"
	"askerfotball-ai/internal/expander"
	"askerfotball-ai/internal/indexstore"
	"askerfotball-ai/internal/retriever"
	"askerfotball-ai/internal/vectorizer"
	"askerfotball-ai/internal/vectorstore"
)

// ErrModeMismatch means the persisted index was built in a different
// vector space than the process is configured for. Querying across
// spaces would produce garbage scores, so this is a hard error.
var ErrModeMismatch = errors.New("index mode does not match configured vectorizer mode")

// NoAnswer is returned when retrieval finds nothing usable.
const NoAnswer = "Jeg vet ikke"

// extractiveLimit caps the extractive answer length in runes.
const extractiveLimit = 280

// Source cites a chunk used to compose an answer.
type Source struct {
	Title   string `json:"title"`
	Source  string `json:"source"`
	DocType string `json:"doc_type"`
}

// Answer is the composed reply with its citations.
type Answer struct {
	Text    string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// state pairs a loaded bundle with the vectorizer that matches it.
// Swapped atomically on rebuild so concurrent readers always see a
// consistent pair.
type state struct {
	bundle *indexstore.Bundle
	vec    vectorizer.Vectorizer
}

// Answerer runs the question pipeline: expand, vectorize, retrieve,
// rerank, compose. A Generator, when present, produces the answer text
// from the top passages; any generation failure falls back to the
// extractive path.
type Answerer struct {
	mode       string
	embedder   vectorizer.Vectorizer
	ret        *retriever.Retriever
	gen        Generator
	mirror     vectorstore.VectorStore
	collection string
	topK       int

	state atomic.Pointer[state]
}

// Option configures optional collaborators.
type Option func(*Answerer)

// WithGenerator enables the generative answer path.
func WithGenerator(g Generator) Option {
	return func(a *Answerer) { a.gen = g }
}

// WithVectorMirror routes candidate search through an external vector
// store; chunk metadata and reranking still come from the local bundle.
func WithVectorMirror(vs vectorstore.VectorStore, collection string) Option {
	return func(a *Answerer) {
		a.mirror = vs
		a.collection = collection
	}
}

// WithEmbedder supplies the query-time vectorizer for remote mode.
func WithEmbedder(v vectorizer.Vectorizer) Option {
	return func(a *Answerer) { a.embedder = v }
}

// New creates an Answerer for the given vectorizer mode. A bundle must
// be installed with SetBundle before Ask can serve questions.
func New(mode string, ret *retriever.Retriever, topK int, opts ...Option) *Answerer {
	a := &Answerer{mode: mode, ret: ret, topK: topK}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SetBundle installs a freshly loaded or rebuilt bundle. The swap is
// atomic; in-flight questions keep using the bundle they started with.
func (a *Answerer) SetBundle(b *indexstore.Bundle) error {
	if b.Mode != a.mode {
		return fmt.Errorf("%w: index built with %q, process configured for %q (rebuild the index)", ErrModeMismatch, b.Mode, a.mode)
	}

	var vec vectorizer.Vectorizer
	switch b.Mode {
	case vectorizer.ModeTFIDF:
		v, err := vectorizer.NewTFIDFFromState(b.ModelState)
		if err != nil {
			return fmt.Errorf("failed to restore vectorizer from index state: %w", err)
		}
		vec = v
	case vectorizer.ModeOpenAI:
		if a.embedder == nil {
			return fmt.Errorf("%w: remote-mode index but no embedder configured", ErrModeMismatch)
		}
		vec = a.embedder
	default:
		return fmt.Errorf("%w: unknown index mode %q", ErrModeMismatch, b.Mode)
	}

	a.state.Store(&state{bundle: b, vec: vec})
	return nil
}

// Ready reports whether a bundle has been installed.
func (a *Answerer) Ready() bool { return a.state.Load() != nil }

// Ask answers a question from the indexed knowledge base. k <= 0 uses
// the configured default. Returns indexstore.ErrIndexNotFound when no
// bundle is installed.
func (a *Answerer) Ask(ctx context.Context, question string, k int) (Answer, error) {
	logger := contextutil.LoggerFromContext(ctx)

	st := a.state.Load()
	if st == nil {
		return Answer{}, indexstore.ErrIndexNotFound
	}
	if k <= 0 {
		k = a.topK
	}

	exp := expander.Expand(question)

	rows, err := st.vec.Transform(ctx, []string{exp.Query})
	if err != nil {
		return Answer{}, fmt.Errorf("failed to vectorize question: %w", err)
	}
	queryVec := rows[0]

	// Pull extra candidates so reranking has room to promote.
	candidates := 2 * k
	if candidates < 6 {
		candidates = 6
	}
	raw, err := a.searchCandidates(ctx, st.bundle, queryVec, candidates)
	if err != nil {
		return Answer{}, err
	}

	hits := a.ret.Rerank(raw, exp.DocTypes, exp.Terms, k)
	if len(hits) == 0 {
		// Nothing cleared the score floor; cite the raw candidates
		// for transparency but admit we have no answer.
		if len(raw) > k {
			raw = raw[:k]
		}
		return Answer{Text: NoAnswer, Sources: sourcesFrom(raw)}, nil
	}

	text := a.compose(ctx, question, hits)
	if len(strings.Fields(text)) < 2 {
		text = NoAnswer
	}

	logger.DebugContext(ctx, "question answered", "hits", len(hits), "generative", a.gen != nil)
	return Answer{Text: text, Sources: sourcesFrom(hits)}, nil
}

// searchCandidates ranks candidates via the vector mirror when one is
// configured, falling back to the in-process scan if it fails.
func (a *Answerer) searchCandidates(ctx context.Context, bundle *indexstore.Bundle, queryVec []float32, k int) ([]retriever.Result, error) {
	if a.mirror != nil {
		results, err := a.mirrorSearch(ctx, bundle, queryVec, k)
		if err == nil {
			return results, nil
		}
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "vector store search failed, using local index", "error", err)
	}
	results, err := a.ret.Search(bundle, queryVec, k)
	if errors.Is(err, retriever.ErrDimensionMismatch) {
		// Same failure class as a mode mismatch: the question and the
		// index disagree on the vector space.
		return nil, fmt.Errorf("%w: %v", ErrModeMismatch, err)
	}
	return results, err
}

func (a *Answerer) mirrorSearch(ctx context.Context, bundle *indexstore.Bundle, queryVec []float32, k int) ([]retriever.Result, error) {
	found, err := a.mirror.Search(ctx, a.collection, queryVec, k, nil)
	if err != nil {
		return nil, err
	}
	results := make([]retriever.Result, 0, len(found))
	for _, f := range found {
		chunk, ok := bundle.ChunkByID(f.PointID)
		if !ok {
			// The mirror lags the bundle; skip points we no longer know.
			continue
		}
		sim := float64(f.Score)
		results = append(results, retriever.Result{Chunk: chunk, Similarity: sim, Score: sim})
	}
	return results, nil
}

// compose produces the answer text, preferring the generator when one
// is configured and falling back to the extractive path on any failure.
func (a *Answerer) compose(ctx context.Context, question string, hits []retriever.Result) string {
	if a.gen != nil {
		passages := make([]string, 0, 5)
		for _, h := range hits {
			if len(passages) == 5 {
				break
			}
			passages = append(passages, h.Chunk.Text)
		}
		text, err := a.gen.Generate(ctx, question, passages)
		if err == nil && strings.TrimSpace(text) != "" {
			return strings.TrimSpace(text)
		}
		if err != nil {
			contextutil.LoggerFromContext(ctx).WarnContext(ctx, "generation failed, using extractive answer", "error", err)
		}
	}
	return extractive(hits)
}

var sentenceRe = regexp.MustCompile(`(.+?[.!?])\s`)

// extractive answers with the first sentence of the best hit.
func extractive(hits []retriever.Result) string {
	if len(hits) == 0 {
		return NoAnswer
	}
	text := firstSentence(hits[0].Chunk.Text)
	if text == "" {
		return NoAnswer
	}
	return text
}

// firstSentence returns the first complete sentence, capped in length.
func firstSentence(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	out := text
	if m := sentenceRe.FindStringSubmatch(text + " "); m != nil {
		out = m[1]
	}
	runes := []rune(out)
	if len(runes) > extractiveLimit {
		out = string(runes[:extractiveLimit])
	}
	return out
}

func sourcesFrom(hits []retriever.Result) []Source {
	sources := make([]Source, len(hits))
	for i, h := range hits {
		sources[i] = Source{Title: h.Chunk.Title, Source: h.Chunk.Source, DocType: h.Chunk.DocType}
	}
	return sources
}
