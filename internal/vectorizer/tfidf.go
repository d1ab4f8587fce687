package vectorizer

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"
)

// maxFeatures caps the vocabulary size; when exceeded, the terms with
// the highest document frequency are kept.
const maxFeatures = 60000

// TFIDF is a locally fitted term-frequency/inverse-document-frequency
// model over unigrams and bigrams. Rows are L2-normalized so cosine
// similarity reduces to a dot product. Terms unseen at fit time are
// ignored at transform time, never an error.
type TFIDF struct {
	terms  []string
	index  map[string]int
	idf    []float32
	fitted bool
}

// tfidfState is the serialized form stored in the index bundle.
type tfidfState struct {
	Terms []string  `json:"terms"`
	IDF   []float32 `json:"idf"`
}

// NewTFIDF creates an unfitted TF-IDF vectorizer.
func NewTFIDF() *TFIDF {
	return &TFIDF{index: make(map[string]int)}
}

// NewTFIDFFromState restores a fitted model from its serialized state.
func NewTFIDFFromState(state []byte) (*TFIDF, error) {
	var s tfidfState
	if err := json.Unmarshal(state, &s); err != nil {
		return nil, fmt.Errorf("failed to decode tfidf state: %w", err)
	}
	if len(s.Terms) != len(s.IDF) {
		return nil, fmt.Errorf("corrupt tfidf state: %d terms but %d idf values", len(s.Terms), len(s.IDF))
	}
	v := &TFIDF{terms: s.Terms, idf: s.IDF, index: make(map[string]int, len(s.Terms)), fitted: true}
	for i, t := range s.Terms {
		v.index[t] = i
	}
	return v, nil
}

// Mode identifies the vector space.
func (v *TFIDF) Mode() string { return ModeTFIDF }

// Dimension is the vocabulary size.
func (v *TFIDF) Dimension() int { return len(v.terms) }

// Fit builds the vocabulary and IDF weights from the corpus.
// An empty corpus yields an empty (but valid) model.
func (v *TFIDF) Fit(ctx context.Context, corpus []string) error {
	df := make(map[string]int)
	for _, text := range corpus {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		seen := make(map[string]struct{})
		for _, f := range features(text) {
			if _, ok := seen[f]; ok {
				continue
			}
			seen[f] = struct{}{}
			df[f]++
		}
	}

	terms := make([]string, 0, len(df))
	for t := range df {
		terms = append(terms, t)
	}
	// Stable vocabulary order keeps rebuilds byte-identical.
	sort.Strings(terms)

	if len(terms) > maxFeatures {
		// Keep the most frequent terms; ties resolved alphabetically.
		sort.SliceStable(terms, func(i, j int) bool { return df[terms[i]] > df[terms[j]] })
		terms = terms[:maxFeatures]
		sort.Strings(terms)
	}

	n := float64(len(corpus))
	v.terms = terms
	v.index = make(map[string]int, len(terms))
	v.idf = make([]float32, len(terms))
	for i, t := range terms {
		v.index[t] = i
		// Smoothed IDF.
		v.idf[i] = float32(math.Log((1+n)/(1+float64(df[t]))) + 1.0)
	}
	v.fitted = true
	return nil
}

// Transform converts texts into L2-normalized TF-IDF rows using the
// fitted vocabulary. Sublinear term frequency (1 + ln tf) dampens
// repeated terms.
func (v *TFIDF) Transform(ctx context.Context, texts []string) ([][]float32, error) {
	if !v.fitted {
		return nil, ErrNotFitted
	}
	rows := make([][]float32, len(texts))
	for i, text := range texts {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		row := make([]float32, len(v.terms))
		counts := make(map[int]int)
		for _, f := range features(text) {
			if idx, ok := v.index[f]; ok {
				counts[idx]++
			}
		}
		for idx, c := range counts {
			tf := float32(1.0 + math.Log(float64(c)))
			row[idx] = tf * v.idf[idx]
		}
		l2Normalize(row)
		rows[i] = row
	}
	return rows, nil
}

// State serializes the fitted vocabulary and IDF weights.
func (v *TFIDF) State() ([]byte, error) {
	if !v.fitted {
		return nil, ErrNotFitted
	}
	return json.Marshal(tfidfState{Terms: v.terms, IDF: v.idf})
}

// features produces lowercased unigram and bigram tokens.
func features(text string) []string {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return nil
	}
	out := make([]string, 0, 2*len(tokens))
	out = append(out, tokens...)
	for i := 0; i+1 < len(tokens); i++ {
		out = append(out, tokens[i]+" "+tokens[i+1])
	}
	return out
}

// tokenize lowercases and splits on anything that is not a letter or digit.
func tokenize(text string) []string {
	if text == "" {
		return nil
	}
	var builder strings.Builder
	builder.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			builder.WriteRune(r)
		} else {
			builder.WriteRune(' ')
		}
	}
	return strings.Fields(builder.String())
}
