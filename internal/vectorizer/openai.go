package vectorizer

import (
	"context"
	"fmt"
	"sync/atomic"

	openai "github.com/sashabaranov/go-openai"
)

// embedBatchSize bounds the number of texts per embeddings request.
const embedBatchSize = 64

// OpenAI embeds texts through the OpenAI embeddings API. The vector
// dimension is learned from the first response; every later response
// must agree with it. One instance is shared between indexing and the
// query path, so the learned dimension is published atomically.
type OpenAI struct {
	client *openai.Client
	model  string
	dim    atomic.Int64
}

// NewOpenAI creates a remote vectorizer backed by the given client.
func NewOpenAI(client *openai.Client, model string) *OpenAI {
	return &OpenAI{client: client, model: model}
}

// Mode identifies the vector space.
func (v *OpenAI) Mode() string { return ModeOpenAI }

// Fit is a no-op; the remote model needs no corpus preparation.
func (v *OpenAI) Fit(ctx context.Context, corpus []string) error { return nil }

// Dimension is 0 until the first Transform call.
func (v *OpenAI) Dimension() int { return int(v.dim.Load()) }

// State returns nil; the remote model has no local state to persist.
func (v *OpenAI) State() ([]byte, error) { return nil, nil }

// Transform requests embeddings in batches and returns L2-normalized
// vectors. Any transport failure or malformed response wraps
// ErrVectorization so the caller can decide to retry or abort.
func (v *OpenAI) Transform(ctx context.Context, texts []string) ([][]float32, error) {
	rows := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		resp, err := v.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Model: openai.EmbeddingModel(v.model),
			Input: batch,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: embeddings request: %v", ErrVectorization, err)
		}
		if len(resp.Data) != len(batch) {
			return nil, fmt.Errorf("%w: expected %d embeddings, got %d", ErrVectorization, len(batch), len(resp.Data))
		}

		for i, data := range resp.Data {
			if len(data.Embedding) == 0 {
				return nil, fmt.Errorf("%w: empty embedding at index %d", ErrVectorization, start+i)
			}
			got := int64(len(data.Embedding))
			if !v.dim.CompareAndSwap(0, got) {
				if want := v.dim.Load(); got != want {
					return nil, fmt.Errorf("%w: embedding size %d, expected %d", ErrVectorization, got, want)
				}
			}
			vec := make([]float32, len(data.Embedding))
			copy(vec, data.Embedding)
			l2Normalize(vec)
			rows = append(rows, vec)
		}
	}
	return rows, nil
}
