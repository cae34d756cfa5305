package openai

import (
	"context"
	"fmt"

	"github.com/viant/codevec/embeddings"
)

// Embedder bridges the client to the embeddings.Embedder interface.
type Embedder struct{ C *Client }

// New creates an OpenAI embedder.
func New(apiKey, model string, opts ...ClientOption) *Embedder {
	return &Embedder{C: NewClient(apiKey, model, opts...)}
}

func (e *Embedder) EmbedDocuments(ctx context.Context, docs []string) ([][]float32, error) {
	v, _, err := e.C.Embed(ctx, docs)
	if err != nil {
		return nil, fmt.Errorf("%w: openai: %w", embeddings.ErrInference, err)
	}
	if err := embeddings.Check(v, len(docs), e.C.Dimensions); err != nil {
		return nil, fmt.Errorf("openai %s: %w", e.C.Model, err)
	}
	return v, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, q string) ([]float32, error) {
	return embeddings.Single(e.EmbedDocuments(ctx, []string{q}))
}
