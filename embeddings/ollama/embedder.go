package ollama

import (
	"context"
	"fmt"

	"github.com/viant/codevec/embeddings"
)

// Embedder adapts Client to embeddings.Embedder.
type Embedder struct {
	C *Client
}

// New creates an ollama embedder.
func New(model string, opts ...ClientOption) *Embedder {
	return &Embedder{C: NewClient(model, opts...)}
}

// EmbedDocuments embeds docs in a single request.
func (e *Embedder) EmbedDocuments(ctx context.Context, docs []string) ([][]float32, error) {
	if e == nil || e.C == nil {
		return nil, fmt.Errorf("ollama embedder not configured")
	}
	vecs, _, err := e.C.Embed(ctx, docs)
	if err != nil {
		return nil, fmt.Errorf("%w: ollama: %w", embeddings.ErrInference, err)
	}
	if err := embeddings.Check(vecs, len(docs), e.C.Dimensions); err != nil {
		return nil, fmt.Errorf("ollama %s: %w", e.C.Model, err)
	}
	return vecs, nil
}

// EmbedQuery embeds a single text.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return embeddings.Single(e.EmbedDocuments(ctx, []string{text}))
}
