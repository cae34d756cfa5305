package vertexai

import (
	"context"
	"fmt"
	"sync"

	"github.com/viant/codevec/embeddings"
)

// Embedder lazily creates a Client on first use.
type Embedder struct {
	projectID string
	model     string
	opts      []ClientOption

	mu      sync.Mutex
	client  *Client
	initErr error
}

// NewEmbedder creates a Vertex AI embedder.
func NewEmbedder(projectID, model string, opts ...ClientOption) *Embedder {
	return &Embedder{
		projectID: projectID,
		model:     model,
		opts:      opts,
	}
}

func (e *Embedder) EmbedDocuments(ctx context.Context, docs []string) ([][]float32, error) {
	client, err := e.getClient(ctx)
	if err != nil {
		return nil, err
	}
	vecs, _, err := client.Embed(ctx, docs)
	if err != nil {
		return nil, fmt.Errorf("%w: vertexai: %w", embeddings.ErrInference, err)
	}
	if err := embeddings.Check(vecs, len(docs), client.Dimensions); err != nil {
		return nil, fmt.Errorf("vertexai %s: %w", client.Model, err)
	}
	return vecs, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return embeddings.Single(e.EmbedDocuments(ctx, []string{text}))
}

func (e *Embedder) getClient(ctx context.Context) (*Client, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client != nil || e.initErr != nil {
		return e.client, e.initErr
	}
	client, err := NewClient(ctx, e.projectID, e.model, e.opts...)
	if err != nil {
		e.initErr = err
		return nil, err
	}
	e.client = client
	return client, nil
}
