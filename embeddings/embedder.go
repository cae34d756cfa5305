package embeddings

import (
	"context"
	"fmt"
)

// Embedder is a minimal interface for computing vector embeddings
// for documents and queries.
type Embedder interface {
	EmbedDocuments(ctx context.Context, docs []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Check validates that an embedder returned one vector of dim components per input.
// A dim <= 0 skips the length check.
func Check(vectors [][]float32, inputs, dim int) error {
	if len(vectors) != inputs {
		return fmt.Errorf("%w: %d vectors for %d inputs", ErrShape, len(vectors), inputs)
	}
	if dim <= 0 {
		return nil
	}
	for i, vector := range vectors {
		if len(vector) != dim {
			return fmt.Errorf("%w: vector %d has %d components, expected %d", ErrDimension, i, len(vector), dim)
		}
	}
	return nil
}

// Single unwraps a single query vector.
func Single(vectors [][]float32, err error) ([]float32, error) {
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: %d vectors for 1 query", ErrShape, len(vectors))
	}
	return vectors[0], nil
}
