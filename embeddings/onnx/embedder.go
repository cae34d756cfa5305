// Package onnx generates code embeddings locally with a pretrained tokenizer and an ONNX encoder model.
package onnx

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/viant/afs"
	"github.com/viant/codevec/embeddings"
	"golang.org/x/sync/errgroup"
)

// Tokenizer converts text into token ids and the matching attention mask.
type Tokenizer interface {
	Encode(text string) (ids []int64, mask []int64, err error)
}

// Session runs the encoder on a batch of one sequence and returns the flattened first output.
type Session interface {
	Run(ids, mask []int64) ([]float32, error)
	Close() error
}

// Embedder turns text into fixed length vectors.
type Embedder struct {
	tokenizer Tokenizer
	session   Session
	options   *options
}

// New loads the tokenizer and model files.
func New(ctx context.Context, modelPath, tokenizerPath string, opts ...Option) (*Embedder, error) {
	o := newOptions(opts)
	tokenizer, err := LoadTokenizer(tokenizerPath, o.maxSequenceLength)
	if err != nil {
		return nil, err
	}
	session, err := LoadSession(modelPath, opts...)
	if err != nil {
		return nil, err
	}
	if o.tokenizerCopy != "" {
		if err := copyTokenizer(ctx, afs.New(), tokenizerPath, o.tokenizerCopy); err != nil {
			_ = session.Close()
			return nil, err
		}
	}
	logf(o.logf, "onnx: loaded model %s, tokenizer %s", modelPath, tokenizerPath)
	return &Embedder{tokenizer: tokenizer, session: session, options: o}, nil
}

// NewWithComponents creates an embedder over already loaded components.
func NewWithComponents(tokenizer Tokenizer, session Session, opts ...Option) (*Embedder, error) {
	if tokenizer == nil || session == nil {
		return nil, fmt.Errorf("onnx: tokenizer and session are required")
	}
	return &Embedder{tokenizer: tokenizer, session: session, options: newOptions(opts)}, nil
}

// Embed returns the embedding of text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ids, mask, err := e.tokenizer.Encode(TaskMarker + text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", embeddings.ErrTokenization, err)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no tokens", embeddings.ErrTokenization)
	}
	if len(ids) != len(mask) {
		return nil, fmt.Errorf("%w: %d token ids, %d mask values", embeddings.ErrShape, len(ids), len(mask))
	}
	if limit := e.options.maxSequenceLength; len(ids) > limit {
		ids, mask = ids[:limit], mask[:limit]
	}
	vector, err := e.session.Run(ids, mask)
	if errors.Is(err, embeddings.ErrShape) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", embeddings.ErrInference, err)
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: empty model output", embeddings.ErrShape)
	}
	if dim := e.options.dimension; dim > 0 && len(vector) != dim {
		return nil, fmt.Errorf("%w: model returned %d values, expected %d", embeddings.ErrDimension, len(vector), dim)
	}
	return vector, nil
}

// EmbedBatch embeds texts preserving order. It fails with the error of the first failing element.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	result := make([][]float32, len(texts))
	if e.options.workers <= 1 {
		for i, text := range texts {
			vector, err := e.Embed(ctx, text)
			if err != nil {
				return nil, fmt.Errorf("text %d: %w", i, err)
			}
			result[i] = vector
		}
		return result, nil
	}
	errs := make([]error, len(texts))
	var failed atomic.Int64
	failed.Store(int64(len(texts)))
	var group errgroup.Group
	group.SetLimit(e.options.workers)
	for i := range texts {
		group.Go(func() error {
			if int64(i) > failed.Load() {
				return nil
			}
			vector, err := e.Embed(ctx, texts[i])
			if err != nil {
				errs[i] = err
				for {
					current := failed.Load()
					if int64(i) >= current || failed.CompareAndSwap(current, int64(i)) {
						break
					}
				}
				return nil
			}
			result[i] = vector
			return nil
		})
	}
	_ = group.Wait()
	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("text %d: %w", i, err)
		}
	}
	return result, nil
}

// EmbedDocuments implements embeddings.Embedder.
func (e *Embedder) EmbedDocuments(ctx context.Context, docs []string) ([][]float32, error) {
	return e.EmbedBatch(ctx, docs)
}

// EmbedQuery implements embeddings.Embedder.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return e.Embed(ctx, text)
}

// Close releases the inference session.
func (e *Embedder) Close() error {
	return e.session.Close()
}

func copyTokenizer(ctx context.Context, fs afs.Service, src, dest string) error {
	if err := fs.Copy(ctx, src, dest); err != nil {
		return fmt.Errorf("onnx: copy tokenizer %s to %s: %w", src, dest, err)
	}
	return nil
}

func logf(fn func(format string, args ...any), format string, args ...any) {
	if fn != nil {
		fn(format, args...)
	}
}

var _ embeddings.Embedder = (*Embedder)(nil)
