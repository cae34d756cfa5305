package service

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/viant/codevec/embeddings"
	"github.com/viant/codevec/embeddings/cache"
	"github.com/viant/codevec/embeddings/ollama"
	"github.com/viant/codevec/embeddings/onnx"
	"github.com/viant/codevec/embeddings/openai"
	"github.com/viant/codevec/embeddings/vertexai"
	"github.com/viant/codevec/schema"
)

// Embedder kinds.
const (
	KindONNX     = "onnx"
	KindOllama   = "ollama"
	KindOpenAI   = "openai"
	KindVertexAI = "vertexai"
	KindSimple   = "simple"
)

// SimpleEmbedder returns deterministic vectors for local testing.
type SimpleEmbedder struct {
	Dim int
}

// NewSimpleEmbedder constructs a simple deterministic embedder; dim <= 0 selects the store dimension.
func NewSimpleEmbedder(dim int) *SimpleEmbedder {
	if dim <= 0 {
		dim = schema.EmbeddingDim
	}
	return &SimpleEmbedder{Dim: dim}
}

// EmbedDocuments embeds documents deterministically.
func (e *SimpleEmbedder) EmbedDocuments(ctx context.Context, docs []string) ([][]float32, error) {
	out := make([][]float32, len(docs))
	for i, s := range docs {
		out[i] = embedString(s, e.Dim)
	}
	return out, nil
}

// EmbedQuery embeds a query deterministically.
func (e *SimpleEmbedder) EmbedQuery(ctx context.Context, q string) ([]float32, error) {
	return embedString(q, e.Dim), nil
}

func embedString(s string, dim int) []float32 {
	v := make([]float32, dim)
	var h uint32
	for i := 0; i < len(s); i++ {
		h = h*16777619 ^ uint32(s[i])
	}
	// LCG sequence seeded by the FNV style hash.
	seed := h
	for i := range v {
		seed = seed*1664525 + 1013904223
		v[i] = float32(seed%10000) / 10000.0
	}
	return v
}

// NewEmbedder builds the configured embedder, wrapped in a cache when cfg.Cache.Size > 0.
// The returned release function frees native resources and must be called once.
func NewEmbedder(ctx context.Context, cfg *EmbedderConfig, logf func(format string, args ...any)) (embeddings.Embedder, func() error, error) {
	release := func() error { return nil }
	dimensions := cfg.Dimensions
	if dimensions <= 0 {
		dimensions = schema.EmbeddingDim
	}
	var result embeddings.Embedder
	switch kind := strings.ToLower(strings.TrimSpace(cfg.Kind)); kind {
	case "", KindONNX:
		if cfg.ModelPath == "" || cfg.TokenizerPath == "" {
			return nil, nil, fmt.Errorf("embedder: onnx requires modelPath and tokenizerPath")
		}
		opts := []onnx.Option{onnx.WithDimension(dimensions), onnx.WithWorkers(cfg.Workers)}
		if cfg.SharedLibrary != "" {
			opts = append(opts, onnx.WithSharedLibrary(cfg.SharedLibrary))
		}
		if cfg.TokenizerCopy != "" {
			opts = append(opts, onnx.WithTokenizerCopy(cfg.TokenizerCopy))
		}
		if logf != nil {
			opts = append(opts, onnx.WithLogf(logf))
		}
		embedder, err := onnx.New(ctx, cfg.ModelPath, cfg.TokenizerPath, opts...)
		if err != nil {
			return nil, nil, err
		}
		result, release = embedder, embedder.Close
	case KindOllama:
		opts := []ollama.ClientOption{ollama.WithDimensions(dimensions)}
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithBaseURL(cfg.BaseURL))
		}
		result = ollama.New(cfg.Model, opts...)
	case KindOpenAI:
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		if apiKey == "" {
			return nil, nil, fmt.Errorf("embedder: openai requires apiKey or OPENAI_API_KEY")
		}
		opts := []openai.ClientOption{openai.WithDimensions(dimensions)}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		result = openai.New(apiKey, cfg.Model, opts...)
	case KindVertexAI:
		project := cfg.Project
		if project == "" {
			project = os.Getenv("GOOGLE_CLOUD_PROJECT")
		}
		opts := []vertexai.ClientOption{vertexai.WithDimensions(dimensions)}
		if cfg.Location != "" {
			opts = append(opts, vertexai.WithLocation(cfg.Location))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, vertexai.WithEndpoint(cfg.BaseURL))
		}
		result = vertexai.NewEmbedder(project, cfg.Model, opts...)
	case KindSimple:
		result = NewSimpleEmbedder(dimensions)
	default:
		return nil, nil, fmt.Errorf("embedder: unsupported kind %q", cfg.Kind)
	}
	if cfg.Cache.Size > 0 {
		result = cache.NewEmbedder(result, cfg.Cache.Size, cache.WithNamespace(cfg.Kind+"/"+cfg.Model))
	}
	return result, release, nil
}
