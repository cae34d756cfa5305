package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/viant/codevec/embeddings"
	"github.com/viant/codevec/embeddings/cache"
	"github.com/viant/codevec/indexer"
	"github.com/viant/codevec/matching"
	"github.com/viant/codevec/schema"
	"github.com/viant/codevec/vectordb"
	"github.com/viant/codevec/vectordb/engine"
)

// Option configures the Service.
type Option func(*Service)

// WithConfig sets store, embedder and indexer settings.
func WithConfig(cfg *Config) Option {
	return func(s *Service) {
		if cfg != nil {
			s.config = *cfg
		}
	}
}

// WithDSN sets the store location, overriding the config.
func WithDSN(dsn string) Option {
	return func(s *Service) { s.config.Store.DSN = dsn }
}

// WithStore sets an existing store; the service does not close it.
func WithStore(store *vectordb.Store) Option {
	return func(s *Service) { s.store = store }
}

// WithEmbedder sets the embedder instead of building one from the config.
func WithEmbedder(embedder embeddings.Embedder) Option {
	return func(s *Service) { s.embedder = embedder }
}

// WithLogf sets a progress logger.
func WithLogf(logf func(format string, args ...any)) Option {
	return func(s *Service) { s.logf = logf }
}

// Service exposes indexing and similarity search over an embedding store.
type Service struct {
	config    Config
	store     *vectordb.Store
	ownsStore bool
	embedder  embeddings.Embedder
	release   func() error
	logf      func(format string, args ...any)
	mu        sync.Mutex
}

// NewService creates a new Service. The store and embedder are opened on first use.
func NewService(opts ...Option) (*Service, error) {
	s := &Service{}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil && s.config.Store.DSN == "" {
		return nil, fmt.Errorf("service: store dsn required")
	}
	return s, nil
}

// Index embeds new or changed files under root.
func (s *Service) Index(ctx context.Context, root string) (*indexer.Stats, error) {
	store, err := s.ensureStore(ctx)
	if err != nil {
		return nil, err
	}
	embedder, err := s.ensureEmbedder(ctx)
	if err != nil {
		return nil, err
	}
	cfg := s.config.Indexer
	opts := []indexer.Option{indexer.WithMatcher(matching.New(cfg.MatchingOptions()...)), indexer.WithLogf(s.logf)}
	if cfg.BatchSize > 0 {
		opts = append(opts, indexer.WithBatchSize(cfg.BatchSize))
	}
	if cfg.PreviewSize > 0 {
		opts = append(opts, indexer.WithPreviewSize(cfg.PreviewSize))
	}
	return indexer.New(store, embedder, opts...).Index(ctx, root)
}

// Embed returns the embedding of text.
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	embedder, err := s.ensureEmbedder(ctx)
	if err != nil {
		return nil, err
	}
	vector, err := embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(vector) != schema.EmbeddingDim {
		return nil, fmt.Errorf("%w: got %d values, want %d", embeddings.ErrDimension, len(vector), schema.EmbeddingDim)
	}
	return vector, nil
}

// Similar returns the files closest to the text, closest first.
func (s *Service) Similar(ctx context.Context, text string, limit int) ([]*vectordb.Match, error) {
	vector, err := s.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	store, err := s.ensureStore(ctx)
	if err != nil {
		return nil, err
	}
	return store.Nearest(ctx, vector, limit)
}

// SimilarToFile returns the files closest to an indexed file, excluding the file itself.
func (s *Service) SimilarToFile(ctx context.Context, path string, limit int) ([]*vectordb.Match, error) {
	store, err := s.ensureStore(ctx)
	if err != nil {
		return nil, err
	}
	return store.NearestToFile(ctx, path, limit)
}

// Get returns the record stored for path or nil.
func (s *Service) Get(ctx context.Context, path string) (*schema.EmbeddingRecord, error) {
	store, err := s.ensureStore(ctx)
	if err != nil {
		return nil, err
	}
	return store.Get(ctx, path)
}

// Delete removes the record stored for path.
func (s *Service) Delete(ctx context.Context, path string) error {
	store, err := s.ensureStore(ctx)
	if err != nil {
		return err
	}
	return store.Delete(ctx, path)
}

// Count returns the number of stored records.
func (s *Service) Count(ctx context.Context) (int64, error) {
	store, err := s.ensureStore(ctx)
	if err != nil {
		return 0, err
	}
	return store.Count(ctx)
}

// Close saves the embedding cache snapshot and releases owned resources.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	if c, ok := s.embedder.(*cache.Embedder); ok && s.config.Embedder.Cache.Snapshot != "" {
		if err := c.Save(context.Background(), s.config.Embedder.Cache.Snapshot); err != nil {
			errs = append(errs, err)
		}
	}
	if s.release != nil {
		errs = append(errs, s.release())
		s.release = nil
	}
	if s.store != nil && s.ownsStore {
		errs = append(errs, s.store.Close())
		s.store = nil
	}
	return errors.Join(errs...)
}

func (s *Service) ensureStore(ctx context.Context) (*vectordb.Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store != nil {
		return s.store, nil
	}
	cfg := s.config.Store
	metric, err := engine.ParseMetric(cfg.Metric)
	if err != nil {
		return nil, err
	}
	opts := []vectordb.Option{vectordb.WithMetric(metric), vectordb.WithLogf(s.logf)}
	if cfg.Table != "" {
		opts = append(opts, vectordb.WithTableName(cfg.Table))
	}
	if cfg.WriterLock {
		opts = append(opts, vectordb.WithWriterLock(false, 0))
	}
	store, err := vectordb.Connect(ctx, cfg.DSN, opts...)
	if err != nil {
		return nil, err
	}
	s.store, s.ownsStore = store, true
	return store, nil
}

func (s *Service) ensureEmbedder(ctx context.Context) (embeddings.Embedder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.embedder != nil {
		return s.embedder, nil
	}
	embedder, release, err := NewEmbedder(ctx, &s.config.Embedder, s.logf)
	if err != nil {
		return nil, err
	}
	if c, ok := embedder.(*cache.Embedder); ok && s.config.Embedder.Cache.Snapshot != "" {
		if err := c.Load(ctx, s.config.Embedder.Cache.Snapshot); err != nil {
			_ = release()
			return nil, err
		}
	}
	s.embedder, s.release = embedder, release
	return embedder, nil
}
