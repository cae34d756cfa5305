// Package cache provides an embeddings.Embedder decorator that remembers vectors of previously embedded texts.
package cache

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/viant/afs"
	"github.com/viant/bintly"
	"github.com/viant/codevec/embeddings"
)

const snapshotVersion = 1

// Embedder caches vectors returned by the inner embedder in an LRU.
type Embedder struct {
	inner     embeddings.Embedder
	entries   *lru
	namespace string
	fs        afs.Service
	hits      atomic.Int64
	misses    atomic.Int64
}

// Option configures an Embedder.
type Option func(*Embedder)

// WithNamespace separates entries of different models sharing a snapshot.
func WithNamespace(namespace string) Option {
	return func(e *Embedder) { e.namespace = namespace }
}

// WithFS sets the file system used by Save and Load.
func WithFS(fs afs.Service) Option {
	return func(e *Embedder) {
		if fs != nil {
			e.fs = fs
		}
	}
}

// New wraps inner with an LRU holding up to capacity vectors. A capacity <= 0 returns inner unchanged.
func New(inner embeddings.Embedder, capacity int, opts ...Option) embeddings.Embedder {
	if capacity <= 0 {
		return inner
	}
	return NewEmbedder(inner, capacity, opts...)
}

// NewEmbedder wraps inner with an LRU holding up to capacity (at least one) vectors.
func NewEmbedder(inner embeddings.Embedder, capacity int, opts ...Option) *Embedder {
	if capacity <= 0 {
		capacity = 1
	}
	e := &Embedder{inner: inner, entries: newLRU(capacity), fs: afs.New()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EmbedDocuments returns cached vectors and embeds the remaining texts in one inner call.
func (e *Embedder) EmbedDocuments(ctx context.Context, docs []string) ([][]float32, error) {
	result := make([][]float32, len(docs))
	keys := make([]uint64, len(docs))
	var missing []int
	for i, doc := range docs {
		key, err := Hash(e.namespace, doc)
		if err != nil {
			return nil, err
		}
		keys[i] = key
		if vec, ok := e.entries.get(key); ok {
			result[i] = vec
			e.hits.Add(1)
			continue
		}
		missing = append(missing, i)
	}
	if len(missing) == 0 {
		return result, nil
	}
	e.misses.Add(int64(len(missing)))
	texts := make([]string, len(missing))
	for i, index := range missing {
		texts[i] = docs[index]
	}
	vectors, err := e.inner.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, err
	}
	if err := embeddings.Check(vectors, len(texts), 0); err != nil {
		return nil, err
	}
	for i, index := range missing {
		e.entries.add(keys[index], vectors[i])
		result[index] = vectors[i]
	}
	return result, nil
}

// EmbedQuery embeds a single text.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return embeddings.Single(e.EmbedDocuments(ctx, []string{text}))
}

// Stats returns cache hits and misses.
func (e *Embedder) Stats() (hits, misses int64) {
	return e.hits.Load(), e.misses.Load()
}

// Len returns the number of cached vectors.
func (e *Embedder) Len() int { return e.entries.len() }

// Save writes a snapshot of the cache to URL.
func (e *Embedder) Save(ctx context.Context, URL string) error {
	writers := bintly.NewWriters()
	w := writers.Get()
	defer writers.Put(w)
	entries := e.entries.snapshot()
	w.Int(snapshotVersion)
	w.Int(len(entries))
	for _, item := range entries {
		w.String(strconv.FormatUint(item.key, 16))
		w.Int(len(item.vec))
		for _, v := range item.vec {
			w.Float32(v)
		}
	}
	if err := e.fs.Upload(ctx, URL, 0o644, bytes.NewReader(w.Bytes())); err != nil {
		return fmt.Errorf("cache: save %s: %w", URL, err)
	}
	return nil
}

// Load adds entries of a snapshot written by Save. A missing snapshot is not an error.
func (e *Embedder) Load(ctx context.Context, URL string) error {
	exists, err := e.fs.Exists(ctx, URL)
	if err != nil || !exists {
		return err
	}
	data, err := e.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return fmt.Errorf("cache: load %s: %w", URL, err)
	}
	entries, err := decodeSnapshot(data)
	if err != nil {
		return fmt.Errorf("cache: load %s: %w", URL, err)
	}
	for _, item := range entries {
		e.entries.add(item.key, item.vec)
	}
	return nil
}

func decodeSnapshot(data []byte) (entries []entry, err error) {
	defer func() {
		if r := recover(); r != nil {
			entries, err = nil, fmt.Errorf("corrupted snapshot: %v", r)
		}
	}()
	readers := bintly.NewReaders()
	r := readers.Get()
	defer readers.Put(r)
	if err := r.FromBytes(data); err != nil {
		return nil, err
	}
	var version, count int
	r.Int(&version)
	if version != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", version)
	}
	r.Int(&count)
	if count < 0 || count > len(data) {
		return nil, fmt.Errorf("invalid entry count %d", count)
	}
	entries = make([]entry, 0, count)
	for i := 0; i < count; i++ {
		var hexKey string
		var size int
		r.String(&hexKey)
		r.Int(&size)
		if size < 0 || size > len(data) {
			return nil, fmt.Errorf("invalid vector size %d", size)
		}
		key, err := strconv.ParseUint(hexKey, 16, 64)
		if err != nil {
			return nil, err
		}
		vec := make([]float32, size)
		for j := range vec {
			r.Float32(&vec[j])
		}
		entries = append(entries, entry{key: key, vec: vec})
	}
	return entries, nil
}

var _ embeddings.Embedder = (*Embedder)(nil)
