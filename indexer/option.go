package indexer

import (
	"time"

	"github.com/viant/codevec/matching"
)

// DefaultBatchSize is the number of files embedded per embedder call.
const DefaultBatchSize = 16

// DefaultMaxEmbedBytes bounds the text sent to the embedder per file.
const DefaultMaxEmbedBytes = 16 * 1024

// Option configures an Indexer.
type Option func(*Indexer)

// WithMatcher sets path rules; defaults to matching.New().
func WithMatcher(matcher *matching.Manager) Option {
	return func(i *Indexer) {
		if matcher != nil {
			i.matcher = matcher
		}
	}
}

// WithSource sets the file source; defaults to afs.
func WithSource(source Source) Option {
	return func(i *Indexer) {
		if source != nil {
			i.source = source
		}
	}
}

// WithBatchSize sets the number of files embedded per call.
func WithBatchSize(size int) Option {
	return func(i *Indexer) {
		if size > 0 {
			i.batchSize = size
		}
	}
}

// WithPreviewSize sets the content preview length; 0 disables previews.
func WithPreviewSize(size int) Option {
	return func(i *Indexer) { i.previewSize = size }
}

// WithMaxEmbedBytes bounds the text sent to the embedder per file.
func WithMaxEmbedBytes(size int) Option {
	return func(i *Indexer) {
		if size > 0 {
			i.maxEmbedBytes = size
		}
	}
}

// WithClock overrides the time source used for last_accessed.
func WithClock(now func() time.Time) Option {
	return func(i *Indexer) {
		if now != nil {
			i.now = now
		}
	}
}

// WithLogf sets an optional progress logger.
func WithLogf(logf func(format string, args ...any)) Option {
	return func(i *Indexer) { i.logf = logf }
}
