package vectordb

import (
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/viant/codevec/schema"
	"github.com/viant/codevec/vectordb/engine"
	"github.com/viant/codevec/vectordb/pgvector"
	"github.com/viant/codevec/vectordb/sqlitevec"
)

// DefaultFileName is the database file created when Connect is given a directory.
const DefaultFileName = "codevec.sqlite"

type options struct {
	tableName     string
	metric        engine.Metric
	mem           memory.Allocator
	logf          func(format string, args ...any)
	engineOptions []engine.Option
	sqliteOptions []sqlitevec.Option
	pgOptions     []pgvector.Option
	writerLock    bool
	lockBlocking  bool
	lockTimeout   time.Duration
}

func newOptions(opts []Option) *options {
	o := &options{tableName: schema.TableName, mem: memory.DefaultAllocator}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Option configures a Store.
type Option func(*options)

// WithTableName overrides the embeddings table name.
func WithTableName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.tableName = name
		}
	}
}

// WithMetric sets the similarity metric (default engine.L2).
func WithMetric(metric engine.Metric) Option {
	return func(o *options) { o.metric = metric }
}

// WithAllocator sets the arrow allocator used for encoded and streamed batches.
func WithAllocator(mem memory.Allocator) Option {
	return func(o *options) {
		if mem != nil {
			o.mem = mem
		}
	}
}

// WithLogf sets an optional logger.
func WithLogf(logf func(format string, args ...any)) Option {
	return func(o *options) { o.logf = logf }
}

// WithPageSize sets the number of rows per batch streamed back by the engine.
func WithPageSize(size int) Option {
	return func(o *options) { o.engineOptions = append(o.engineOptions, engine.WithPageSize(size)) }
}

// WithEngineOptions passes options to the engine connection opened by Connect.
func WithEngineOptions(opts ...engine.Option) Option {
	return func(o *options) { o.engineOptions = append(o.engineOptions, opts...) }
}

// WithSQLiteOptions passes options to the embedded engine.
func WithSQLiteOptions(opts ...sqlitevec.Option) Option {
	return func(o *options) { o.sqliteOptions = append(o.sqliteOptions, opts...) }
}

// WithPostgresOptions passes options to the PostgreSQL engine.
func WithPostgresOptions(opts ...pgvector.Option) Option {
	return func(o *options) { o.pgOptions = append(o.pgOptions, opts...) }
}

// WithWriterLock holds an exclusive lock file next to a SQLite database for the lifetime of the store.
// Blocking waits for the lock; a timeout <= 0 waits until the connect context is done.
func WithWriterLock(blocking bool, timeout time.Duration) Option {
	return func(o *options) {
		o.writerLock = true
		o.lockBlocking = blocking
		o.lockTimeout = timeout
	}
}
