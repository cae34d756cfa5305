package engine

import "github.com/apache/arrow-go/v18/arrow/memory"

const (
	defaultPageSize     = 256
	defaultCatalogTable = "codevec_catalog"
)

// Option configures a SQL connection.
type Option func(*SQLConnection)

// WithPageSize sets the number of rows per streamed record batch.
func WithPageSize(size int) Option {
	return func(c *SQLConnection) {
		if size > 0 {
			c.pageSize = size
		}
	}
}

// WithAllocator sets the arrow allocator used for result batches.
func WithAllocator(mem memory.Allocator) Option {
	return func(c *SQLConnection) {
		if mem != nil {
			c.mem = mem
		}
	}
}

// WithCatalogTable overrides the name of the schema catalog table.
func WithCatalogTable(name string) Option {
	return func(c *SQLConnection) {
		if name != "" {
			c.catalog = name
		}
	}
}

// WithOwnedDB makes Close release the database handle.
func WithOwnedDB(owned bool) Option {
	return func(c *SQLConnection) { c.ownsDB = owned }
}

// WithLogf sets a debug logger for executed statements.
func WithLogf(logf func(format string, args ...any)) Option {
	return func(c *SQLConnection) { c.logf = logf }
}
