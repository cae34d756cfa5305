// Package engine defines the storage engine contract used by the embedding store
// and provides a SQL backed implementation parameterised by a Dialect.
package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// DistanceColumn is appended to every search result batch.
const DistanceColumn = "_distance"

// Metric identifies the distance function used by nearest neighbour search.
type Metric int

const (
	// L2 is the euclidean distance; it is the default metric.
	L2 Metric = iota
	// Cosine is one minus cosine similarity.
	Cosine
	// Dot is the negated inner product.
	Dot
)

// String returns metric name
func (m Metric) String() string {
	switch m {
	case L2:
		return "l2"
	case Cosine:
		return "cosine"
	case Dot:
		return "dot"
	}
	return "unknown"
}

// ParseMetric returns the metric for its name; empty selects L2.
func ParseMetric(name string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "l2":
		return L2, nil
	case "cosine":
		return Cosine, nil
	case "dot":
		return Dot, nil
	}
	return L2, fmt.Errorf("engine: unknown metric %q", name)
}

// Query controls table reads.
type Query struct {
	// Filter is a SQL-like boolean predicate, e.g. path = 'a''b'. Empty means all rows.
	Filter string
	// Limit bounds the number of rows; zero or negative means unbounded for Query.
	Limit int
	// Metric selects the distance function for Search.
	Metric Metric
}

// Table is a named collection of rows sharing one arrow schema.
type Table interface {
	Name() string
	Schema() *arrow.Schema
	// Add appends all rows of the record batch.
	Add(ctx context.Context, rec arrow.Record) error
	// Delete removes rows matching the filter; matching nothing is not an error.
	Delete(ctx context.Context, filter string) error
	// Count returns the number of rows matching the filter.
	Count(ctx context.Context, filter string) (int64, error)
	// Query streams rows matching the filter.
	Query(ctx context.Context, query Query) (array.RecordReader, error)
	// Search streams rows ordered by ascending distance to the vector, with DistanceColumn appended.
	Search(ctx context.Context, vector []float32, query Query) (array.RecordReader, error)
}

// Replacer is implemented by tables that can delete and append atomically.
type Replacer interface {
	Replace(ctx context.Context, filter string, rec arrow.Record) error
}

// Connection opens and creates tables.
type Connection interface {
	// OpenTable returns ErrTableNotFound when the table does not exist.
	OpenTable(ctx context.Context, name string) (Table, error)
	// CreateTable creates the table when missing and opens it.
	CreateTable(ctx context.Context, name string, schema *arrow.Schema) (Table, error)
	Close() error
}
