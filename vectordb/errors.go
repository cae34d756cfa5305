package vectordb

import (
	"errors"

	"github.com/viant/codevec/vectordb/columnar"
	"github.com/viant/codevec/vectordb/engine"
)

var (
	// ErrInvalidDimension is returned when a stored or queried embedding does not have schema.EmbeddingDim components.
	ErrInvalidDimension = columnar.ErrInvalidDimension
	// ErrSchemaMismatch is returned when an existing table was created with a different layout.
	ErrSchemaMismatch = engine.ErrSchemaMismatch
	// ErrPathMismatch is returned by Update when the record path differs from the key.
	ErrPathMismatch = errors.New("record path does not match key")
	// ErrNotFound is returned when a similarity query references an unknown path.
	ErrNotFound = errors.New("embedding not found")
	// ErrInvalidLimit is returned for a negative result limit.
	ErrInvalidLimit = errors.New("invalid limit")
)
