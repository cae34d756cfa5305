package columnar

import "errors"

var (
	// ErrInvalidDimension is returned when an embedding does not have schema.EmbeddingDim components.
	ErrInvalidDimension = errors.New("invalid embedding dimension")
	// ErrColumnTypeMismatch is returned when a batch column has an unexpected name or type.
	ErrColumnTypeMismatch = errors.New("column type mismatch")
	// ErrRowOutOfBounds is returned when decoding a row outside of the batch.
	ErrRowOutOfBounds = errors.New("row index out of bounds")
)
