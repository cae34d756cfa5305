package embeddings

import "errors"

var (
	// ErrTokenization is returned when the tokenizer rejects the input.
	ErrTokenization = errors.New("tokenization failed")
	// ErrInference is returned when the model invocation fails.
	ErrInference = errors.New("inference failed")
	// ErrShape is returned when tensors or responses have inconsistent shapes.
	ErrShape = errors.New("unexpected shape")
	// ErrDimension is returned when a vector does not have the expected number of components.
	ErrDimension = errors.New("unexpected embedding dimension")
)
