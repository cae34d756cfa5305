package onnx

import "github.com/viant/codevec/schema"

const (
	// TaskMarker selects the encoder-only mode of the model; it is prepended to every input.
	TaskMarker = "<encoder-only>"
	// MaxSequenceLength bounds the number of tokens passed to the model.
	MaxSequenceLength = 768

	inputIDs      = "input_ids"
	attentionMask = "attention_mask"
)

type options struct {
	maxSequenceLength int
	dimension         int
	workers           int
	intraOpThreads    int
	outputName        string
	sharedLibrary     string
	tokenizerCopy     string
	logf              func(format string, args ...any)
}

func newOptions(opts []Option) *options {
	o := &options{maxSequenceLength: MaxSequenceLength, dimension: schema.EmbeddingDim, workers: 1}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Option configures an Embedder.
type Option func(*options)

// WithMaxSequenceLength sets the token truncation length.
func WithMaxSequenceLength(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxSequenceLength = n
		}
	}
}

// WithDimension sets the expected output length; 0 disables the check.
func WithDimension(n int) Option {
	return func(o *options) { o.dimension = n }
}

// WithWorkers embeds batch elements on up to n goroutines.
func WithWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithIntraOpThreads sets the onnxruntime intra-op thread count.
func WithIntraOpThreads(n int) Option {
	return func(o *options) { o.intraOpThreads = n }
}

// WithOutputName selects the model output; the first model output is used by default.
func WithOutputName(name string) Option {
	return func(o *options) { o.outputName = name }
}

// WithSharedLibrary sets the onnxruntime shared library path.
func WithSharedLibrary(path string) Option {
	return func(o *options) { o.sharedLibrary = path }
}

// WithTokenizerCopy copies the tokenizer definition to destURL once the embedder is loaded.
func WithTokenizerCopy(destURL string) Option {
	return func(o *options) { o.tokenizerCopy = destURL }
}

// WithLogf sets an optional logger.
func WithLogf(logf func(format string, args ...any)) Option {
	return func(o *options) { o.logf = logf }
}
