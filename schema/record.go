package schema

// EmbeddingDim is the length of every stored and queried embedding vector.
const EmbeddingDim = 768

// EmbeddingRecord represents one indexed source artifact together with its embedding.
type EmbeddingRecord struct {
	Path         string    `json:"path"`
	Hash         string    `json:"hash"`
	Embedding    []float32 `json:"embedding"`
	Language     string    `json:"language"`
	LastModified int64     `json:"lastModified"` // microseconds since epoch
	LastAccessed int64     `json:"lastAccessed"` // microseconds since epoch
	LineCount    int16     `json:"lineCount"`
	// ImportedBy is never nil once stored: an empty list always decodes as []string{}.
	ImportedBy []string `json:"importedBy"`
	// ContentPreview is nil when no preview was captured; a pointer to "" is a captured empty preview.
	ContentPreview *string `json:"contentPreview,omitempty"`
}

// HasDimension reports whether the record embedding has EmbeddingDim components.
func (r *EmbeddingRecord) HasDimension() bool {
	return r != nil && len(r.Embedding) == EmbeddingDim
}

// Normalize sets a nil ImportedBy to an empty slice, the form a stored record decodes to.
func (r *EmbeddingRecord) Normalize() {
	if r != nil && r.ImportedBy == nil {
		r.ImportedBy = []string{}
	}
}
