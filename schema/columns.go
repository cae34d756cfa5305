package schema

// Kind identifies the logical type of a column.
type Kind int

const (
	// KindString is a UTF-8 string.
	KindString Kind = iota
	// KindVector is a fixed size list of EmbeddingDim float32 values.
	KindVector
	// KindTimestamp is a microsecond precision timestamp.
	KindTimestamp
	// KindInt16 is a 16-bit signed integer.
	KindInt16
	// KindStringList is a variable length list of non-null strings.
	KindStringList
)

// String returns kind name
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindVector:
		return "vector"
	case KindTimestamp:
		return "timestamp"
	case KindInt16:
		return "int16"
	case KindStringList:
		return "list<string>"
	}
	return "unknown"
}

// Column describes one column of the embeddings table.
type Column struct {
	Name     string
	Kind     Kind
	Nullable bool
}

// Column names
const (
	ColumnPath           = "path"
	ColumnHash           = "hash"
	ColumnEmbedding      = "embedding"
	ColumnLanguage       = "language"
	ColumnLastModified   = "last_modified"
	ColumnLastAccessed   = "last_accessed"
	ColumnLineCount      = "line_count"
	ColumnImportedBy     = "imported_by"
	ColumnContentPreview = "content_preview"
)

// TableName is the name of the embeddings table.
const TableName = "embeddings"

// Columns is the ordered column layout shared by encoding and decoding.
var Columns = []Column{
	{Name: ColumnPath, Kind: KindString},
	{Name: ColumnHash, Kind: KindString},
	{Name: ColumnEmbedding, Kind: KindVector},
	{Name: ColumnLanguage, Kind: KindString},
	{Name: ColumnLastModified, Kind: KindTimestamp},
	{Name: ColumnLastAccessed, Kind: KindTimestamp},
	{Name: ColumnLineCount, Kind: KindInt16},
	{Name: ColumnImportedBy, Kind: KindStringList},
	{Name: ColumnContentPreview, Kind: KindString, Nullable: true},
}
