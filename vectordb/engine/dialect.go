package engine

import "github.com/apache/arrow-go/v18/arrow"

// Dialect adapts the SQL table to a concrete database.
//
// Scalar values are exchanged as Go primitives; vectors and string lists go
// through the Encode/Decode pairs so each database can pick its own storage.
type Dialect interface {
	Name() string
	// Placeholder returns the bind parameter for the 1-based position.
	Placeholder(position int) string
	// ColumnType returns the column definition for an arrow field, without nullability.
	ColumnType(field arrow.Field) (string, error)
	// CatalogDDL creates the table holding serialized table schemas.
	CatalogDDL(catalog string) string
	EncodeVector(values []float32) (interface{}, error)
	DecodeVector(src interface{}) ([]float32, error)
	EncodeStrings(values []string) (interface{}, error)
	DecodeStrings(src interface{}) ([]string, error)
	// Distance returns an expression computing the metric between column and param.
	Distance(metric Metric, column, param string) (string, error)
}

// QuoteIdent quotes an identifier using ANSI double quotes.
func QuoteIdent(name string) string {
	out := make([]byte, 0, len(name)+2)
	out = append(out, '"')
	for i := 0; i < len(name); i++ {
		if name[i] == '"' {
			out = append(out, '"')
		}
		out = append(out, name[i])
	}
	return string(append(out, '"'))
}
