package sqlitevec

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/viant/codevec/vectordb/engine"
	"github.com/viant/sqlite-vec/vector"
)

// Dialect stores vectors as sqlite-vec blobs and string lists as JSON text.
type Dialect struct{}

// Name returns dialect name
func (Dialect) Name() string { return "sqlite" }

// Placeholder returns numbered parameter ?N
func (Dialect) Placeholder(position int) string { return "?" + strconv.Itoa(position) }

// ColumnType maps arrow field to sqlite column type
func (Dialect) ColumnType(field arrow.Field) (string, error) {
	switch actual := field.Type.(type) {
	case *arrow.StringType:
		return "TEXT", nil
	case *arrow.Int16Type, *arrow.Int32Type, *arrow.Int64Type, *arrow.TimestampType:
		return "INTEGER", nil
	case *arrow.Float32Type, *arrow.Float64Type:
		return "REAL", nil
	case *arrow.FixedSizeListType:
		if actual.Elem().ID() == arrow.FLOAT32 {
			return "BLOB", nil
		}
	case *arrow.ListType:
		if actual.Elem().ID() == arrow.STRING {
			return "TEXT", nil
		}
	}
	return "", fmt.Errorf("%w: %v", engine.ErrUnsupportedType, field.Type)
}

// CatalogDDL returns schema catalog DDL
func (Dialect) CatalogDDL(catalog string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	name         TEXT PRIMARY KEY,
	arrow_schema BLOB NOT NULL
)`, catalog)
}

// EncodeVector encodes vector as sqlite-vec blob; negative zeros are stored as zero
// so that a zero vector always equals zeroblob of its length.
func (Dialect) EncodeVector(values []float32) (interface{}, error) {
	normalized := make([]float32, len(values))
	for i, v := range values {
		if v != 0 {
			normalized[i] = v
		}
	}
	return vector.EncodeEmbedding(normalized)
}

// DecodeVector decodes sqlite-vec blob
func (Dialect) DecodeVector(src interface{}) ([]float32, error) {
	blob, ok := src.([]byte)
	if !ok {
		return nil, fmt.Errorf("expected vector blob, got %T", src)
	}
	return vector.DecodeEmbedding(blob)
}

// EncodeStrings encodes string list as JSON array
func (Dialect) EncodeStrings(values []string) (interface{}, error) {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// DecodeStrings decodes JSON array
func (Dialect) DecodeStrings(src interface{}) ([]string, error) {
	var data []byte
	switch actual := src.(type) {
	case string:
		data = []byte(actual)
	case []byte:
		data = actual
	default:
		return nil, fmt.Errorf("expected JSON text, got %T", src)
	}
	values := []string{}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("decode string list: %w", err)
	}
	if values == nil {
		values = []string{}
	}
	return values, nil
}

// Distance returns distance expression. vec_cosine rejects zero vectors; a zero
// operand on either side scores distance 1.
func (Dialect) Distance(metric engine.Metric, column, param string) (string, error) {
	switch metric {
	case engine.L2:
		return fmt.Sprintf("%s(%s, %s)", fnL2Distance, column, param), nil
	case engine.Cosine:
		return fmt.Sprintf("(CASE WHEN %s = zeroblob(length(%s)) OR %s = zeroblob(length(%s)) THEN 1.0 ELSE 1.0 - %s(%s, %s) END)",
			column, column, param, param, fnCosineSimilarity, column, param), nil
	case engine.Dot:
		return fmt.Sprintf("%s(%s, %s)", fnNegDot, column, param), nil
	}
	return "", fmt.Errorf("sqlitevec: unsupported metric %v", metric)
}

var _ engine.Dialect = Dialect{}
