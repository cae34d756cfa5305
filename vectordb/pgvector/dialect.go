package pgvector

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/lib/pq"
	pgv "github.com/pgvector/pgvector-go"
	"github.com/viant/codevec/vectordb/engine"
)

// Dialect stores vectors in pgvector columns and string lists as TEXT[].
type Dialect struct{}

// Name returns dialect name
func (Dialect) Name() string { return "postgres" }

// Placeholder returns numbered parameter
func (Dialect) Placeholder(position int) string { return fmt.Sprintf("$%d", position) }

// ColumnType maps arrow field to postgres column type
func (Dialect) ColumnType(field arrow.Field) (string, error) {
	switch actual := field.Type.(type) {
	case *arrow.StringType:
		return "TEXT", nil
	case *arrow.Int16Type:
		return "SMALLINT", nil
	case *arrow.Int32Type:
		return "INTEGER", nil
	case *arrow.Int64Type, *arrow.TimestampType:
		return "BIGINT", nil
	case *arrow.Float32Type:
		return "REAL", nil
	case *arrow.Float64Type:
		return "DOUBLE PRECISION", nil
	case *arrow.FixedSizeListType:
		if actual.Elem().ID() == arrow.FLOAT32 {
			return fmt.Sprintf("vector(%d)", actual.Len()), nil
		}
	case *arrow.ListType:
		if actual.Elem().ID() == arrow.STRING {
			return "TEXT[]", nil
		}
	}
	return "", fmt.Errorf("%w: %v", engine.ErrUnsupportedType, field.Type)
}

// CatalogDDL returns schema catalog DDL
func (Dialect) CatalogDDL(catalog string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	name         TEXT PRIMARY KEY,
	arrow_schema BYTEA NOT NULL
)`, catalog)
}

// EncodeVector wraps values as pgvector parameter
func (Dialect) EncodeVector(values []float32) (interface{}, error) {
	return pgv.NewVector(values), nil
}

// DecodeVector parses pgvector text representation
func (Dialect) DecodeVector(src interface{}) ([]float32, error) {
	var v pgv.Vector
	if err := v.Scan(src); err != nil {
		return nil, err
	}
	return v.Slice(), nil
}

// EncodeStrings wraps values as TEXT[] parameter
func (Dialect) EncodeStrings(values []string) (interface{}, error) {
	if values == nil {
		values = []string{}
	}
	return pq.StringArray(values), nil
}

// DecodeStrings parses TEXT[] value
func (Dialect) DecodeStrings(src interface{}) ([]string, error) {
	var values pq.StringArray
	if err := values.Scan(src); err != nil {
		return nil, err
	}
	if values == nil {
		return []string{}, nil
	}
	return values, nil
}

// Distance returns pgvector distance operator expression
func (Dialect) Distance(metric engine.Metric, column, param string) (string, error) {
	switch metric {
	case engine.L2:
		return fmt.Sprintf("(%s <-> %s)", column, param), nil
	case engine.Cosine:
		return fmt.Sprintf("(%s <=> %s)", column, param), nil
	case engine.Dot:
		return fmt.Sprintf("(%s <#> %s)", column, param), nil
	}
	return "", fmt.Errorf("pgvector: unsupported metric %v", metric)
}

var _ engine.Dialect = Dialect{}
