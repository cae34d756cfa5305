package columnar

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/viant/codevec/schema"
)

var embeddingsSchema = newSchema()

// Schema returns the arrow schema of the embeddings table.
func Schema() *arrow.Schema {
	return embeddingsSchema
}

// DataType returns the arrow type used for the column kind.
func DataType(kind schema.Kind) arrow.DataType {
	switch kind {
	case schema.KindString:
		return arrow.BinaryTypes.String
	case schema.KindVector:
		return arrow.FixedSizeListOfField(schema.EmbeddingDim, arrow.Field{Name: "item", Type: arrow.PrimitiveTypes.Float32})
	case schema.KindTimestamp:
		return &arrow.TimestampType{Unit: arrow.Microsecond}
	case schema.KindInt16:
		return arrow.PrimitiveTypes.Int16
	case schema.KindStringList:
		return arrow.ListOfField(arrow.Field{Name: "item", Type: arrow.BinaryTypes.String})
	}
	panic(fmt.Sprintf("columnar: unsupported column kind %v", kind))
}

func newSchema() *arrow.Schema {
	fields := make([]arrow.Field, len(schema.Columns))
	for i, column := range schema.Columns {
		fields[i] = arrow.Field{Name: column.Name, Type: DataType(column.Kind), Nullable: column.Nullable}
	}
	return arrow.NewSchema(fields, nil)
}
