package columnar

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/viant/codevec/schema"
)

// Validate checks that every record carries an embedding of schema.EmbeddingDim components.
func Validate(records []*schema.EmbeddingRecord) error {
	for i, record := range records {
		if record == nil {
			return fmt.Errorf("record %d is nil", i)
		}
		if len(record.Embedding) != schema.EmbeddingDim {
			return fmt.Errorf("%w: expected %d, got %d (path: %s)", ErrInvalidDimension, schema.EmbeddingDim, len(record.Embedding), record.Path)
		}
	}
	return nil
}

// Encode converts records into a single arrow record batch following schema.Columns order.
// The whole batch is rejected when any record has an invalid embedding dimension.
// The caller owns the returned record and must release it.
func Encode(mem memory.Allocator, records []*schema.EmbeddingRecord) (arrow.Record, error) {
	if err := Validate(records); err != nil {
		return nil, err
	}
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	builder := array.NewRecordBuilder(mem, embeddingsSchema)
	defer builder.Release()
	builder.Reserve(len(records))

	for i, column := range schema.Columns {
		field := builder.Field(i)
		switch column.Name {
		case schema.ColumnPath:
			appendStrings(field, records, func(r *schema.EmbeddingRecord) string { return r.Path })
		case schema.ColumnHash:
			appendStrings(field, records, func(r *schema.EmbeddingRecord) string { return r.Hash })
		case schema.ColumnLanguage:
			appendStrings(field, records, func(r *schema.EmbeddingRecord) string { return r.Language })
		case schema.ColumnEmbedding:
			appendEmbeddings(field.(*array.FixedSizeListBuilder), records)
		case schema.ColumnLastModified:
			appendTimestamps(field, records, func(r *schema.EmbeddingRecord) int64 { return r.LastModified })
		case schema.ColumnLastAccessed:
			appendTimestamps(field, records, func(r *schema.EmbeddingRecord) int64 { return r.LastAccessed })
		case schema.ColumnLineCount:
			values := make([]int16, len(records))
			for j, record := range records {
				values[j] = record.LineCount
			}
			field.(*array.Int16Builder).AppendValues(values, nil)
		case schema.ColumnImportedBy:
			appendImportedBy(field.(*array.ListBuilder), records)
		case schema.ColumnContentPreview:
			previews := field.(*array.StringBuilder)
			for _, record := range records {
				if record.ContentPreview == nil {
					previews.AppendNull()
					continue
				}
				previews.Append(*record.ContentPreview)
			}
		default:
			return nil, fmt.Errorf("columnar: unsupported column %v", column.Name)
		}
	}
	return builder.NewRecord(), nil
}

func appendStrings(field array.Builder, records []*schema.EmbeddingRecord, value func(*schema.EmbeddingRecord) string) {
	values := make([]string, len(records))
	for i, record := range records {
		values[i] = value(record)
	}
	field.(*array.StringBuilder).AppendValues(values, nil)
}

func appendTimestamps(field array.Builder, records []*schema.EmbeddingRecord, value func(*schema.EmbeddingRecord) int64) {
	values := make([]arrow.Timestamp, len(records))
	for i, record := range records {
		values[i] = arrow.Timestamp(value(record))
	}
	field.(*array.TimestampBuilder).AppendValues(values, nil)
}

// appendEmbeddings writes all vectors as one flat float32 run; the list type slices it by dimension.
func appendEmbeddings(builder *array.FixedSizeListBuilder, records []*schema.EmbeddingRecord) {
	flat := make([]float32, 0, len(records)*schema.EmbeddingDim)
	for _, record := range records {
		flat = append(flat, record.Embedding...)
	}
	builder.ValueBuilder().(*array.Float32Builder).AppendValues(flat, nil)
	builder.AppendValues(validity(len(records)))
}

func appendImportedBy(builder *array.ListBuilder, records []*schema.EmbeddingRecord) {
	var values []string
	offsets := make([]int32, len(records))
	for i, record := range records {
		offsets[i] = int32(len(values))
		values = append(values, record.ImportedBy...)
	}
	builder.ValueBuilder().(*array.StringBuilder).AppendValues(values, nil)
	builder.AppendValues(offsets, validity(len(records)))
}

func validity(n int) []bool {
	valid := make([]bool, n)
	for i := range valid {
		valid[i] = true
	}
	return valid
}

// Decode converts the row at the given index back into a record.
// Columns are read by position; trailing columns beyond schema.Columns are ignored.
func Decode(rec arrow.Record, row int) (*schema.EmbeddingRecord, error) {
	if rec == nil {
		return nil, fmt.Errorf("%w: nil record batch", ErrColumnTypeMismatch)
	}
	if row < 0 || int64(row) >= rec.NumRows() {
		return nil, fmt.Errorf("%w: row %d, rows %d", ErrRowOutOfBounds, row, rec.NumRows())
	}
	if rec.NumCols() < int64(len(schema.Columns)) {
		return nil, fmt.Errorf("%w: expected at least %d columns, got %d", ErrColumnTypeMismatch, len(schema.Columns), rec.NumCols())
	}
	result := &schema.EmbeddingRecord{}
	for i, column := range schema.Columns {
		if name := rec.ColumnName(i); name != column.Name {
			return nil, fmt.Errorf("%w: column %d: expected %v, got %v", ErrColumnTypeMismatch, i, column.Name, name)
		}
		if err := decodeColumn(result, column, rec.Column(i), row); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// DecodeAll decodes every row of the batch.
func DecodeAll(rec arrow.Record) ([]*schema.EmbeddingRecord, error) {
	if rec == nil {
		return nil, nil
	}
	result := make([]*schema.EmbeddingRecord, 0, rec.NumRows())
	for row := 0; row < int(rec.NumRows()); row++ {
		record, err := Decode(rec, row)
		if err != nil {
			return nil, err
		}
		result = append(result, record)
	}
	return result, nil
}

func decodeColumn(record *schema.EmbeddingRecord, column schema.Column, values arrow.Array, row int) error {
	switch column.Kind {
	case schema.KindString:
		texts, ok := values.(*array.String)
		if !ok {
			return mismatch(column, values)
		}
		switch column.Name {
		case schema.ColumnPath:
			record.Path = texts.Value(row)
		case schema.ColumnHash:
			record.Hash = texts.Value(row)
		case schema.ColumnLanguage:
			record.Language = texts.Value(row)
		case schema.ColumnContentPreview:
			if texts.IsNull(row) {
				record.ContentPreview = nil
				return nil
			}
			preview := texts.Value(row)
			record.ContentPreview = &preview
		}
	case schema.KindVector:
		list, ok := values.(*array.FixedSizeList)
		if !ok {
			return mismatch(column, values)
		}
		if size := list.DataType().(*arrow.FixedSizeListType).Len(); size != schema.EmbeddingDim {
			return fmt.Errorf("%w: column %v: expected list size %d, got %d", ErrColumnTypeMismatch, column.Name, schema.EmbeddingDim, size)
		}
		floats, ok := list.ListValues().(*array.Float32)
		if !ok {
			return mismatch(column, list.ListValues())
		}
		start, end := list.ValueOffsets(row)
		embedding := make([]float32, end-start)
		copy(embedding, floats.Float32Values()[start:end])
		record.Embedding = embedding
	case schema.KindTimestamp:
		timestamps, ok := values.(*array.Timestamp)
		if !ok {
			return mismatch(column, values)
		}
		value := int64(timestamps.Value(row))
		if column.Name == schema.ColumnLastModified {
			record.LastModified = value
		} else {
			record.LastAccessed = value
		}
	case schema.KindInt16:
		ints, ok := values.(*array.Int16)
		if !ok {
			return mismatch(column, values)
		}
		record.LineCount = ints.Value(row)
	case schema.KindStringList:
		list, ok := values.(*array.List)
		if !ok {
			return mismatch(column, values)
		}
		items, ok := list.ListValues().(*array.String)
		if !ok {
			return mismatch(column, list.ListValues())
		}
		start, end := list.ValueOffsets(row)
		importedBy := make([]string, 0, end-start)
		for j := start; j < end; j++ {
			importedBy = append(importedBy, items.Value(int(j)))
		}
		record.ImportedBy = importedBy
	}
	return nil
}

func mismatch(column schema.Column, values arrow.Array) error {
	return fmt.Errorf("%w: column %v: expected %v, got %v", ErrColumnTypeMismatch, column.Name, column.Kind, values.DataType())
}
