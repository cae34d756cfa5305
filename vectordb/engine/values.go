package engine

import (
	"fmt"
	"strconv"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// bindValue converts one arrow cell into a driver argument.
func bindValue(dialect Dialect, column arrow.Array, row int) (interface{}, error) {
	if column.IsNull(row) {
		return nil, nil
	}
	switch actual := column.(type) {
	case *array.String:
		return actual.Value(row), nil
	case *array.Int16:
		return int64(actual.Value(row)), nil
	case *array.Int32:
		return int64(actual.Value(row)), nil
	case *array.Int64:
		return actual.Value(row), nil
	case *array.Timestamp:
		return int64(actual.Value(row)), nil
	case *array.Float32:
		return float64(actual.Value(row)), nil
	case *array.Float64:
		return actual.Value(row), nil
	case *array.FixedSizeList:
		floats, ok := actual.ListValues().(*array.Float32)
		if !ok {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedType, column.DataType())
		}
		start, end := actual.ValueOffsets(row)
		return dialect.EncodeVector(floats.Float32Values()[start:end])
	case *array.List:
		items, ok := actual.ListValues().(*array.String)
		if !ok {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedType, column.DataType())
		}
		start, end := actual.ValueOffsets(row)
		values := make([]string, 0, end-start)
		for i := start; i < end; i++ {
			values = append(values, items.Value(int(i)))
		}
		return dialect.EncodeStrings(values)
	}
	return nil, fmt.Errorf("%w: %v", ErrUnsupportedType, column.DataType())
}

// appendValue appends a scanned driver value to the field builder.
func appendValue(dialect Dialect, builder array.Builder, field arrow.Field, src interface{}) error {
	if src == nil {
		if !field.Nullable {
			return fmt.Errorf("engine: column %s: unexpected null", field.Name)
		}
		builder.AppendNull()
		return nil
	}
	switch actual := builder.(type) {
	case *array.StringBuilder:
		value, err := asString(src)
		if err != nil {
			return fmt.Errorf("engine: column %s: %w", field.Name, err)
		}
		actual.Append(value)
	case *array.Int16Builder:
		value, err := asInt64(src)
		if err != nil {
			return fmt.Errorf("engine: column %s: %w", field.Name, err)
		}
		actual.Append(int16(value))
	case *array.Int32Builder:
		value, err := asInt64(src)
		if err != nil {
			return fmt.Errorf("engine: column %s: %w", field.Name, err)
		}
		actual.Append(int32(value))
	case *array.Int64Builder:
		value, err := asInt64(src)
		if err != nil {
			return fmt.Errorf("engine: column %s: %w", field.Name, err)
		}
		actual.Append(value)
	case *array.TimestampBuilder:
		value, err := asInt64(src)
		if err != nil {
			return fmt.Errorf("engine: column %s: %w", field.Name, err)
		}
		actual.Append(arrow.Timestamp(value))
	case *array.Float32Builder:
		value, err := asFloat64(src)
		if err != nil {
			return fmt.Errorf("engine: column %s: %w", field.Name, err)
		}
		actual.Append(float32(value))
	case *array.Float64Builder:
		value, err := asFloat64(src)
		if err != nil {
			return fmt.Errorf("engine: column %s: %w", field.Name, err)
		}
		actual.Append(value)
	case *array.FixedSizeListBuilder:
		values, err := dialect.DecodeVector(src)
		if err != nil {
			return fmt.Errorf("engine: column %s: %w", field.Name, err)
		}
		listType := field.Type.(*arrow.FixedSizeListType)
		if len(values) != int(listType.Len()) {
			return fmt.Errorf("engine: column %s: expected %d values, got %d", field.Name, listType.Len(), len(values))
		}
		actual.Append(true)
		actual.ValueBuilder().(*array.Float32Builder).AppendValues(values, nil)
	case *array.ListBuilder:
		values, err := dialect.DecodeStrings(src)
		if err != nil {
			return fmt.Errorf("engine: column %s: %w", field.Name, err)
		}
		actual.Append(true)
		actual.ValueBuilder().(*array.StringBuilder).AppendValues(values, nil)
	default:
		return fmt.Errorf("%w: %v", ErrUnsupportedType, field.Type)
	}
	return nil
}

func asString(src interface{}) (string, error) {
	switch actual := src.(type) {
	case string:
		return actual, nil
	case []byte:
		return string(actual), nil
	}
	return "", fmt.Errorf("expected string, got %T", src)
}

func asInt64(src interface{}) (int64, error) {
	switch actual := src.(type) {
	case int64:
		return actual, nil
	case int32:
		return int64(actual), nil
	case int:
		return int64(actual), nil
	case float64:
		return int64(actual), nil
	case []byte:
		return strconv.ParseInt(string(actual), 10, 64)
	case string:
		return strconv.ParseInt(actual, 10, 64)
	}
	return 0, fmt.Errorf("expected integer, got %T", src)
}

func asFloat64(src interface{}) (float64, error) {
	switch actual := src.(type) {
	case float64:
		return actual, nil
	case float32:
		return float64(actual), nil
	case int64:
		return float64(actual), nil
	case []byte:
		return strconv.ParseFloat(string(actual), 64)
	case string:
		return strconv.ParseFloat(actual, 64)
	}
	return 0, fmt.Errorf("expected float, got %T", src)
}
