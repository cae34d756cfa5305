package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
)

func TestQuoteIdent(t *testing.T) {
	tests := []struct {
		in     string
		expect string
	}{
		{in: "embeddings", expect: `"embeddings"`},
		{in: `we"ird`, expect: `"we""ird"`},
		{in: "", expect: `""`},
	}
	for _, tc := range tests {
		if got := QuoteIdent(tc.in); got != tc.expect {
			t.Errorf("QuoteIdent(%q) = %q, want %q", tc.in, got, tc.expect)
		}
	}
}

func TestWhere(t *testing.T) {
	if got := where("  "); got != "" {
		t.Errorf("where(blank) = %q", got)
	}
	if got := where("path = 'a''b'"); got != " WHERE path = 'a''b'" {
		t.Errorf("where = %q", got)
	}
}

func TestSchemaCodec(t *testing.T) {
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "path", Type: arrow.BinaryTypes.String},
		{Name: "embedding", Type: arrow.FixedSizeListOfField(4, arrow.Field{Name: "item", Type: arrow.PrimitiveTypes.Float32})},
		{Name: "at", Type: &arrow.TimestampType{Unit: arrow.Microsecond}},
		{Name: "tags", Type: arrow.ListOfField(arrow.Field{Name: "item", Type: arrow.BinaryTypes.String})},
		{Name: "preview", Type: arrow.BinaryTypes.String, Nullable: true},
	}, nil)
	data, err := encodeSchema(schema)
	if err != nil {
		t.Fatalf("encodeSchema: %v", err)
	}
	decoded, err := decodeSchema(data)
	if err != nil {
		t.Fatalf("decodeSchema: %v", err)
	}
	if !decoded.Equal(schema) {
		t.Fatalf("schema mismatch:\n got %v\nwant %v", decoded, schema)
	}
	if _, err := decodeSchema([]byte("garbage")); err == nil {
		t.Fatalf("expected error for invalid schema bytes")
	}
}

func TestError_Wrap(t *testing.T) {
	cause := errors.New("disk I/O error")
	err := wrap("add", "embeddings", cause)
	var engineErr *Error
	if !errors.As(err, &engineErr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if engineErr.Op != "add" || engineErr.Table != "embeddings" {
		t.Fatalf("unexpected error fields: %+v", engineErr)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to be preserved")
	}
	if again := wrap("replace", "embeddings", fmt.Errorf("tx: %w", err)); !errors.As(again, &engineErr) || engineErr.Op != "add" {
		t.Fatalf("expected inner operation to be kept, got %v", again)
	}
	if wrap("add", "t", nil) != nil {
		t.Fatalf("wrap(nil) should be nil")
	}
}

func TestValueConversions(t *testing.T) {
	if v, err := asInt64([]byte("42")); err != nil || v != 42 {
		t.Errorf("asInt64 bytes = %v, %v", v, err)
	}
	if v, err := asInt64(int64(-7)); err != nil || v != -7 {
		t.Errorf("asInt64 int64 = %v, %v", v, err)
	}
	if _, err := asInt64(true); err == nil {
		t.Errorf("asInt64 bool should fail")
	}
	if v, err := asFloat64([]byte("0.25")); err != nil || v != 0.25 {
		t.Errorf("asFloat64 = %v, %v", v, err)
	}
	if v, err := asString([]byte("x")); err != nil || v != "x" {
		t.Errorf("asString = %v, %v", v, err)
	}
}

func TestParseMetric(t *testing.T) {
	for name, want := range map[string]Metric{"": L2, "L2": L2, "cosine": Cosine, " dot ": Dot} {
		got, err := ParseMetric(name)
		if err != nil || got != want {
			t.Errorf("ParseMetric(%q) = %v, %v", name, got, err)
		}
	}
	if _, err := ParseMetric("manhattan"); err == nil {
		t.Errorf("expected error for unknown metric")
	}
}
