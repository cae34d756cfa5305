package pgvector

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/viant/codevec/vectordb/engine"
)

func TestDialect_ColumnType(t *testing.T) {
	tests := []struct {
		name   string
		field  arrow.Field
		expect string
		err    error
	}{
		{name: "text", field: arrow.Field{Type: arrow.BinaryTypes.String}, expect: "TEXT"},
		{name: "smallint", field: arrow.Field{Type: arrow.PrimitiveTypes.Int16}, expect: "SMALLINT"},
		{name: "timestamp", field: arrow.Field{Type: &arrow.TimestampType{Unit: arrow.Microsecond}}, expect: "BIGINT"},
		{name: "vector", field: arrow.Field{Type: arrow.FixedSizeListOf(768, arrow.PrimitiveTypes.Float32)}, expect: "vector(768)"},
		{name: "text array", field: arrow.Field{Type: arrow.ListOf(arrow.BinaryTypes.String)}, expect: "TEXT[]"},
		{name: "int list", field: arrow.Field{Type: arrow.ListOf(arrow.PrimitiveTypes.Int64)}, err: engine.ErrUnsupportedType},
		{name: "bool", field: arrow.Field{Type: arrow.FixedWidthTypes.Boolean}, err: engine.ErrUnsupportedType},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Dialect{}.ColumnType(tc.field)
			if tc.err != nil {
				if !errors.Is(err, tc.err) {
					t.Fatalf("expected %v, got %v", tc.err, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.expect {
				t.Fatalf("got %q, want %q", got, tc.expect)
			}
		})
	}
}

func TestDialect_Distance(t *testing.T) {
	d := Dialect{}
	expect := map[engine.Metric]string{
		engine.L2:     `("embedding" <-> $1)`,
		engine.Cosine: `("embedding" <=> $1)`,
		engine.Dot:    `("embedding" <#> $1)`,
	}
	for metric, want := range expect {
		got, err := d.Distance(metric, engine.QuoteIdent("embedding"), d.Placeholder(1))
		if err != nil {
			t.Fatalf("%v: %v", metric, err)
		}
		if got != want {
			t.Errorf("%v: got %q, want %q", metric, got, want)
		}
	}
	if _, err := d.Distance(engine.Metric(42), "c", "$1"); err == nil {
		t.Fatalf("expected error for unknown metric")
	}
}

func TestDialect_Values(t *testing.T) {
	d := Dialect{}
	vec, err := d.DecodeVector([]byte("[0.5,1,-2]"))
	if err != nil {
		t.Fatalf("decode vector: %v", err)
	}
	if !reflect.DeepEqual(vec, []float32{0.5, 1, -2}) {
		t.Fatalf("vector = %v", vec)
	}
	strs, err := d.DecodeStrings([]byte(`{main.rs,"it's a file.rs"}`))
	if err != nil {
		t.Fatalf("decode strings: %v", err)
	}
	if !reflect.DeepEqual(strs, []string{"main.rs", "it's a file.rs"}) {
		t.Fatalf("strings = %v", strs)
	}
	empty, err := d.DecodeStrings([]byte("{}"))
	if err != nil {
		t.Fatalf("decode empty: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", empty)
	}
}

// TestOpen_Integration runs against a live server when CODEVEC_PG_DSN is set.
func TestOpen_Integration(t *testing.T) {
	dsn := os.Getenv("CODEVEC_PG_DSN")
	if dsn == "" {
		t.Skip("CODEVEC_PG_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	conn, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer conn.Close()

	schema := arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.BinaryTypes.String},
		{Name: "vec", Type: arrow.FixedSizeListOfField(2, arrow.Field{Name: "item", Type: arrow.PrimitiveTypes.Float32})},
		{Name: "tags", Type: arrow.ListOfField(arrow.Field{Name: "item", Type: arrow.BinaryTypes.String})},
	}, nil)
	name := fmt.Sprintf("codevec_it_%d", time.Now().UnixNano())
	table, err := conn.CreateTable(ctx, name, schema)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer func() {
		_, _ = conn.DB().ExecContext(context.Background(), "DROP TABLE "+engine.QuoteIdent(name))
		_, _ = conn.DB().ExecContext(context.Background(), "DELETE FROM codevec_catalog WHERE name = $1", name)
	}()

	builder := array.NewRecordBuilder(memory.NewGoAllocator(), schema)
	ids := builder.Field(0).(*array.StringBuilder)
	vecs := builder.Field(1).(*array.FixedSizeListBuilder)
	tags := builder.Field(2).(*array.ListBuilder)
	for i, id := range []string{"a", "b", "c"} {
		ids.Append(id)
		vecs.Append(true)
		vecs.ValueBuilder().(*array.Float32Builder).AppendValues([]float32{float32(i), float32(i)}, nil)
		tags.Append(true)
		tags.ValueBuilder().(*array.StringBuilder).Append("t" + id)
	}
	rec := builder.NewRecord()
	builder.Release()
	defer rec.Release()
	if err := table.Add(ctx, rec); err != nil {
		t.Fatalf("add: %v", err)
	}

	reader, err := table.Search(ctx, []float32{0.9, 0.9}, engine.Query{Limit: 2})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	defer reader.Release()
	var got []string
	for reader.Next() {
		col := reader.Record().Column(0).(*array.String)
		for i := 0; i < col.Len(); i++ {
			got = append(got, col.Value(i))
		}
	}
	if err := reader.Err(); err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 2 || got[0] != "b" {
		t.Fatalf("unexpected search order: %v", got)
	}
}
