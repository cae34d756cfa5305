package sqlitevec

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/viant/codevec/vectordb/engine"
)

var testSchema = arrow.NewSchema([]arrow.Field{
	{Name: "id", Type: arrow.BinaryTypes.String},
	{Name: "vec", Type: arrow.FixedSizeListOfField(3, arrow.Field{Name: "item", Type: arrow.PrimitiveTypes.Float32})},
	{Name: "tags", Type: arrow.ListOfField(arrow.Field{Name: "item", Type: arrow.BinaryTypes.String})},
	{Name: "note", Type: arrow.BinaryTypes.String, Nullable: true},
}, nil)

type testRow struct {
	id   string
	vec  []float32
	tags []string
	note *string
}

func buildRecord(t *testing.T, rows ...testRow) arrow.Record {
	t.Helper()
	builder := array.NewRecordBuilder(memory.NewGoAllocator(), testSchema)
	defer builder.Release()
	ids := builder.Field(0).(*array.StringBuilder)
	vecs := builder.Field(1).(*array.FixedSizeListBuilder)
	tags := builder.Field(2).(*array.ListBuilder)
	notes := builder.Field(3).(*array.StringBuilder)
	for _, row := range rows {
		ids.Append(row.id)
		vecs.Append(true)
		vecs.ValueBuilder().(*array.Float32Builder).AppendValues(row.vec, nil)
		tags.Append(true)
		tags.ValueBuilder().(*array.StringBuilder).AppendValues(row.tags, nil)
		if row.note == nil {
			notes.AppendNull()
		} else {
			notes.Append(*row.note)
		}
	}
	return builder.NewRecord()
}

func readIDs(t *testing.T, reader array.RecordReader) ([]string, []float64) {
	t.Helper()
	defer reader.Release()
	var ids []string
	var distances []float64
	for reader.Next() {
		rec := reader.Record()
		col := rec.Column(0).(*array.String)
		for i := 0; i < col.Len(); i++ {
			ids = append(ids, col.Value(i))
		}
		if int(rec.NumCols()) > len(testSchema.Fields()) {
			dist := rec.Column(len(testSchema.Fields())).(*array.Float64)
			distances = append(distances, dist.Float64Values()...)
		}
	}
	if err := reader.Err(); err != nil {
		t.Fatalf("reader error: %v", err)
	}
	return ids, distances
}

func openTestTable(t *testing.T, opts ...engine.Option) (*engine.SQLConnection, engine.Table) {
	t.Helper()
	conn, err := Open(":memory:", WithEngineOptions(opts...))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	table, err := conn.CreateTable(context.Background(), "items", testSchema)
	if err != nil {
		t.Fatalf("create table: %v", err)
	}
	return conn, table
}

func TestConnection_CreateReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "db.sqlite")
	conn, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := conn.OpenTable(ctx, "items"); !errors.Is(err, engine.ErrTableNotFound) {
		t.Fatalf("expected ErrTableNotFound, got %v", err)
	}
	table, err := conn.CreateTable(ctx, "items", testSchema)
	if err != nil {
		t.Fatalf("create table: %v", err)
	}
	rec := buildRecord(t, testRow{id: "a", vec: []float32{1, 2, 3}, tags: []string{"x"}})
	defer rec.Release()
	if err := table.Add(ctx, rec); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := conn.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	table, err = reopened.OpenTable(ctx, "items")
	if err != nil {
		t.Fatalf("open table: %v", err)
	}
	if !table.Schema().Equal(testSchema) {
		t.Fatalf("schema mismatch after reopen: %v", table.Schema())
	}
	// creating again keeps the existing table and rows
	table, err = reopened.CreateTable(ctx, "items", testSchema)
	if err != nil {
		t.Fatalf("create existing table: %v", err)
	}
	count, err := table.Count(ctx, "")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}
}

func TestTable_QueryRoundTrip(t *testing.T) {
	ctx := context.Background()
	_, table := openTestTable(t)
	note := "it's a note"
	empty := ""
	rec := buildRecord(t,
		testRow{id: "a", vec: []float32{1, 2, 3}, tags: []string{"x", "y"}, note: &note},
		testRow{id: "b", vec: []float32{4, 5, 6}, tags: []string{}},
		testRow{id: "c", vec: []float32{7, 8, 9}, tags: nil, note: &empty},
	)
	defer rec.Release()
	if err := table.Add(ctx, rec); err != nil {
		t.Fatalf("add: %v", err)
	}

	reader, err := table.Query(ctx, engine.Query{Filter: "id = 'a'", Limit: 1})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer reader.Release()
	if !reader.Next() {
		t.Fatalf("expected a batch, err=%v", reader.Err())
	}
	got := reader.Record()
	if got.NumRows() != 1 {
		t.Fatalf("rows = %d", got.NumRows())
	}
	vec := got.Column(1).(*array.FixedSizeList).ListValues().(*array.Float32).Float32Values()
	if vec[0] != 1 || vec[2] != 3 {
		t.Fatalf("vector = %v", vec)
	}
	tags := got.Column(2).(*array.List)
	if start, end := tags.ValueOffsets(0); end-start != 2 {
		t.Fatalf("tags length = %d", end-start)
	}
	if n := got.Column(3).(*array.String).Value(0); n != note {
		t.Fatalf("note = %q", n)
	}

	reader, err = table.Query(ctx, engine.Query{Filter: "id IN ('b', 'c')"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer reader.Release()
	for reader.Next() {
		notes := reader.Record().Column(3).(*array.String)
		ids := reader.Record().Column(0).(*array.String)
		for i := 0; i < notes.Len(); i++ {
			switch ids.Value(i) {
			case "b":
				if !notes.IsNull(i) {
					t.Errorf("expected null note for b")
				}
			case "c":
				if notes.IsNull(i) || notes.Value(i) != "" {
					t.Errorf("expected empty note for c")
				}
			}
		}
	}
}

func TestTable_QueryPages(t *testing.T) {
	ctx := context.Background()
	_, table := openTestTable(t, engine.WithPageSize(2))
	var rows []testRow
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		rows = append(rows, testRow{id: id, vec: []float32{0, 0, 0}})
	}
	rec := buildRecord(t, rows...)
	defer rec.Release()
	if err := table.Add(ctx, rec); err != nil {
		t.Fatalf("add: %v", err)
	}
	reader, err := table.Query(ctx, engine.Query{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer reader.Release()
	batches, total := 0, 0
	for reader.Next() {
		batches++
		total += int(reader.Record().NumRows())
	}
	if batches != 3 || total != 5 {
		t.Fatalf("batches = %d, rows = %d", batches, total)
	}
}

func TestTable_Search(t *testing.T) {
	ctx := context.Background()
	_, table := openTestTable(t)
	rec := buildRecord(t,
		testRow{id: "far", vec: []float32{10, 10, 10}},
		testRow{id: "near", vec: []float32{1, 1, 1}},
		testRow{id: "mid", vec: []float32{3, 3, 3}},
	)
	defer rec.Release()
	if err := table.Add(ctx, rec); err != nil {
		t.Fatalf("add: %v", err)
	}

	tests := []struct {
		name   string
		query  engine.Query
		expect []string
	}{
		{name: "l2 top 2", query: engine.Query{Limit: 2}, expect: []string{"near", "mid"}},
		{name: "l2 filtered", query: engine.Query{Limit: 5, Filter: "id <> 'near'"}, expect: []string{"mid", "far"}},
		{name: "zero limit", query: engine.Query{Limit: 0}, expect: nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			reader, err := table.Search(ctx, []float32{0, 0, 0}, tc.query)
			if err != nil {
				t.Fatalf("search: %v", err)
			}
			ids, distances := readIDs(t, reader)
			if len(ids) != len(tc.expect) {
				t.Fatalf("ids = %v, want %v", ids, tc.expect)
			}
			for i := range ids {
				if ids[i] != tc.expect[i] {
					t.Fatalf("ids = %v, want %v", ids, tc.expect)
				}
			}
			for i := 1; i < len(distances); i++ {
				if distances[i] < distances[i-1] {
					t.Fatalf("distances not ascending: %v", distances)
				}
			}
		})
	}

	if _, err := table.Search(ctx, []float32{1, 2}, engine.Query{Limit: 1}); !errors.Is(err, engine.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestTable_DeleteAndReplace(t *testing.T) {
	ctx := context.Background()
	_, table := openTestTable(t)
	rec := buildRecord(t,
		testRow{id: "it's", vec: []float32{1, 1, 1}},
		testRow{id: "other", vec: []float32{2, 2, 2}},
	)
	defer rec.Release()
	if err := table.Add(ctx, rec); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := table.Delete(ctx, ""); !errors.Is(err, engine.ErrEmptyFilter) {
		t.Fatalf("expected ErrEmptyFilter, got %v", err)
	}
	if err := table.Delete(ctx, "id = 'it''s'"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if count, _ := table.Count(ctx, ""); count != 1 {
		t.Fatalf("count after delete = %d", count)
	}
	if err := table.Delete(ctx, "id = 'missing'"); err != nil {
		t.Fatalf("delete missing: %v", err)
	}

	replacer, ok := table.(engine.Replacer)
	if !ok {
		t.Fatalf("sqlite table should support Replace")
	}
	updated := buildRecord(t, testRow{id: "other", vec: []float32{5, 5, 5}, tags: []string{"v2"}})
	defer updated.Release()
	if err := replacer.Replace(ctx, "id = 'other'", updated); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if count, _ := table.Count(ctx, "id = 'other'"); count != 1 {
		t.Fatalf("count after replace = %d", count)
	}

	bad := arrow.NewSchema([]arrow.Field{{Name: "id", Type: arrow.BinaryTypes.String}}, nil)
	builder := array.NewRecordBuilder(memory.NewGoAllocator(), bad)
	builder.Field(0).(*array.StringBuilder).Append("x")
	badRec := builder.NewRecord()
	builder.Release()
	defer badRec.Release()
	if err := replacer.Replace(ctx, "id = 'other'", badRec); !errors.Is(err, engine.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
	if count, _ := table.Count(ctx, "id = 'other'"); count != 1 {
		t.Fatalf("failed replace must keep the row, count = %d", count)
	}
}

func TestDialect_DistanceSQL(t *testing.T) {
	conn, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer conn.Close()
	d := Dialect{}
	negZero := float32(math.Copysign(0, -1))
	tests := []struct {
		name   string
		metric engine.Metric
		a, b   []float32
		expect float64
	}{
		{name: "l2", metric: engine.L2, a: []float32{0, 0}, b: []float32{3, 4}, expect: 5},
		{name: "cosine same", metric: engine.Cosine, a: []float32{1, 0}, b: []float32{2, 0}, expect: 0},
		{name: "cosine orthogonal", metric: engine.Cosine, a: []float32{1, 0}, b: []float32{0, 1}, expect: 1},
		{name: "cosine zero column", metric: engine.Cosine, a: []float32{0, 0}, b: []float32{1, 0}, expect: 1},
		{name: "cosine zero query", metric: engine.Cosine, a: []float32{1, 0}, b: []float32{negZero, 0}, expect: 1},
		{name: "cosine both zero", metric: engine.Cosine, a: []float32{0, 0}, b: []float32{0, 0}, expect: 1},
		{name: "dot", metric: engine.Dot, a: []float32{2, 3}, b: []float32{4, 5}, expect: -23},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			expr, err := d.Distance(tc.metric, d.Placeholder(1), d.Placeholder(2))
			if err != nil {
				t.Fatalf("distance: %v", err)
			}
			a, err := d.EncodeVector(tc.a)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			b, err := d.EncodeVector(tc.b)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			var got float64
			if err := conn.DB().QueryRowContext(context.Background(), "SELECT "+expr, a, b).Scan(&got); err != nil {
				t.Fatalf("query %s: %v", expr, err)
			}
			if math.Abs(got-tc.expect) > 1e-9 {
				t.Fatalf("got %v, want %v", got, tc.expect)
			}
		})
	}
	if _, err := d.Distance(engine.Metric(42), "c", "?1"); err == nil {
		t.Fatalf("expected error for unknown metric")
	}
}

func TestTable_SearchCosineZeroVector(t *testing.T) {
	ctx := context.Background()
	_, table := openTestTable(t)
	rec := buildRecord(t,
		testRow{id: "zero", vec: []float32{0, 0, 0}},
		testRow{id: "x", vec: []float32{1, 0, 0}},
	)
	defer rec.Release()
	if err := table.Add(ctx, rec); err != nil {
		t.Fatalf("add: %v", err)
	}
	reader, err := table.Search(ctx, []float32{2, 0, 0}, engine.Query{Limit: 2, Metric: engine.Cosine})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	ids, distances := readIDs(t, reader)
	if len(ids) != 2 || ids[0] != "x" || ids[1] != "zero" {
		t.Fatalf("ids = %v", ids)
	}
	if math.Abs(distances[0]) > 1e-9 || distances[1] != 1 {
		t.Fatalf("distances = %v", distances)
	}
	reader, err = table.Search(ctx, []float32{0, 0, 0}, engine.Query{Limit: 2, Metric: engine.Cosine})
	if err != nil {
		t.Fatalf("search zero query: %v", err)
	}
	if ids, distances = readIDs(t, reader); len(ids) != 2 || distances[0] != 1 || distances[1] != 1 {
		t.Fatalf("zero query: ids = %v, distances = %v", ids, distances)
	}
}
