package engine

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// SQLTable is a Table stored in a SQL database.
type SQLTable struct {
	conn    *SQLConnection
	name    string
	schema  *arrow.Schema
	columns []string
}

// Name returns table name
func (t *SQLTable) Name() string { return t.name }

// Schema returns table schema
func (t *SQLTable) Schema() *arrow.Schema { return t.schema }

// Add inserts every row of the batch in a single transaction.
func (t *SQLTable) Add(ctx context.Context, rec arrow.Record) error {
	if err := t.checkBatch(rec); err != nil {
		return err
	}
	if rec.NumRows() == 0 {
		return nil
	}
	return t.inTx(ctx, "add", func(tx *sql.Tx) error {
		return t.insert(ctx, tx, rec)
	})
}

// Replace deletes rows matching the filter and appends the batch atomically.
func (t *SQLTable) Replace(ctx context.Context, filter string, rec arrow.Record) error {
	if err := t.checkBatch(rec); err != nil {
		return err
	}
	if strings.TrimSpace(filter) == "" {
		return ErrEmptyFilter
	}
	return t.inTx(ctx, "replace", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, t.deleteSQL(filter)); err != nil {
			return err
		}
		return t.insert(ctx, tx, rec)
	})
}

// Delete removes rows matching the filter.
func (t *SQLTable) Delete(ctx context.Context, filter string) error {
	if strings.TrimSpace(filter) == "" {
		return ErrEmptyFilter
	}
	stmt := t.deleteSQL(filter)
	t.conn.debugf("engine: %s", stmt)
	if _, err := t.conn.db.ExecContext(ctx, stmt); err != nil {
		return wrap("delete", t.name, err)
	}
	return nil
}

// Count returns number of rows matching the filter.
func (t *SQLTable) Count(ctx context.Context, filter string) (int64, error) {
	stmt := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", QuoteIdent(t.name), where(filter))
	var count int64
	if err := t.conn.db.QueryRowContext(ctx, stmt).Scan(&count); err != nil {
		return 0, wrap("count", t.name, err)
	}
	return count, nil
}

// Query streams rows matching the filter.
func (t *SQLTable) Query(ctx context.Context, query Query) (array.RecordReader, error) {
	stmt := fmt.Sprintf("SELECT %s FROM %s%s", strings.Join(t.columns, ", "), QuoteIdent(t.name), where(query.Filter))
	var args []interface{}
	if query.Limit > 0 {
		stmt += " LIMIT " + t.conn.dialect.Placeholder(1)
		args = append(args, query.Limit)
	}
	return t.read(ctx, "query", t.schema, stmt, args...)
}

// Search streams the nearest rows to the vector, closest first.
func (t *SQLTable) Search(ctx context.Context, vector []float32, query Query) (array.RecordReader, error) {
	column, err := t.vectorColumn()
	if err != nil {
		return nil, err
	}
	if size := int(column.Type.(*arrow.FixedSizeListType).Len()); size != len(vector) {
		return nil, fmt.Errorf("%w: query vector has %d values, column %s has %d", ErrSchemaMismatch, len(vector), column.Name, size)
	}
	resultSchema := withDistance(t.schema)
	if query.Limit <= 0 {
		return array.NewRecordReader(resultSchema, nil)
	}
	param, err := t.conn.dialect.EncodeVector(vector)
	if err != nil {
		return nil, err
	}
	distance, err := t.conn.dialect.Distance(query.Metric, QuoteIdent(column.Name), t.conn.dialect.Placeholder(1))
	if err != nil {
		return nil, err
	}
	stmt := fmt.Sprintf("SELECT %s, %s AS %s FROM %s%s ORDER BY %s LIMIT %s",
		strings.Join(t.columns, ", "), distance, QuoteIdent(DistanceColumn), QuoteIdent(t.name), where(query.Filter),
		QuoteIdent(DistanceColumn), t.conn.dialect.Placeholder(2))
	return t.read(ctx, "search", resultSchema, stmt, param, query.Limit)
}

func (t *SQLTable) read(ctx context.Context, op string, schema *arrow.Schema, stmt string, args ...interface{}) (array.RecordReader, error) {
	t.conn.debugf("engine: %s", stmt)
	rows, err := t.conn.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, wrap(op, t.name, err)
	}
	return newRowsReader(rows, schema, t.conn.dialect, t.conn.mem, t.conn.pageSize), nil
}

func (t *SQLTable) insert(ctx context.Context, tx *sql.Tx, rec arrow.Record) error {
	placeholders := make([]string, len(t.columns))
	for i := range placeholders {
		placeholders[i] = t.conn.dialect.Placeholder(i + 1)
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s(%s) VALUES(%s)",
		QuoteIdent(t.name), strings.Join(t.columns, ", "), strings.Join(placeholders, ", ")))
	if err != nil {
		return err
	}
	defer stmt.Close()
	args := make([]interface{}, len(t.columns))
	for row := 0; row < int(rec.NumRows()); row++ {
		for i := range t.columns {
			value, err := bindValue(t.conn.dialect, rec.Column(i), row)
			if err != nil {
				return fmt.Errorf("column %s: %w", rec.ColumnName(i), err)
			}
			args[i] = value
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return err
		}
	}
	return nil
}

func (t *SQLTable) inTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := t.conn.db.BeginTx(ctx, nil)
	if err != nil {
		return wrap(op, t.name, err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return wrap(op, t.name, err)
	}
	if err := tx.Commit(); err != nil {
		return wrap(op, t.name, err)
	}
	return nil
}

func (t *SQLTable) deleteSQL(filter string) string {
	return fmt.Sprintf("DELETE FROM %s%s", QuoteIdent(t.name), where(filter))
}

func (t *SQLTable) checkBatch(rec arrow.Record) error {
	if rec == nil {
		return fmt.Errorf("engine: %s: nil record batch", t.name)
	}
	if !rec.Schema().Equal(t.schema) {
		return fmt.Errorf("%w: table %s expects %v, got %v", ErrSchemaMismatch, t.name, t.schema, rec.Schema())
	}
	return nil
}

func (t *SQLTable) vectorColumn() (arrow.Field, error) {
	for _, field := range t.schema.Fields() {
		if listType, ok := field.Type.(*arrow.FixedSizeListType); ok && listType.Elem().ID() == arrow.FLOAT32 {
			return field, nil
		}
	}
	return arrow.Field{}, fmt.Errorf("engine: table %s has no vector column", t.name)
}

func where(filter string) string {
	if filter = strings.TrimSpace(filter); filter == "" {
		return ""
	}
	return " WHERE " + filter
}

func withDistance(schema *arrow.Schema) *arrow.Schema {
	fields := append(append([]arrow.Field{}, schema.Fields()...), arrow.Field{Name: DistanceColumn, Type: arrow.PrimitiveTypes.Float64})
	return arrow.NewSchema(fields, nil)
}

var (
	_ Table    = (*SQLTable)(nil)
	_ Replacer = (*SQLTable)(nil)
)
