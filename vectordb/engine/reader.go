package engine

import (
	"database/sql"
	"fmt"
	"sync/atomic"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// rowsReader lazily converts sql rows into record batches of at most pageSize rows.
type rowsReader struct {
	refCount int64
	rows     *sql.Rows
	schema   *arrow.Schema
	dialect  Dialect
	mem      memory.Allocator
	pageSize int
	cur      arrow.Record
	err      error
	done     bool
}

func newRowsReader(rows *sql.Rows, schema *arrow.Schema, dialect Dialect, mem memory.Allocator, pageSize int) *rowsReader {
	return &rowsReader{
		refCount: 1,
		rows:     rows,
		schema:   schema,
		dialect:  dialect,
		mem:      mem,
		pageSize: pageSize,
	}
}

func (r *rowsReader) Retain() {
	atomic.AddInt64(&r.refCount, 1)
}

func (r *rowsReader) Release() {
	if atomic.AddInt64(&r.refCount, -1) != 0 {
		return
	}
	if r.cur != nil {
		r.cur.Release()
		r.cur = nil
	}
	r.close()
}

func (r *rowsReader) Schema() *arrow.Schema { return r.schema }

func (r *rowsReader) Record() arrow.Record { return r.cur }

func (r *rowsReader) Err() error { return r.err }

func (r *rowsReader) Next() bool {
	if r.cur != nil {
		r.cur.Release()
		r.cur = nil
	}
	if r.done {
		return false
	}
	rec, err := r.nextPage()
	if err != nil {
		r.err = err
		r.close()
		return false
	}
	if rec == nil {
		r.close()
		return false
	}
	r.cur = rec
	return true
}

func (r *rowsReader) nextPage() (arrow.Record, error) {
	fields := r.schema.Fields()
	builder := array.NewRecordBuilder(r.mem, r.schema)
	defer builder.Release()

	values := make([]interface{}, len(fields))
	targets := make([]interface{}, len(fields))
	for i := range values {
		targets[i] = &values[i]
	}
	count := 0
	for count < r.pageSize && r.rows.Next() {
		if err := r.rows.Scan(targets...); err != nil {
			return nil, fmt.Errorf("engine: scan: %w", err)
		}
		for i, field := range fields {
			if err := appendValue(r.dialect, builder.Field(i), field, values[i]); err != nil {
				return nil, err
			}
		}
		count++
	}
	if err := r.rows.Err(); err != nil {
		return nil, wrap("read", "", err)
	}
	if count == 0 {
		return nil, nil
	}
	return builder.NewRecord(), nil
}

func (r *rowsReader) close() {
	if r.done {
		return
	}
	r.done = true
	if err := r.rows.Close(); err != nil && r.err == nil {
		r.err = wrap("close", "", err)
	}
}

var _ array.RecordReader = (*rowsReader)(nil)
