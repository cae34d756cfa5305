package engine

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// SQLConnection implements Connection on top of database/sql.
type SQLConnection struct {
	db       *sql.DB
	dialect  Dialect
	mem      memory.Allocator
	pageSize int
	catalog  string
	ownsDB   bool
	logf     func(format string, args ...any)

	mu          sync.Mutex
	catalogDone bool
}

// NewSQLConnection wraps a database handle.
func NewSQLConnection(db *sql.DB, dialect Dialect, opts ...Option) (*SQLConnection, error) {
	if db == nil {
		return nil, fmt.Errorf("engine: db was nil")
	}
	if dialect == nil {
		return nil, fmt.Errorf("engine: dialect was nil")
	}
	c := &SQLConnection{
		db:       db,
		dialect:  dialect,
		mem:      memory.DefaultAllocator,
		pageSize: defaultPageSize,
		catalog:  defaultCatalogTable,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// DB exposes the underlying sql.DB.
func (c *SQLConnection) DB() *sql.DB { return c.db }

// Dialect returns connection dialect
func (c *SQLConnection) Dialect() Dialect { return c.dialect }

// Close closes the underlying DB if the connection owns it.
func (c *SQLConnection) Close() error {
	if c.ownsDB && c.db != nil {
		return c.db.Close()
	}
	return nil
}

// OpenTable opens an existing table.
func (c *SQLConnection) OpenTable(ctx context.Context, name string) (Table, error) {
	if err := c.ensureCatalog(ctx); err != nil {
		return nil, err
	}
	schema, err := c.loadSchema(ctx, name)
	if err != nil {
		return nil, err
	}
	return c.newTable(name, schema)
}

// CreateTable creates the table and its catalog entry when missing, then opens it.
// When the table already exists its stored schema wins.
func (c *SQLConnection) CreateTable(ctx context.Context, name string, schema *arrow.Schema) (Table, error) {
	if schema == nil || len(schema.Fields()) == 0 {
		return nil, fmt.Errorf("engine: create %s: empty schema", name)
	}
	if err := c.ensureCatalog(ctx); err != nil {
		return nil, err
	}
	ddl, err := c.tableDDL(name, schema)
	if err != nil {
		return nil, err
	}
	encoded, err := encodeSchema(schema)
	if err != nil {
		return nil, err
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, wrap("create", name, err)
	}
	defer func() { _ = tx.Rollback() }()
	c.debugf("engine: %s", ddl)
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return nil, wrap("create", name, err)
	}
	insert := fmt.Sprintf("INSERT INTO %s(name, arrow_schema) VALUES(%s, %s) ON CONFLICT(name) DO NOTHING",
		QuoteIdent(c.catalog), c.dialect.Placeholder(1), c.dialect.Placeholder(2))
	if _, err := tx.ExecContext(ctx, insert, name, encoded); err != nil {
		return nil, wrap("create", name, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, wrap("create", name, err)
	}
	return c.OpenTable(ctx, name)
}

func (c *SQLConnection) newTable(name string, schema *arrow.Schema) (*SQLTable, error) {
	columns := make([]string, len(schema.Fields()))
	for i, field := range schema.Fields() {
		columns[i] = QuoteIdent(field.Name)
	}
	return &SQLTable{
		conn:    c,
		name:    name,
		schema:  schema,
		columns: columns,
	}, nil
}

func (c *SQLConnection) tableDDL(name string, schema *arrow.Schema) (string, error) {
	defs := make([]string, 0, len(schema.Fields()))
	for _, field := range schema.Fields() {
		columnType, err := c.dialect.ColumnType(field)
		if err != nil {
			return "", fmt.Errorf("engine: column %s: %w", field.Name, err)
		}
		def := QuoteIdent(field.Name) + " " + columnType
		if !field.Nullable {
			def += " NOT NULL"
		}
		defs = append(defs, def)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", QuoteIdent(name), strings.Join(defs, ",\n\t")), nil
}

func (c *SQLConnection) ensureCatalog(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.catalogDone {
		return nil
	}
	if _, err := c.db.ExecContext(ctx, c.dialect.CatalogDDL(QuoteIdent(c.catalog))); err != nil {
		return wrap("catalog", c.catalog, err)
	}
	c.catalogDone = true
	return nil
}

func (c *SQLConnection) loadSchema(ctx context.Context, name string) (*arrow.Schema, error) {
	query := fmt.Sprintf("SELECT arrow_schema FROM %s WHERE name = %s", QuoteIdent(c.catalog), c.dialect.Placeholder(1))
	var encoded []byte
	err := c.db.QueryRowContext(ctx, query, name).Scan(&encoded)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}
	if err != nil {
		return nil, wrap("open", name, err)
	}
	schema, err := decodeSchema(encoded)
	if err != nil {
		return nil, fmt.Errorf("engine: open %s: %w", name, err)
	}
	return schema, nil
}

func (c *SQLConnection) debugf(format string, args ...any) {
	if c.logf != nil {
		c.logf(format, args...)
	}
}

// encodeSchema serializes the schema as an arrow IPC stream without batches.
func encodeSchema(schema *arrow.Schema) ([]byte, error) {
	buf := &bytes.Buffer{}
	writer := ipc.NewWriter(buf, ipc.WithSchema(schema))
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("encode schema: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeSchema(data []byte) (*arrow.Schema, error) {
	reader, err := ipc.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	defer reader.Release()
	return reader.Schema(), nil
}
