package vectordb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/viant/codevec/vectordb/columnar"
	"github.com/viant/codevec/vectordb/engine"
	"github.com/viant/codevec/vectordb/lock"
	"github.com/viant/codevec/vectordb/pgvector"
	"github.com/viant/codevec/vectordb/sqlitevec"
)

// Connect opens the embedding store at location, creating the embeddings table when missing.
// A postgres:// or postgresql:// URL selects the PostgreSQL engine; anything else is a SQLite
// file path, file: URI or :memory:. A directory location stores DefaultFileName inside it.
func Connect(ctx context.Context, location string, opts ...Option) (*Store, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, fmt.Errorf("vectordb: location required")
	}
	o := newOptions(opts)
	engineOptions := append([]engine.Option{engine.WithAllocator(o.mem)}, o.engineOptions...)

	var conn *engine.SQLConnection
	var writerLock *lock.FileLock
	var err error
	if isPostgres(location) {
		if o.writerLock {
			logf(o.logf, "vectordb: writer lock ignored for %s", redact(location))
		}
		conn, err = pgvector.Open(ctx, location, append(o.pgOptions, pgvector.WithEngineOptions(engineOptions...))...)
		if err != nil {
			return nil, err
		}
	} else {
		dsn := sqliteLocation(location)
		if o.writerLock && !sqlitevec.IsMemory(dsn) {
			lockOptions := []lock.Option{lock.WithBlocking(o.lockBlocking, o.lockTimeout)}
			if writerLock, err = lock.Acquire(ctx, dsnPath(dsn)+".lock", lockOptions...); err != nil {
				return nil, err
			}
		}
		conn, err = sqlitevec.Open(dsn, append(o.sqliteOptions, sqlitevec.WithEngineOptions(engineOptions...))...)
		if err != nil {
			_ = writerLock.Release()
			return nil, err
		}
	}

	table, err := openOrCreate(ctx, conn, o.tableName)
	if err != nil {
		_ = conn.Close()
		_ = writerLock.Release()
		return nil, err
	}
	store := newStore(table, o)
	store.conn = conn
	store.writerLock = writerLock
	return store, nil
}

func openOrCreate(ctx context.Context, conn engine.Connection, name string) (engine.Table, error) {
	expected := columnar.Schema()
	table, err := conn.OpenTable(ctx, name)
	if errors.Is(err, engine.ErrTableNotFound) {
		table, err = conn.CreateTable(ctx, name, expected)
	}
	if err != nil {
		return nil, err
	}
	if !table.Schema().Equal(expected) {
		return nil, fmt.Errorf("%w: table %s has %v", ErrSchemaMismatch, name, table.Schema())
	}
	return table, nil
}

func isPostgres(location string) bool {
	lower := strings.ToLower(location)
	return strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://")
}

func sqliteLocation(location string) string {
	if sqlitevec.IsMemory(location) || strings.HasPrefix(location, "file:") {
		return location
	}
	if strings.HasPrefix(location, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			location = filepath.Join(home, location[2:])
		}
	}
	if info, err := os.Stat(location); err == nil && info.IsDir() {
		return filepath.Join(location, DefaultFileName)
	}
	return location
}

func dsnPath(dsn string) string {
	path := strings.TrimPrefix(strings.TrimPrefix(dsn, "file:"), "//")
	if i := strings.Index(path, "?"); i >= 0 {
		path = path[:i]
	}
	return path
}

func redact(dsn string) string {
	if i := strings.Index(dsn, "@"); i >= 0 {
		if j := strings.Index(dsn, "://"); j >= 0 && j < i {
			return dsn[:j+3] + "***" + dsn[i:]
		}
	}
	return dsn
}

func logf(fn func(format string, args ...any), format string, args ...any) {
	if fn != nil {
		fn(format, args...)
	}
}
