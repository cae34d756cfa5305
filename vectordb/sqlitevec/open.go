package sqlitevec

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/viant/codevec/db/sqliteutil"
	"github.com/viant/codevec/vectordb/engine"
	vecengine "github.com/viant/sqlite-vec/engine"
)

const (
	defaultBusyTimeout = 5000
	defaultMaxConns    = 4
)

type options struct {
	wal           bool
	busyTimeoutMS int
	maxOpenConns  int
	engineOptions []engine.Option
}

// Option configures the sqlite engine.
type Option func(*options)

// WithWAL controls WAL journal mode for file databases (default: enabled).
func WithWAL(enabled bool) Option {
	return func(o *options) { o.wal = enabled }
}

// WithBusyTimeout sets the busy timeout in milliseconds.
func WithBusyTimeout(ms int) Option {
	return func(o *options) { o.busyTimeoutMS = ms }
}

// WithMaxOpenConns sets the connection pool size for file databases.
func WithMaxOpenConns(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxOpenConns = n
		}
	}
}

// WithEngineOptions passes options to the SQL connection.
func WithEngineOptions(opts ...engine.Option) Option {
	return func(o *options) { o.engineOptions = append(o.engineOptions, opts...) }
}

// Open opens (creating when missing) a sqlite database and returns an engine connection owning it.
// The DSN is a file path, a file: URI or :memory:.
func Open(dsn string, opts ...Option) (*engine.SQLConnection, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("sqlitevec: dsn required")
	}
	o := &options{wal: true, busyTimeoutMS: defaultBusyTimeout, maxOpenConns: defaultMaxConns}
	for _, opt := range opts {
		opt(o)
	}
	if err := registerFunctions(); err != nil {
		return nil, err
	}
	memory := IsMemory(dsn)
	if !memory {
		if err := ensureDir(dsn); err != nil {
			return nil, err
		}
	}
	db, err := vecengine.Open(sqliteutil.EnsurePragmas(dsn, o.wal, o.busyTimeoutMS))
	if err != nil {
		return nil, err
	}
	if memory {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(o.maxOpenConns)
		db.SetMaxIdleConns(o.maxOpenConns)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlitevec: open %s: %w", dsn, err)
	}
	engineOptions := append([]engine.Option{engine.WithOwnedDB(true)}, o.engineOptions...)
	conn, err := engine.NewSQLConnection(db, Dialect{}, engineOptions...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return conn, nil
}

// NewConnection wraps an existing database handle opened with the sqlite driver.
func NewConnection(db *sql.DB, opts ...engine.Option) (*engine.SQLConnection, error) {
	if err := registerFunctions(); err != nil {
		return nil, err
	}
	return engine.NewSQLConnection(db, Dialect{}, opts...)
}

// IsMemory reports whether the DSN names an in-memory database.
func IsMemory(dsn string) bool {
	return sqliteutil.IsMemory(dsn)
}

func ensureDir(dsn string) error {
	path := dsn
	if strings.HasPrefix(path, "file:") {
		path = strings.TrimPrefix(path, "file:")
		path = strings.TrimPrefix(path, "//")
	}
	if i := strings.Index(path, "?"); i >= 0 {
		path = path[:i]
	}
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("sqlitevec: create %s: %w", dir, err)
	}
	return nil
}
