// Package sqliteutil prepares sqlite DSNs for the modernc driver.
package sqliteutil

import (
	"fmt"
	"strings"
)

// Pragma is a single _pragma DSN parameter, e.g. {Name: "busy_timeout", Value: "5000"}.
type Pragma struct {
	Name  string
	Value string
}

func (p Pragma) String() string {
	return p.Name + "(" + p.Value + ")"
}

// Pragmas returns the pragmas used for file backed embedding stores.
func Pragmas(wal bool, busyTimeoutMS int) []Pragma {
	var result []Pragma
	if wal {
		result = append(result, Pragma{Name: "journal_mode", Value: "WAL"}, Pragma{Name: "synchronous", Value: "NORMAL"})
	}
	if busyTimeoutMS > 0 {
		result = append(result, Pragma{Name: "busy_timeout", Value: fmt.Sprintf("%d", busyTimeoutMS)})
	}
	return result
}

// EnsurePragmas appends journal and busy timeout pragmas to the DSN unless already set.
// In-memory databases are returned unchanged.
func EnsurePragmas(dsn string, wal bool, busyTimeoutMS int) string {
	if dsn == "" || IsMemory(dsn) {
		return dsn
	}
	return WithPragmas(dsn, Pragmas(wal, busyTimeoutMS)...)
}

// WithPragmas appends every pragma the DSN does not configure yet.
func WithPragmas(dsn string, pragmas ...Pragma) string {
	lower := strings.ToLower(dsn)
	for _, pragma := range pragmas {
		if strings.Contains(lower, "_pragma="+strings.ToLower(pragma.Name)) {
			continue
		}
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_pragma=" + pragma.String()
	}
	return dsn
}

// IsMemory reports whether the DSN names an in-memory database.
func IsMemory(dsn string) bool {
	lower := strings.ToLower(dsn)
	return dsn == ":memory:" || strings.HasPrefix(lower, "file::memory:") || strings.Contains(lower, "mode=memory")
}
