package db

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect names the SQL flavor behind a connection. Values double as goose dialect names.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite3"
)

// Target is a parsed DATABASE_URL.
type Target struct {
	Driver  string
	DSN     string
	Dialect Dialect
}

// ParseURL maps DATABASE_URL onto a database/sql driver.
//
//	postgres://... or postgresql://...  -> pgx
//	sqlite://path, sqlite::memory:, file:...  -> sqlite3
func ParseURL(databaseURL string) (Target, error) {
	raw := strings.TrimSpace(databaseURL)
	if raw == "" {
		return Target{}, fmt.Errorf("DATABASE_URL is empty")
	}
	lower := strings.ToLower(raw)
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return Target{Driver: "pgx", DSN: raw, Dialect: Postgres}, nil
	case strings.HasPrefix(lower, "sqlite://"):
		return Target{Driver: "sqlite3", DSN: raw[len("sqlite://"):], Dialect: SQLite}, nil
	case strings.HasPrefix(lower, "sqlite:"):
		return Target{Driver: "sqlite3", DSN: raw[len("sqlite:"):], Dialect: SQLite}, nil
	case strings.HasPrefix(lower, "file:"):
		return Target{Driver: "sqlite3", DSN: raw, Dialect: SQLite}, nil
	default:
		return Target{}, fmt.Errorf("unsupported DATABASE_URL scheme")
	}
}

// DialectFor returns the dialect of a DATABASE_URL, defaulting to Postgres.
func DialectFor(databaseURL string) Dialect {
	target, err := ParseURL(databaseURL)
	if err != nil {
		return Postgres
	}
	return target.Dialect
}

// Rebind rewrites "?" placeholders into the dialect's positional form.
// Queries must not carry literal question marks.
func (d Dialect) Rebind(query string) string {
	if d != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}
