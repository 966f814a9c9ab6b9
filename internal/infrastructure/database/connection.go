package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"collectorkit/internal/domain"
)

// DefaultURL is used when GetDatabaseConnection receives an empty URL.
const DefaultURL = "sqlite::memory:"

// Dialect identifies the SQL flavour behind a connection.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// DB is a *sql.DB tagged with its dialect.
type DB struct {
	*sql.DB
	Dialect Dialect
}

// GetDatabaseConnection opens and pings the database named by rawURL.
// postgres:// and postgresql:// URLs go through pgx, sqlite:<path> through
// modernc.org/sqlite.
func GetDatabaseConnection(ctx context.Context, rawURL string) (*DB, error) {
	if strings.TrimSpace(rawURL) == "" {
		rawURL = DefaultURL
	}
	dialect, driver, dsn, err := parseURL(rawURL)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dialect == SQLite && isMemory(dsn) {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, domain.Wrap("ping database", domain.ErrTransient, err)
	}

	log.Printf("✅ Base de données %s connectée.", dialect)
	return &DB{DB: db, Dialect: dialect}, nil
}

func parseURL(rawURL string) (Dialect, string, string, error) {
	scheme, rest, ok := strings.Cut(rawURL, ":")
	if !ok {
		return "", "", "", domain.Wrap("database url", domain.ErrValidationFailed, fmt.Errorf("missing scheme in %q", rawURL))
	}
	switch strings.ToLower(scheme) {
	case "postgres", "postgresql":
		return Postgres, "pgx", rawURL, nil
	case "sqlite", "sqlite3":
		path := strings.TrimPrefix(rest, "//")
		if path == "" {
			path = ":memory:"
		}
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		return SQLite, "sqlite", path + sep + "_pragma=foreign_keys(1)", nil
	default:
		return "", "", "", domain.Wrap("database url", domain.ErrValidationFailed, fmt.Errorf("unsupported scheme %q", scheme))
	}
}

func isMemory(dsn string) bool {
	return strings.HasPrefix(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

// rebind rewrites ? placeholders into the dialect's form.
func (d Dialect) rebind(query string) string {
	if d != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
