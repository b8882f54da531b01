package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

var postgresDialect = dialect{
	name:        "postgres",
	createTable: `CREATE TABLE IF NOT EXISTS %s (seq BIGSERIAL PRIMARY KEY, doc JSONB NOT NULL)`,
	docParam:    "%s::jsonb",
	noLimit:     "ALL",
	field: func(path string) string {
		return "doc #>> '{" + strings.Join(jsonPath(path), ",") + "}'"
	},
	like: func(expr, param string) string {
		return "(" + expr + ") ILIKE '%' || " + param + "::text || '%'"
	},
	placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	isDuplicate: func(err error) bool {
		var pe *pq.Error
		return errors.As(err, &pe) && pe.Code == "23505"
	},
}

// NewPostgres connects to a PostgreSQL server, storing documents as JSONB.
func NewPostgres(ctx context.Context, url string) (*SQL, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	return newSQL(db, postgresDialect), nil
}
