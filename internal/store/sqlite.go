package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"
)

var sqliteDialect = dialect{
	name:        "sqlite",
	createTable: `CREATE TABLE IF NOT EXISTS %s (seq INTEGER PRIMARY KEY AUTOINCREMENT, doc TEXT NOT NULL)`,
	docParam:    "%s",
	noLimit:     "-1",
	field: func(path string) string {
		return "json_extract(doc, '$." + strings.Join(jsonPath(path), ".") + "')"
	},
	like: func(expr, param string) string {
		return "lower(" + expr + ") LIKE '%' || lower(" + param + ") || '%' ESCAPE '\\'"
	},
	placeholder: func(int) string { return "?" },
	isDuplicate: func(err error) bool {
		var se sqlite3.Error
		return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique
	},
}

// NewSQLite opens (creating if needed) a SQLite database file.
func NewSQLite(ctx context.Context, path string) (*SQL, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	// SQLite serialises writers; one connection avoids SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	return newSQL(db, sqliteDialect), nil
}
