package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// dialect captures what differs between the SQL document backends.
type dialect struct {
	name        string
	createTable string // %s is the quoted table name
	docParam    string // placeholder wrapper for a JSON document parameter
	noLimit     string
	// field returns an expression extracting a top-level or dotted field
	// from the doc column as text.
	field func(path string) string
	// like returns a case-insensitive substring predicate on expr.
	like func(expr, param string) string
	// placeholder returns the n-th (1-based) bind marker.
	placeholder func(n int) string
	isDuplicate func(err error) bool
}

// SQL stores each collection as a table of JSON documents ordered by an
// auto-increment sequence column.
type SQL struct {
	db      *sql.DB
	dialect dialect

	mu      sync.Mutex
	created map[string]bool
}

func newSQL(db *sql.DB, d dialect) *SQL {
	return &SQL{db: db, dialect: d, created: make(map[string]bool)}
}

func (s *SQL) Collection(name string) Collection {
	return &sqlCollection{s: s, table: `"` + strings.ReplaceAll(name, `"`, ``) + `"`, name: name}
}

func (s *SQL) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQL) Close(context.Context) error { return s.db.Close() }

func (s *SQL) ensureTable(ctx context.Context, table string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.created[table] {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(s.dialect.createTable, table)); err != nil {
		return fmt.Errorf("%s: create table %s: %w", s.dialect.name, table, err)
	}
	s.created[table] = true
	return nil
}

type sqlCollection struct {
	s     *SQL
	table string
	name  string
}

// where renders f as a WHERE clause starting at bind marker n.
func (c *sqlCollection) where(f Filter, n int) (string, []any) {
	d := c.s.dialect
	switch {
	case f.IsAll():
		return "", nil
	case f.Equals != nil:
		return " WHERE " + d.field(f.Field) + " = " + d.placeholder(n), []any{fmt.Sprint(f.Equals)}
	default:
		return " WHERE " + d.like(d.field(f.Field), d.placeholder(n)), []any{escapeLike(f.Contains)}
	}
}

func (c *sqlCollection) FindOne(ctx context.Context, f Filter) (Document, error) {
	docs, err := c.Find(ctx, f, FindOptions{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrNoDocument
	}
	return docs[0], nil
}

func (c *sqlCollection) Find(ctx context.Context, f Filter, opts FindOptions) ([]Document, error) {
	if err := c.s.ensureTable(ctx, c.table); err != nil {
		return nil, err
	}
	d := c.s.dialect
	where, args := c.where(f, 1)
	q := "SELECT doc FROM " + c.table + where + " ORDER BY "
	if opts.SortDesc != "" {
		q += d.field(opts.SortDesc) + " DESC, "
	}
	q += "seq ASC"
	switch {
	case opts.Limit > 0:
		q += fmt.Sprintf(" LIMIT %d", opts.Limit)
	case opts.Skip > 0:
		q += " LIMIT " + d.noLimit
	}
	if opts.Skip > 0 {
		q += fmt.Sprintf(" OFFSET %d", opts.Skip)
	}

	rows, err := c.s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := make([]Document, 0)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var doc Document
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("%s: decode document: %w", d.name, err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (c *sqlCollection) Count(ctx context.Context, f Filter) (int64, error) {
	if err := c.s.ensureTable(ctx, c.table); err != nil {
		return 0, err
	}
	where, args := c.where(f, 1)
	var n int64
	err := c.s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+c.table+where, args...).Scan(&n)
	return n, err
}

func (c *sqlCollection) Insert(ctx context.Context, doc Document) error {
	if err := c.s.ensureTable(ctx, c.table); err != nil {
		return err
	}
	return c.insert(ctx, c.s.db, doc)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (c *sqlCollection) insert(ctx context.Context, ex execer, doc Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%s: encode document: %w", c.s.dialect.name, err)
	}
	q := "INSERT INTO " + c.table + " (doc) VALUES (" + fmt.Sprintf(c.s.dialect.docParam, c.s.dialect.placeholder(1)) + ")"
	_, err = ex.ExecContext(ctx, q, string(data))
	return c.writeErr(err)
}

func (c *sqlCollection) Replace(ctx context.Context, f Filter, doc Document, upsert bool) (int64, error) {
	if err := c.s.ensureTable(ctx, c.table); err != nil {
		return 0, err
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return 0, fmt.Errorf("%s: encode document: %w", c.s.dialect.name, err)
	}

	tx, err := c.s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	where, args := c.where(f, 1)
	var seq int64
	err = tx.QueryRowContext(ctx, "SELECT seq FROM "+c.table+where+" ORDER BY seq ASC LIMIT 1", args...).Scan(&seq)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if !upsert {
			return 0, nil
		}
		if err := c.insert(ctx, tx, doc); err != nil {
			return 0, err
		}
		return 0, tx.Commit()
	case err != nil:
		return 0, err
	}

	d := c.s.dialect
	q := "UPDATE " + c.table + " SET doc = " + fmt.Sprintf(d.docParam, d.placeholder(1)) + " WHERE seq = " + d.placeholder(2)
	if _, err := tx.ExecContext(ctx, q, string(data), seq); err != nil {
		return 0, c.writeErr(err)
	}
	return 1, tx.Commit()
}

func (c *sqlCollection) DeleteOne(ctx context.Context, f Filter) (int64, error) {
	if err := c.s.ensureTable(ctx, c.table); err != nil {
		return 0, err
	}
	where, args := c.where(f, 1)
	q := "DELETE FROM " + c.table + " WHERE seq = (SELECT seq FROM " + c.table + where + " ORDER BY seq ASC LIMIT 1)"
	res, err := c.s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (c *sqlCollection) DeleteMany(ctx context.Context, f Filter) (int64, error) {
	if err := c.s.ensureTable(ctx, c.table); err != nil {
		return 0, err
	}
	where, args := c.where(f, 1)
	res, err := c.s.db.ExecContext(ctx, "DELETE FROM "+c.table+where, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (c *sqlCollection) EnsureIndex(ctx context.Context, field string, unique bool) error {
	if err := c.s.ensureTable(ctx, c.table); err != nil {
		return err
	}
	kind := "INDEX"
	if unique {
		kind = "UNIQUE INDEX"
	}
	idx := strings.NewReplacer(".", "_", `"`, "").Replace(c.name + "_" + field + "_idx")
	q := fmt.Sprintf(`CREATE %s IF NOT EXISTS "%s" ON %s ((%s))`, kind, idx, c.table, c.s.dialect.field(field))
	_, err := c.s.db.ExecContext(ctx, q)
	return err
}

func (c *sqlCollection) writeErr(err error) error {
	if err != nil && c.s.dialect.isDuplicate(err) {
		return fmt.Errorf("%w: %v", ErrDuplicateKey, err)
	}
	return err
}

// escapeLike escapes LIKE wildcards so the fragment matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// jsonPath splits a dotted field name into its segments.
func jsonPath(path string) []string {
	return strings.Split(path, ".")
}
