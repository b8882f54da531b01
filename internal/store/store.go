// Package store defines the document store the repositories run against
// and its backends: MongoDB, OxiDB, SQLite, PostgreSQL and an in-memory
// store for tests and local runs.
package store

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrNoDocument is returned by FindOne when nothing matches.
	ErrNoDocument = errors.New("store: no document")
	// ErrDuplicateKey is returned when a write violates a unique index.
	ErrDuplicateKey = errors.New("store: duplicate key")
)

// Document is a JSON-shaped record. Backends never return their internal
// identifier field in it.
type Document map[string]any

// Filter selects documents by one top-level field. The zero Filter matches
// every document.
type Filter struct {
	Field string
	// Equals is compared with the field value when set.
	Equals any
	// Contains is a case-insensitive literal substring match, used when
	// Equals is nil.
	Contains string
}

// Eq matches documents whose field equals v.
func Eq(field string, v any) Filter { return Filter{Field: field, Equals: v} }

// Like matches documents whose string field contains fragment, ignoring case.
func Like(field, fragment string) Filter { return Filter{Field: field, Contains: fragment} }

// All matches every document.
func All() Filter { return Filter{} }

// IsAll reports whether f matches every document.
func (f Filter) IsAll() bool { return f.Field == "" }

// FindOptions holds optional parameters for Find.
type FindOptions struct {
	// SortDesc names a field to order by, descending. Empty keeps the
	// backend's natural (insertion) order.
	SortDesc string
	Skip     int
	// Limit caps the result; 0 means no cap.
	Limit int
}

// Collection is a named set of documents.
type Collection interface {
	FindOne(ctx context.Context, f Filter) (Document, error)
	Find(ctx context.Context, f Filter, opts FindOptions) ([]Document, error)
	Count(ctx context.Context, f Filter) (int64, error)
	Insert(ctx context.Context, doc Document) error
	// Replace swaps the first document matching f for doc. With upsert set
	// doc is inserted when nothing matches. It returns how many documents
	// matched before the write.
	Replace(ctx context.Context, f Filter, doc Document, upsert bool) (int64, error)
	DeleteOne(ctx context.Context, f Filter) (int64, error)
	DeleteMany(ctx context.Context, f Filter) (int64, error)
	EnsureIndex(ctx context.Context, field string, unique bool) error
}

// Database is a shared handle to one backend. It is created once at startup,
// used concurrently by every request and closed at shutdown.
type Database interface {
	Collection(name string) Collection
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// matchString applies the Contains rule to a string value.
func matchString(value, fragment string) bool {
	return strings.Contains(strings.ToLower(value), strings.ToLower(fragment))
}

// page applies skip and limit to an already ordered result.
func page(docs []Document, skip, limit int) []Document {
	if skip > 0 {
		if skip >= len(docs) {
			return docs[:0]
		}
		docs = docs[skip:]
	}
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	return docs
}
