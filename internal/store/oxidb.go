package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/parisxmas/OxiDB/OxiSurvey/internal/db"
	"github.com/parisxmas/OxiDB/OxiSurvey/internal/oxidb"
)

// OxiDB is a Database backed by an oxidb-server connection pool.
type OxiDB struct {
	pool *db.Pool
}

// NewOxiDB wraps an open pool. Close closes the pool.
func NewOxiDB(pool *db.Pool) *OxiDB {
	return &OxiDB{pool: pool}
}

func (o *OxiDB) Collection(name string) Collection {
	return &oxiCollection{pool: o.pool, name: name}
}

func (o *OxiDB) Ping(ctx context.Context) error { return o.pool.Ping(ctx) }

func (o *OxiDB) Close(context.Context) error {
	o.pool.Close()
	return nil
}

type oxiCollection struct {
	pool *db.Pool
	name string
}

// oxiQuery translates f for the server. OxiDB has no regex operator, so
// substring filters are applied client side and the server query is empty.
func oxiQuery(f Filter) (query map[string]any, clientSide bool) {
	switch {
	case f.IsAll():
		return map[string]any{}, false
	case f.Equals != nil:
		return map[string]any{f.Field: f.Equals}, false
	default:
		return map[string]any{}, true
	}
}

func (c *oxiCollection) FindOne(ctx context.Context, f Filter) (Document, error) {
	query, clientSide := oxiQuery(f)
	if clientSide {
		docs, err := c.Find(ctx, f, FindOptions{Limit: 1})
		if err != nil {
			return nil, err
		}
		if len(docs) == 0 {
			return nil, ErrNoDocument
		}
		return docs[0], nil
	}
	doc, err := c.pool.Get().FindOne(ctx, c.name, query)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrNoDocument
	}
	delete(doc, "_id")
	return doc, nil
}

func (c *oxiCollection) Find(ctx context.Context, f Filter, opts FindOptions) ([]Document, error) {
	query, clientSide := oxiQuery(f)
	fo := &oxidb.FindOptions{}
	if opts.SortDesc != "" {
		fo.Sort = map[string]any{opts.SortDesc: -1}
	}
	if !clientSide {
		if opts.Skip > 0 {
			fo.Skip = &opts.Skip
		}
		if opts.Limit > 0 {
			fo.Limit = &opts.Limit
		}
	}
	raw, err := c.pool.Get().Find(ctx, c.name, query, fo)
	if err != nil {
		return nil, err
	}

	docs := make([]Document, 0, len(raw))
	for _, d := range raw {
		if clientSide && !matches(d, f) {
			continue
		}
		delete(d, "_id")
		docs = append(docs, d)
	}
	if clientSide {
		docs = page(docs, opts.Skip, opts.Limit)
	}
	return docs, nil
}

func (c *oxiCollection) Count(ctx context.Context, f Filter) (int64, error) {
	query, clientSide := oxiQuery(f)
	if clientSide {
		docs, err := c.Find(ctx, f, FindOptions{})
		if err != nil {
			return 0, err
		}
		return int64(len(docs)), nil
	}
	n, err := c.pool.Get().Count(ctx, c.name, query)
	return int64(n), err
}

func (c *oxiCollection) Insert(ctx context.Context, doc Document) error {
	_, err := c.pool.Get().Insert(ctx, c.name, doc)
	return oxiWriteErr(err)
}

// Replace emulates a whole-document replace with $set, unsetting fields the
// new document no longer carries.
func (c *oxiCollection) Replace(ctx context.Context, f Filter, doc Document, upsert bool) (int64, error) {
	existing, err := c.FindOne(ctx, f)
	if errors.Is(err, ErrNoDocument) {
		if !upsert {
			return 0, nil
		}
		return 0, c.Insert(ctx, doc)
	}
	if err != nil {
		return 0, err
	}

	query, clientSide := oxiQuery(f)
	if clientSide {
		return 0, fmt.Errorf("oxidb: replace requires an equality filter")
	}
	update := map[string]any{"$set": map[string]any(doc)}
	unset := map[string]any{}
	for k := range existing {
		if _, ok := doc[k]; !ok {
			unset[k] = ""
		}
	}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	if _, err := c.pool.Get().UpdateOne(ctx, c.name, query, update); err != nil {
		return 0, oxiWriteErr(err)
	}
	return 1, nil
}

func (c *oxiCollection) DeleteOne(ctx context.Context, f Filter) (int64, error) {
	query, clientSide := oxiQuery(f)
	if clientSide {
		return 0, fmt.Errorf("oxidb: delete requires an equality filter")
	}
	res, err := c.pool.Get().DeleteOne(ctx, c.name, query)
	if err != nil {
		return 0, err
	}
	return oxidb.ResultCount(res, "deleted"), nil
}

func (c *oxiCollection) DeleteMany(ctx context.Context, f Filter) (int64, error) {
	query, clientSide := oxiQuery(f)
	if clientSide {
		return 0, fmt.Errorf("oxidb: delete requires an equality filter")
	}
	res, err := c.pool.Get().Delete(ctx, c.name, query)
	if err != nil {
		return 0, err
	}
	return oxidb.ResultCount(res, "deleted"), nil
}

func (c *oxiCollection) EnsureIndex(ctx context.Context, field string, unique bool) error {
	if unique {
		return c.pool.Get().CreateUniqueIndex(ctx, c.name, field)
	}
	return c.pool.Get().CreateIndex(ctx, c.name, field)
}

func oxiWriteErr(err error) error {
	if oxidb.IsUniqueViolation(err) {
		return fmt.Errorf("%w: %v", ErrDuplicateKey, err)
	}
	return err
}
