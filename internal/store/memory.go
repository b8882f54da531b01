package store

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// Memory is an in-memory Database. Documents are normalised through JSON on
// the way in and copied on the way out, so callers observe the same value
// shapes as with the network backends.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
}

// NewMemory creates an empty in-memory database.
func NewMemory() *Memory {
	return &Memory{collections: make(map[string]*memoryCollection)}
}

func (m *Memory) Collection(name string) Collection {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.collections[name]
	if !ok {
		c = &memoryCollection{unique: make(map[string]bool)}
		m.collections[name] = c
	}
	return c
}

func (m *Memory) Ping(ctx context.Context) error { return ctx.Err() }

func (m *Memory) Close(context.Context) error { return nil }

type memoryCollection struct {
	mu     sync.RWMutex
	docs   []Document // insertion order
	unique map[string]bool
}

func (c *memoryCollection) FindOne(ctx context.Context, f Filter) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, d := range c.docs {
		if matches(d, f) {
			return copyDoc(d)
		}
	}
	return nil, ErrNoDocument
}

func (c *memoryCollection) Find(ctx context.Context, f Filter, opts FindOptions) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	selected := make([]Document, 0, len(c.docs))
	for _, d := range c.docs {
		if matches(d, f) {
			selected = append(selected, d)
		}
	}
	c.mu.RUnlock()

	if opts.SortDesc != "" {
		field := opts.SortDesc
		sort.SliceStable(selected, func(i, j int) bool {
			return compareValues(selected[i][field], selected[j][field]) > 0
		})
	}
	selected = page(selected, opts.Skip, opts.Limit)

	out := make([]Document, 0, len(selected))
	for _, d := range selected {
		cp, err := copyDoc(d)
		if err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	return out, nil
}

func (c *memoryCollection) Count(ctx context.Context, f Filter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	var n int64
	for _, d := range c.docs {
		if matches(d, f) {
			n++
		}
	}
	return n, nil
}

func (c *memoryCollection) Insert(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	norm, err := copyDoc(doc)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkUnique(norm, -1); err != nil {
		return err
	}
	c.docs = append(c.docs, norm)
	return nil
}

func (c *memoryCollection) Replace(ctx context.Context, f Filter, doc Document, upsert bool) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	norm, err := copyDoc(doc)
	if err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, d := range c.docs {
		if !matches(d, f) {
			continue
		}
		if err := c.checkUnique(norm, i); err != nil {
			return 0, err
		}
		c.docs[i] = norm
		return 1, nil
	}
	if !upsert {
		return 0, nil
	}
	if err := c.checkUnique(norm, -1); err != nil {
		return 0, err
	}
	c.docs = append(c.docs, norm)
	return 0, nil
}

func (c *memoryCollection) DeleteOne(ctx context.Context, f Filter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, d := range c.docs {
		if matches(d, f) {
			c.docs = append(c.docs[:i], c.docs[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func (c *memoryCollection) DeleteMany(ctx context.Context, f Filter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.docs[:0]
	var n int64
	for _, d := range c.docs {
		if matches(d, f) {
			n++
			continue
		}
		kept = append(kept, d)
	}
	c.docs = kept
	return n, nil
}

func (c *memoryCollection) EnsureIndex(_ context.Context, field string, unique bool) error {
	if !unique {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unique[field] = true
	return nil
}

// checkUnique must be called with the write lock held. skip is the index of
// the document being replaced, or -1.
func (c *memoryCollection) checkUnique(doc Document, skip int) error {
	for field := range c.unique {
		v, ok := doc[field]
		if !ok {
			continue
		}
		for i, d := range c.docs {
			if i != skip && reflect.DeepEqual(d[field], v) {
				return fmt.Errorf("%w: %s=%v", ErrDuplicateKey, field, v)
			}
		}
	}
	return nil
}

func matches(doc Document, f Filter) bool {
	if f.IsAll() {
		return true
	}
	v, ok := doc[f.Field]
	if !ok {
		return false
	}
	if f.Equals != nil {
		return reflect.DeepEqual(v, normalize(f.Equals))
	}
	s, ok := v.(string)
	return ok && matchString(s, f.Contains)
}

// compareValues orders numbers numerically and strings lexically; a missing
// or mismatched value sorts first.
func compareValues(a, b any) int {
	switch av := a.(type) {
	case float64:
		if bv, ok := b.(float64); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
			return 0
		}
	case string:
		if bv, ok := b.(string); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
			return 0
		}
	}
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return 0
}

func copyDoc(doc Document) (Document, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("store: encode document: %w", err)
	}
	var out Document
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("store: decode document: %w", err)
	}
	return out, nil
}

func normalize(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}
