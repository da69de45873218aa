// Package store defines the narrow document repository the portal core is
// written against. The hosted database is one implementation, the in-memory
// store used by tests and local runs is another.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
)

var (
	ErrNotFound = errors.New("document not found")
	// ErrMissingIndex is returned when a filtered and ordered query needs a
	// composite index the backend does not have.
	ErrMissingIndex = errors.New("query requires an unavailable index")
	// ErrConditionFailed is returned by conditional writes when the stored
	// document is missing or no longer matches.
	ErrConditionFailed = errors.New("document does not match the write condition")
)

type Document struct {
	ID     string
	Fields map[string]any
}

type Condition struct {
	Field string
	Value any
}

type Query struct {
	Collection string
	Where      []Condition
	OrderBy    string
	Descending bool
}

// Filter appends an equality condition.
func (q Query) Filter(field string, value any) Query {
	q.Where = append(append([]Condition(nil), q.Where...), Condition{Field: field, Value: value})
	return q
}

func (q Query) WithoutOrder() Query {
	q.OrderBy = ""
	q.Descending = false
	return q
}

// NeedsCompositeIndex reports whether the query combines filters with an
// ordering clause.
func (q Query) NeedsCompositeIndex() bool {
	return len(q.Where) > 0 && q.OrderBy != ""
}

type Repository interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	Query(ctx context.Context, q Query) ([]Document, error)
	// Subscribe runs q once and then pushes a fresh full result set every
	// time the collection changes. Errors from the initial run are returned.
	Subscribe(ctx context.Context, q Query) (Subscription, error)
	// Set creates or replaces the document.
	Set(ctx context.Context, collection string, doc Document) error
	Delete(ctx context.Context, collection, id string) error
	// SetIf replaces an existing document only while every condition holds
	// on the stored version.
	SetIf(ctx context.Context, collection string, doc Document, conds ...Condition) error
	DeleteIf(ctx context.Context, collection, id string, conds ...Condition) error
}

type Subscription interface {
	Snapshots() <-chan []Document
	Close()
}

// CompositeID builds a deterministic document id so repeated writes of the
// same mark upsert instead of duplicating.
func CompositeID(parts ...string) string {
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = url.PathEscape(p)
	}
	return strings.Join(escaped, ":")
}

func (d Document) String(field string) string {
	s, _ := d.Fields[field].(string)
	return s
}

func (d Document) Bool(field string) bool {
	b, _ := d.Fields[field].(bool)
	return b
}

// Int64 reads a numeric field regardless of how the backend decoded it.
func (d Document) Int64(field string) (int64, bool) {
	return toInt64(d.Fields[field])
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	default:
		return 0, false
	}
}

// Equal compares field values, treating all numeric kinds alike.
func Equal(a, b any) bool {
	if an, ok := toInt64(a); ok {
		bn, ok := toInt64(b)
		return ok && an == bn
	}
	return a == b
}

// Less orders field values for OrderBy. Missing values sort first, so they
// come last in descending order.
func Less(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b != nil
	}
	if an, ok := toInt64(a); ok {
		if bn, ok := toInt64(b); ok {
			return an < bn
		}
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return as < bs
	}
	return false
}
