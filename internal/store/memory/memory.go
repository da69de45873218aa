// Package memory is an in-process document store with realtime pushes. It
// enforces composite-index rules like the hosted database so that the
// degraded query path can be exercised without one.
package memory

import (
	"context"
	"fmt"
	"path"
	"sort"
	"sync"

	"customer-portal-backend/internal/store"
)

// Index declares that filtered queries on collections matching the glob
// Collection may be ordered by OrderBy.
type Index struct {
	Collection string
	OrderBy    string
}

type Options struct {
	RequireIndexes bool
	Indexes        []Index
}

type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]any
	opts        Options
	subs        map[*subscription]struct{}
	queryHook   func(store.Query) error
}

type subscription struct {
	*store.Feed
	query store.Query
}

func New(opts Options) *Store {
	return &Store{
		collections: make(map[string]map[string]map[string]any),
		opts:        opts,
		subs:        make(map[*subscription]struct{}),
	}
}

// SetQueryHook installs a function consulted before every query and
// subscription; a non-nil result fails the call.
func (s *Store) SetQueryHook(hook func(store.Query) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queryHook = hook
}

func (s *Store) Get(ctx context.Context, collection, id string) (store.Document, error) {
	if err := ctx.Err(); err != nil {
		return store.Document{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	fields, ok := s.collections[collection][id]
	if !ok {
		return store.Document{}, fmt.Errorf("%s/%s: %w", collection, id, store.ErrNotFound)
	}
	return store.Document{ID: id, Fields: clone(fields)}, nil
}

func (s *Store) Query(ctx context.Context, q store.Query) ([]store.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.run(q)
}

func (s *Store) Subscribe(ctx context.Context, q store.Query) (store.Subscription, error) {
	s.mu.Lock()
	docs, err := s.run(q)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	sub := &subscription{query: q}
	sub.Feed = store.NewFeed(func() {
		s.mu.Lock()
		delete(s.subs, sub)
		s.mu.Unlock()
	})
	s.subs[sub] = struct{}{}
	sub.Push(docs)
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		sub.Close()
	}()
	return sub, nil
}

func (s *Store) Set(ctx context.Context, collection string, doc store.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if doc.ID == "" {
		return fmt.Errorf("document id is required")
	}
	s.mu.Lock()
	coll, ok := s.collections[collection]
	if !ok {
		coll = make(map[string]map[string]any)
		s.collections[collection] = coll
	}
	coll[doc.ID] = clone(doc.Fields)
	s.mu.Unlock()

	s.publish(collection)
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.collections[collection], id)
	s.mu.Unlock()

	s.publish(collection)
	return nil
}

func (s *Store) SetIf(ctx context.Context, collection string, doc store.Document, conds ...store.Condition) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	current, ok := s.collections[collection][doc.ID]
	if !ok || !matches(current, conds) {
		s.mu.Unlock()
		return fmt.Errorf("%s/%s: %w", collection, doc.ID, store.ErrConditionFailed)
	}
	s.collections[collection][doc.ID] = clone(doc.Fields)
	s.mu.Unlock()

	s.publish(collection)
	return nil
}

func (s *Store) DeleteIf(ctx context.Context, collection, id string, conds ...store.Condition) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	current, ok := s.collections[collection][id]
	if !ok || !matches(current, conds) {
		s.mu.Unlock()
		return fmt.Errorf("%s/%s: %w", collection, id, store.ErrConditionFailed)
	}
	delete(s.collections[collection], id)
	s.mu.Unlock()

	s.publish(collection)
	return nil
}

func (s *Store) publish(collection string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for sub := range s.subs {
		if sub.query.Collection != collection {
			continue
		}
		docs, err := s.run(sub.query)
		if err != nil {
			continue
		}
		sub.Push(docs)
	}
}

// run must be called with s.mu held.
func (s *Store) run(q store.Query) ([]store.Document, error) {
	if s.queryHook != nil {
		if err := s.queryHook(q); err != nil {
			return nil, err
		}
	}
	if q.NeedsCompositeIndex() && s.opts.RequireIndexes && !s.indexed(q) {
		return nil, fmt.Errorf("%s ordered by %s: %w", q.Collection, q.OrderBy, store.ErrMissingIndex)
	}

	var docs []store.Document
	for id, fields := range s.collections[q.Collection] {
		if matches(fields, q.Where) {
			docs = append(docs, store.Document{ID: id, Fields: clone(fields)})
		}
	}

	sort.SliceStable(docs, func(i, j int) bool {
		if q.OrderBy == "" {
			return docs[i].ID < docs[j].ID
		}
		a, b := docs[i].Fields[q.OrderBy], docs[j].Fields[q.OrderBy]
		if q.Descending {
			return store.Less(b, a)
		}
		return store.Less(a, b)
	})
	return docs, nil
}

func (s *Store) indexed(q store.Query) bool {
	for _, idx := range s.opts.Indexes {
		if idx.OrderBy != q.OrderBy {
			continue
		}
		if ok, _ := path.Match(idx.Collection, q.Collection); ok {
			return true
		}
	}
	return false
}

func matches(fields map[string]any, where []store.Condition) bool {
	for _, c := range where {
		if !store.Equal(fields[c.Field], c.Value) {
			return false
		}
	}
	return true
}

func clone(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}
