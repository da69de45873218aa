package supabase

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/lib/pq"

	"customer-portal-backend/internal/store"
)

// DocumentStore is a store.Repository on the Postgres database behind the
// Supabase project. Collections live as JSONB rows in the documents table;
// changes are pushed to subscribers through LISTEN/NOTIFY.
type DocumentStore struct {
	db       *sql.DB
	realtime *Realtime

	mu   sync.Mutex
	subs map[*subscription]struct{}
}

type subscription struct {
	*store.Feed
	query store.Query

	// mu orders query-and-push rounds so an older result never replaces a
	// newer one.
	mu sync.Mutex
}

// NewDocumentStore wraps an open database. realtime may be nil, in which
// case subscriptions only ever deliver their initial snapshot.
func NewDocumentStore(db *sql.DB, realtime *Realtime) *DocumentStore {
	d := &DocumentStore{
		db:       db,
		realtime: realtime,
		subs:     make(map[*subscription]struct{}),
	}
	if realtime != nil {
		realtime.OnChange(d.refresh)
	}
	return d
}

func (d *DocumentStore) Get(ctx context.Context, collection, id string) (store.Document, error) {
	var raw []byte
	err := d.db.QueryRowContext(ctx,
		"SELECT data FROM documents WHERE collection = $1 AND id = $2",
		collection, id,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Document{}, fmt.Errorf("%s/%s: %w", collection, id, store.ErrNotFound)
	}
	if err != nil {
		return store.Document{}, fmt.Errorf("failed to get document: %w", err)
	}

	fields, err := decodeFields(raw)
	if err != nil {
		return store.Document{}, err
	}
	return store.Document{ID: id, Fields: fields}, nil
}

func (d *DocumentStore) Query(ctx context.Context, q store.Query) ([]store.Document, error) {
	if q.NeedsCompositeIndex() {
		if _, err := d.db.ExecContext(ctx, "SELECT require_document_index($1, $2)", q.Collection, q.OrderBy); err != nil {
			return nil, mapError(err)
		}
	}

	query, args, err := buildSelect(q)
	if err != nil {
		return nil, err
	}
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var docs []store.Document
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		fields, err := decodeFields(raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, store.Document{ID: id, Fields: fields})
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return docs, nil
}

// Subscribe registers the subscription before running the initial query,
// so a change committed while that query runs still triggers a refresh.
func (d *DocumentStore) Subscribe(ctx context.Context, q store.Query) (store.Subscription, error) {
	sub := &subscription{query: q}
	sub.Feed = store.NewFeed(func() {
		d.mu.Lock()
		delete(d.subs, sub)
		d.mu.Unlock()
	})

	sub.mu.Lock()
	d.mu.Lock()
	d.subs[sub] = struct{}{}
	d.mu.Unlock()

	docs, err := d.Query(ctx, q)
	if err != nil {
		sub.mu.Unlock()
		sub.Close()
		return nil, err
	}
	sub.Push(docs)
	sub.mu.Unlock()

	go func() {
		<-ctx.Done()
		sub.Close()
	}()
	return sub, nil
}

func (d *DocumentStore) Set(ctx context.Context, collection string, doc store.Document) error {
	if doc.ID == "" {
		return fmt.Errorf("document id is required")
	}
	data, err := json.Marshal(doc.Fields)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, data)
		VALUES ($1, $2, $3)
		ON CONFLICT (collection, id)
		DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()
	`, collection, doc.ID, string(data))
	if err != nil {
		return fmt.Errorf("failed to save document: %w", mapError(err))
	}
	return nil
}

func (d *DocumentStore) SetIf(ctx context.Context, collection string, doc store.Document, conds ...store.Condition) error {
	data, err := json.Marshal(doc.Fields)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	filter, err := encodeConditions(conds)
	if err != nil {
		return err
	}

	res, err := d.db.ExecContext(ctx, `
		UPDATE documents SET data = $3, updated_at = NOW()
		WHERE collection = $1 AND id = $2 AND data @> $4::jsonb
	`, collection, doc.ID, string(data), filter)
	if err != nil {
		return fmt.Errorf("failed to save document: %w", mapError(err))
	}
	return conditionResult(res, collection, doc.ID)
}

func (d *DocumentStore) DeleteIf(ctx context.Context, collection, id string, conds ...store.Condition) error {
	filter, err := encodeConditions(conds)
	if err != nil {
		return err
	}

	res, err := d.db.ExecContext(ctx,
		"DELETE FROM documents WHERE collection = $1 AND id = $2 AND data @> $3::jsonb",
		collection, id, filter,
	)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", mapError(err))
	}
	return conditionResult(res, collection, id)
}

func conditionResult(res sql.Result, collection, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s/%s: %w", collection, id, store.ErrConditionFailed)
	}
	return nil
}

func (d *DocumentStore) Delete(ctx context.Context, collection, id string) error {
	_, err := d.db.ExecContext(ctx,
		"DELETE FROM documents WHERE collection = $1 AND id = $2",
		collection, id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", mapError(err))
	}
	return nil
}

// refresh reruns every subscription on collection. An empty collection
// means the notification stream was interrupted and all of them rerun.
func (d *DocumentStore) refresh(ctx context.Context, collection string) {
	d.mu.Lock()
	var due []*subscription
	for sub := range d.subs {
		if collection == "" || sub.query.Collection == collection {
			due = append(due, sub)
		}
	}
	d.mu.Unlock()

	for _, sub := range due {
		d.rerun(ctx, sub)
	}
}

func (d *DocumentStore) rerun(ctx context.Context, sub *subscription) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.Closed() {
		return
	}
	docs, err := d.Query(ctx, sub.query)
	if err != nil {
		return
	}
	sub.Push(docs)
}

func buildSelect(q store.Query) (string, []any, error) {
	var sb strings.Builder
	args := []any{q.Collection}
	sb.WriteString("SELECT id, data FROM documents WHERE collection = $1")

	if len(q.Where) > 0 {
		encoded, err := encodeConditions(q.Where)
		if err != nil {
			return "", nil, err
		}
		args = append(args, encoded)
		fmt.Fprintf(&sb, " AND data @> $%d::jsonb", len(args))
	}

	if q.OrderBy == "" {
		sb.WriteString(" ORDER BY id")
		return sb.String(), args, nil
	}

	args = append(args, q.OrderBy)
	// missing values come first ascending and last descending
	if q.Descending {
		fmt.Fprintf(&sb, " ORDER BY data->($%d::text) DESC NULLS LAST, id", len(args))
	} else {
		fmt.Fprintf(&sb, " ORDER BY data->($%d::text) ASC NULLS FIRST, id", len(args))
	}
	return sb.String(), args, nil
}

// encodeConditions turns equality conditions into a JSONB containment
// document. No conditions encode to {}, which every row contains.
func encodeConditions(conds []store.Condition) (string, error) {
	filter := make(map[string]any, len(conds))
	for _, c := range conds {
		filter[c.Field] = c.Value
	}
	encoded, err := json.Marshal(filter)
	if err != nil {
		return "", fmt.Errorf("failed to encode filter: %w", err)
	}
	return string(encoded), nil
}

// mapError translates "feature not supported" raised by
// require_document_index into store.ErrMissingIndex.
func mapError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Class() == "0A" {
		return fmt.Errorf("%s: %w", pqErr.Message, store.ErrMissingIndex)
	}
	return err
}

func decodeFields(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	fields := map[string]any{}
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return fields, nil
}
