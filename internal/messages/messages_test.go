package messages

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"customer-portal-backend/internal/models"
	"customer-portal-backend/internal/notify"
	"customer-portal-backend/internal/store"
	"customer-portal-backend/internal/store/memory"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (n *recordingNotifier) Notify(ev notify.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func newTestService(opts memory.Options) (*Service, *memory.Store, *recordingNotifier) {
	repo := memory.New(opts)
	n := &recordingNotifier{}
	svc := NewService(repo, n)
	clock := time.UnixMilli(1_700_000_000_000).UTC()
	svc.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return svc, repo, n
}

func TestCreate_SanitizesAndNotifies(t *testing.T) {
	svc, repo, n := newTestService(memory.Options{})

	msg, err := svc.Create(context.Background(), "p1", "c1", models.CreateMessageRequest{
		FilePath: "reports/offer.pdf",
		Subject:  "  <b>Question</b> about R&D ",
		Body:     `Please call <script>alert(1)</script>me`,
	})
	require.NoError(t, err)

	assert.Equal(t, "Question about R&D", msg.Subject)
	assert.Equal(t, "Please call me", msg.Body)
	assert.Equal(t, models.MessageUnread, msg.Status)

	stored, err := repo.Get(context.Background(), Collection, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, "unread", stored.String("status"))

	require.Len(t, n.events, 1)
	assert.Equal(t, notify.EventNewMessage, n.events[0].Type)
	assert.Equal(t, msg.ID, n.events[0].MessageID)
}

func TestCreate_RejectsMarkupOnly(t *testing.T) {
	svc, _, n := newTestService(memory.Options{})
	_, err := svc.Create(context.Background(), "p1", "c1", models.CreateMessageRequest{
		Subject: "<img src=x>",
		Body:    "text",
	})
	assert.ErrorIs(t, err, ErrEmpty)
	assert.Empty(t, n.events)
}

func TestList_NewestFirstAndScoped(t *testing.T) {
	for _, requireIndexes := range []bool{false, true} {
		svc, _, _ := newTestService(memory.Options{RequireIndexes: requireIndexes})
		ctx := context.Background()

		first, err := svc.Create(ctx, "p1", "c1", models.CreateMessageRequest{Subject: "one", Body: "b"})
		require.NoError(t, err)
		second, err := svc.Create(ctx, "p1", "c1", models.CreateMessageRequest{Subject: "two", Body: "b"})
		require.NoError(t, err)
		_, err = svc.Create(ctx, "p1", "c2", models.CreateMessageRequest{Subject: "other", Body: "b"})
		require.NoError(t, err)
		_, err = svc.Create(ctx, "p2", "c1", models.CreateMessageRequest{Subject: "other project", Body: "b"})
		require.NoError(t, err)

		list, err := svc.List(ctx, "p1", "c1")
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, second.ID, list[0].ID)
		assert.Equal(t, first.ID, list[1].ID)
	}
}

func TestUpdate_WhileUnread(t *testing.T) {
	svc, _, _ := newTestService(memory.Options{})
	ctx := context.Background()
	msg, err := svc.Create(ctx, "p1", "c1", models.CreateMessageRequest{Subject: "s", Body: "b"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, "p1", "c1", msg.ID, models.UpdateMessageRequest{Subject: "s2", Body: "b2"})
	require.NoError(t, err)
	assert.Equal(t, "s2", updated.Subject)
	assert.True(t, updated.UpdatedAt.After(msg.UpdatedAt))
	assert.Equal(t, msg.CreatedAt, updated.CreatedAt)
}

func TestProcessedMessagesAreImmutable(t *testing.T) {
	svc, repo, _ := newTestService(memory.Options{})
	ctx := context.Background()
	msg, err := svc.Create(ctx, "p1", "c1", models.CreateMessageRequest{Subject: "s", Body: "b"})
	require.NoError(t, err)

	msg.Status = models.MessageProcessed
	require.NoError(t, repo.Set(ctx, Collection, toDocument(msg)))

	_, err = svc.Update(ctx, "p1", "c1", msg.ID, models.UpdateMessageRequest{Subject: "x", Body: "y"})
	assert.ErrorIs(t, err, ErrImmutable)
	assert.ErrorIs(t, svc.Delete(ctx, "p1", "c1", msg.ID), ErrImmutable)

	_, err = repo.Get(ctx, Collection, msg.ID)
	assert.NoError(t, err)
}

// processingRepo marks a message processed right after it has been read,
// as the office would between a customer's read and write.
type processingRepo struct {
	store.Repository
}

func (r processingRepo) Get(ctx context.Context, collection, id string) (store.Document, error) {
	doc, err := r.Repository.Get(ctx, collection, id)
	if err != nil {
		return doc, err
	}
	processed := store.Document{ID: doc.ID, Fields: map[string]any{}}
	for k, v := range doc.Fields {
		processed.Fields[k] = v
	}
	processed.Fields["status"] = string(models.MessageProcessed)
	if err := r.Repository.Set(ctx, collection, processed); err != nil {
		return store.Document{}, err
	}
	return doc, nil
}

func TestUpdate_DoesNotRevertConcurrentProcessing(t *testing.T) {
	svc, repo, _ := newTestService(memory.Options{})
	ctx := context.Background()
	msg, err := svc.Create(ctx, "p1", "c1", models.CreateMessageRequest{Subject: "s", Body: "b"})
	require.NoError(t, err)
	svc.repo = processingRepo{Repository: repo}

	_, err = svc.Update(ctx, "p1", "c1", msg.ID, models.UpdateMessageRequest{Subject: "x", Body: "y"})
	assert.ErrorIs(t, err, ErrImmutable)

	doc, err := repo.Get(ctx, Collection, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, string(models.MessageProcessed), doc.String("status"))
	assert.Equal(t, "s", doc.String("subject"))
}

func TestDelete_DoesNotRemoveConcurrentlyProcessed(t *testing.T) {
	svc, repo, _ := newTestService(memory.Options{})
	ctx := context.Background()
	msg, err := svc.Create(ctx, "p1", "c1", models.CreateMessageRequest{Subject: "s", Body: "b"})
	require.NoError(t, err)
	svc.repo = processingRepo{Repository: repo}

	assert.ErrorIs(t, svc.Delete(ctx, "p1", "c1", msg.ID), ErrImmutable)

	doc, err := repo.Get(ctx, Collection, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, string(models.MessageProcessed), doc.String("status"))
}

func TestDelete(t *testing.T) {
	svc, repo, _ := newTestService(memory.Options{})
	ctx := context.Background()
	msg, err := svc.Create(ctx, "p1", "c1", models.CreateMessageRequest{Subject: "s", Body: "b"})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, "p1", "c2", msg.ID), ErrNotFound, "other customers cannot delete")
	assert.ErrorIs(t, svc.Delete(ctx, "p1", "c1", "missing"), ErrNotFound)

	require.NoError(t, svc.Delete(ctx, "p1", "c1", msg.ID))
	_, err = repo.Get(ctx, Collection, msg.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
