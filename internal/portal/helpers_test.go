package portal

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"customer-portal-backend/internal/folders"
	"customer-portal-backend/internal/media"
	"customer-portal-backend/internal/models"
	"customer-portal-backend/internal/notify"
	"customer-portal-backend/internal/store"
	"customer-portal-backend/internal/store/memory"
)

const (
	testProjectID  = "p1"
	testCustomerID = "c1"

	testWait = 2 * time.Second
	testTick = 10 * time.Millisecond
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

func (n *recordingNotifier) Events() []notify.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Event(nil), n.events...)
}

type fakeMedia struct {
	mu      sync.Mutex
	uploads []media.UploadInput
	deleted []string
	failOn  string
}

func (m *fakeMedia) Upload(_ context.Context, in media.UploadInput) (media.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if in.Filename == m.failOn {
		return media.Asset{}, errBoom
	}
	m.uploads = append(m.uploads, in)
	id := in.Folder + "/" + strings.TrimSuffix(in.Filename, ".pdf")
	return media.Asset{
		PublicID: id,
		URL:      "https://res.cloudinary.com/demo/image/upload/v1/" + id,
	}, nil
}

func (m *fakeMedia) Delete(_ context.Context, publicID, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, publicID)
	return nil
}

var errBoom = errors.New("boom")

// gatedRepo wraps a repository so tests can fail or hold writes.
type gatedRepo struct {
	store.Repository
	mu     sync.Mutex
	setErr error
	hold   chan struct{}
	held   chan struct{}
}

func (g *gatedRepo) Set(ctx context.Context, collection string, doc store.Document) error {
	g.mu.Lock()
	err, hold, held := g.setErr, g.hold, g.held
	g.mu.Unlock()
	if hold != nil {
		held <- struct{}{}
		<-hold
	}
	if err != nil {
		return err
	}
	return g.Repository.Set(ctx, collection, doc)
}

func testProject() *models.Project {
	return &models.Project{
		ID:            testProjectID,
		Name:          "Roof renovation",
		Year:          2024,
		CustomerID:    testCustomerID,
		CustomFolders: []string{"custom/kitchen"},
	}
}

type fixture struct {
	repo     *memory.Store
	notifier *recordingNotifier
	media    *fakeMedia
	session  *Session
}

func newFixture(t *testing.T, opts memory.Options) *fixture {
	t.Helper()
	f := &fixture{
		repo:     memory.New(opts),
		notifier: &recordingNotifier{},
		media:    &fakeMedia{},
	}
	f.session = NewSession(testProject(), testCustomerID, Deps{
		Repo:     f.repo,
		Media:    f.media,
		Notifier: f.notifier,
	})
	return f
}

func (f *fixture) addFile(t *testing.T, folderPath string, rec models.FileRecord) {
	t.Helper()
	if rec.ID == "" {
		rec.ID = "doc-" + rec.PublicID
	}
	rec.FolderPath = folderPath
	err := f.repo.Set(context.Background(), folders.CollectionKey(testProjectID, folderPath), FileRecordToDocument(rec))
	require.NoError(t, err)
}

func at(ms int64) *time.Time {
	t := time.UnixMilli(ms).UTC()
	return &t
}

func byPublicID(items []models.FileItem, publicID string) (models.FileItem, bool) {
	for _, it := range items {
		if it.PublicID == publicID {
			return it, true
		}
	}
	return models.FileItem{}, false
}

func publicIDsOf(items []models.FileItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.PublicID
	}
	return out
}

func waitItems(t *testing.T, v *FolderView) []models.FileItem {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	items, err := v.Wait(ctx)
	require.NoError(t, err)
	return items
}
