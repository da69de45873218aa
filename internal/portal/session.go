// Package portal keeps a customer's view of project folders consistent
// across the live listener feed, the batch-preloaded read/approval sets and
// optimistic patches applied after the customer acts on a file.
package portal

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"customer-portal-backend/internal/folders"
	"customer-portal-backend/internal/logger"
	"customer-portal-backend/internal/media"
	"customer-portal-backend/internal/metrics"
	"customer-portal-backend/internal/models"
	"customer-portal-backend/internal/notify"
	"customer-portal-backend/internal/store"
)

const preloadTimeout = 30 * time.Second

var (
	ErrFolderNotFound   = errors.New("folder not found")
	ErrFileNotFound     = errors.New("file not found")
	ErrActionPending    = errors.New("another action on this file is in progress")
	ErrApprovalDisabled = errors.New("files in this folder cannot be approved")
	ErrNotOwner         = errors.New("file was uploaded by another user")
)

// Session is the state of one customer in one project. The preloaded sets
// are fetched once and afterwards only replaced by optimistic patches.
type Session struct {
	ProjectID  string
	CustomerID string

	project  *models.Project
	repo     store.Repository
	lookup   StatusLookup
	media    media.Store
	notifier notify.Notifier
	now      func() time.Time

	preloadOnce sync.Once

	mu       sync.Mutex
	sets     *ReadApprovalSets
	views    map[*FolderView]struct{}
	pending  map[string]struct{}
	lastUsed time.Time
}

type Deps struct {
	Repo     store.Repository
	Lookup   StatusLookup
	Media    media.Store
	Notifier notify.Notifier
}

func NewSession(project *models.Project, customerID string, deps Deps) *Session {
	if deps.Lookup == nil {
		deps.Lookup = NewStoreLookup(deps.Repo)
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.Nop{}
	}
	return &Session{
		ProjectID:  project.ID,
		CustomerID: customerID,
		project:    project,
		repo:       deps.Repo,
		lookup:     deps.Lookup,
		media:      deps.Media,
		notifier:   deps.Notifier,
		now:        time.Now,
		views:      make(map[*FolderView]struct{}),
		pending:    make(map[string]struct{}),
		lastUsed:   time.Now(),
	}
}

// Project returns the project the session belongs to.
func (s *Session) Project() *models.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.project
}

func (s *Session) setProject(p *models.Project) {
	s.mu.Lock()
	s.project = p
	s.lastUsed = s.now()
	s.mu.Unlock()
}

// Sets returns the current preloaded sets, or nil when unavailable.
func (s *Session) Sets() *ReadApprovalSets {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sets
}

// EnsurePreloaded runs the batch preload the first time it is called. A
// failed preload leaves the sets nil so mapping falls back to per-file
// lookups instead of failing the listing. The preload outlives the
// caller's cancellation since its result is shared by later requests.
func (s *Session) EnsurePreloaded(ctx context.Context) {
	s.preloadOnce.Do(func() {
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), preloadTimeout)
		defer cancel()
		sets, err := Preload(pctx, s.repo, s.ProjectID, s.CustomerID)
		if err != nil {
			metrics.PreloadFailures.Inc()
			logger.Log.Warn("read/approval preload failed, falling back to per-file lookups",
				"component", "preloader",
				"project_id", s.ProjectID,
				"error", err)
			sets = nil
		} else {
			logger.Log.Debug("read/approval sets preloaded",
				"component", "preloader",
				"project_id", s.ProjectID,
				"read", sets.ReadCount(),
				"approved", sets.ApprovedCount())
		}
		s.mu.Lock()
		s.sets = sets
		s.mu.Unlock()
	})
}

func (s *Session) mapContext() *MapContext {
	return &MapContext{
		ProjectID:  s.ProjectID,
		CustomerID: s.CustomerID,
		Sets:       s.Sets(),
		Lookup:     s.lookup,
	}
}

func (s *Session) register(v *FolderView) {
	s.mu.Lock()
	s.views[v] = struct{}{}
	s.lastUsed = s.now()
	s.mu.Unlock()
}

func (s *Session) unregister(v *FolderView) {
	s.mu.Lock()
	delete(s.views, v)
	s.lastUsed = s.now()
	s.mu.Unlock()
}

func (s *Session) openViews() []*FolderView {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*FolderView, 0, len(s.views))
	for v := range s.views {
		out = append(out, v)
	}
	return out
}

func (s *Session) idleSince() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed, len(s.views) == 0
}

// OpenFolder starts listening to a folder. Folders the customer may not
// list return ErrFolderNotFound without touching the store. A listing that
// cannot be established at all yields an empty, static view.
func (s *Session) OpenFolder(ctx context.Context, folderPath, userID string) (*FolderView, error) {
	if !folders.CanList(s.Project(), folderPath) {
		return nil, ErrFolderNotFound
	}
	folderPath = folders.Normalize(folderPath)
	s.EnsurePreloaded(ctx)

	view := newFolderView(ctx, s, folderPath)
	s.register(view)

	q := s.folderQuery(folderPath, userID)
	sub, clientSort, err := s.subscribe(view.ctx, q)
	if err != nil {
		logger.Log.Error("folder listener could not be established",
			"component", "folder_listener",
			"project_id", s.ProjectID,
			"folder", folderPath,
			"error", err)
		view.replace([]models.FileItem{})
		return view, nil
	}
	view.sub = sub

	go s.listen(view, sub, clientSort)
	return view, nil
}

func (s *Session) folderQuery(folderPath, userID string) store.Query {
	q := store.Query{
		Collection: folders.CollectionKey(s.ProjectID, folderPath),
		OrderBy:    "uploadedAt",
		Descending: true,
	}
	if folders.FilterByUploader(folderPath) {
		q = q.Filter("uploadedBy", userID)
	}
	return q
}

// subscribe retries exactly once without ordering when the ordered query
// needs a missing index. The second return reports whether the caller has
// to sort the results itself.
func (s *Session) subscribe(ctx context.Context, q store.Query) (store.Subscription, bool, error) {
	sub, err := s.repo.Subscribe(ctx, q)
	if err == nil {
		return sub, false, nil
	}
	if !errors.Is(err, store.ErrMissingIndex) {
		return nil, false, err
	}

	logger.Log.Warn("folder query needs a missing index, retrying without ordering",
		"component", "folder_listener",
		"collection", q.Collection)
	sub, err = s.repo.Subscribe(ctx, q.WithoutOrder())
	if err != nil {
		metrics.IndexFallbacks.WithLabelValues("failed").Inc()
		return nil, true, err
	}
	metrics.IndexFallbacks.WithLabelValues("recovered").Inc()
	return sub, true, nil
}

func (s *Session) listen(view *FolderView, sub store.Subscription, clientSort bool) {
	defer view.Close()
	for docs := range sub.Snapshots() {
		items := s.mapAll(view.ctx, docs, view.FolderPath)
		if clientSort {
			SortByUploadedDesc(items)
		}
		view.replace(items)
	}
}

// mapAll remaps the whole snapshot; there is no per-item diffing.
func (s *Session) mapAll(ctx context.Context, docs []store.Document, folderPath string) []models.FileItem {
	mc := s.mapContext()
	items := make([]models.FileItem, len(docs))
	for i, doc := range docs {
		items[i] = MapFile(ctx, doc, folderPath, mc)
		items[i].Pending = s.isPending(items[i].PublicID)
	}
	return items
}

// SortByUploadedDesc orders newest first. Files without a timestamp count
// as uploaded at the epoch and therefore sort last.
func SortByUploadedDesc(items []models.FileItem) {
	key := func(it models.FileItem) int64 {
		if it.UploadedAt == nil {
			return 0
		}
		return it.UploadedAt.UnixMilli()
	}
	sort.SliceStable(items, func(i, j int) bool {
		return key(items[i]) > key(items[j])
	})
}
