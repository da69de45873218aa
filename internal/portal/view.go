package portal

import (
	"context"
	"sync"

	"customer-portal-backend/internal/models"
	"customer-portal-backend/internal/store"
)

// FolderView is one live listing of a folder. Every snapshot from the
// listener replaces its items; optimistic patches edit single items until
// the next snapshot arrives.
type FolderView struct {
	FolderPath string

	session *Session
	ctx     context.Context
	cancel  context.CancelFunc
	sub     store.Subscription

	mu      sync.Mutex
	items   []models.FileItem
	closed  bool
	updates chan []models.FileItem

	ready     chan struct{}
	readyOnce sync.Once
}

func newFolderView(ctx context.Context, s *Session, folderPath string) *FolderView {
	vctx, cancel := context.WithCancel(ctx)
	return &FolderView{
		FolderPath: folderPath,
		session:    s,
		ctx:        vctx,
		cancel:     cancel,
		updates:    make(chan []models.FileItem, 1),
		ready:      make(chan struct{}),
	}
}

// Items returns a copy of the current listing.
func (v *FolderView) Items() []models.FileItem {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]models.FileItem(nil), v.items...)
}

// Updates delivers the listing after every change. Only the newest listing
// is kept for a slow reader. The channel is closed with the view.
func (v *FolderView) Updates() <-chan []models.FileItem {
	return v.updates
}

// Ready is closed once the first listing is available.
func (v *FolderView) Ready() <-chan struct{} {
	return v.ready
}

// Wait blocks until the first listing is available.
func (v *FolderView) Wait(ctx context.Context) ([]models.FileItem, error) {
	select {
	case <-v.ready:
		return v.Items(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (v *FolderView) Closed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.closed
}

// Close tears the listener down. Patches arriving afterwards are dropped.
func (v *FolderView) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	close(v.updates)
	v.mu.Unlock()

	v.cancel()
	if v.sub != nil {
		v.sub.Close()
	}
	v.markReady()
	v.session.unregister(v)
}

func (v *FolderView) markReady() {
	v.readyOnce.Do(func() { close(v.ready) })
}

func (v *FolderView) replace(items []models.FileItem) {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.items = items
	v.publishLocked()
	v.mu.Unlock()
	v.markReady()
}

// patch applies fn to the item with publicID. It returns false when the
// view is closed or does not hold the file.
func (v *FolderView) patch(publicID string, fn func(*models.FileItem)) (models.FileItem, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return models.FileItem{}, false
	}
	for i := range v.items {
		if v.items[i].PublicID != publicID {
			continue
		}
		// copy so earlier readers of Items keep their values
		next := append([]models.FileItem(nil), v.items...)
		fn(&next[i])
		v.items = next
		v.publishLocked()
		return next[i], true
	}
	return models.FileItem{}, false
}

func (v *FolderView) publishLocked() {
	snapshot := append([]models.FileItem(nil), v.items...)
	select {
	case <-v.updates:
	default:
	}
	v.updates <- snapshot
}
