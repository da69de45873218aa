package offer

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"customer-portal-backend/internal/logger"
)

const reloadDebounce = 500 * time.Millisecond

// CatalogWatcher reloads the catalogue file into a holder whenever it
// changes on disk. A file that fails to parse keeps the previous catalogue.
type CatalogWatcher struct {
	path   string
	holder *CatalogHolder

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	done    chan struct{}
}

func NewCatalogWatcher(path string, holder *CatalogHolder) (*CatalogWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	// editors replace the file, so the directory is watched
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	cw := &CatalogWatcher{
		path:    path,
		holder:  holder,
		watcher: watcher,
		done:    make(chan struct{}),
	}
	go cw.watchLoop(watcher)

	logger.Log.Info("watching catalog for changes", "component", "catalog", "path", path)
	return cw, nil
}

func (cw *CatalogWatcher) Stop() {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	if cw.watcher == nil {
		return
	}
	close(cw.done)
	cw.watcher.Close()
	cw.watcher = nil
}

func (cw *CatalogWatcher) watchLoop(w *fsnotify.Watcher) {
	var debounce *time.Timer
	target := filepath.Clean(cw.path)

	for {
		select {
		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(reloadDebounce, cw.Reload)

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			logger.Log.Error("catalog watcher error", "component", "catalog", "error", err)

		case <-cw.done:
			if debounce != nil {
				debounce.Stop()
			}
			return
		}
	}
}

// Reload reads the catalogue file now.
func (cw *CatalogWatcher) Reload() {
	c, err := LoadCatalog(cw.path)
	if err != nil {
		logger.Log.Error("catalog reload failed, keeping previous catalog",
			"component", "catalog",
			"path", cw.path,
			"error", err)
		return
	}
	cw.holder.Replace(c)
	logger.Log.Info("catalog reloaded",
		"component", "catalog",
		"gallery", len(c.Gallery),
		"products", len(c.Products))
}
