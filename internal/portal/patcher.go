package portal

import (
	"context"
	"fmt"

	"customer-portal-backend/internal/folders"
	"customer-portal-backend/internal/logger"
	"customer-portal-backend/internal/media"
	"customer-portal-backend/internal/models"
	"customer-portal-backend/internal/notify"
	"customer-portal-backend/internal/store"
)

// FileRef identifies a file the customer acts on.
type FileRef struct {
	FolderPath string
	PublicID   string
	UserID     string
}

// ActionResult is the file after an action plus the URL to open, if any.
type ActionResult struct {
	File models.FileItem
	URL  string
}

// MarkAsRead records that the customer opened the file.
func (s *Session) MarkAsRead(ctx context.Context, ref FileRef) (ActionResult, error) {
	return s.act(ctx, ref, false)
}

// Approve marks the file read and then approved. Only report folders take
// approvals.
func (s *Session) Approve(ctx context.Context, ref FileRef) (ActionResult, error) {
	if !folders.CanList(s.Project(), ref.FolderPath) {
		return ActionResult{}, ErrFolderNotFound
	}
	f, ok := folders.Lookup(s.Project(), ref.FolderPath)
	if ok && !f.Report {
		return ActionResult{}, ErrApprovalDisabled
	}
	return s.act(ctx, ref, true)
}

// View marks the file read and returns its inline URL.
func (s *Session) View(ctx context.Context, ref FileRef) (ActionResult, error) {
	res, err := s.act(ctx, ref, false)
	if err != nil {
		return res, err
	}
	res.URL = res.File.URL
	return res, nil
}

// Download marks the file read and returns a URL that forces a download.
func (s *Session) Download(ctx context.Context, ref FileRef) (ActionResult, error) {
	res, err := s.act(ctx, ref, false)
	if err != nil {
		return res, err
	}
	res.URL = media.DownloadURL(res.File.URL, res.File.FileType == models.FileTypePDF)
	return res, nil
}

// act performs the remote write, then patches the sets, then the displayed
// items, and finally fires the notification.
func (s *Session) act(ctx context.Context, ref FileRef, approve bool) (ActionResult, error) {
	if !folders.CanList(s.Project(), ref.FolderPath) {
		return ActionResult{}, ErrFolderNotFound
	}
	ref.FolderPath = folders.Normalize(ref.FolderPath)
	s.EnsurePreloaded(ctx)

	if err := s.beginAction(ref.PublicID); err != nil {
		return ActionResult{}, err
	}
	defer s.endAction(ref.PublicID)

	item, err := s.findFile(ctx, ref)
	if err != nil {
		return ActionResult{}, err
	}

	before := s.Sets()
	alreadyDone := before != nil && before.IsRead(ref.PublicID)
	if approve {
		alreadyDone = before != nil && before.IsApproved(ref.PublicID)
	}

	now := s.now()
	// the first readAt is kept
	if !s.hasReadMark(ctx, before, ref.PublicID) {
		if err := s.repo.Set(ctx, ReadMarksCollection, readMarkDocument(models.ReadMark{
			ProjectID:  s.ProjectID,
			CustomerID: s.CustomerID,
			PublicID:   ref.PublicID,
			ReadAt:     now,
		})); err != nil {
			return ActionResult{}, fmt.Errorf("failed to write read mark: %w", err)
		}
	}
	if approve {
		if err := s.repo.Set(ctx, ApprovalsCollection, approvalMarkDocument(models.ApprovalMark{
			ProjectID:  s.ProjectID,
			CustomerID: s.CustomerID,
			PublicID:   ref.PublicID,
			Status:     models.ReportApproved,
			UpdatedAt:  now,
		})); err != nil {
			return ActionResult{}, fmt.Errorf("failed to write approval mark: %w", err)
		}
	}

	s.patchSets(ref.PublicID, approve)

	update := func(it *models.FileItem) {
		it.IsRead = true
		if approve {
			it.ReportStatus = models.ReportApproved
		} else if it.ReportStatus == models.ReportUnread {
			it.ReportStatus = models.ReportRead
		}
	}
	update(&item)
	// marks are keyed by public id alone, so every view holding the file
	// shows the new status on its next snapshot
	for _, v := range s.openViews() {
		v.patch(ref.PublicID, update)
	}

	if !alreadyDone {
		ev := notify.EventFileRead
		if approve {
			ev = notify.EventFileApproved
		}
		s.notifier.Notify(notify.Event{
			Type:       ev,
			ProjectID:  s.ProjectID,
			CustomerID: s.CustomerID,
			PublicID:   ref.PublicID,
			FileName:   item.FileName,
			FolderPath: ref.FolderPath,
		})
	}

	return ActionResult{File: item}, nil
}

// hasReadMark consults the preloaded sets, or the store when they are
// unavailable. A failed lookup counts as unread so the mark gets written.
func (s *Session) hasReadMark(ctx context.Context, sets *ReadApprovalSets, publicID string) bool {
	if sets != nil {
		return sets.IsRead(publicID)
	}
	read, err := s.lookup.IsRead(ctx, s.ProjectID, s.CustomerID, publicID)
	return err == nil && read
}

// patchSets replaces the sets with a copy that includes publicID. Nothing
// is patched while the sets are unavailable.
func (s *Session) patchSets(publicID string, approve bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sets == nil {
		return
	}
	next := s.sets.WithRead(publicID)
	if approve {
		next = next.WithApproved(publicID)
	}
	s.sets = next
}

func (s *Session) beginAction(publicID string) error {
	s.mu.Lock()
	if _, busy := s.pending[publicID]; busy {
		s.mu.Unlock()
		return ErrActionPending
	}
	s.pending[publicID] = struct{}{}
	s.lastUsed = s.now()
	s.mu.Unlock()

	s.setPendingFlag(publicID, true)
	return nil
}

func (s *Session) endAction(publicID string) {
	s.mu.Lock()
	delete(s.pending, publicID)
	s.mu.Unlock()

	s.setPendingFlag(publicID, false)
}

func (s *Session) isPending(publicID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[publicID]
	return ok
}

func (s *Session) setPendingFlag(publicID string, pending bool) {
	for _, v := range s.openViews() {
		v.patch(publicID, func(it *models.FileItem) { it.Pending = pending })
	}
}

// findFile reads the file record from the folder, applying the same
// uploader restriction as the listing.
func (s *Session) findFile(ctx context.Context, ref FileRef) (models.FileItem, error) {
	q := store.Query{Collection: folders.CollectionKey(s.ProjectID, ref.FolderPath)}.
		Filter("publicId", ref.PublicID)
	if folders.FilterByUploader(ref.FolderPath) {
		q = q.Filter("uploadedBy", ref.UserID)
	}

	docs, err := s.repo.Query(ctx, q)
	if err != nil {
		return models.FileItem{}, fmt.Errorf("failed to find file: %w", err)
	}
	if len(docs) == 0 {
		return models.FileItem{}, ErrFileNotFound
	}
	if len(docs) > 1 {
		logger.Log.Warn("duplicate file records for public id",
			"component", "patcher",
			"project_id", s.ProjectID,
			"public_id", ref.PublicID,
			"count", len(docs))
	}
	return MapFile(ctx, docs[0], ref.FolderPath, s.mapContext()), nil
}
