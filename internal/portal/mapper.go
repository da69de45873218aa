package portal

import (
	"context"
	"errors"
	"strings"

	"customer-portal-backend/internal/logger"
	"customer-portal-backend/internal/metrics"
	"customer-portal-backend/internal/models"
	"customer-portal-backend/internal/store"
)

// StatusLookup resolves read/approval status for a single file. It is the
// slow path used when no preloaded sets are available.
type StatusLookup interface {
	IsRead(ctx context.Context, projectID, customerID, publicID string) (bool, error)
	IsApproved(ctx context.Context, projectID, customerID, publicID string) (bool, error)
}

// MapContext carries what the mapper needs to resolve status. Sets takes
// precedence; Lookup is only consulted when Sets is nil.
type MapContext struct {
	ProjectID  string
	CustomerID string
	Sets       *ReadApprovalSets
	Lookup     StatusLookup
}

// FileTypeOf classifies a file name by its extension, case-insensitively.
func FileTypeOf(name string) models.FileType {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".pdf"):
		return models.FileTypePDF
	case strings.HasSuffix(lower, ".jpg"), strings.HasSuffix(lower, ".jpeg"), strings.HasSuffix(lower, ".png"):
		return models.FileTypeImage
	default:
		return models.FileTypeFile
	}
}

// MapFile turns a raw file document into a FileItem. Status lookup failures
// are logged and resolved to unread; they never fail the mapping.
func MapFile(ctx context.Context, doc store.Document, folderPath string, mc *MapContext) models.FileItem {
	rec := FileRecordFromDocument(doc, folderPath)
	item := models.FileItem{
		FileRecord: rec,
		DocID:      doc.ID,
		FileType:   FileTypeOf(rec.FileName),
	}

	read, approved := rec.IsRead, false
	switch {
	case mc == nil:
	case mc.Sets != nil:
		read = read || mc.Sets.IsRead(rec.PublicID)
		approved = mc.Sets.IsApproved(rec.PublicID)
	case mc.Lookup != nil:
		r, a := lookupStatus(ctx, mc, rec.PublicID)
		read = read || r
		approved = a
	}

	item.IsRead = read || approved
	item.ReportStatus = DeriveStatus(approved, read)
	return item
}

func lookupStatus(ctx context.Context, mc *MapContext, publicID string) (read, approved bool) {
	var err error
	read, err = mc.Lookup.IsRead(ctx, mc.ProjectID, mc.CustomerID, publicID)
	if err != nil {
		read = false
		metrics.StatusLookupFailures.WithLabelValues("read").Inc()
		logger.Log.Warn("read status lookup failed",
			"component", "file_mapper",
			"project_id", mc.ProjectID,
			"public_id", publicID,
			"error", err)
	}

	approved, err = mc.Lookup.IsApproved(ctx, mc.ProjectID, mc.CustomerID, publicID)
	if err != nil {
		approved = false
		metrics.StatusLookupFailures.WithLabelValues("approval").Inc()
		logger.Log.Warn("approval status lookup failed",
			"component", "file_mapper",
			"project_id", mc.ProjectID,
			"public_id", publicID,
			"error", err)
	}
	return read, approved
}

// StoreLookup resolves status with one document read per mark.
type StoreLookup struct {
	repo store.Repository
}

func NewStoreLookup(repo store.Repository) *StoreLookup {
	return &StoreLookup{repo: repo}
}

func (l *StoreLookup) IsRead(ctx context.Context, projectID, customerID, publicID string) (bool, error) {
	_, err := l.repo.Get(ctx, ReadMarksCollection, readMarkID(projectID, customerID, publicID))
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (l *StoreLookup) IsApproved(ctx context.Context, projectID, customerID, publicID string) (bool, error) {
	doc, err := l.repo.Get(ctx, ApprovalsCollection, approvalMarkID(projectID, customerID, publicID))
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return doc.String("status") == string(models.ReportApproved), nil
}
