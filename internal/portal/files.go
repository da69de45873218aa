package portal

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/google/uuid"

	"customer-portal-backend/internal/folders"
	"customer-portal-backend/internal/logger"
	"customer-portal-backend/internal/media"
	"customer-portal-backend/internal/models"
	"customer-portal-backend/internal/notify"
)

var ErrUploadDisabled = errors.New("uploads are not allowed in this folder")

type UploadFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Upload stores each file on the media host and records it in the folder.
// Files are handled independently; the errors of failed files are returned
// alongside the records of the ones that went through.
func (s *Session) Upload(ctx context.Context, folderPath, userID string, files []UploadFile) ([]models.FileRecord, []error, error) {
	if !folders.CanUpload(s.Project(), folderPath) {
		return nil, nil, ErrUploadDisabled
	}
	folderPath = folders.Normalize(folderPath)

	var (
		records []models.FileRecord
		errs    []error
	)
	for _, f := range files {
		rec, err := s.uploadOne(ctx, folderPath, userID, f)
		if err != nil {
			logger.Log.Error("file upload failed",
				"component", "uploader",
				"project_id", s.ProjectID,
				"folder", folderPath,
				"file", f.Filename,
				"error", err)
			errs = append(errs, fmt.Errorf("%s: %w", f.Filename, err))
			continue
		}
		records = append(records, rec)

		s.notifier.Notify(notify.Event{
			Type:       notify.EventFileUploaded,
			ProjectID:  s.ProjectID,
			CustomerID: s.CustomerID,
			PublicID:   rec.PublicID,
			FileName:   rec.FileName,
			FolderPath: folderPath,
		})
	}
	return records, errs, nil
}

func (s *Session) uploadOne(ctx context.Context, folderPath, userID string, f UploadFile) (models.FileRecord, error) {
	if s.media == nil {
		return models.FileRecord{}, fmt.Errorf("media store not configured")
	}
	asset, err := s.media.Upload(ctx, media.UploadInput{
		Filename:    f.Filename,
		ContentType: f.ContentType,
		Data:        f.Data,
		Folder:      path.Join("projects", s.ProjectID, folderPath),
	})
	if err != nil {
		return models.FileRecord{}, fmt.Errorf("failed to upload to media host: %w", err)
	}

	uploadedAt := s.now().UTC()
	rec := models.FileRecord{
		ID:         uuid.NewString(),
		FileName:   f.Filename,
		URL:        asset.URL,
		PublicID:   asset.PublicID,
		FolderPath: folderPath,
		UploadedAt: &uploadedAt,
		UploadedBy: userID,
	}
	if err := s.repo.Set(ctx, folders.CollectionKey(s.ProjectID, folderPath), FileRecordToDocument(rec)); err != nil {
		s.discardAsset(ctx, asset)
		return models.FileRecord{}, fmt.Errorf("failed to save file record: %w", err)
	}
	return rec, nil
}

// discardAsset removes an uploaded asset whose record could not be saved.
// Failures are only logged; the upload error is what the caller sees.
func (s *Session) discardAsset(ctx context.Context, asset media.Asset) {
	if err := s.media.Delete(context.WithoutCancel(ctx), asset.PublicID, asset.URL); err != nil {
		logger.Log.Warn("failed to delete orphaned media asset",
			"component", "uploader",
			"project_id", s.ProjectID,
			"public_id", asset.PublicID,
			"error", err)
	}
}

// DeleteFile removes one of the customer's own uploads, media asset first so
// a failed attempt can be repeated.
func (s *Session) DeleteFile(ctx context.Context, ref FileRef) error {
	if !folders.CanUpload(s.Project(), ref.FolderPath) {
		return ErrUploadDisabled
	}
	ref.FolderPath = folders.Normalize(ref.FolderPath)

	if err := s.beginAction(ref.PublicID); err != nil {
		return err
	}
	defer s.endAction(ref.PublicID)

	item, err := s.findFile(ctx, ref)
	if err != nil {
		return err
	}
	if item.UploadedBy != ref.UserID {
		return ErrNotOwner
	}

	if s.media != nil {
		if err := s.media.Delete(ctx, item.PublicID, item.URL); err != nil {
			return fmt.Errorf("failed to delete media asset: %w", err)
		}
	}
	if err := s.repo.Delete(ctx, folders.CollectionKey(s.ProjectID, ref.FolderPath), item.DocID); err != nil {
		return fmt.Errorf("failed to delete file record: %w", err)
	}
	return nil
}
