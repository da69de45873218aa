package supabase

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
	storage "github.com/supabase-community/storage-go"

	"customer-portal-backend/internal/media"
)

// StorageClient is a media.Store on a Supabase storage bucket. Public ids
// are object paths inside the bucket.
type StorageClient struct {
	client  *storage.Client
	bucket  string
	baseURL string
}

func NewStorageClient(supabaseURL, serviceRoleKey, bucket string) *StorageClient {
	baseURL := strings.TrimSuffix(supabaseURL, "/")
	client := storage.NewClient(baseURL+"/storage/v1", serviceRoleKey, nil)

	return &StorageClient{
		client:  client,
		bucket:  bucket,
		baseURL: baseURL,
	}
}

// ObjectPath is where an upload is stored: the requested public id, or the
// folder plus a unique prefix and the file name.
func ObjectPath(in media.UploadInput) string {
	if in.PublicID != "" {
		return in.PublicID
	}
	name := uuid.NewString()[:8] + "_" + path.Base(in.Filename)
	return path.Join(in.Folder, name)
}

func (s *StorageClient) Upload(_ context.Context, in media.UploadInput) (media.Asset, error) {
	storagePath := ObjectPath(in)

	contentType := in.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	upsert := true
	_, err := s.client.UploadFile(s.bucket, storagePath, bytes.NewReader(in.Data), storage.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return media.Asset{}, fmt.Errorf("failed to upload file: %w", err)
	}

	return media.Asset{
		PublicID:     storagePath,
		URL:          s.GetPublicURL(storagePath),
		ResourceType: "raw",
	}, nil
}

func (s *StorageClient) GetPublicURL(storagePath string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s",
		s.baseURL, s.bucket, storagePath)
}

func (s *StorageClient) Delete(_ context.Context, publicID, _ string) error {
	if _, err := s.client.RemoveFile(s.bucket, []string{publicID}); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
