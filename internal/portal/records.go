package portal

import (
	"time"

	"customer-portal-backend/internal/models"
	"customer-portal-backend/internal/store"
)

const (
	ProjectsCollection  = "projects"
	ReadMarksCollection = "fileReads"
	ApprovalsCollection = "fileApprovals"
)

func readMarkID(projectID, customerID, publicID string) string {
	return store.CompositeID(projectID, customerID, publicID)
}

func approvalMarkID(projectID, customerID, publicID string) string {
	return store.CompositeID(projectID, customerID, publicID)
}

// FileRecordFromDocument decodes a raw file document. folderPath is used
// when the document predates the folderPath field.
func FileRecordFromDocument(doc store.Document, folderPath string) models.FileRecord {
	rec := models.FileRecord{
		ID:         doc.ID,
		FileName:   doc.String("fileName"),
		URL:        doc.String("url"),
		PublicID:   doc.String("publicId"),
		FolderPath: doc.String("folderPath"),
		UploadedBy: doc.String("uploadedBy"),
		IsRead:     doc.Bool("isRead"),
	}
	if rec.FolderPath == "" {
		rec.FolderPath = folderPath
	}
	if ms, ok := doc.Int64("uploadedAt"); ok {
		t := time.UnixMilli(ms).UTC()
		rec.UploadedAt = &t
	}
	return rec
}

func FileRecordToDocument(rec models.FileRecord) store.Document {
	fields := map[string]any{
		"fileName":   rec.FileName,
		"url":        rec.URL,
		"publicId":   rec.PublicID,
		"folderPath": rec.FolderPath,
		"uploadedBy": rec.UploadedBy,
	}
	if rec.UploadedAt != nil {
		fields["uploadedAt"] = rec.UploadedAt.UnixMilli()
	}
	if rec.IsRead {
		fields["isRead"] = true
	}
	return store.Document{ID: rec.ID, Fields: fields}
}

func readMarkDocument(m models.ReadMark) store.Document {
	return store.Document{
		ID: readMarkID(m.ProjectID, m.CustomerID, m.PublicID),
		Fields: map[string]any{
			"projectId":  m.ProjectID,
			"customerId": m.CustomerID,
			"publicId":   m.PublicID,
			"readAt":     m.ReadAt.UnixMilli(),
		},
	}
}

func approvalMarkDocument(m models.ApprovalMark) store.Document {
	return store.Document{
		ID: approvalMarkID(m.ProjectID, m.CustomerID, m.PublicID),
		Fields: map[string]any{
			"projectId":  m.ProjectID,
			"customerId": m.CustomerID,
			"publicId":   m.PublicID,
			"status":     string(m.Status),
			"updatedAt":  m.UpdatedAt.UnixMilli(),
		},
	}
}
