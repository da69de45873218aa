package models

import "time"

type FileType string

const (
	FileTypePDF   FileType = "pdf"
	FileTypeImage FileType = "image"
	FileTypeFile  FileType = "file"
)

type ReportStatus string

const (
	ReportUnread   ReportStatus = "unread"
	ReportRead     ReportStatus = "read"
	ReportApproved ReportStatus = "approved"
)

// FileRecord is the persisted upload record. It is never mutated after
// creation, only deleted.
type FileRecord struct {
	ID         string     `json:"id"`
	FileName   string     `json:"fileName"`
	URL        string     `json:"url"`
	PublicID   string     `json:"publicId"`
	FolderPath string     `json:"folderPath"`
	UploadedAt *time.Time `json:"uploadedAt,omitempty"`
	UploadedBy string     `json:"uploadedBy"`
	// IsRead is a legacy per-record flag some older uploads carry
	IsRead bool `json:"isRead,omitempty"`
}

// FileItem is the view model rebuilt from every listener snapshot.
type FileItem struct {
	FileRecord
	DocID        string       `json:"docId"`
	FileType     FileType     `json:"fileType"`
	ReportStatus ReportStatus `json:"reportStatus"`
	Pending      bool         `json:"pending,omitempty"`
}

// ReadMark exists iff the customer has opened the file.
type ReadMark struct {
	ProjectID  string    `json:"projectId"`
	CustomerID string    `json:"customerId"`
	PublicID   string    `json:"publicId"`
	ReadAt     time.Time `json:"readAt"`
}

type ApprovalMark struct {
	ProjectID  string       `json:"projectId"`
	CustomerID string       `json:"customerId"`
	PublicID   string       `json:"publicId"`
	Status     ReportStatus `json:"status"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}
