// Package folders describes the document categories of a project and the
// rules deciding which of them a customer may list, upload to or act on.
package folders

import (
	"path"
	"strings"

	"customer-portal-backend/internal/models"
)

const (
	CustomerUploads = "customer-uploads"
	Reports         = "reports"
	CustomPrefix    = "custom/"

	// collection keys cannot contain the path separator
	keyDelimiter = "__"
)

type Folder struct {
	Path      string
	Name      string
	Upload    bool
	Report    bool
	AdminOnly bool
}

var structural = []Folder{
	{Path: CustomerUploads, Name: "My uploads", Upload: true},
	{Path: Reports, Name: "Reports", Report: true},
	{Path: "documents/contracts", Name: "Contracts"},
	{Path: "documents/invoices", Name: "Invoices"},
	{Path: "documents/drawings", Name: "Drawings", Report: true},
	{Path: "photos/before", Name: "Before"},
	{Path: "photos/after", Name: "After"},
	{Path: "admin/internal", Name: "Internal", AdminOnly: true},
	{Path: "admin/notes", Name: "Notes", AdminOnly: true},
}

// Normalize trims separators and collapses the path. It returns "" for
// paths that try to escape the folder namespace.
func Normalize(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	if p == "" {
		return ""
	}
	clean := path.Clean(p)
	if clean == "." || strings.HasPrefix(clean, "..") {
		return ""
	}
	return clean
}

// Lookup resolves a folder path against the structural catalogue and the
// project's enabled custom folders.
func Lookup(project *models.Project, folderPath string) (Folder, bool) {
	folderPath = Normalize(folderPath)
	for _, f := range structural {
		if f.Path == folderPath {
			return f, true
		}
	}
	if IsCustom(folderPath) && project != nil && project.HasCustomFolder(folderPath) {
		return Folder{
			Path:   folderPath,
			Name:   strings.TrimPrefix(folderPath, CustomPrefix),
			Upload: true,
		}, true
	}
	return Folder{}, false
}

func IsCustom(folderPath string) bool {
	return strings.HasPrefix(folderPath, CustomPrefix) && len(folderPath) > len(CustomPrefix)
}

// CanList: not admin-only, and either structural or an enabled custom folder.
func CanList(project *models.Project, folderPath string) bool {
	f, ok := Lookup(project, folderPath)
	return ok && !f.AdminOnly
}

func CanUpload(project *models.Project, folderPath string) bool {
	f, ok := Lookup(project, folderPath)
	return ok && !f.AdminOnly && f.Upload
}

// FilterByUploader reports whether listings of the folder are restricted to
// the requesting customer's own uploads. Customer-upload and custom folders
// share a namespace between customers.
func FilterByUploader(folderPath string) bool {
	folderPath = Normalize(folderPath)
	return folderPath == CustomerUploads || IsCustom(folderPath)
}

// EncodePath maps a folder path to a storage-safe key.
func EncodePath(folderPath string) string {
	return strings.ReplaceAll(Normalize(folderPath), "/", keyDelimiter)
}

// DecodePath is the inverse of EncodePath.
func DecodePath(key string) string {
	return strings.ReplaceAll(key, keyDelimiter, "/")
}

// CollectionKey names the file collection of one project folder.
func CollectionKey(projectID, folderPath string) string {
	return "projects/" + projectID + "/files_" + EncodePath(folderPath)
}

// Visible lists the folders a customer sees for the project, with display
// name overrides applied.
func Visible(project *models.Project) []models.FolderSummary {
	var out []models.FolderSummary
	add := func(f Folder) {
		out = append(out, models.FolderSummary{
			Path:        f.Path,
			DisplayName: project.DisplayName(f.Path, f.Name),
			Report:      f.Report,
			Upload:      f.Upload,
		})
	}
	for _, f := range structural {
		if !f.AdminOnly {
			add(f)
		}
	}
	for _, p := range project.CustomFolders {
		if f, ok := Lookup(project, p); ok {
			add(f)
		}
	}
	return out
}
