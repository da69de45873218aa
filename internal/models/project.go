package models

// Project is maintained by back-office tooling and only read here.
type Project struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Year       int    `json:"year"`
	CustomerID string `json:"customerId"`

	// FolderNames overrides the display name of a folder, keyed by folder path
	FolderNames   map[string]string `json:"folderNames,omitempty"`
	CustomFolders []string          `json:"customFolders,omitempty"`
}

// DisplayName returns the per-project override for a folder, or fallback.
func (p *Project) DisplayName(folderPath, fallback string) string {
	if name, ok := p.FolderNames[folderPath]; ok && name != "" {
		return name
	}
	return fallback
}

// HasCustomFolder reports whether the project enables the given custom folder.
func (p *Project) HasCustomFolder(folderPath string) bool {
	for _, f := range p.CustomFolders {
		if f == folderPath {
			return true
		}
	}
	return false
}
