package models

type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database,omitempty"`
}

type ProjectListResponse struct {
	Projects []ProjectSummary `json:"projects"`
}

type ProjectSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Year int    `json:"year"`
}

type ProjectResponse struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Year    int             `json:"year"`
	Folders []FolderSummary `json:"folders"`
}

type FolderSummary struct {
	Path        string `json:"path"`
	DisplayName string `json:"displayName"`
	Report      bool   `json:"report"`
	Upload      bool   `json:"upload"`
}

type FilesResponse struct {
	FolderPath string     `json:"folderPath"`
	Files      []FileItem `json:"files"`
}

type FileActionResponse struct {
	File *FileItem `json:"file,omitempty"`
	URL  string    `json:"url,omitempty"`
}

type UploadResponse struct {
	Files  []FileRecord `json:"files"`
	Errors []string     `json:"errors,omitempty"`
}

type MessagesResponse struct {
	Messages []CustomerMessage `json:"messages"`
}

type OfferResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}
