package portal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"customer-portal-backend/internal/cache"
	"customer-portal-backend/internal/models"
	"customer-portal-backend/internal/store"
)

var ErrProjectNotFound = errors.New("project not found")

// ProjectSource reads projects maintained by back-office tooling.
type ProjectSource interface {
	GetProject(ctx context.Context, projectID string) (*models.Project, error)
	ListProjects(ctx context.Context, customerID string) ([]models.Project, error)
}

// Directory answers project lookups for a customer, hiding projects owned
// by someone else behind ErrProjectNotFound. Lookups are cached for ttl.
type Directory struct {
	source ProjectSource
	cache  *cache.TTL[string, *models.Project]
	ttl    time.Duration
}

func NewDirectory(source ProjectSource, ttl time.Duration, capacity int) *Directory {
	return &Directory{
		source: source,
		cache:  cache.NewTTL[string, *models.Project](capacity),
		ttl:    ttl,
	}
}

func (d *Directory) ForCustomer(ctx context.Context, projectID, customerID string) (*models.Project, error) {
	project, ok := d.cache.Get(projectID, d.ttl)
	if !ok {
		var err error
		project, err = d.source.GetProject(ctx, projectID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrProjectNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load project: %w", err)
		}
		d.cache.Set(projectID, project)
	}
	if project.CustomerID != customerID {
		return nil, ErrProjectNotFound
	}
	return project, nil
}

func (d *Directory) List(ctx context.Context, customerID string) ([]models.Project, error) {
	projects, err := d.source.ListProjects(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	for i := range projects {
		p := projects[i]
		d.cache.Set(p.ID, &p)
	}
	return projects, nil
}

// Sweep drops cached projects older than the configured ttl.
func (d *Directory) Sweep() int {
	return d.cache.Sweep(d.ttl)
}

// StoreProjects reads projects from the document store.
type StoreProjects struct {
	repo store.Repository
}

func NewStoreProjects(repo store.Repository) *StoreProjects {
	return &StoreProjects{repo: repo}
}

func (p *StoreProjects) GetProject(ctx context.Context, projectID string) (*models.Project, error) {
	doc, err := p.repo.Get(ctx, ProjectsCollection, projectID)
	if err != nil {
		return nil, err
	}
	project := ProjectFromDocument(doc)
	return &project, nil
}

func (p *StoreProjects) ListProjects(ctx context.Context, customerID string) ([]models.Project, error) {
	docs, err := p.repo.Query(ctx, store.Query{Collection: ProjectsCollection, OrderBy: "year", Descending: true}.
		Filter("customerId", customerID))
	if errors.Is(err, store.ErrMissingIndex) {
		docs, err = p.repo.Query(ctx, store.Query{Collection: ProjectsCollection}.Filter("customerId", customerID))
	}
	if err != nil {
		return nil, err
	}
	projects := make([]models.Project, len(docs))
	for i, doc := range docs {
		projects[i] = ProjectFromDocument(doc)
	}
	return projects, nil
}

func ProjectFromDocument(doc store.Document) models.Project {
	p := models.Project{
		ID:         doc.ID,
		Name:       doc.String("name"),
		CustomerID: doc.String("customerId"),
	}
	if year, ok := doc.Int64("year"); ok {
		p.Year = int(year)
	}
	switch names := doc.Fields["folderNames"].(type) {
	case map[string]string:
		p.FolderNames = names
	case map[string]any:
		p.FolderNames = make(map[string]string, len(names))
		for k, v := range names {
			if s, ok := v.(string); ok {
				p.FolderNames[k] = s
			}
		}
	}
	switch custom := doc.Fields["customFolders"].(type) {
	case []string:
		p.CustomFolders = custom
	case []any:
		for _, v := range custom {
			if s, ok := v.(string); ok {
				p.CustomFolders = append(p.CustomFolders, s)
			}
		}
	}
	return p
}
