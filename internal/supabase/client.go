package supabase

import (
	"context"
	"fmt"

	"github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"

	"customer-portal-backend/internal/config"
	"customer-portal-backend/internal/models"
	"customer-portal-backend/internal/store"
)

const projectsTable = "projects"

type Client struct {
	Supabase *supabase.Client
	Config   *config.Config
}

func NewClient(cfg *config.Config) (*Client, error) {
	client, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabasePublishableKey, nil)
	if err != nil {
		return nil, err
	}

	return &Client{
		Supabase: client,
		Config:   cfg,
	}, nil
}

type projectRow struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Year          int               `json:"year"`
	CustomerID    string            `json:"customer_id"`
	FolderNames   map[string]string `json:"folder_names"`
	CustomFolders []string          `json:"custom_folders"`
}

func (r projectRow) toModel() models.Project {
	return models.Project{
		ID:            r.ID,
		Name:          r.Name,
		Year:          r.Year,
		CustomerID:    r.CustomerID,
		FolderNames:   r.FolderNames,
		CustomFolders: r.CustomFolders,
	}
}

// GetProject reads one project row through PostgREST.
func (c *Client) GetProject(_ context.Context, projectID string) (*models.Project, error) {
	var rows []projectRow
	_, err := c.Supabase.From(projectsTable).
		Select("*", "", false).
		Eq("id", projectID).
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("project %s: %w", projectID, store.ErrNotFound)
	}
	p := rows[0].toModel()
	return &p, nil
}

// ListProjects returns the customer's projects, newest year first.
func (c *Client) ListProjects(_ context.Context, customerID string) ([]models.Project, error) {
	var rows []projectRow
	_, err := c.Supabase.From(projectsTable).
		Select("*", "", false).
		Eq("customer_id", customerID).
		Order("year", &postgrest.OrderOpts{Ascending: false}).
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	projects := make([]models.Project, len(rows))
	for i, r := range rows {
		projects[i] = r.toModel()
	}
	return projects, nil
}
