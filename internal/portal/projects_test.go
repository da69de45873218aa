package portal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"customer-portal-backend/internal/models"
	"customer-portal-backend/internal/store"
	"customer-portal-backend/internal/store/memory"
)

type countingSource struct {
	projects map[string]*models.Project
	gets     int
}

func (s *countingSource) GetProject(_ context.Context, projectID string) (*models.Project, error) {
	s.gets++
	p, ok := s.projects[projectID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return p, nil
}

func (s *countingSource) ListProjects(_ context.Context, customerID string) ([]models.Project, error) {
	var out []models.Project
	for _, p := range s.projects {
		if p.CustomerID == customerID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func TestDirectory_ForCustomer(t *testing.T) {
	src := &countingSource{projects: map[string]*models.Project{testProjectID: testProject()}}
	dir := NewDirectory(src, time.Minute, 10)

	p, err := dir.ForCustomer(context.Background(), testProjectID, testCustomerID)
	require.NoError(t, err)
	assert.Equal(t, "Roof renovation", p.Name)

	_, err = dir.ForCustomer(context.Background(), testProjectID, testCustomerID)
	require.NoError(t, err)
	assert.Equal(t, 1, src.gets, "second lookup is served from the cache")

	_, err = dir.ForCustomer(context.Background(), testProjectID, "c2")
	assert.ErrorIs(t, err, ErrProjectNotFound, "foreign projects look missing")

	_, err = dir.ForCustomer(context.Background(), "nope", testCustomerID)
	assert.ErrorIs(t, err, ErrProjectNotFound)
}

func TestDirectory_ListWarmsCache(t *testing.T) {
	src := &countingSource{projects: map[string]*models.Project{testProjectID: testProject()}}
	dir := NewDirectory(src, time.Minute, 10)

	list, err := dir.List(context.Background(), testCustomerID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = dir.ForCustomer(context.Background(), testProjectID, testCustomerID)
	require.NoError(t, err)
	assert.Zero(t, src.gets)
}

func seedProjects(t *testing.T, repo store.Repository) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, repo.Set(ctx, ProjectsCollection, store.Document{ID: "old", Fields: map[string]any{
		"name": "Garage", "year": int64(2021), "customerId": testCustomerID,
	}}))
	require.NoError(t, repo.Set(ctx, ProjectsCollection, store.Document{ID: "new", Fields: map[string]any{
		"name":          "Roof",
		"year":          float64(2024),
		"customerId":    testCustomerID,
		"folderNames":   map[string]any{"reports": "Inspection reports"},
		"customFolders": []any{"custom/kitchen"},
	}}))
	require.NoError(t, repo.Set(ctx, ProjectsCollection, store.Document{ID: "foreign", Fields: map[string]any{
		"name": "Other", "year": int64(2023), "customerId": "c2",
	}}))
}

func TestStoreProjects(t *testing.T) {
	for _, requireIndexes := range []bool{false, true} {
		repo := memory.New(memory.Options{RequireIndexes: requireIndexes})
		seedProjects(t, repo)
		src := NewStoreProjects(repo)

		list, err := src.ListProjects(context.Background(), testCustomerID)
		require.NoError(t, err)
		ids := []string{}
		for _, p := range list {
			ids = append(ids, p.ID)
		}
		assert.ElementsMatch(t, []string{"new", "old"}, ids)

		p, err := src.GetProject(context.Background(), "new")
		require.NoError(t, err)
		assert.Equal(t, 2024, p.Year)
		assert.Equal(t, "Inspection reports", p.DisplayName("reports", "Reports"))
		assert.True(t, p.HasCustomFolder("custom/kitchen"))

		_, err = src.GetProject(context.Background(), "missing")
		assert.ErrorIs(t, err, store.ErrNotFound)
	}
}
