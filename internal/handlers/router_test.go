package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"customer-portal-backend/internal/config"
	"customer-portal-backend/internal/folders"
	"customer-portal-backend/internal/handlers"
	"customer-portal-backend/internal/media"
	"customer-portal-backend/internal/messages"
	"customer-portal-backend/internal/models"
	"customer-portal-backend/internal/offer"
	"customer-portal-backend/internal/portal"
	"customer-portal-backend/internal/store"
	"customer-portal-backend/internal/store/memory"
)

const (
	testSecret   = "test-secret"
	testCustomer = "customer-1"
	otherUser    = "customer-2"
	testProject  = "p1"
)

const testCatalog = `
gallery:
  - id: roof-slate-01
    title: Slate roof
    image_url: https://res.cloudinary.com/demo/image/upload/v1/gallery/roof-slate-01.jpg
products:
  - id: cladding-board
    name: Facade cladding board
    folder: facades
    colors: [natural, grey]
    units: [m2]
`

type fakeMedia struct {
	mu      sync.Mutex
	deleted []string
}

func (m *fakeMedia) Upload(_ context.Context, in media.UploadInput) (media.Asset, error) {
	id := in.Folder + "/" + strings.TrimSuffix(in.Filename, ".pdf")
	return media.Asset{
		PublicID: id,
		URL:      "https://res.cloudinary.com/demo/raw/upload/v1/" + id + ".pdf",
	}, nil
}

func (m *fakeMedia) Delete(_ context.Context, publicID, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, publicID)
	return nil
}

type testEnv struct {
	repo   *memory.Store
	media  *fakeMedia
	router *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := &testEnv{repo: memory.New(memory.Options{}), media: &fakeMedia{}}
	ctx := context.Background()
	require.NoError(t, env.repo.Set(ctx, portal.ProjectsCollection, store.Document{
		ID: testProject,
		Fields: map[string]any{
			"name":       "Roof renovation",
			"year":       2024,
			"customerId": testCustomer,
		},
	}))

	cat, err := offer.ParseCatalog([]byte(testCatalog))
	require.NoError(t, err)
	holder := offer.NewCatalogHolder(cat)
	cart := offer.NewCart(offer.DefaultOptions(), holder)

	deps := portal.Deps{Repo: env.repo, Media: env.media}
	directory := portal.NewDirectory(portal.NewStoreProjects(env.repo), time.Minute, 100)
	cfg := &config.Config{SupabaseJWTSecret: testSecret}

	env.router = handlers.NewRouter(handlers.RouterDeps{
		Config:   cfg,
		Health:   handlers.NewHealthHandler(nil),
		Projects: handlers.NewProjectsHandler(directory),
		Portal:   handlers.NewPortalHandler(directory, portal.NewRegistry(deps)),
		Messages: handlers.NewMessagesHandler(directory, messages.NewService(env.repo, nil)),
		Offers:   handlers.NewOffersHandler(holder, cart, offer.NewSubmitter(cart, env.repo, env.media, nil)),
	})
	return env
}

func (e *testEnv) addFile(t *testing.T, folderPath, publicID string, uploadedAt time.Time) {
	t.Helper()
	rec := models.FileRecord{
		ID:         "doc-" + publicID,
		FileName:   publicID + ".pdf",
		URL:        "https://res.cloudinary.com/demo/raw/upload/v1/" + publicID + ".pdf",
		PublicID:   publicID,
		FolderPath: folderPath,
		UploadedAt: &uploadedAt,
		UploadedBy: "office",
	}
	err := e.repo.Set(context.Background(), folders.CollectionKey(testProject, folderPath), portal.FileRecordToDocument(rec))
	require.NoError(t, err)
}

func token(t *testing.T, userID string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := tok.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func (e *testEnv) do(t *testing.T, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, _ := http.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+token(t, userID))
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}
