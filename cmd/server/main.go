// @title           Customer Portal Backend API
// @version         1.0.0
// @description     Backend of the customer portal: project folders with live listings, report approval, customer uploads, messages and offer requests.

// @contact.name   API Support
// @contact.email  support@example.com

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"github.com/robfig/cron/v3"

	"customer-portal-backend/docs"
	"customer-portal-backend/internal/config"
	"customer-portal-backend/internal/database"
	"customer-portal-backend/internal/handlers"
	"customer-portal-backend/internal/logger"
	"customer-portal-backend/internal/media"
	"customer-portal-backend/internal/messages"
	"customer-portal-backend/internal/notify"
	"customer-portal-backend/internal/offer"
	"customer-portal-backend/internal/portal"
	"customer-portal-backend/internal/store"
	"customer-portal-backend/internal/store/memory"
	"customer-portal-backend/internal/supabase"
)

const projectCacheCapacity = 1000

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Log.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger.Initialize(cfg.LogLevel, cfg.LogJSON)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Update Swagger docs with dynamic base URL
	if cfg.BaseURL != "" {
		if baseURL, err := url.Parse(cfg.BaseURL); err == nil {
			docs.SwaggerInfo.Host = baseURL.Host
			if baseURL.Scheme == "https" {
				docs.SwaggerInfo.Schemes = []string{"https", "http"}
			} else {
				docs.SwaggerInfo.Schemes = []string{"http", "https"}
			}
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, db, cleanup, err := openStore(ctx, cfg)
	if err != nil {
		logger.Log.Error("failed to open document store", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	var source portal.ProjectSource = portal.NewStoreProjects(repo)
	if cfg.UsesSupabaseDirectory() {
		client, err := supabase.NewClient(cfg)
		if err != nil {
			logger.Log.Error("failed to initialize Supabase client", "error", err)
			os.Exit(1)
		}
		source = client
	}

	var mediaStore media.Store
	switch cfg.MediaProvider {
	case config.MediaProviderSupabase:
		mediaStore = supabase.NewStorageClient(cfg.SupabaseURL, cfg.SupabasePublishableKey, cfg.SupabaseStorageBucket)
	default:
		mediaStore = media.NewCloudinaryClient(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
	}

	notifier := notify.NewClient(cfg.NotifyURL)
	if cfg.NotifyURL == "" {
		logger.Log.Warn("NOTIFY_URL not set, office notifications are disabled")
	}

	directory := portal.NewDirectory(source, cfg.ProjectCacheTTL, projectCacheCapacity)
	sessions := portal.NewRegistry(portal.Deps{
		Repo:     repo,
		Media:    mediaStore,
		Notifier: notifier,
	})

	scheduler := cron.New()
	if _, err := scheduler.AddFunc("@every 1m", func() {
		if n := sessions.Sweep(cfg.SessionIdleTTL); n > 0 {
			logger.Log.Debug("idle sessions dropped", "component", "cron", "count", n)
		}
		directory.Sweep()
	}); err != nil {
		logger.Log.Error("failed to schedule cleanup", "error", err)
		os.Exit(1)
	}
	scheduler.Start()
	defer scheduler.Stop()

	catalog, err := offer.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		logger.Log.Error("failed to load offer catalog", "path", cfg.CatalogPath, "error", err)
		os.Exit(1)
	}
	catalogHolder := offer.NewCatalogHolder(catalog)
	watcher, err := offer.NewCatalogWatcher(cfg.CatalogPath, catalogHolder)
	if err != nil {
		logger.Log.Warn("catalog hot reload disabled", "error", err)
	} else {
		defer watcher.Stop()
	}
	cart := offer.NewCart(offer.DefaultOptions(), catalogHolder)

	var pinger handlers.Pinger
	if db != nil {
		pinger = db
	}

	router := handlers.NewRouter(handlers.RouterDeps{
		Config:   cfg,
		Health:   handlers.NewHealthHandler(pinger),
		Projects: handlers.NewProjectsHandler(directory),
		Portal:   handlers.NewPortalHandler(directory, sessions),
		Messages: handlers.NewMessagesHandler(directory, messages.NewService(repo, notifier)),
		Offers:   handlers.NewOffersHandler(catalogHolder, cart, offer.NewSubmitter(cart, repo, mediaStore, notifier)),
	})

	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           corsHandler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.Info("server starting", "port", cfg.Port, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("graceful shutdown failed", "error", err)
	}
}

// openStore connects the Postgres document store, or falls back to the
// in-memory store when DATABASE_URL is not set.
func openStore(ctx context.Context, cfg *config.Config) (store.Repository, *sql.DB, func(), error) {
	if cfg.DatabaseURL == "" {
		logger.Log.Warn("DATABASE_URL not set, using the in-memory document store")
		return memory.New(memory.Options{}), nil, func() {}, nil
	}

	db, err := database.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := database.NewMigrator(db).Run(ctx); err != nil {
		db.Close()
		return nil, nil, nil, err
	}
	logger.Log.Info("migrations completed")

	realtime, err := supabase.NewRealtime(cfg.DatabaseURL)
	if err != nil {
		db.Close()
		return nil, nil, nil, err
	}
	realtime.Start(ctx)

	cleanup := func() {
		if err := realtime.Close(); err != nil {
			logger.Log.Warn("failed to close realtime listener", "error", err)
		}
		db.Close()
	}
	return supabase.NewDocumentStore(db, realtime), db, cleanup, nil
}
