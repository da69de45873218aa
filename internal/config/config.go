package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	MediaProviderCloudinary = "cloudinary"
	MediaProviderSupabase   = "supabase"
)

type Config struct {
	// Supabase
	SupabaseURL            string
	SupabasePublishableKey string
	SupabaseJWTSecret      string
	SupabaseStorageBucket  string

	// Database (empty means in-memory document store)
	DatabaseURL string

	// Media host
	MediaProvider       string
	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string

	// Side-channel notifications
	NotifyURL string

	// Storefront
	CatalogPath string
	CORSOrigins []string

	// Caches
	ProjectCacheTTL time.Duration
	SessionIdleTTL  time.Duration

	// Server
	Port        string
	Environment string
	BaseURL     string
	LogLevel    string
	LogJSON     bool
}

func Load() (*Config, error) {
	cfg := &Config{
		SupabaseURL:            getEnv("SUPABASE_URL", ""),
		SupabasePublishableKey: getEnv("SUPABASE_PUBLISHABLE_KEY", ""),
		SupabaseJWTSecret:      getEnv("SUPABASE_JWT_SECRET", ""),
		SupabaseStorageBucket:  getEnv("SUPABASE_STORAGE_BUCKET", "portal-files"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		MediaProvider:       strings.ToLower(getEnv("MEDIA_PROVIDER", MediaProviderCloudinary)),
		CloudinaryCloudName: getEnv("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryAPIKey:    getEnv("CLOUDINARY_API_KEY", ""),
		CloudinaryAPISecret: getEnv("CLOUDINARY_API_SECRET", ""),

		NotifyURL: getEnv("NOTIFY_URL", ""),

		CatalogPath: getEnv("CATALOG_PATH", "config/catalog.yaml"),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "*")),

		ProjectCacheTTL: getDuration("PROJECT_CACHE_TTL", 5*time.Minute),
		SessionIdleTTL:  getDuration("SESSION_IDLE_TTL", 30*time.Minute),

		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		BaseURL:     getEnv("BASE_URL", "http://localhost:8080"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogJSON:     getBool("LOG_JSON", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.SupabaseJWTSecret == "" {
		return fmt.Errorf("SUPABASE_JWT_SECRET is required")
	}
	switch c.MediaProvider {
	case MediaProviderCloudinary:
		if c.CloudinaryCloudName == "" {
			return fmt.Errorf("CLOUDINARY_CLOUD_NAME is required")
		}
		if c.CloudinaryAPIKey == "" || c.CloudinaryAPISecret == "" {
			return fmt.Errorf("CLOUDINARY_API_KEY and CLOUDINARY_API_SECRET are required")
		}
	case MediaProviderSupabase:
		if c.SupabaseURL == "" {
			return fmt.Errorf("SUPABASE_URL is required for the supabase media provider")
		}
		if c.SupabasePublishableKey == "" {
			return fmt.Errorf("SUPABASE_PUBLISHABLE_KEY is required for the supabase media provider")
		}
	default:
		return fmt.Errorf("unknown MEDIA_PROVIDER %q", c.MediaProvider)
	}
	return nil
}

// UsesSupabaseDirectory reports whether projects are read through the
// Supabase REST API instead of the document store.
func (c *Config) UsesSupabaseDirectory() bool {
	return c.SupabaseURL != "" && c.SupabasePublishableKey != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil || value <= 0 {
		return defaultValue
	}
	return value
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
