package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Server
	ServerPort int
	Host       string
	BaseURL    string

	// Cache stores. The primary is authoritative; the backup is a
	// best-effort mirror. URL scheme selects the backend (redis://,
	// postgres://, memory://). An empty backup URL disables mirroring.
	CacheStoreURL  string
	BackupStoreURL string

	// API Keys
	TMDBAPIKey         string
	OMDBAPIKeys        []string
	NYTAPIKey          string
	GoogleBooksAPIKeys []string

	// Alerting
	MailAPIKey      string
	MailAPIURL      string
	MailFrom        string
	AlertRecipients []string

	// Operator auth for the manual population endpoint. Empty secret means
	// presence-only bearer checks.
	JWTSecret string

	// Population settings
	MovieTarget          int
	TVShowTarget         int
	BookPageSize         int
	MaxScanPages         int
	EnrichDelay          time.Duration
	AutoPopulateInterval time.Duration

	// Debug
	Debug bool
}

// Load returns configuration with hardcoded defaults overridden by
// environment variables.
func Load() *Config {
	return &Config{
		ServerPort: getEnvInt("PORT", 8080),
		Host:       getEnv("HOST", "0.0.0.0"),
		BaseURL:    getEnv("BASE_URL", "http://localhost:8080"),

		CacheStoreURL:  getEnv("CACHE_STORE_URL", "redis://localhost:6379/0"),
		BackupStoreURL: getEnv("BACKUP_STORE_URL", ""),

		TMDBAPIKey:         getEnv("TMDB_API_KEY", ""),
		OMDBAPIKeys:        getEnvList("OMDB_API_KEYS", nil),
		NYTAPIKey:          getEnv("NYT_API_KEY", ""),
		GoogleBooksAPIKeys: getEnvList("GOOGLE_BOOKS_API_KEYS", nil),

		MailAPIKey:      getEnv("MAIL_API_KEY", ""),
		MailAPIURL:      getEnv("MAIL_API_URL", "https://api.resend.com/emails"),
		MailFrom:        getEnv("MAIL_FROM", "alerts@mediarr.app"),
		AlertRecipients: getEnvList("ALERT_RECIPIENTS", nil),

		JWTSecret: getEnv("JWT_SECRET", ""),

		MovieTarget:          getEnvInt("MOVIE_TARGET", 240),
		TVShowTarget:         getEnvInt("TVSHOW_TARGET", 240),
		BookPageSize:         getEnvInt("BOOK_PAGE_SIZE", 40),
		MaxScanPages:         getEnvInt("MAX_SCAN_PAGES", 20),
		EnrichDelay:          time.Duration(getEnvInt("ENRICH_DELAY_MS", 2000)) * time.Millisecond,
		AutoPopulateInterval: time.Duration(getEnvInt("AUTO_POPULATE_INTERVAL_HOURS", 24)) * time.Hour,

		Debug: getEnv("DEBUG", "") == "true",
	}
}

// Validate checks the settings every pipeline invocation depends on.
// Kind-specific API keys are checked by the orchestrator before any
// network activity for that kind.
func (c *Config) Validate() error {
	if c.CacheStoreURL == "" {
		return fmt.Errorf("CACHE_STORE_URL is required")
	}
	if c.MovieTarget <= 0 || c.TVShowTarget <= 0 {
		return fmt.Errorf("population targets must be positive")
	}
	if c.MaxScanPages <= 0 {
		return fmt.Errorf("MAX_SCAN_PAGES must be positive")
	}
	return nil
}

// getEnv returns the value of an environment variable or a default value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

// getEnvList parses a comma-separated environment variable, dropping
// empty entries.
func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
