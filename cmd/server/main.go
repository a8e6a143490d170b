package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/mediarr/mediarr/internal/api"
	"github.com/mediarr/mediarr/internal/config"
	"github.com/mediarr/mediarr/internal/notify"
	"github.com/mediarr/mediarr/internal/populate"
	"github.com/mediarr/mediarr/internal/services"
	"github.com/mediarr/mediarr/internal/store"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	log.Println("Starting Mediarr API Server...")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Printf("Warning: %v - population runs will fail until configured", err)
	}

	// Long-lived read connection for the cache query endpoints. The
	// population pipeline opens its own connections per run.
	cache, err := store.Open(cfg.CacheStoreURL)
	if err != nil {
		log.Fatalf("Failed to open cache store: %v", err)
	}
	defer cache.Close()
	log.Println("✓ Cache store connection established")

	orchestrator := buildOrchestrator(cfg)

	handler := api.NewHandler(cache, orchestrator, cfg.JWTSecret)
	router := api.SetupRoutes(handler)
	log.Println("✓ REST API enabled at /api/v1")

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 15 * time.Minute, // population runs stream through the request
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Server listening on %s:%d", cfg.Host, cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

func buildOrchestrator(cfg *config.Config) *populate.Orchestrator {
	mailer := notify.NewMailer(cfg.MailAPIKey, cfg.MailAPIURL, cfg.MailFrom, cfg.AlertRecipients, cfg.BaseURL)
	writer := store.NewWriter(cfg.CacheStoreURL, cfg.BackupStoreURL, mailer)

	return populate.NewOrchestrator(
		cfg,
		services.NewTMDBClient(cfg.TMDBAPIKey),
		services.NewOMDBClient(),
		services.NewNYTClient(cfg.NYTAPIKey),
		services.NewGoogleBooksClient(),
		writer,
		mailer,
	)
}
