package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/mediarr/mediarr/internal/config"
	"github.com/mediarr/mediarr/internal/notify"
	"github.com/mediarr/mediarr/internal/populate"
	"github.com/mediarr/mediarr/internal/services"
	"github.com/mediarr/mediarr/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	log.Println("🤖 Mediarr Background Worker Starting...")
	log.Println("========================================")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	mailer := notify.NewMailer(cfg.MailAPIKey, cfg.MailAPIURL, cfg.MailFrom, cfg.AlertRecipients, cfg.BaseURL)
	writer := store.NewWriter(cfg.CacheStoreURL, cfg.BackupStoreURL, mailer)

	orchestrator := populate.NewOrchestrator(
		cfg,
		services.NewTMDBClient(cfg.TMDBAPIKey),
		services.NewOMDBClient(),
		services.NewNYTClient(cfg.NYTAPIKey),
		services.NewGoogleBooksClient(),
		writer,
		mailer,
	)

	workerCtx, workerCancel := context.WithCancel(context.Background())

	go func() {
		interval := cfg.AutoPopulateInterval
		log.Printf("📦 Population Worker: Starting (interval: %v)", interval)

		// Run immediately on startup
		runPopulation(workerCtx, orchestrator)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				runPopulation(workerCtx, orchestrator)
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down worker...")
	workerCancel()
	log.Println("Worker stopped")
}

func runPopulation(ctx context.Context, orchestrator *populate.Orchestrator) {
	start := time.Now()
	result, err := orchestrator.RunAll(ctx)
	if err != nil {
		log.Printf("❌ Population run failed: %v", err)
		return
	}
	log.Printf("✅ Population complete: %d movies, %d tvshows, %d books in %v",
		result.Movies, result.TVShows, result.Books, time.Since(start).Round(time.Second))
}
