package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/springdom/solace/internal/config"
	"github.com/springdom/solace/internal/repository"
	"github.com/springdom/solace/internal/services"
)

// The worker runs the retention archiver outside the API process so a
// slow archive pass never competes with request traffic.
func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := repository.NewDatabase(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	archiver := services.NewArchiver(db, cfg)
	log.Printf("Starting archiver (retention=%dd, interval=%dm)",
		cfg.AlertRetentionDays, cfg.ArchiveIntervalMinutes)

	archiver.Run(ctx)
	log.Println("Worker exited")
}
