package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/springdom/solace/internal/config"
	"github.com/springdom/solace/internal/handlers"
	"github.com/springdom/solace/internal/middleware"
	"github.com/springdom/solace/internal/repository"
	"github.com/springdom/solace/internal/services"
)

func main() {
	cfg := config.Load()

	if !cfg.IsDev() {
		gin.SetMode(gin.ReleaseMode)
	}

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

	userSvc := services.NewUserService(db, cfg)
	if err := userSvc.SeedAdmin(ctx); err != nil {
		log.Fatalf("Failed to seed admin user: %v", err)
	}

	cooldownTTL := time.Duration(cfg.NotificationCooldownSecs) * time.Second
	var cooldown services.Cooldown
	if cfg.RedisURL != "" {
		rc, err := services.NewRedisCooldown(cfg.RedisURL, cooldownTTL)
		if err != nil {
			log.Fatalf("Failed to connect to redis: %v", err)
		}
		cooldown = rc
	} else {
		cooldown = services.NewMemoryCooldown(cooldownTTL)
	}

	notifier := services.NewNotifier(db, cooldown, cfg)

	hub := handlers.NewHub(cfg)
	go hub.Run()

	ingestor := services.NewIngestor(db, cfg, notifier, hub)

	r := gin.New()
	r.Use(middleware.RecoveryMiddleware())
	r.Use(middleware.LoggerMiddleware())
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.RequestIDMiddleware())

	handlers.New(db, cfg, ingestor, notifier, userSvc, hub).Register(r)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Printf("Starting API server on %s (env=%s)", addr, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	log.Println("Server exited")
}
