package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/comorbid-index-engine/internal/api"
	"github.com/comorbid-index-engine/internal/config"
	"github.com/comorbid-index-engine/internal/database"
	"github.com/comorbid-index-engine/internal/repository"
)

func main() {
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := config.NewLogger(cfg.Logging)

	var (
		db    *database.DB
		store repository.Store
	)
	if cfg.Database.Enabled {
		runner, err := database.NewMigrationRunner(cfg.Database.URL(), "migrations", logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create migration runner")
		}
		if err := runner.Up(); err != nil {
			logger.WithError(err).Fatal("Failed to run migrations")
		}
		runner.Close()

		db, err = database.NewConnection(context.Background(), cfg.Database, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to results database")
		}
		defer db.Close()

		store, err = repository.NewPostgresStoreFromURL(cfg.Database.URL())
		if err != nil {
			logger.WithError(err).Fatal("Failed to open results store")
		}
		defer store.Close()
	}

	var cache *api.ResultCache
	if cfg.Cache.Enabled {
		cache, err = api.NewResultCache(cfg.Cache.RedisURL, cfg.Cache.TTL, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to result cache")
		}
		defer cache.Close()
	}

	server := api.NewServer(cfg, db, store, cache, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down")
		cancel()
	}()

	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}

	logger.Info("Server stopped")
}
