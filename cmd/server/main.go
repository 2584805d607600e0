// Package main implements the entry point for the mediakit API server,
// which registers uploaded media assets, serves presigned download URLs,
// and generates derived renditions in the background.
package main

import (
	"context"
	"log"
	"log/slog"

	"github.com/solhart/mediakit-api/internal/config"
	"github.com/solhart/mediakit-api/internal/platform/logger"
)

func main() {
	cfg, err := initializeApp()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	if err := runMigrations(cfg); err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}

	ctx := context.Background()
	app, err := newApplication(ctx, cfg, slog.Default())
	if err != nil {
		log.Fatalf("Failed to build application: %v", err)
	}

	if err := app.Run(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// initializeApp loads configuration and sets up logging.
func initializeApp() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if _, err := logger.Setup(cfg.Server); err != nil {
		return nil, err
	}

	slog.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"log_format", cfg.Server.LogFormat)
	slog.Debug("Dependency configuration",
		"database_url_present", cfg.Database.URL != "",
		"jwt_secret_present", cfg.Auth.JWTSecret != "",
		"storage_bucket", cfg.Storage.Bucket)

	return cfg, nil
}
