package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/datareef/reef-engine/pkg/adapters/source"
	_ "github.com/datareef/reef-engine/pkg/adapters/source/httpapi"
	_ "github.com/datareef/reef-engine/pkg/adapters/source/mssql"
	_ "github.com/datareef/reef-engine/pkg/adapters/source/postgres"
	_ "github.com/datareef/reef-engine/pkg/adapters/source/sftp"
	_ "github.com/datareef/reef-engine/pkg/adapters/source/sheets"
	_ "github.com/datareef/reef-engine/pkg/adapters/source/upload"
	"github.com/datareef/reef-engine/pkg/config"
	"github.com/datareef/reef-engine/pkg/crypto"
	"github.com/datareef/reef-engine/pkg/database"
	"github.com/datareef/reef-engine/pkg/logging"
	"github.com/datareef/reef-engine/pkg/repositories"
	"github.com/datareef/reef-engine/pkg/services"
	"github.com/datareef/reef-engine/pkg/storage"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting reef-engine",
		zap.String("version", cfg.Version),
		zap.String("env", cfg.Env),
		zap.String("storage_backend", cfg.Storage.Backend))

	if err := database.RunMigrations(cfg.Database.URL(), logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.URL(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	cipher, err := crypto.NewSecretCipher(cfg.SecretsKey)
	if err != nil {
		logger.Fatal("Failed to initialize secret cipher", zap.Error(err))
	}

	writer, err := newWriter(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize storage writer", zap.Error(err))
	}

	workspaceRepo := repositories.NewWorkspaceRepository(db.Pool)
	datasourceRepo := repositories.NewDatasourceRepository(db.Pool)
	secretRepo := repositories.NewSecretRepository(db.Pool, cipher)

	factory := source.NewFactory()
	logger.Info("Registered source adapters", zap.Int("count", len(factory.ListTypes())))

	poller := services.NewPollerService(
		workspaceRepo, datasourceRepo, secretRepo, factory, writer, cfg.Poller, logger)

	srv := healthServer(cfg, logger)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Health server failed", zap.Error(err))
		}
	}()

	// Blocks until the context is cancelled by SIGINT/SIGTERM.
	_ = poller.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Health server shutdown failed", zap.Error(err))
	}
	logger.Info("Shutdown complete")
}

func newWriter(cfg *config.Config) (storage.Writer, error) {
	if cfg.Storage.Backend == "s3" {
		return storage.NewS3Writer(cfg.Storage.Bucket, cfg.Storage.Region, cfg.Storage.Endpoint)
	}
	return storage.NewLocalWriter(cfg.Storage.Dir)
}

func healthServer(cfg *config.Config, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]string{
			"status":  "ok",
			"version": cfg.Version,
		}); err != nil {
			logger.Warn("Failed to write health response", zap.Error(err))
		}
	})
	return &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
