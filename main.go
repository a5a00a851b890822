package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clientdesk/config"
	"clientdesk/database"
	"clientdesk/fallback"
	"clientdesk/handlers"
	"clientdesk/models"
	"clientdesk/realtime"
	repository "clientdesk/repositories"
	"clientdesk/routes"
	"clientdesk/services"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := realtime.NewHub(logger)

	store, closeStore, err := openStore(ctx, cfg, hub, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	// Every workspace follows the change feed
	registry := services.NewRegistry(store, logger)
	changes, unsubscribe := hub.Subscribe(256)
	defer unsubscribe()
	go registry.Run(ctx, changes)

	authService := services.NewAuthService(store, cfg.JWTSecret, cfg.JWTTTL)

	mux := routes.SetupRoutes(routes.Handlers{
		Auth:      handlers.NewAuthHandler(authService, logger),
		Users:     handlers.NewUserHandler(registry, logger),
		Projects:  handlers.NewProjectHandler(registry, logger),
		Tasks:     handlers.NewTaskHandler(registry, logger),
		Files:     handlers.NewFileHandler(registry, logger, cfg.MaxUploadBytes),
		Brochures: handlers.NewBrochureHandler(registry, logger, cfg.MaxUploadBytes),
		Leads:     handlers.NewLeadHandler(registry, logger),
		Events:    handlers.NewEventHandler(registry, hub, logger),
		Health:    handlers.NewHealthHandler(store),
	}, cfg.JWTSecret)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}
	}()

	logger.Info("server starting", "port", cfg.Port, "remote", store.Remote)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

// openStore connects to MongoDB, or falls back to the offline store when no
// backend is configured.
func openStore(ctx context.Context, cfg config.Config, hub *realtime.Hub, logger *slog.Logger) (*repository.Store, func(), error) {
	if cfg.Offline() {
		return openFallback(ctx, cfg, hub, logger)
	}

	client, err := database.Connect(ctx, cfg.MongoURI)
	if err != nil {
		logger.Error("backend unreachable, falling back to local data", "error", err)
		return openFallback(ctx, cfg, hub, logger)
	}
	closeClient := func() {
		if err := client.Disconnect(context.Background()); err != nil {
			logger.Error("failed to disconnect from MongoDB", "error", err)
		}
	}
	logger.Info("connected to MongoDB", "database", cfg.MongoDatabase)

	db := client.Database(cfg.MongoDatabase)
	// stage creation relies on the unique indexes
	if err := database.CreateIndexes(ctx, db); err != nil {
		closeClient()
		return nil, nil, fmt.Errorf("create indexes: %w", err)
	}

	store, err := repository.NewMongoStore(db)
	if err != nil {
		closeClient()
		return nil, nil, err
	}

	// Change streams need a replica set; without one the store announces
	// its own writes.
	if database.IsReplicaSet(ctx, client, logger) {
		watcher := realtime.NewWatcher(db, models.WatchedCollections, hub, logger)
		go func() {
			if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Error("change stream stopped", "error", err)
			}
		}()
	} else {
		store.AnnounceWrites(hub)
	}
	return store, closeClient, nil
}

func openFallback(ctx context.Context, cfg config.Config, hub *realtime.Hub, logger *slog.Logger) (*repository.Store, func(), error) {
	logger.Warn("no backend configured, serving sample data", "kv_path", cfg.FallbackDBPath)

	store := repository.NewMemoryStore(hub)
	if err := fallback.Seed(ctx, store); err != nil {
		return nil, nil, err
	}

	kv, err := fallback.OpenKV(cfg.FallbackDBPath)
	if err != nil {
		return nil, nil, err
	}
	files, err := fallback.PersistFiles(ctx, store.Files, kv, logger)
	if err != nil {
		kv.Close()
		return nil, nil, err
	}
	store.Files = files
	store.FileBlobs = fallback.NewKVBlobStore(kv, "files")
	store.ImageBlobs = fallback.NewKVBlobStore(kv, "images")

	return store, func() { kv.Close() }, nil
}
