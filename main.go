package main

import (
	"log"
	"net/http"

	"clumsy/internal/api"
	"clumsy/internal/config"
	"clumsy/internal/logging"
	"clumsy/internal/object"
	"clumsy/internal/repo"

	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.LoadOrDefault(config.Path())
	if err != nil {
		log.Fatal("failed to load config:", err)
	}

	// Initialize logger
	logger, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger:", err)
	}
	defer logger.Sync()

	// Open storage
	backends, err := cfg.Storage.Open()
	if err != nil {
		logger.Fatal("failed to open storage", zap.Error(err))
	}
	defer backends.Close()

	// Initialize repository
	r, err := repo.New(repo.Options{
		Store:     backends.Store,
		Worktree:  backends.Worktree,
		Identity:  object.Signature{Name: cfg.Author.Name, Email: cfg.Author.Email},
		Branch:    cfg.Branch,
		CacheSize: cfg.Storage.CacheSize,
		Logger:    logger.Logger,
	})
	if err != nil {
		logger.Fatal("failed to open repository", zap.Error(err))
	}
	if err := r.Init(); err != nil {
		logger.Fatal("failed to initialize repository", zap.Error(err))
	}

	handler := api.NewServer(r, logger)

	// Start server
	addr := cfg.Addr()
	logger.Info("starting server",
		zap.String("address", addr),
		zap.String("backend", cfg.Storage.Backend))

	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}
