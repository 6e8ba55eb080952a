package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/steemit/bookmarks/internal/anon"
	"github.com/steemit/bookmarks/internal/api"
	"github.com/steemit/bookmarks/internal/auth"
	"github.com/steemit/bookmarks/internal/bookmark"
	"github.com/steemit/bookmarks/internal/cache"
	"github.com/steemit/bookmarks/internal/db"
	"github.com/steemit/bookmarks/internal/render"
	"github.com/steemit/bookmarks/pkg/config"
	"github.com/steemit/bookmarks/pkg/logging"
	"github.com/steemit/bookmarks/pkg/telemetry"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logging.InitLogger(&cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.GetLogger().Sync()

	logger := logging.GetLogger()
	logger.Info("Starting Bookmarks API Server")

	// Initialize telemetry
	telemetryShutdown, err := telemetry.Init(&cfg.Telemetry)
	if err != nil {
		logger.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer telemetryShutdown()

	// Initialize database
	database, err := db.New(&cfg.Database, cfg.Logging.Level)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	if err := database.Migrate(context.Background()); err != nil {
		logger.Fatal("Failed to migrate database", zap.Error(err))
	}
	logger.Info("Bookmarks table ready", zap.String("driver", database.Driver()))

	// Initialize cache
	store, err := cache.New(&cfg.Cache, &cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to initialize cache", zap.Error(err))
	}
	if closer, ok := store.(io.Closer); ok {
		defer closer.Close()
	}

	health := map[string]api.HealthChecker{"database": database}
	if checker, ok := store.(api.HealthChecker); ok {
		health["cache"] = checker
	}

	renderer, err := render.New(cfg.Site)
	if err != nil {
		logger.Fatal("Failed to parse templates", zap.Error(err))
	}

	repo := db.NewRepository(database.DB)
	service := bookmark.NewService(
		db.NewBookmarkRepository(repo),
		anon.NewTracker(&cfg.Anonymous),
		store,
		bookmark.OptionsFromConfig(cfg),
	)

	apiRouter := api.NewRouter(api.Deps{
		Service:   service,
		Posts:     db.NewPostRepository(repo),
		Renderer:  renderer,
		Sessions:  auth.NewSessionResolver(&cfg.Auth),
		Nonces:    auth.NewNonceManager(&cfg.Auth),
		Anonymous: cfg.Anonymous,
		Health:    health,
	})

	// Create Gin router
	if cfg.Logging.Level == "DEBUG" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	apiRouter.SetupRoutes(router)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Server starting", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
