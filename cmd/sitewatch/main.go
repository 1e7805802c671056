package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/user/sitewatch/internal/actions"
	"github.com/user/sitewatch/internal/api"
	"github.com/user/sitewatch/internal/config"
	"github.com/user/sitewatch/internal/hostclient"
	"github.com/user/sitewatch/internal/monitoring"
	"github.com/user/sitewatch/internal/notify"
	"github.com/user/sitewatch/internal/preview"
	"github.com/user/sitewatch/internal/reconciler"
	"github.com/user/sitewatch/internal/render"
	"github.com/user/sitewatch/internal/repository"
	"github.com/user/sitewatch/internal/storage"
	"github.com/user/sitewatch/internal/theme"
	"github.com/user/sitewatch/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		bootLogger, _ := zap.NewProduction()
		bootLogger.Fatal("could not load config", zap.Error(err))
	}

	// Initialize structured logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		bootLogger, _ := zap.NewProduction()
		bootLogger.Fatal("could not build logger", zap.Error(err))
	}
	defer log.Sync()

	ctx := context.Background()
	checks := map[string]api.Pinger{}

	// Initialize Storage Layer. Without Redis or Postgres everything stays in memory.
	memory := storage.NewMemoryStore()
	var (
		board     repository.StatusBoardRepository = memory
		prefs     repository.PreferenceRepository  = memory
		journal   repository.OutcomeRepository     = memory
		publisher repository.NotificationPublisher
	)
	if cfg.RedisAddr != "" {
		redisStore := storage.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer redisStore.Close()
		board, prefs, publisher = redisStore, redisStore, redisStore
		checks["redis"] = redisStore
		log.Info("using redis", zap.String("addr", cfg.RedisAddr))
	}
	if cfg.PostgresURL != "" {
		pgStore, err := storage.NewPostgresStore(ctx, cfg.PostgresURL)
		if err != nil {
			log.Fatal("failed to connect to postgres", zap.Error(err))
		}
		defer pgStore.Close()
		if err := pgStore.EnsureSchema(ctx); err != nil {
			log.Fatal("failed to prepare postgres schema", zap.Error(err))
		}
		journal = pgStore
		checks["postgres"] = pgStore
		log.Info("using postgres for the outcome journal")
	}

	// Initialize Monitoring
	registry := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(registry)

	client, err := hostclient.New(cfg.BackendURL, cfg.SessionCookie, cfg.QueryTimeoutDuration())
	if err != nil {
		log.Fatal("invalid backend client", zap.Error(err))
	}
	checks["backend"] = client

	var previewer preview.Previewer = preview.Passthrough{}
	if cfg.PreviewEnabled {
		browser := preview.NewBrowser(cfg.PreviewTimeoutDuration(), log.Named("preview"))
		defer browser.Close()
		previewer = browser
	}

	table, err := render.NewTableFromString("")
	if err != nil {
		log.Fatal("could not create site table", zap.Error(err))
	}
	feed := notify.NewFeed(cfg.NotificationBuffer, publisher, log.Named("notify"))

	binder := actions.NewBinder(actions.Deps{
		Table:     table,
		Sites:     client,
		Previewer: previewer,
		Notifier:  feed,
		Metrics:   metrics,
		Logger:    log.Named("actions"),
	})
	rec := reconciler.New(reconciler.Settings{
		Interval:     cfg.PollInterval(),
		MaxAttempts:  cfg.PollMaxAttempts,
		QueryTimeout: cfg.QueryTimeoutDuration(),
	}, reconciler.Deps{
		Query:    client,
		Renderer: table,
		Binder:   binder,
		Notifier: feed,
		Board:    board,
		Journal:  journal,
		Metrics:  metrics,
		Logger:   log.Named("reconciler"),
	})
	binder.SetTracker(rec)

	loader := api.PageLoader(client.FetchPage)
	if cfg.PageFile != "" {
		loader = func(context.Context) (io.ReadCloser, error) {
			return os.Open(cfg.PageFile)
		}
	}

	// Initialize API Server
	server := api.NewServer(cfg, api.Deps{
		Reconciler: rec,
		Binder:     binder,
		Table:      table,
		Feed:       feed,
		Theme:      theme.NewPreference(prefs, cfg.PrefersDark),
		Journal:    journal,
		Loader:     loader,
		Checks:     checks,
		Metrics:    metrics,
		Gatherer:   registry,
		Logger:     log.Named("api"),
	})

	loadCtx, cancelLoad := context.WithTimeout(ctx, 30*time.Second)
	if _, err := server.Reload(loadCtx); err != nil {
		// The page can be loaded later through the reload endpoint.
		log.Error("initial page load failed", zap.Error(err))
	}
	cancelLoad()

	// Graceful Shutdown
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal("could not start server", zap.Error(err))
		}
	}()

	log.Info("server started", zap.String("port", cfg.ServerPort))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rec.Stop()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server exiting")
}
