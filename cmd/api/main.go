package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/clinic-concierge/internal/api/router"
	"github.com/wolfman30/clinic-concierge/internal/app/bootstrap"
	"github.com/wolfman30/clinic-concierge/internal/assistant"
	appconfig "github.com/wolfman30/clinic-concierge/internal/config"
	"github.com/wolfman30/clinic-concierge/internal/http/handlers"
	"github.com/wolfman30/clinic-concierge/internal/observability/metrics"
	"github.com/wolfman30/clinic-concierge/internal/session"
	"github.com/wolfman30/clinic-concierge/internal/store"
	"github.com/wolfman30/clinic-concierge/pkg/logging"
)

func main() {
	// A missing .env file is fine; the environment still applies.
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting clinic-concierge API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	st, err := store.Open(cfg.DataFile, logger)
	if err != nil {
		logger.Error("failed to open appointment store", "error", err)
		os.Exit(1)
	}

	sessions := session.NewStore(cfg.SessionTTL, cfg.HistoryLimit)
	caps := bootstrap.BuildCapabilities(cfg, logger)
	conversationMetrics := metrics.NewConversationMetrics(nil)

	a := assistant.New(st, sessions, caps, logger,
		assistant.WithMetrics(conversationMetrics))

	r := router.New(&router.Config{
		Logger:             logger,
		Chat:               assistant.NewChatHandler(a, logger),
		Admin:              handlers.NewAdminHandler(st, sessions, logger),
		MetricsHandler:     promhttp.Handler(),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	janitor := bootstrap.NewJanitor(st, sessions, bootstrap.JanitorConfig{
		CleanupInterval: cfg.CleanupInterval,
		EvictionPeriod:  cfg.EvictionPeriod,
		Poll:            cfg.CleanupPoll,
	}, logger, conversationMetrics)
	janitorDone := make(chan struct{})
	go func() {
		janitor.Run(janitorCtx)
		close(janitorDone)
	}()

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	stopJanitor()
	<-janitorDone

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
