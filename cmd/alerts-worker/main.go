package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"fintrack/internal/alerts"
	"fintrack/internal/amqp"
	"fintrack/internal/auth"
	"fintrack/internal/config"
	"fintrack/internal/kvstore"
	"fintrack/internal/ledger"
	applog "fintrack/internal/log"
	"fintrack/internal/settings"
)

// alerts-worker runs the limit and due-date checks on a schedule, detached
// from the HTTP server. Useful when the API runs scaled out and only one
// replica should produce notifications.
func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{Level: slog.LevelInfo, Component: applog.ComponentWorker})
	applog.SetDefault(logger)

	logger.Info("Starting alerts-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	kv, err := kvstore.Open(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open key-value store", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer kv.Close()

	var notifier alerts.Notifier
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, alerts will be logged only", "error", err)
		} else {
			defer client.Close()
			notifier = client
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	} else {
		logger.Info("AMQP disabled, alerts will be logged only")
	}

	authSvc := auth.New(kv, nil)
	checker := alerts.NewChecker(
		ledger.New(kv),
		settings.New(kv),
		notifier,
		float64(cfg.AlertWarnPercent),
		cfg.DueSoonWindowDays,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("Alert checker configured",
		"interval", cfg.AlertInterval,
		"warn_percent", cfg.AlertWarnPercent,
		"due_soon_window_days", cfg.DueSoonWindowDays)

	ticker := time.NewTicker(cfg.AlertInterval)
	defer ticker.Stop()

	// Run initial sweep on startup
	sweep(ctx, authSvc, checker)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sweep(ctx, authSvc, checker)
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("Shutdown signal received", "signal", sig.String())
}

func sweep(ctx context.Context, authSvc *auth.Service, checker *alerts.Checker) {
	users, err := authSvc.Users(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to list users", "error", err)
		return
	}
	for _, u := range users {
		if err := checker.CheckUser(ctx, u.ID); err != nil {
			slog.ErrorContext(ctx, "Alert check failed", "error", err, "user_id", u.ID)
		}
	}
	slog.InfoContext(ctx, "Alert sweep complete", "users", len(users))
}
