package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"fintrack/internal/alerts"
	"fintrack/internal/amqp"
	"fintrack/internal/auth"
	"fintrack/internal/config"
	apphttp "fintrack/internal/http"
	"fintrack/internal/kvstore"
	"fintrack/internal/ledger"
	applog "fintrack/internal/log"
	"fintrack/internal/mail"
	"fintrack/internal/settings"
	"fintrack/internal/shopping"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{Level: slog.LevelInfo, Component: applog.ComponentApp})
	applog.SetDefault(logger)

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Mailer is optional; without it password resets still rotate the
	// password, the temp password just never leaves the process.
	var mailer auth.Mailer
	if cfg.MailFrom != "" {
		m, err := mail.NewGmail(ctx, mail.Config{
			From:       cfg.MailFrom,
			ClientJSON: cfg.GoogleOAuthClientJSON,
			ClientFile: cfg.GoogleOAuthClientFile,
			TokenJSON:  cfg.GoogleOAuthTokenJSON,
			TokenFile:  cfg.GoogleOAuthTokenFile,
		})
		if err != nil {
			logger.Warn("Failed to initialize Gmail mailer, continuing without email", "error", err)
		} else {
			mailer = m
		}
	} else {
		logger.Info("Mail disabled, password resets will not send email")
	}

	var notifier alerts.Notifier
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without notifications", "error", err)
		} else {
			defer amqpClient.Close()
			notifier = amqpClient
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	} else {
		logger.Info("AMQP disabled, alerts will be logged only")
	}

	authSvc := auth.New(kv, mailer)
	ledgerSvc := ledger.New(kv)
	settingsSvc := settings.New(kv)
	shoppingSvc := shopping.New(kv)
	checker := alerts.NewChecker(ledgerSvc, settingsSvc, notifier, float64(cfg.AlertWarnPercent), cfg.DueSoonWindowDays)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Auth:     authSvc,
		Ledger:   ledgerSvc,
		Settings: settingsSvc,
		Shopping: shoppingSvc,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting fintrack server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		runAlertSweep(ctx, authSvc, checker)

		ticker := time.NewTicker(cfg.AlertInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				runAlertSweep(ctx, authSvc, checker)
			}
		}
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

// runAlertSweep checks limits and due dates for every registered user.
func runAlertSweep(ctx context.Context, authSvc *auth.Service, checker *alerts.Checker) {
	users, err := authSvc.Users(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Alert sweep failed to list users", "error", err)
		return
	}
	for _, u := range users {
		if err := checker.CheckUser(ctx, u.ID); err != nil {
			slog.ErrorContext(ctx, "Alert check failed", "error", err, "user_id", u.ID)
		}
	}
	slog.InfoContext(ctx, "Alert sweep complete", "users", len(users))
}
