package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fineplay-930/apply/internal/config"
	"github.com/fineplay-930/apply/internal/core"
	"github.com/fineplay-930/apply/internal/export"
	"github.com/fineplay-930/apply/internal/logging"
	"github.com/fineplay-930/apply/internal/notify"
	"github.com/fineplay-930/apply/internal/web"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists; real environment variables win
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"export_format", cfg.Export.Format,
		"ops_email", cfg.Mail.To,
		"submit_max_concurrent", cfg.Submit.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)
	slog.Debug("configuration", "config", cfg.String())

	// The key is only required when a submission is sent
	if !cfg.Mail.MailConfigured() {
		slog.Warn("SENDGRID_API_KEY is not set, submissions will fail until it is configured")
	}

	builder, err := export.New(cfg.Export.Format, cfg.Export.TempDir)
	if err != nil {
		slog.Error("failed to create export builder", "error", err)
		os.Exit(1)
	}

	sender := notify.NewSendGrid(notify.Options{
		APIKey:  cfg.Mail.APIKey,
		From:    cfg.Mail.From,
		BaseURL: cfg.Mail.BaseURL,
		Timeout: cfg.Mail.Timeout,
	})
	slog.Info("email sender ready", "mail_from", sender.From(), "attachment", builder.Description())

	limiter := core.NewSubmitLimiter(cfg.Submit.MaxConcurrent, cfg.Submit.MaxWait)
	service := core.NewService(builder, sender, cfg.Mail.To, limiter)

	server := web.NewServer(service, cfg)

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Shutdown waits for in-flight submissions to finish sending
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	<-done
	slog.Info("server stopped")
}
