package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/UnknownOlympus/leaddesk/internal/bot"
	"github.com/UnknownOlympus/leaddesk/internal/cache"
	"github.com/UnknownOlympus/leaddesk/internal/config"
	"github.com/UnknownOlympus/leaddesk/internal/gateway"
	"github.com/UnknownOlympus/leaddesk/internal/metrics"
	"github.com/UnknownOlympus/leaddesk/internal/reminder"
	"github.com/UnknownOlympus/leaddesk/internal/repository"
	"github.com/UnknownOlympus/leaddesk/internal/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Constants for different environment types.
const (
	envLocal        = "local"
	envDev          = "development"
	envProd         = "production"
	shutdownTimeout = 10 * time.Second
)

// main is the entry point of the application.
func main() {
	// Create a context that will be canceled when an interrupt signal is received.
	// This allows for graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load application configuration.
	cfg := config.MustLoad()

	// Set up the logger based on the environment.
	logger := setupLogger(cfg.Env)

	// Create a separate registry for metrics with exemplar
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.NewMetrics(reg)

	// Initialize the session database connection.
	dtb, err := repository.NewDatabase(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer dtb.Close()

	// Create a new repository instance using the database connection.
	repo := repository.NewRepository(dtb)
	if err = repo.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to prepare DB schema: %v", err)
	}

	// Initialize the redis client that keeps lead snapshots and pending comments.
	const redisTimeout = 5 * time.Second
	redisClient, err := cache.NewClient(ctx, cfg.RedisAddr, redisTimeout)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	// The CRM API is the system of record for leads; only sessions live in postgres.
	crmClient := gateway.NewClient(logger, cfg.CRM.URL, cfg.CRM.Token, cfg.CRM.Timeout, appMetrics)

	// Initialize the bot with logger, repository, CRM client, redis, token, and poller timeout.
	leadBot, err := bot.NewBot(logger, repo, crmClient, redisClient, appMetrics, cfg.Token, cfg.PollerTimeout, cfg.Location)
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}

	reminders, err := reminder.NewService(logger, crmClient, repo, leadBot, appMetrics, reminder.Options{
		Schedule: cfg.Reminder.Schedule,
		Lookback: cfg.Reminder.Lookback,
		Location: cfg.Location,
	})
	if err != nil {
		log.Fatalf("Failed to create reminder service: %v", err)
	}

	// Log that the application has started.
	logger.InfoContext(ctx, "Application started. Press Ctrl+C to stop.")

	// Start the bot in a goroutine to allow main to listen for signals.
	go leadBot.Start()
	reminders.Start()

	// Start the monitoring server
	health := server.NewHealthChecker(logger, dtb, redisClient, crmClient)
	monitoringDone := make(chan struct{})
	go func() {
		defer close(monitoringDone)
		server.StartMonitoringServer(ctx, logger, reg, health, cfg.MonitoringPort)
	}()

	// Wait for the context to be canceled (e.g., by Ctrl+C).
	<-ctx.Done()

	// Log that a shutdown signal has been received.
	logger.Info("Shutdown signal received. Stopping application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Let a running reminder scan finish before the bot goes away.
	reminders.Stop(shutdownCtx)
	leadBot.Stop()

	select {
	case <-monitoringDone:
	case <-shutdownCtx.Done():
		logger.Warn("Monitoring server did not stop in time")
	}

	// Log graceful shutdown completion.
	logger.Info("Application stopped gracefully.")
}

// setupLogger initializes and returns a logger based on the environment provided.
func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
				Level:     slog.LevelDebug,
				AddSource: true,
				ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
					return a
				},
			}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level:     slog.LevelInfo,
				AddSource: false,
				ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
					return a
				},
			}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level:     slog.LevelWarn,
				AddSource: false,
				ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
					if a.Key == slog.TimeKey {
						return slog.Attr{}
					}
					return a
				},
			}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level:     slog.LevelError,
				AddSource: false,
				ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
					if a.Key == slog.TimeKey {
						return slog.Attr{}
					}
					return a
				},
			}),
		)

		log.Error(
			"The env parameter was not specified or was invalid. Logging will be minimal, by default.",
			slog.String("available_envs", "local, development, production"))
	}

	return log
}
