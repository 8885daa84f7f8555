package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	readTimeout  = 5 * time.Second
	writeTimeout = 10 * time.Second
)

// NewMux builds the monitoring routes: /healthz served by health and /metrics
// served from the registry.
func NewMux(health http.Handler, reg prometheus.Gatherer) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/healthz", health)
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return mux
}

// StartMonitoringServer starts an HTTP server that provides health check and metrics endpoints.
// It blocks until ctx is canceled or the server fails, and shuts down gracefully on cancel.
//
// Parameters:
// - ctx: A context.Context for managing cancellation and timeouts.
// - log: A logger for logging server events and errors.
// - reg: A registry with Prometheus collectors.
// - health: The /healthz handler.
// - port: The port number on which the server will listen.
func StartMonitoringServer(
	ctx context.Context,
	log *slog.Logger,
	reg prometheus.Gatherer,
	health http.Handler,
	port int,
) {
	log.InfoContext(ctx, "Starting monitoring server", "port", port)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      NewMux(health, reg),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), readTimeout)
		defer cancel()
		log.InfoContext(ctx, "Monitoring server shutting down.")
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.ErrorContext(ctx, "Monitoring server failed to shutdown", "error", err)
		}
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			log.ErrorContext(ctx, "Monitoring server failed", "error", err)
		}
	}
}
