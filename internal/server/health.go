package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/UnknownOlympus/leaddesk/internal/gateway"
	"github.com/redis/go-redis/v9"
)

// Pinger is anything that can report its reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker reports the state of the session database, the redis cache and the CRM API.
type HealthChecker struct {
	db    Pinger
	cache redis.Cmdable
	crm   Pinger
	log   *slog.Logger
}

func NewHealthChecker(log *slog.Logger, db Pinger, cache redis.Cmdable, crm Pinger) *HealthChecker {
	return &HealthChecker{
		db:    db,
		cache: cache,
		crm:   crm,
		log:   log,
	}
}

func (h *HealthChecker) ServeHTTP(writer http.ResponseWriter, req *http.Request) {
	h.log.DebugContext(req.Context(), "Performing health checks...")

	var err error
	status := make(map[string]string)
	overallStatus := http.StatusOK

	if err = h.db.Ping(req.Context()); err != nil {
		status["database"] = "unavailable"
		overallStatus = http.StatusServiceUnavailable
		h.log.WarnContext(req.Context(), "Health check failed: DB ping", "error", err)
	} else {
		status["database"] = "ok"
	}

	if err = h.cache.Ping(req.Context()).Err(); err != nil {
		status["redis"] = "unavailable"
		overallStatus = http.StatusServiceUnavailable
		h.log.WarnContext(req.Context(), "Health check failed: Redis ping", "error", err)
	} else {
		status["redis"] = "ok"
	}

	err = h.crm.Ping(req.Context())
	switch {
	case err == nil:
		status["crm_api"] = "ok"
	case errors.Is(err, gateway.ErrTransport):
		status["crm_api"] = "unreachable"
		overallStatus = http.StatusServiceUnavailable
		h.log.WarnContext(req.Context(), "Health check failed: CRM API unreachable", "error", err)
	default:
		status["crm_api"] = "degraded"
		overallStatus = http.StatusServiceUnavailable
		h.log.WarnContext(req.Context(), "Health check failed: CRM API is not serving", "error", err)
	}

	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(overallStatus)
	if err = json.NewEncoder(writer).Encode(status); err != nil {
		h.log.ErrorContext(req.Context(), "Failed to write health check response", "error", err)
	}

	h.log.DebugContext(req.Context(), "Health checks completed", "status", overallStatus)
}
