package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

const healthCheckKey = "health_check"

// Health pings the database and round-trips a value through the cache.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := map[string]string{
		"database": "ok",
		"cache":    "ok",
	}
	healthy := true

	if err := h.store.Ping(ctx); err != nil {
		slog.Error("database health check failed", "error", err)
		status["database"] = "unavailable"
		healthy = false
	}

	var echoed string
	if err := h.cache.Set(ctx, healthCheckKey, "ok", 10*time.Second); err != nil {
		slog.Error("cache health check failed", "error", err)
		status["cache"] = "unavailable"
		healthy = false
	} else if found, err := h.cache.Get(ctx, healthCheckKey, &echoed); err != nil || !found || echoed != "ok" {
		slog.Error("cache health check failed", "error", err, "found", found)
		status["cache"] = "unavailable"
		healthy = false
	}

	if !healthy {
		h.errorWithData(w, r, http.StatusServiceUnavailable, "service unhealthy", status)
		return
	}
	h.successResponse(w, r, "service healthy", status)
}
