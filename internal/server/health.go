package server

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"
)

type healthResult struct {
	Status string `json:"status"`
}

// HealthResponse reports per-dependency health.
type HealthResponse map[string]healthResult

func handleHealth(logger *slog.Logger, db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		resp := HealthResponse{"sqlite": {Status: "ok"}}
		status := http.StatusOK

		if err := db.PingContext(ctx); err != nil {
			logger.Error("health check failed", "name", "sqlite", "error", err)
			resp["sqlite"] = healthResult{Status: "error"}
			status = http.StatusServiceUnavailable
		}

		writeJSON(w, status, resp)
	}
}
