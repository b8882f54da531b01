package handler

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/parisxmas/OxiDB/OxiSurvey/internal/store"
)

const pingTimeout = 2 * time.Second

// HealthHandler serves the service banner and the store health check.
type HealthHandler struct {
	db      store.Database
	driver  string
	version string
	log     *zap.Logger
}

func NewHealthHandler(db store.Database, driver, version string, log *zap.Logger) *HealthHandler {
	return &HealthHandler{db: db, driver: driver, version: version, log: log}
}

func (h *HealthHandler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{
		"message":     "Survey Generator API",
		"version":     h.version,
		"store":       h.driver,
		"description": "Document store backed survey storage API",
	})
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()
	if err := h.db.Ping(ctx); err != nil {
		h.log.Warn("health check failed", zap.String("store", h.driver), zap.Error(err))
		writeJSON(w, r, http.StatusServiceUnavailable, map[string]any{
			"status": "unhealthy",
			"store":  h.driver,
		})
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"status": "healthy", "store": h.driver})
}
