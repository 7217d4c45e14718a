package handlers

import (
	"context"
	"log"
	"net/http"

	"github.com/liamwears/reelshelf/internal/services"
)

// Pinger is a storage backend that can report its health
type Pinger interface {
	Health(ctx context.Context) error
}

// HealthHandler reports storage and warm-up state
type HealthHandler struct {
	stores     map[string]Pinger
	collection *services.CollectionService
	cache      *services.CatalogCache
	genres     *services.GenreService
	logger     *log.Logger
}

// NewHealthHandler creates a new health handler. stores maps a name such as
// "redis" to its backend.
func NewHealthHandler(stores map[string]Pinger, collection *services.CollectionService, cache *services.CatalogCache, genres *services.GenreService, logger *log.Logger) *HealthHandler {
	return &HealthHandler{
		stores:     stores,
		collection: collection,
		cache:      cache,
		genres:     genres,
		logger:     logger,
	}
}

// Check handles GET /health. Only storage makes the service unhealthy; the
// catalog and genres are retried on demand.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{
		"status":     "ok",
		"collection": "loaded",
		"catalog":    string(h.cache.Status()),
		"genres":     "loaded",
	}
	code := http.StatusOK

	for name, store := range h.stores {
		status[name] = "up"
		if err := store.Health(r.Context()); err != nil {
			logRequest(h.logger, r, "Health check for %s failed: %v", name, err)
			status[name] = "down"
			status["status"] = "unhealthy"
			code = http.StatusServiceUnavailable
		}
	}

	if !h.collection.Available() {
		status["collection"] = "unavailable"
		status["status"] = "unhealthy"
		code = http.StatusServiceUnavailable
	}
	if msg := h.cache.Err(); msg != "" {
		status["catalog_error"] = msg
	}
	if !h.genres.Loaded() {
		status["genres"] = "pending"
	}

	writeJSON(w, h.logger, code, status)
}
