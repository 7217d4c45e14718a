package handlers

import (
	"log"
	"net/http"

	"github.com/liamwears/reelshelf/internal/services"
)

// CatalogHandler exposes the catalog cache state and the genre list
type CatalogHandler struct {
	cache  *services.CatalogCache
	genres *services.GenreService
	logger *log.Logger
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(cache *services.CatalogCache, genres *services.GenreService, logger *log.Logger) *CatalogHandler {
	return &CatalogHandler{
		cache:  cache,
		genres: genres,
		logger: logger,
	}
}

// Status handles GET /api/catalog/status
func (h *CatalogHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, h.cache.State())
}

// Refresh handles POST /api/catalog/refresh. A refresh already in progress
// is left alone and the current state is returned.
func (h *CatalogHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.cache.Refresh(r.Context()); err != nil {
		logRequest(h.logger, r, "Catalog refresh failed: %v", err)
		writeJSON(w, h.logger, http.StatusBadGateway, h.cache.State())
		return
	}

	status := http.StatusOK
	if h.cache.Status() == services.CatalogLoading {
		status = http.StatusAccepted
	}
	writeJSON(w, h.logger, status, h.cache.State())
}

// Genres handles GET /api/genres
func (h *CatalogHandler) Genres(w http.ResponseWriter, r *http.Request) {
	if err := h.genres.Load(r.Context()); err != nil {
		logRequest(h.logger, r, "Failed to load genres: %v", err)
		writeError(w, h.logger, http.StatusBadGateway, "Failed to fetch genres", nil)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, h.genres.Genres())
}
