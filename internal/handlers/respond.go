package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/liamwears/reelshelf/internal/middleware"
	"github.com/liamwears/reelshelf/internal/models"
	"github.com/liamwears/reelshelf/internal/services"
)

// writeJSON encodes v with the given status
func writeJSON(w http.ResponseWriter, logger *log.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Printf("Failed to encode response: %v", err)
	}
}

// logRequest logs with the request id attached when one was assigned
func logRequest(logger *log.Logger, r *http.Request, format string, args ...any) {
	if id, ok := middleware.GetRequestIDFromContext(r.Context()); ok {
		format = "[" + id + "] " + format
	}
	logger.Printf(format, args...)
}

// writeError sends a JSON error body; extra fields are merged into it
func writeError(w http.ResponseWriter, logger *log.Logger, status int, message string, extra map[string]any) {
	body := map[string]any{"error": message}
	for k, v := range extra {
		body[k] = v
	}
	writeJSON(w, logger, status, body)
}

// MovieView is a movie with presentation fields resolved
type MovieView struct {
	models.Movie
	Source       models.Source `json:"source"`
	PosterURL    string        `json:"poster_url"`
	BackdropURL  string        `json:"backdrop_url"`
	RuntimeLabel string        `json:"runtime_label,omitempty"`
	GenreLabels  []string      `json:"genre_labels"`
}

// Presenter turns movie records into views
type Presenter struct {
	tmdb   *services.TMDBService
	genres *services.GenreService
}

// NewPresenter creates a new presenter
func NewPresenter(tmdb *services.TMDBService, genres *services.GenreService) *Presenter {
	return &Presenter{tmdb: tmdb, genres: genres}
}

// View resolves image URLs and genre labels. Structured genres from a
// remote detail are preferred over the id list.
func (p *Presenter) View(m models.Movie) MovieView {
	source := models.SourceRemote
	if m.IsCustom {
		source = models.SourceLocal
	}

	labels := make([]string, 0, len(m.GenreIDs))
	if len(m.Genres) > 0 {
		for _, g := range m.Genres {
			labels = append(labels, g.Name)
		}
	} else {
		for _, id := range m.GenreIDs {
			labels = append(labels, p.genres.Label(id))
		}
	}

	return MovieView{
		Movie:        m,
		Source:       source,
		PosterURL:    p.tmdb.GetImageURL(m.PosterPath),
		BackdropURL:  p.tmdb.GetImageURL(m.BackdropPath),
		RuntimeLabel: models.FormatRuntime(m.Runtime),
		GenreLabels:  labels,
	}
}

// Views maps View over a list
func (p *Presenter) Views(movies []models.Movie) []MovieView {
	out := make([]MovieView, 0, len(movies))
	for _, m := range movies {
		out = append(out, p.View(m))
	}
	return out
}

// statusForFetch maps catalog errors to an HTTP status
func statusForFetch(err error) int {
	if errors.Is(err, services.ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusBadGateway
}
