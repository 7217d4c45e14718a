package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/liamwears/reelshelf/internal/models"
	"github.com/liamwears/reelshelf/internal/services"
)

// SearchHandler handles search requests
type SearchHandler struct {
	engine    *services.QueryEngine
	presenter *Presenter
	logger    *log.Logger
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(engine *services.QueryEngine, presenter *Presenter, logger *log.Logger) *SearchHandler {
	return &SearchHandler{
		engine:    engine,
		presenter: presenter,
		logger:    logger,
	}
}

type searchResponse struct {
	Params   models.SearchParams `json:"params"`
	Results  []MovieView         `json:"results"`
	Searched bool                `json:"searched"`
	Error    string              `json:"error,omitempty"`
}

// Search handles GET /api/search
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	params, err := parseSearchParams(r.URL.Query())
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error(), nil)
		return
	}

	state, err := h.engine.Search(r.Context(), params)
	if err != nil {
		if errors.Is(err, services.ErrStaleResponse) {
			writeError(w, h.logger, http.StatusConflict, "Search superseded by a newer one", nil)
			return
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			logRequest(h.logger, r, "Search abandoned: %v", err)
			writeError(w, h.logger, http.StatusServiceUnavailable, "Search cancelled", nil)
			return
		}
		logRequest(h.logger, r, "Search failed: %v", err)
		writeJSON(w, h.logger, http.StatusBadGateway, h.response(state))
		return
	}

	writeJSON(w, h.logger, http.StatusOK, h.response(state))
}

// State handles GET /api/search/state
func (h *SearchHandler) State(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, h.response(h.engine.State()))
}

// Reset handles DELETE /api/search
func (h *SearchHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.engine.Reset()
	writeJSON(w, h.logger, http.StatusOK, h.response(h.engine.State()))
}

type suggestion struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// Suggestions handles GET /api/search/suggestions
func (h *SearchHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	movies := h.engine.Suggestions(r.URL.Query().Get("q"))

	out := make([]suggestion, 0, len(movies))
	for _, m := range movies {
		out = append(out, suggestion{ID: m.ID, Title: m.Title})
	}
	writeJSON(w, h.logger, http.StatusOK, out)
}

func (h *SearchHandler) response(state services.SearchState) searchResponse {
	return searchResponse{
		Params:   state.Params,
		Results:  h.presenter.Views(state.Results),
		Searched: state.Searched,
		Error:    state.Error,
	}
}

// parseSearchParams reads q, year, min_rating and genres. Genres may be a
// comma separated list, repeated, or both.
func parseSearchParams(q url.Values) (models.SearchParams, error) {
	params := models.SearchParams{
		Text: strings.TrimSpace(q.Get("q")),
		Year: strings.TrimSpace(q.Get("year")),
	}

	if params.Year != "" {
		if _, err := strconv.Atoi(params.Year); err != nil || len(params.Year) != 4 {
			return params, fmt.Errorf("year must be a 4 digit year")
		}
	}

	if raw := strings.TrimSpace(q.Get("min_rating")); raw != "" {
		rating, err := strconv.ParseFloat(raw, 64)
		if err != nil || rating < 0 || rating > 10 {
			return params, fmt.Errorf("min_rating must be a number between 0 and 10")
		}
		params.MinRating = &rating
	}

	for _, value := range q["genres"] {
		for _, part := range strings.Split(value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.Atoi(part)
			if err != nil {
				return params, fmt.Errorf("genres must be numeric ids")
			}
			params.GenreIDs = append(params.GenreIDs, id)
		}
	}

	return params, nil
}
