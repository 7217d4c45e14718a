package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/liamwears/reelshelf/internal/models"
	"github.com/liamwears/reelshelf/internal/services"
)

// maxCreateBody bounds the admission payload; the poster is base64 encoded
const maxCreateBody = 5 << 20

// MovieHandler handles movie-related requests
type MovieHandler struct {
	library   *services.Library
	guard     *services.DuplicateGuard
	resolver  *services.DetailResolver
	presenter *Presenter
	pageSize  int
	logger    *log.Logger
}

// NewMovieHandler creates a new movie handler
func NewMovieHandler(library *services.Library, guard *services.DuplicateGuard, resolver *services.DetailResolver, presenter *Presenter, pageSize int, logger *log.Logger) *MovieHandler {
	if pageSize < 1 {
		pageSize = services.DefaultPageSize
	}
	return &MovieHandler{
		library:   library,
		guard:     guard,
		resolver:  resolver,
		presenter: presenter,
		pageSize:  pageSize,
		logger:    logger,
	}
}

type movieListResponse struct {
	Results    []MovieView `json:"results"`
	Page       int         `json:"page"`
	Count      int         `json:"count"`
	TotalPages int         `json:"totalPages"`
}

// List handles GET /api/movies
func (h *MovieHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	page, _ := strconv.Atoi(query.Get("page"))
	if page < 1 {
		page = 1
	}

	size, _ := strconv.Atoi(query.Get("size"))
	if size < 1 || size > 100 {
		size = h.pageSize
	}

	result := h.library.Page(page, size)
	writeJSON(w, h.logger, http.StatusOK, movieListResponse{
		Results:    h.presenter.Views(result.Results),
		Page:       result.Page,
		Count:      result.Count,
		TotalPages: result.TotalPages,
	})
}

// Get handles GET /api/movies/{id}. With wait=false the lookup does not
// block and answers 202 while the remote fetch is running.
func (h *MovieHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid movie ID", nil)
		return
	}

	if r.URL.Query().Get("wait") == "false" {
		result := h.resolver.Lookup(id)
		switch result.Status {
		case services.DetailPending:
			writeJSON(w, h.logger, http.StatusAccepted, map[string]string{"status": string(result.Status)})
		case services.DetailNotFound:
			writeError(w, h.logger, http.StatusNotFound, "Movie not found", map[string]any{"status": result.Status})
		default:
			writeJSON(w, h.logger, http.StatusOK, h.detailView(*result.Detail))
		}
		return
	}

	detail, err := h.resolver.Resolve(r.Context(), id)
	if err != nil {
		status := statusForFetch(err)
		if status == http.StatusNotFound {
			writeError(w, h.logger, status, "Movie not found", nil)
			return
		}
		logRequest(h.logger, r, "Failed to resolve movie %d: %v", id, err)
		writeError(w, h.logger, status, "Failed to fetch movie", nil)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, h.detailView(detail))
}

func (h *MovieHandler) detailView(detail models.Detail) map[string]any {
	view := h.presenter.View(detail.Movie)
	view.Source = detail.Source
	return map[string]any{
		"status": services.DetailFound,
		"source": detail.Source,
		"movie":  view,
	}
}

// Create handles POST /api/movies
func (h *MovieHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input models.CreateMovieInput
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCreateBody)).Decode(&input); err != nil {
		logRequest(h.logger, r, "Failed to decode request body: %v", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	movie, err := h.guard.Admit(r.Context(), input)
	if err != nil {
		var verr *services.ValidationError
		var derr *services.DuplicateError
		var perr *services.PersistenceError
		switch {
		case errors.As(err, &verr):
			writeError(w, h.logger, http.StatusBadRequest, verr.Message, map[string]any{"field": verr.Field})
		case errors.As(err, &derr):
			writeError(w, h.logger, http.StatusConflict, derr.Error(), map[string]any{
				"titleConflict": derr.TitleConflict,
				"imageConflict": derr.ImageConflict,
			})
		case errors.Is(err, services.ErrCollectionUnavailable):
			logRequest(h.logger, r, "Refusing to add movie: %v", err)
			writeError(w, h.logger, http.StatusServiceUnavailable, "Your collection could not be loaded, please try again later", nil)
		case errors.As(err, &perr):
			logRequest(h.logger, r, "Movie %d added but not saved: %v", movie.ID, err)
			writeError(w, h.logger, http.StatusInternalServerError, "Movie added but could not be saved", map[string]any{
				"movie": h.presenter.View(movie),
			})
		default:
			logRequest(h.logger, r, "Failed to create movie: %v", err)
			writeError(w, h.logger, http.StatusInternalServerError, "Failed to create movie", nil)
		}
		return
	}

	writeJSON(w, h.logger, http.StatusCreated, map[string]any{
		"movie":   h.presenter.View(movie),
		"message": "Movie added to your collection!",
	})
}

type checkRequest struct {
	Title string `json:"title"`
	Image string `json:"image"`
	// Live is set while the title is still being typed
	Live bool `json:"live"`
}

// Check handles POST /api/movies/check
func (h *MovieHandler) Check(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCreateBody)).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	var result models.DuplicateCheck
	if req.Live {
		result.TitleConflict = h.guard.LiveTitleConflict(req.Title)
		if req.Image != "" {
			result.ImageConflict = h.guard.CheckDuplicate("", req.Image).ImageConflict
		}
	} else {
		result = h.guard.CheckDuplicate(req.Title, req.Image)
	}

	writeJSON(w, h.logger, http.StatusOK, result)
}
