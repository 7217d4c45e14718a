package handlers

import "net/http"

// RegisterRoutes mounts the JSON API on mux. wrap is applied to every API
// route, e.g. the rate limiter.
func RegisterRoutes(mux *http.ServeMux, movies *MovieHandler, search *SearchHandler, catalog *CatalogHandler, wrap func(http.Handler) http.Handler) {
	if wrap == nil {
		wrap = func(h http.Handler) http.Handler { return h }
	}
	handle := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, wrap(fn))
	}

	handle("GET /api/movies", movies.List)
	handle("POST /api/movies", movies.Create)
	handle("POST /api/movies/check", movies.Check)
	handle("GET /api/movies/{id}", movies.Get)

	handle("GET /api/search", search.Search)
	handle("DELETE /api/search", search.Reset)
	handle("GET /api/search/state", search.State)
	handle("GET /api/search/suggestions", search.Suggestions)

	handle("GET /api/genres", catalog.Genres)
	handle("GET /api/catalog/status", catalog.Status)
	handle("POST /api/catalog/refresh", catalog.Refresh)
}
