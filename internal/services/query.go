package services

import (
	"context"
	"strings"
	"sync"

	"github.com/liamwears/reelshelf/internal/models"
)

// MaxSuggestions caps the title autocomplete list
const MaxSuggestions = 10

// SearchState is the last applied search as seen by the presentation layer.
// Searched is false until a non-empty search completes, so an empty Results
// with Searched=false means no search was performed.
type SearchState struct {
	Params   models.SearchParams `json:"params"`
	Results  []models.Movie      `json:"results"`
	Searched bool                `json:"searched"`
	Error    string              `json:"error,omitempty"`
}

// QueryEngine answers searches by combining a remote query with local
// filtering of the user's collection
type QueryEngine struct {
	client     CatalogClient
	library    *Library
	mu         sync.Mutex
	generation uint64
	state      SearchState
}

// NewQueryEngine creates a new query engine
func NewQueryEngine(client CatalogClient, library *Library) *QueryEngine {
	return &QueryEngine{
		client:  client,
		library: library,
		state:   SearchState{Results: []models.Movie{}},
	}
}

// Execute runs one search without touching the engine state. Local matches
// come before remote ones and ids are unique. An empty query returns an
// empty list without calling the catalog. When the catalog call fails the
// result is empty and the error is a *FetchError.
func (q *QueryEngine) Execute(ctx context.Context, params models.SearchParams) ([]models.Movie, error) {
	if params.IsEmpty() {
		return []models.Movie{}, nil
	}

	var remote []models.Movie
	if params.HasText() {
		found, err := q.client.SearchByTitle(ctx, strings.TrimSpace(params.Text))
		if err != nil {
			return []models.Movie{}, &FetchError{Op: "search by title", Err: err}
		}
		// title search ignores the other filters, apply them here
		for _, m := range found {
			if params.MatchFilters(&m) {
				remote = append(remote, m)
			}
		}
	} else {
		found, err := q.client.Discover(ctx, DiscoverFiltersFrom(params))
		if err != nil {
			return []models.Movie{}, &FetchError{Op: "discover", Err: err}
		}
		remote = found
	}

	local := q.library.Collection.All()
	combined := make([]models.Movie, 0, len(local)+len(remote))
	for _, m := range local {
		if params.Match(&m) {
			combined = append(combined, m)
		}
	}
	combined = append(combined, remote...)

	return DedupeByID(combined), nil
}

// Search runs a search and records it as the current state. If another
// Search or Reset started while this one was in flight, the result is
// dropped and ErrStaleResponse is returned. A search whose context ended is
// not recorded either and returns the context error. Empty params reset the
// state.
func (q *QueryEngine) Search(ctx context.Context, params models.SearchParams) (SearchState, error) {
	if params.IsEmpty() {
		q.Reset()
		return q.State(), nil
	}

	q.mu.Lock()
	q.generation++
	gen := q.generation
	q.mu.Unlock()

	results, err := q.Execute(ctx, params)

	q.mu.Lock()
	defer q.mu.Unlock()

	if gen != q.generation {
		return SearchState{}, ErrStaleResponse
	}
	// the caller gave up, keep whatever was shown before
	if ctxErr := ctx.Err(); ctxErr != nil {
		return SearchState{}, ctxErr
	}

	q.state = SearchState{
		Params:   params,
		Results:  results,
		Searched: true,
	}
	if err != nil {
		q.state.Error = err.Error()
	}
	return q.copyState(), err
}

// Reset clears results and the searched flag and invalidates in-flight searches
func (q *QueryEngine) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.generation++
	q.state = SearchState{Results: []models.Movie{}}
}

// State returns the current search state
func (q *QueryEngine) State() SearchState {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.copyState()
}

func (q *QueryEngine) copyState() SearchState {
	out := q.state
	out.Results = make([]models.Movie, len(q.state.Results))
	copy(out.Results, q.state.Results)
	return out
}

// Suggestions returns merged-view movies whose title starts with prefix,
// ignoring case, capped at MaxSuggestions
func (q *QueryEngine) Suggestions(prefix string) []models.Movie {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	out := []models.Movie{}
	if prefix == "" {
		return out
	}

	for _, m := range q.library.Merged() {
		if strings.HasPrefix(strings.ToLower(m.Title), prefix) {
			out = append(out, m)
			if len(out) == MaxSuggestions {
				break
			}
		}
	}
	return out
}
