package services

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/liamwears/reelshelf/internal/models"
)

// CatalogStatus is the fetch state of the catalog cache
type CatalogStatus string

const (
	CatalogIdle      CatalogStatus = "idle"
	CatalogLoading   CatalogStatus = "loading"
	CatalogSucceeded CatalogStatus = "succeeded"
	CatalogFailed    CatalogStatus = "failed"
)

// DefaultPopularPages is how many popular pages make up a snapshot
const DefaultPopularPages = 3

// CatalogState is the presentation view of the cache
type CatalogState struct {
	Status      CatalogStatus `json:"status"`
	Error       string        `json:"error,omitempty"`
	Count       int           `json:"count"`
	RefreshedAt *time.Time    `json:"refreshedAt,omitempty"`
}

// CatalogCache holds the snapshot of popular movies fetched from the catalog
type CatalogCache struct {
	mu          sync.RWMutex
	client      CatalogClient
	pages       int
	status      CatalogStatus
	lastErr     string
	movies      []models.Movie
	refreshedAt time.Time
	logger      *log.Logger
}

// NewCatalogCache creates an idle, empty cache
func NewCatalogCache(client CatalogClient, pages int, logger *log.Logger) *CatalogCache {
	if pages < 1 {
		pages = DefaultPopularPages
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &CatalogCache{
		client: client,
		pages:  pages,
		status: CatalogIdle,
		movies: []models.Movie{},
		logger: logger,
	}
}

// Refresh fetches popular pages 1..N in order and swaps the snapshot in one
// step. It returns nil without fetching when a refresh is already running.
// On failure the previous snapshot is kept.
func (c *CatalogCache) Refresh(ctx context.Context) error {
	c.mu.Lock()
	if c.status == CatalogLoading {
		c.mu.Unlock()
		return nil
	}
	c.status = CatalogLoading
	c.mu.Unlock()

	next := make([]models.Movie, 0)
	for page := 1; page <= c.pages; page++ {
		movies, err := c.client.FetchPopular(ctx, page)
		if err != nil {
			ferr := &FetchError{Op: fmt.Sprintf("fetch popular page %d", page), Err: err}
			c.mu.Lock()
			c.status = CatalogFailed
			c.lastErr = ferr.Error()
			c.mu.Unlock()
			c.logger.Printf("Catalog refresh failed: %v", ferr)
			return ferr
		}
		next = append(next, movies...)
	}

	c.mu.Lock()
	c.movies = next
	c.status = CatalogSucceeded
	c.lastErr = ""
	c.refreshedAt = time.Now()
	c.mu.Unlock()

	c.logger.Printf("Catalog refreshed: %d movies from %d pages", len(next), c.pages)
	return nil
}

// Snapshot returns a copy of the current catalog in fetch order
func (c *CatalogCache) Snapshot() []models.Movie {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]models.Movie, len(c.movies))
	copy(out, c.movies)
	return out
}

// Status returns the current fetch state
func (c *CatalogCache) Status() CatalogStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// Err returns the message of the last failed refresh, or ""
func (c *CatalogCache) Err() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// State returns status, error and snapshot size together
func (c *CatalogCache) State() CatalogState {
	c.mu.RLock()
	defer c.mu.RUnlock()

	state := CatalogState{
		Status: c.status,
		Error:  c.lastErr,
		Count:  len(c.movies),
	}
	if !c.refreshedAt.IsZero() {
		t := c.refreshedAt
		state.RefreshedAt = &t
	}
	return state
}
