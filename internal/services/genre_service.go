package services

import (
	"context"
	"sync"

	"github.com/liamwears/reelshelf/internal/models"
)

// GenreService keeps the genre reference list, fetched once
type GenreService struct {
	client  CatalogClient
	mu      sync.RWMutex
	genres  []models.Genre
	catalog models.GenreCatalog
	loaded  bool
}

// NewGenreService creates a new genre service
func NewGenreService(client CatalogClient) *GenreService {
	return &GenreService{
		client:  client,
		genres:  []models.Genre{},
		catalog: models.GenreCatalog{},
	}
}

// Load fetches the genre list unless it was already fetched successfully.
// After a failure the next call tries again.
func (s *GenreService) Load(ctx context.Context) error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}

	genres, err := s.client.FetchGenres(ctx)
	if err != nil {
		return &FetchError{Op: "fetch genres", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.genres = genres
	s.catalog = models.NewGenreCatalog(genres)
	s.loaded = true
	return nil
}

// Genres returns the genre list, empty until loaded
func (s *GenreService) Genres() []models.Genre {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Genre, len(s.genres))
	copy(out, s.genres)
	return out
}

// Label returns the genre name or the id as text for unknown genres
func (s *GenreService) Label(id int) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog.Label(id)
}

// Loaded reports whether the list has been fetched
func (s *GenreService) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}
