package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/liamwears/reelshelf/internal/models"
)

// DefaultCollectionKey is the storage key of the local collection blob
const DefaultCollectionKey = "myMovies"

// BlobStore is the key/value persistence the local collection is saved to
type BlobStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// CollectionService owns the user-added movies and persists them as a
// single JSON array blob
type CollectionService struct {
	mu     sync.RWMutex
	store  BlobStore
	key    string
	movies []models.Movie
	// unread is set while the last Load could not read the store
	unread bool
	logger *log.Logger
}

// NewCollectionService creates a new collection service
func NewCollectionService(store BlobStore, key string, logger *log.Logger) *CollectionService {
	if key == "" {
		key = DefaultCollectionKey
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &CollectionService{
		store:  store,
		key:    key,
		movies: []models.Movie{},
		logger: logger,
	}
}

// Load replaces the in-memory collection with the persisted blob. A missing
// or malformed blob yields an empty collection. A failing store read is
// returned and leaves the collection empty and unread: Append then retries
// the read before it writes, so the stored records are never overwritten.
func (s *CollectionService) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

func (s *CollectionService) load(ctx context.Context) error {
	s.movies = []models.Movie{}

	raw, ok, err := s.store.Get(ctx, s.key)
	if err != nil {
		s.unread = true
		return fmt.Errorf("failed to read collection: %w", err)
	}
	s.unread = false
	if !ok || raw == "" {
		return nil
	}

	var movies []models.Movie
	if err := json.Unmarshal([]byte(raw), &movies); err != nil {
		s.logger.Printf("Ignoring malformed collection blob %q: %v", s.key, err)
		return nil
	}

	for i := range movies {
		movies[i].IsCustom = true
	}
	s.movies = movies
	return nil
}

// Append adds a movie and persists the whole collection. When the write
// fails the movie stays in memory and a *PersistenceError is returned. If
// the store could not be read earlier, the read is retried first and a
// failure is reported as ErrCollectionUnavailable with nothing appended.
func (s *CollectionService) Append(ctx context.Context, movie models.Movie) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unread {
		if err := s.load(ctx); err != nil {
			return fmt.Errorf("%w: %v", ErrCollectionUnavailable, err)
		}
		s.logger.Printf("Collection %q read after earlier failure, %d movies", s.key, len(s.movies))
	}

	s.movies = append(s.movies, movie)

	data, err := json.Marshal(s.movies)
	if err != nil {
		return &PersistenceError{Err: err}
	}
	if err := s.store.Set(ctx, s.key, string(data)); err != nil {
		return &PersistenceError{Err: err}
	}
	return nil
}

// All returns a copy of the collection in insertion order
func (s *CollectionService) All() []models.Movie {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Movie, len(s.movies))
	copy(out, s.movies)
	return out
}

// Find returns the local movie with the given id
func (s *CollectionService) Find(id int64) (models.Movie, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, m := range s.movies {
		if m.ID == id {
			return m, true
		}
	}
	return models.Movie{}, false
}

// Available reports whether the stored collection has been read
func (s *CollectionService) Available() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.unread
}

// Len returns the number of local movies
func (s *CollectionService) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.movies)
}
