package services

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"

	"github.com/liamwears/reelshelf/internal/models"
)

var errBoom = errors.New("boom")

// memStore is an in-memory BlobStore
type memStore struct {
	mu     sync.Mutex
	data   map[string]string
	getErr error
	setErr error
	sets   int
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string]string)}
}

func (s *memStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return "", false, s.getErr
	}
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *memStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets++
	if s.setErr != nil {
		return s.setErr
	}
	s.data[key] = value
	return nil
}

// fakeCatalog is a scriptable CatalogClient that records its calls
type fakeCatalog struct {
	mu sync.Mutex

	popular    map[int][]models.Movie
	popularErr map[int]error
	// popularGate, when set, blocks FetchPopular until it is closed
	popularGate chan struct{}

	searchResults []models.Movie
	searchErr     error
	searchGate    chan struct{}

	discoverResults []models.Movie
	discoverErr     error

	genres    []models.Genre
	genresErr error

	byID    map[int64]models.Movie
	byIDErr error

	popularCalls  []int
	searchCalls   []string
	discoverCalls []DiscoverFilters
	genreCalls    int
	byIDCalls     []int64
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		popular:    make(map[int][]models.Movie),
		popularErr: make(map[int]error),
		byID:       make(map[int64]models.Movie),
	}
}

func (f *fakeCatalog) FetchPopular(ctx context.Context, page int) ([]models.Movie, error) {
	f.mu.Lock()
	f.popularCalls = append(f.popularCalls, page)
	gate := f.popularGate
	movies, err := f.popular[page], f.popularErr[page]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return movies, err
}

func (f *fakeCatalog) SearchByTitle(ctx context.Context, text string) ([]models.Movie, error) {
	f.mu.Lock()
	f.searchCalls = append(f.searchCalls, text)
	gate := f.searchGate
	results, err := f.searchResults, f.searchErr
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return results, err
}

func (f *fakeCatalog) Discover(_ context.Context, filters DiscoverFilters) ([]models.Movie, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.discoverCalls = append(f.discoverCalls, filters)
	return f.discoverResults, f.discoverErr
}

func (f *fakeCatalog) FetchGenres(context.Context) ([]models.Genre, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.genreCalls++
	return f.genres, f.genresErr
}

func (f *fakeCatalog) FetchByID(_ context.Context, id int64) (models.Movie, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byIDCalls = append(f.byIDCalls, id)
	if f.byIDErr != nil {
		return models.Movie{}, f.byIDErr
	}
	m, ok := f.byID[id]
	if !ok {
		return models.Movie{}, ErrNotFound
	}
	return m, nil
}

func (f *fakeCatalog) remoteCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.popularCalls) + len(f.searchCalls) + len(f.discoverCalls) + f.genreCalls + len(f.byIDCalls)
}

func (f *fakeCatalog) byIDCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byIDCalls)
}

// newTestLibrary builds a library with the given local movies already stored
func newTestLibrary(catalog *fakeCatalog, local ...models.Movie) (*Library, *memStore) {
	store := newMemStore()
	collection := NewCollectionService(store, "", nil)
	for _, m := range local {
		m.IsCustom = true
		collection.movies = append(collection.movies, m)
	}
	return NewLibrary(collection, NewCatalogCache(catalog, 3, nil)), store
}

var (
	pngBytes  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
	jpegBytes = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00\x01\x01\x00\x00\x01\x00\x01\x00\x00")
	gifBytes  = []byte("GIF89a\x01\x00\x01\x00\x00\x00\x00;")
)

func dataURL(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func ptr[T any](v T) *T {
	return &v
}
