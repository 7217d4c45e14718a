package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/liamwears/reelshelf/internal/models"
	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// DetailStatus is the outcome of a non-blocking detail lookup
type DetailStatus string

const (
	DetailFound    DetailStatus = "found"
	DetailPending  DetailStatus = "pending"
	DetailNotFound DetailStatus = "not_found"
)

// DetailResult is what Lookup reports to the presentation layer
type DetailResult struct {
	Status DetailStatus   `json:"status"`
	Detail *models.Detail `json:"detail,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// DetailConfig holds detail resolver configuration
type DetailConfig struct {
	CacheTTL     time.Duration
	FailureTTL   time.Duration
	FetchTimeout time.Duration
}

// DefaultDetailConfig returns the default detail resolver settings
func DefaultDetailConfig() DetailConfig {
	return DetailConfig{
		CacheTTL:     10 * time.Minute,
		FailureTTL:   30 * time.Second,
		FetchTimeout: 10 * time.Second,
	}
}

// fetchFailure is cached in place of a movie after a failed remote fetch
type fetchFailure struct {
	err error
}

// DetailResolver looks a movie up by id, local collection first, then the
// remote catalog. Remote results and recent failures are cached.
type DetailResolver struct {
	client     CatalogClient
	collection *CollectionService
	config     DetailConfig
	cache      *cache.Cache
	group      singleflight.Group
	mu         sync.Mutex
	inflight   map[int64]struct{}
	logger     *log.Logger
}

// NewDetailResolver creates a new detail resolver
func NewDetailResolver(client CatalogClient, collection *CollectionService, config DetailConfig, logger *log.Logger) *DetailResolver {
	defaults := DefaultDetailConfig()
	if config.CacheTTL == 0 {
		config.CacheTTL = defaults.CacheTTL
	}
	if config.FailureTTL == 0 {
		config.FailureTTL = defaults.FailureTTL
	}
	if config.FetchTimeout == 0 {
		config.FetchTimeout = defaults.FetchTimeout
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	return &DetailResolver{
		client:     client,
		collection: collection,
		config:     config,
		cache:      cache.New(config.CacheTTL, config.CacheTTL*2),
		inflight:   make(map[int64]struct{}),
		logger:     logger,
	}
}

// Resolve returns the movie with the given id, blocking on the remote fetch
// when it is not in the local collection. Unknown ids yield an error
// matching ErrNotFound.
func (r *DetailResolver) Resolve(ctx context.Context, id int64) (models.Detail, error) {
	if movie, ok := r.collection.Find(id); ok {
		return models.Detail{Movie: movie, Source: models.SourceLocal}, nil
	}

	if detail, ok, err := r.cached(id); ok {
		return detail, err
	}

	v, err, _ := r.group.Do(cacheKey(id), func() (interface{}, error) {
		return r.fetch(ctx, id)
	})
	if err != nil {
		return models.Detail{}, err
	}
	return v.(models.Detail), nil
}

// Lookup is the non-blocking form of Resolve. It starts a background fetch
// for ids that are neither local nor cached and reports DetailPending until
// that fetch has finished.
func (r *DetailResolver) Lookup(id int64) DetailResult {
	if movie, ok := r.collection.Find(id); ok {
		return DetailResult{Status: DetailFound, Detail: &models.Detail{Movie: movie, Source: models.SourceLocal}}
	}

	if detail, ok, err := r.cached(id); ok {
		return resultOf(detail, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// the fetch may have finished between the cache check and the lock
	if detail, ok, err := r.cached(id); ok {
		return resultOf(detail, err)
	}

	if _, running := r.inflight[id]; !running {
		r.inflight[id] = struct{}{}
		go func() {
			defer func() {
				r.mu.Lock()
				delete(r.inflight, id)
				r.mu.Unlock()
			}()
			if _, err := r.Resolve(context.Background(), id); err != nil {
				r.logger.Printf("Background detail fetch for %d failed: %v", id, err)
			}
		}()
	}

	return DetailResult{Status: DetailPending}
}

func (r *DetailResolver) fetch(ctx context.Context, id int64) (models.Detail, error) {
	ctx, cancel := context.WithTimeout(ctx, r.config.FetchTimeout)
	defer cancel()

	movie, err := r.client.FetchByID(ctx, id)
	if err != nil {
		ferr := &FetchError{Op: fmt.Sprintf("fetch movie %d", id), Err: err}
		if ctx.Err() == nil || errors.Is(err, ErrNotFound) {
			r.cache.Set(cacheKey(id), fetchFailure{err: ferr}, r.config.FailureTTL)
		}
		return models.Detail{}, ferr
	}

	movie.Normalize()
	detail := models.Detail{Movie: movie, Source: models.SourceRemote}
	r.cache.Set(cacheKey(id), detail, cache.DefaultExpiration)
	return detail, nil
}

func (r *DetailResolver) cached(id int64) (models.Detail, bool, error) {
	v, found := r.cache.Get(cacheKey(id))
	if !found {
		return models.Detail{}, false, nil
	}
	switch entry := v.(type) {
	case models.Detail:
		return entry, true, nil
	case fetchFailure:
		return models.Detail{}, true, entry.err
	}
	return models.Detail{}, false, nil
}

func resultOf(detail models.Detail, err error) DetailResult {
	if err != nil {
		return DetailResult{Status: DetailNotFound, Error: err.Error()}
	}
	return DetailResult{Status: DetailFound, Detail: &detail}
}

func cacheKey(id int64) string {
	return "movie:" + strconv.FormatInt(id, 10)
}
