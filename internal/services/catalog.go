package services

import (
	"context"

	"github.com/liamwears/reelshelf/internal/models"
)

// CatalogClient is the remote movie catalog the library reads from.
// FetchByID returns an error wrapping ErrNotFound for unknown ids.
type CatalogClient interface {
	FetchPopular(ctx context.Context, page int) ([]models.Movie, error)
	SearchByTitle(ctx context.Context, text string) ([]models.Movie, error)
	Discover(ctx context.Context, filters DiscoverFilters) ([]models.Movie, error)
	FetchGenres(ctx context.Context) ([]models.Genre, error)
	FetchByID(ctx context.Context, id int64) (models.Movie, error)
}

// DiscoverFilters are the filters the remote discover query encodes natively
type DiscoverFilters struct {
	GenreIDs  []int
	Year      string
	MinRating *float64
}

// DiscoverFiltersFrom drops the text part of a search
func DiscoverFiltersFrom(p models.SearchParams) DiscoverFilters {
	return DiscoverFilters{
		GenreIDs:  p.GenreIDs,
		Year:      p.Year,
		MinRating: p.MinRating,
	}
}
