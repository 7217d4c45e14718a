package services

import (
	"github.com/liamwears/reelshelf/internal/models"
)

// DefaultPageSize is the number of movies per browse page
const DefaultPageSize = 9

// Library is the shared state container: the local collection, the catalog
// cache and the merged view derived from both
type Library struct {
	Collection *CollectionService
	Catalog    *CatalogCache
}

// NewLibrary creates a new library
func NewLibrary(collection *CollectionService, catalog *CatalogCache) *Library {
	return &Library{
		Collection: collection,
		Catalog:    catalog,
	}
}

// Merged recomputes the merged view from the current collection and catalog
func (l *Library) Merged() []models.Movie {
	return MergeView(l.Catalog.Snapshot(), l.Collection.All())
}

// Page returns one page of the merged view. Pages past the end are empty but
// still report the totals.
func (l *Library) Page(page, size int) models.PaginatedMovies {
	return Paginate(l.Merged(), page, size)
}

// Paginate slices movies into a 1-based page
func Paginate(movies []models.Movie, page, size int) models.PaginatedMovies {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = DefaultPageSize
	}

	count := len(movies)
	totalPages := count / size
	if count%size != 0 {
		totalPages++
	}

	results := []models.Movie{}
	// page > totalPages is checked first so the offset cannot overflow
	if page <= totalPages {
		start := (page - 1) * size
		end := start + size
		if end > count {
			end = count
		}
		results = movies[start:end]
	}

	return models.PaginatedMovies{
		Results:    results,
		Page:       page,
		Count:      count,
		TotalPages: totalPages,
	}
}
