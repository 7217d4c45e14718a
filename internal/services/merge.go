package services

import "github.com/liamwears/reelshelf/internal/models"

// MergeView combines local and catalog movies into the browse order: local
// movies newest first, then the catalog in fetch order. Ids are unique in the
// result and a local movie always shadows a catalog movie with the same id.
func MergeView(catalog, local []models.Movie) []models.Movie {
	combined := make([]models.Movie, 0, len(local)+len(catalog))
	for i := len(local) - 1; i >= 0; i-- {
		combined = append(combined, local[i])
	}
	combined = append(combined, catalog...)
	return DedupeByID(combined)
}

// DedupeByID keeps the first movie seen for each id
func DedupeByID(movies []models.Movie) []models.Movie {
	seen := make(map[int64]struct{}, len(movies))
	out := make([]models.Movie, 0, len(movies))
	for _, m := range movies {
		if _, ok := seen[m.ID]; ok {
			continue
		}
		seen[m.ID] = struct{}{}
		out = append(out, m)
	}
	return out
}
