package models

import "strings"

// SearchParams holds the filters of a search request. A nil MinRating means
// the rating filter is not set; a zero value is a real threshold.
type SearchParams struct {
	Text      string   `json:"q"`
	Year      string   `json:"year"`
	MinRating *float64 `json:"min_rating,omitempty"`
	GenreIDs  []int    `json:"genres"`
}

// IsEmpty reports whether no filter at all was supplied
func (p SearchParams) IsEmpty() bool {
	return strings.TrimSpace(p.Text) == "" &&
		strings.TrimSpace(p.Year) == "" &&
		p.MinRating == nil &&
		len(p.GenreIDs) == 0
}

// HasText reports whether a title query is present
func (p SearchParams) HasText() bool {
	return strings.TrimSpace(p.Text) != ""
}

// Match applies every present filter to m. Text is a case-insensitive
// substring match, genres match when any selected genre is present.
func (p SearchParams) Match(m *Movie) bool {
	if p.HasText() && !strings.Contains(strings.ToLower(m.Title), strings.ToLower(strings.TrimSpace(p.Text))) {
		return false
	}
	return p.MatchFilters(m)
}

// MatchFilters applies year, rating and genre filters but ignores Text
func (p SearchParams) MatchFilters(m *Movie) bool {
	if year := strings.TrimSpace(p.Year); year != "" && m.Year() != year {
		return false
	}
	if p.MinRating != nil && m.VoteAverage < *p.MinRating {
		return false
	}
	if len(p.GenreIDs) > 0 && !m.HasAnyGenre(p.GenreIDs) {
		return false
	}
	return true
}
