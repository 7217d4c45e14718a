package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func rating(v float64) *float64 {
	return &v
}

func TestSearchParams_IsEmpty(t *testing.T) {
	tests := []struct {
		name   string
		params SearchParams
		want   bool
	}{
		{"zero value", SearchParams{}, true},
		{"blank text and year", SearchParams{Text: "  ", Year: " "}, true},
		{"empty genre slice", SearchParams{GenreIDs: []int{}}, true},
		{"text", SearchParams{Text: "a"}, false},
		{"year", SearchParams{Year: "1999"}, false},
		{"zero rating is set", SearchParams{MinRating: rating(0)}, false},
		{"genres", SearchParams{GenreIDs: []int{1}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.params.IsEmpty())
		})
	}
}

func TestSearchParams_Match(t *testing.T) {
	m := &Movie{Title: "The Grand Budapest Hotel", ReleaseDate: "2014-02-26", VoteAverage: 8.0, GenreIDs: []int{35, 18}}

	tests := []struct {
		name   string
		params SearchParams
		want   bool
	}{
		{"substring any case", SearchParams{Text: "BUDAPEST"}, true},
		{"text trimmed", SearchParams{Text: "  grand "}, true},
		{"text miss", SearchParams{Text: "vienna"}, false},
		{"year", SearchParams{Year: "2014"}, true},
		{"year miss", SearchParams{Year: "2015"}, false},
		{"rating boundary", SearchParams{MinRating: rating(8.0)}, true},
		{"rating above", SearchParams{MinRating: rating(8.1)}, false},
		{"genre any", SearchParams{GenreIDs: []int{99, 18}}, true},
		{"genre none", SearchParams{GenreIDs: []int{99}}, false},
		{"all match", SearchParams{Text: "hotel", Year: "2014", MinRating: rating(7), GenreIDs: []int{35}}, true},
		{"one filter fails", SearchParams{Text: "hotel", Year: "2014", MinRating: rating(9)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.params.Match(m))
		})
	}
}

func TestSearchParams_MatchFiltersIgnoresText(t *testing.T) {
	m := &Movie{Title: "Heat", ReleaseDate: "1995-12-15"}
	p := SearchParams{Text: "nothing alike", Year: "1995"}
	assert.True(t, p.MatchFilters(m))
	assert.False(t, p.Match(m))
}
