package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Source identifies which collection a movie record came from
type Source string

const (
	SourceLocal  Source = "local"
	SourceRemote Source = "remote"
)

// Movie is the canonical movie record shared by the remote catalog and the
// local collection. The JSON shape is the persisted shape of the local blob.
type Movie struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	Overview     string  `json:"overview"`
	ReleaseDate  string  `json:"release_date"`
	Runtime      int     `json:"runtime,omitempty"`
	VoteAverage  float64 `json:"vote_average"`
	GenreIDs     []int   `json:"genre_ids"`
	Genres       []Genre `json:"genres,omitempty"`
	PosterPath   string  `json:"poster_path"`
	BackdropPath string  `json:"backdrop_path"`
	IsCustom     bool    `json:"isCustom"`
	CreatedAt    string  `json:"created_at,omitempty"`
}

// TitleKey returns the title comparison key used for duplicate detection
func (m *Movie) TitleKey() string {
	return TitleKey(m.Title)
}

// Year returns the year component of the release date, or "" when unknown
func (m *Movie) Year() string {
	if len(m.ReleaseDate) < 4 {
		return ""
	}
	return m.ReleaseDate[:4]
}

// HasAnyGenre reports whether the movie carries at least one of ids.
func (m *Movie) HasAnyGenre(ids []int) bool {
	for _, want := range ids {
		for _, have := range m.GenreIDs {
			if have == want {
				return true
			}
		}
	}
	return false
}

// Normalize fills fields that remote payloads leave out so every record has
// the same shape. Structured genres are mirrored into GenreIDs when missing.
func (m *Movie) Normalize() {
	m.Title = strings.TrimSpace(m.Title)
	if m.Runtime < 0 {
		m.Runtime = 0
	}
	if m.VoteAverage < 0 {
		m.VoteAverage = 0
	}
	if m.GenreIDs == nil {
		m.GenreIDs = make([]int, 0, len(m.Genres))
		for _, g := range m.Genres {
			m.GenreIDs = append(m.GenreIDs, g.ID)
		}
	}
}

// TitleKey trims, lowercases and collapses internal whitespace runs
func TitleKey(title string) string {
	return strings.ToLower(strings.Join(strings.Fields(title), " "))
}

// FormatRuntime renders minutes as "2h 18min", "45min" or "2h"
func FormatRuntime(minutes int) string {
	if minutes <= 0 {
		return ""
	}
	hours, rest := minutes/60, minutes%60
	switch {
	case hours == 0:
		return fmt.Sprintf("%dmin", rest)
	case rest == 0:
		return fmt.Sprintf("%dh", hours)
	default:
		return fmt.Sprintf("%dh %dmin", hours, rest)
	}
}

// Genre is an entry of the remote genre reference list
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// GenreCatalog maps genre ids to display names
type GenreCatalog map[int]string

// NewGenreCatalog builds a lookup from a genre list, skipping unnamed entries
func NewGenreCatalog(genres []Genre) GenreCatalog {
	out := make(GenreCatalog, len(genres))
	for _, g := range genres {
		if strings.TrimSpace(g.Name) == "" {
			continue
		}
		out[g.ID] = g.Name
	}
	return out
}

// Label returns the genre name, falling back to the numeric id for unknown genres
func (c GenreCatalog) Label(id int) string {
	if name, ok := c[id]; ok {
		return name
	}
	return strconv.Itoa(id)
}

// Labels resolves every id in order
func (c GenreCatalog) Labels(ids []int) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, c.Label(id))
	}
	return out
}

// Detail is a resolved movie tagged with the collection it came from. Local
// records carry GenreIDs only; remote ones also carry structured Genres and Runtime.
type Detail struct {
	Movie  Movie  `json:"movie"`
	Source Source `json:"source"`
}

// CreateMovieInput represents the form submitted to add a custom movie.
// Field order is the order required fields are reported in.
type CreateMovieInput struct {
	Title       string   `json:"title" validate:"required"`
	Overview    string   `json:"overview" validate:"required"`
	ReleaseDate string   `json:"release_date" validate:"required,datetime=2006-01-02"`
	Runtime     int      `json:"runtime" validate:"required,gt=0"`
	GenreIDs    []int    `json:"genre_ids" validate:"required,min=1,dive,gt=0"`
	Image       string   `json:"image" validate:"required"`
	VoteAverage *float64 `json:"vote_average,omitempty" validate:"omitempty,gte=0,lte=10"`
}

// DuplicateCheck reports admission conflicts for a candidate movie
type DuplicateCheck struct {
	TitleConflict bool `json:"titleConflict"`
	ImageConflict bool `json:"imageConflict"`
}

// Conflict reports whether either check failed
func (d DuplicateCheck) Conflict() bool {
	return d.TitleConflict || d.ImageConflict
}

// PaginatedMovies represents one page of the merged movie list
type PaginatedMovies struct {
	Results    []Movie `json:"results"`
	Page       int     `json:"page"`
	Count      int     `json:"count"`
	TotalPages int     `json:"totalPages"`
}
