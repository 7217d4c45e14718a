package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/liamwears/reelshelf/internal/models"
)

const (
	// LiveTitleMinLength is the title length at which live conflict checks start
	LiveTitleMinLength = 2

	// MaxPosterBytes is the largest accepted decoded poster
	MaxPosterBytes = 3 << 20
)

// fieldMessages are the user-facing messages per admission field, keyed by
// json field name and validation tag. The "" tag is the field default.
var fieldMessages = map[string]map[string]string{
	"title":        {"": "Please enter a title"},
	"overview":     {"": "Please enter a description"},
	"release_date": {"": "Please choose a release date", "datetime": "Release date must be formatted as YYYY-MM-DD"},
	"runtime":      {"": "Please enter the duration in minutes", "gt": "Duration must be a positive number of minutes"},
	"genre_ids":    {"": "Please select at least one genre", "gt": "Unknown genre selected"},
	"image":        {"": "Please choose a poster image"},
	"vote_average": {"": "Rating must be between 0 and 10"},
}

const (
	msgPosterFormat = "Invalid format. Use .png or .jpg"
	msgPosterTooBig = "Image too large (max 3 MB)"
	posterFieldName = "image"
	createdAtLayout = "2006-01-02T15:04:05.000Z07:00"
)

// DuplicateGuard validates new movies and admits them into the local collection
type DuplicateGuard struct {
	mu       sync.Mutex
	library  *Library
	validate *validator.Validate
	now      func() time.Time
	lastID   int64
}

// NewDuplicateGuard creates a new duplicate guard
func NewDuplicateGuard(library *Library) *DuplicateGuard {
	v := validator.New()

	// Report json field names so messages can be looked up by them
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := fld.Tag.Get("json")
		if name == "" {
			return fld.Name
		}
		if i := strings.IndexByte(name, ','); i >= 0 {
			name = name[:i]
		}
		if name == "-" {
			return ""
		}
		return name
	})

	return &DuplicateGuard{
		library:  library,
		validate: v,
		now:      time.Now,
	}
}

// CheckDuplicate compares a candidate against the merged view by title and
// against local movies only by poster
func (g *DuplicateGuard) CheckDuplicate(title, image string) models.DuplicateCheck {
	var result models.DuplicateCheck

	if key := models.TitleKey(title); key != "" {
		for _, m := range g.library.Merged() {
			if m.TitleKey() == key {
				result.TitleConflict = true
				break
			}
		}
	}

	if image != "" {
		for _, m := range g.library.Collection.All() {
			if m.PosterPath == image {
				result.ImageConflict = true
				break
			}
		}
	}

	return result
}

// LiveTitleConflict is the keystroke check used while a title is being typed.
// Titles shorter than LiveTitleMinLength never conflict.
func (g *DuplicateGuard) LiveTitleConflict(title string) bool {
	if utf8.RuneCountInString(strings.TrimSpace(title)) < LiveTitleMinLength {
		return false
	}
	return g.CheckDuplicate(title, "").TitleConflict
}

// Validate reports the first failing field in admission order
func (g *DuplicateGuard) Validate(input models.CreateMovieInput) error {
	input = trimInput(input)

	if err := g.validate.Struct(input); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
			return err
		}
		first := fieldErrs[0]
		field := first.Field()
		if i := strings.IndexByte(field, '['); i >= 0 {
			field = field[:i]
		}
		return &ValidationError{Field: field, Message: fieldMessage(field, first.Tag())}
	}

	return checkPoster(input.Image)
}

// Admit validates the input, rejects duplicates and appends the new movie.
// A *PersistenceError is returned together with the movie when it was added
// in memory but could not be saved.
func (g *DuplicateGuard) Admit(ctx context.Context, input models.CreateMovieInput) (models.Movie, error) {
	input = trimInput(input)
	if err := g.Validate(input); err != nil {
		return models.Movie{}, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	// duplicates must be checked against the stored records, not an empty stand-in
	if !g.library.Collection.Available() {
		if err := g.library.Collection.Load(ctx); err != nil {
			return models.Movie{}, fmt.Errorf("%w: %v", ErrCollectionUnavailable, err)
		}
	}

	if check := g.CheckDuplicate(input.Title, input.Image); check.Conflict() {
		return models.Movie{}, &DuplicateError{
			TitleConflict: check.TitleConflict,
			ImageConflict: check.ImageConflict,
		}
	}

	now := g.now()
	movie := models.Movie{
		ID:           g.nextID(now),
		Title:        input.Title,
		Overview:     input.Overview,
		ReleaseDate:  input.ReleaseDate,
		Runtime:      input.Runtime,
		GenreIDs:     input.GenreIDs,
		PosterPath:   input.Image,
		BackdropPath: input.Image,
		IsCustom:     true,
		CreatedAt:    now.UTC().Format(createdAtLayout),
	}
	if input.VoteAverage != nil {
		movie.VoteAverage = *input.VoteAverage
	}

	if err := g.library.Collection.Append(ctx, movie); err != nil {
		return movie, err
	}
	return movie, nil
}

// nextID derives the id from the clock in milliseconds, bumped past the
// previous id so two admissions in the same millisecond stay distinct
func (g *DuplicateGuard) nextID(now time.Time) int64 {
	id := now.UnixMilli()
	if id <= g.lastID {
		id = g.lastID + 1
	}
	g.lastID = id
	return id
}

func trimInput(input models.CreateMovieInput) models.CreateMovieInput {
	input.Title = strings.TrimSpace(input.Title)
	input.Overview = strings.TrimSpace(input.Overview)
	input.ReleaseDate = strings.TrimSpace(input.ReleaseDate)
	input.Image = strings.TrimSpace(input.Image)
	return input
}

func fieldMessage(field, tag string) string {
	msgs, ok := fieldMessages[field]
	if !ok {
		return "is invalid"
	}
	if msg, ok := msgs[tag]; ok {
		return msg
	}
	return msgs[""]
}

// checkPoster decodes a data URL or raw base64 poster and accepts PNG or
// JPEG content up to MaxPosterBytes
func checkPoster(image string) error {
	payload := image
	if strings.HasPrefix(payload, "data:") {
		i := strings.Index(payload, ",")
		if i < 0 || !strings.Contains(payload[:i], ";base64") {
			return &ValidationError{Field: posterFieldName, Message: msgPosterFormat}
		}
		payload = payload[i+1:]
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(payload)
		if err != nil {
			return &ValidationError{Field: posterFieldName, Message: msgPosterFormat}
		}
	}

	if len(data) > MaxPosterBytes {
		return &ValidationError{Field: posterFieldName, Message: msgPosterTooBig}
	}

	mtype := mimetype.Detect(data)
	if !mtype.Is("image/png") && !mtype.Is("image/jpeg") {
		return &ValidationError{Field: posterFieldName, Message: msgPosterFormat}
	}
	return nil
}
