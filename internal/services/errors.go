package services

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a movie id exists in neither collection
	ErrNotFound = errors.New("movie not found")

	// ErrStaleResponse is returned when a newer search superseded the current one
	ErrStaleResponse = errors.New("stale response discarded")

	// ErrCollectionUnavailable is returned when the stored collection cannot be
	// read, so a write would overwrite records it never saw
	ErrCollectionUnavailable = errors.New("local collection unavailable")
)

// ValidationError reports a missing or invalid admission field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// DuplicateError reports which admission conflicts blocked a new movie
type DuplicateError struct {
	TitleConflict bool
	ImageConflict bool
}

func (e *DuplicateError) Error() string {
	switch {
	case e.TitleConflict && e.ImageConflict:
		return "a movie with this title and poster already exists"
	case e.TitleConflict:
		return "a movie with this title already exists"
	default:
		return "a movie with this poster already exists"
	}
}

// FetchError wraps a failed catalog API call
type FetchError struct {
	Op  string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// PersistenceError reports that the local collection could not be saved.
// The in-memory collection already contains the new record.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to save collection: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
