package content

import (
	"errors"

	"github.com/eringen/dossier/store"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrFeatureUnavailable is matched by every *FeatureUnavailableError.
	ErrFeatureUnavailable = errors.New("feature unavailable")
	// ErrInvalidInput is returned when a write fails validation.
	ErrInvalidInput = errors.New("invalid input")
)

// FeatureUnavailableError means an optional schema element is missing.
// Message is meant for the user; Guidance names the migration to run.
type FeatureUnavailableError struct {
	Feature  store.Feature
	Message  string
	Guidance string
}

func (e *FeatureUnavailableError) Error() string {
	return e.Message
}

func (e *FeatureUnavailableError) Is(target error) bool {
	return target == ErrFeatureUnavailable
}

// StoreError wraps any store failure the layer does not recover from.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Code returns the store error code, if any.
func (e *StoreError) Code() string {
	return store.CodeOf(e.Err)
}

func archiveUnavailable() *FeatureUnavailableError {
	return &FeatureUnavailableError{
		Feature:  store.FeatureArchive,
		Message:  "Archive feature not available. Please add the is_archived column to the database.",
		Guidance: "dossier migrate --feature archive",
	}
}

// keyed operations address one row by its key, so an empty result means the
// row does not exist. Anywhere else an empty result is a store failure.
var keyed = map[operation]bool{
	opGetPost:          true,
	opUpdatePost:       true,
	opArchivePost:      true,
	opDeletePost:       true,
	opGetTimelineEntry: true,
	opUpdateTimeline:   true,
	opDeleteTimeline:   true,
	opProfile:          true,
	opCompany:          true,
}

func wrap(op operation, err error) error {
	if err == nil {
		return nil
	}
	if keyed[op] && store.HasCode(err, store.CodeNoRows) {
		return ErrNotFound
	}
	var se *StoreError
	if errors.As(err, &se) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrFeatureUnavailable) || errors.Is(err, ErrInvalidInput) {
		return err
	}
	return &StoreError{Op: string(op), Err: err}
}
