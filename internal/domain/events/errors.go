package events

import "errors"

var (
	ErrNotFound = errors.New("event not found")
	// ErrForbidden means the caller is not the owning organizer.
	ErrForbidden = errors.New("event belongs to another organizer")
	// ErrAlreadyPublished guards mutations that are only valid pre-publish.
	ErrAlreadyPublished = errors.New("event is already published")
	// ErrIncomplete is returned by Publish when the banner or ticketing
	// stage has not been completed yet.
	ErrIncomplete = errors.New("event must have a banner and ticketing before publishing")
)

// ValidationError wraps input validation failures so handlers can map them
// to 400 without inspecting validator internals.
type ValidationError struct{ Err error }

func (e ValidationError) Error() string { return e.Err.Error() }
func (e ValidationError) Unwrap() error { return e.Err }
