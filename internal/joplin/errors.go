package joplin

import "errors"

// Build failures form a closed set. Callers match the exact condition with
// errors.Is instead of inspecting message text, and the set only grows when
// the note format itself grows.
var (
	// ErrMissingStartMarker means the note contains no front matter delimiter.
	ErrMissingStartMarker = errors.New("front matter start marker not found")

	// ErrMissingEndMarker means the front matter block is never closed.
	ErrMissingEndMarker = errors.New("front matter end marker not found")

	// ErrMissingFrontMatter means the located offsets do not describe a
	// usable slice of the note text.
	ErrMissingFrontMatter = errors.New("front matter slice out of range")

	// ErrMissingTitle means no title line carries a non-blank value.
	ErrMissingTitle = errors.New("title missing from front matter")

	// ErrMissingCreated means no created line carries a non-blank value.
	ErrMissingCreated = errors.New("created date missing from front matter")

	// ErrInvalidCreated means the created value is not an RFC 3339 date-time.
	ErrInvalidCreated = errors.New("created date is not a valid RFC 3339 date-time")

	// ErrMissingUpdated means no updated line carries a non-blank value.
	ErrMissingUpdated = errors.New("updated date missing from front matter")

	// ErrInvalidUpdated means the updated value is not an RFC 3339 date-time.
	ErrInvalidUpdated = errors.New("updated date is not a valid RFC 3339 date-time")
)
