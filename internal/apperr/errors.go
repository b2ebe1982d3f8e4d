// Package apperr holds error values shared across application layers.
package apperr

import "errors"

// ErrNotFound signals a lookup miss; the API layer maps it to 404.
var ErrNotFound = errors.New("not found")
