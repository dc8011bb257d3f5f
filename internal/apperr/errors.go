// Package apperr holds the sentinel errors shared across layers.
package apperr

import "errors"

var (
	ErrNotFound               = errors.New("not found")
	ErrEmptyTopic             = errors.New("topic is required")
	ErrMalformedResponse      = errors.New("malformed response")
	ErrInvalidCourseStructure = errors.New("invalid course structure")
	ErrStoreUnavailable       = errors.New("store unavailable")
	ErrQuotaExhausted         = errors.New("quota exhausted")
	ErrSearchUnavailable      = errors.New("video search unavailable")
)
