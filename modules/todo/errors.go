package todo

import "errors"

// Validation and lookup errors returned by the service and stores.
var (
	ErrTitleRequired     = errors.New("title is required")
	ErrTitleTooLong      = errors.New("title exceeds maximum length")
	ErrInvalidID         = errors.New("invalid todo id")
	ErrCompletedRequired = errors.New("completed must be a boolean")
	ErrNotFound          = errors.New("todo not found")
)
