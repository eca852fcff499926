package notification

import "errors"

var (
	// ErrNotFound indicates the notification doesn't exist.
	ErrNotFound = errors.New("notification not found")
	// ErrValidation indicates invalid notification input.
	ErrValidation = errors.New("invalid notification input")
	// ErrDependency indicates the store or publisher failed.
	ErrDependency = errors.New("notification dependency failed")
)
