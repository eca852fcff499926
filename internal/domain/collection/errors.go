package collection

import "errors"

var (
	// ErrNotFound indicates the collection, dataset or approval doesn't exist.
	ErrNotFound = errors.New("collection not found")
	// ErrInvalidTransition indicates the target state is not a successor of the current state.
	ErrInvalidTransition = errors.New("invalid collection state transition")
	// ErrPreconditionNotMet indicates the collection is not ready for the requested transition.
	ErrPreconditionNotMet = errors.New("collection precondition not met")
	// ErrImmutableState indicates the field is frozen in the current state.
	ErrImmutableState = errors.New("collection is immutable in current state")
	// ErrAlreadyExists indicates a collection with the requested id exists.
	ErrAlreadyExists = errors.New("collection already exists")
	// ErrValidation indicates invalid collection input.
	ErrValidation = errors.New("invalid collection input")
	// ErrDependency indicates a collaborator (store, notifier) failed.
	ErrDependency = errors.New("collection dependency failed")
)
