package domain

import "errors"

var (
	// ErrNotFound indicates that a requested occasion was not found.
	ErrNotFound = errors.New("occasion not found")
	// ErrInvalidOccasion indicates an empty group tag or name.
	ErrInvalidOccasion = errors.New("invalid occasion")
)
