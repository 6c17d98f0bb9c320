package domain

import "errors"

var (
	// ErrNoOccasion is returned when a group has no catalog occasions and no fallback was given.
	ErrNoOccasion = errors.New("no occasion available for group")
	// ErrUnknownOccasion is returned when the requested occasion is not in the group's catalog.
	ErrUnknownOccasion = errors.New("occasion not in group catalog")
	// ErrEmptyGroup is returned when a group batch names no group tag.
	ErrEmptyGroup = errors.New("group tag is required")
	// ErrInvalidRequest is returned for batch requests that fail validation.
	ErrInvalidRequest = errors.New("invalid batch request")
)
