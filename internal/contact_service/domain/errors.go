package domain

import "errors"

var (
	// ErrNotFound indicates that a requested recipient was not found.
	ErrNotFound = errors.New("recipient not found")
	// ErrInvalidRecipient indicates missing or malformed recipient fields.
	ErrInvalidRecipient = errors.New("invalid recipient")
	// ErrInvalidOccasionType is returned when a log entry names an unknown occasion type.
	ErrInvalidOccasionType = errors.New("invalid occasion type")
	// ErrInvalidMonthDay is returned for dates that are neither MM-DD nor YYYY-MM-DD.
	ErrInvalidMonthDay = errors.New("invalid month-day")
)
