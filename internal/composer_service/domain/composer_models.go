package domain

import (
	"context"
	"errors"
	"fmt"
)

// ShortBodySoftLimit is the advisory length for ShortBody, in characters.
const ShortBodySoftLimit = 160

// MessageBundle is one generated greeting. Either every field is set or no bundle exists.
type MessageBundle struct {
	Subject   string `json:"subject" validate:"required"`
	Body      string `json:"email" validate:"required"`
	ShortBody string `json:"sms" validate:"required"`
	HTMLBody  string `json:"html_card" validate:"required"`
}

// TextGenerator sends one prompt to an external text-generation service and returns its raw reply.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	GetName() string
}

var (
	ErrGeneratorUnavailable = errors.New("text generator unavailable")
	ErrMalformedOutput      = errors.New("generator output is not a JSON object")
	ErrIncompleteBundle     = errors.New("generator output is missing greeting fields")
)

// CompositionError reports a failed greeting generation. Raw holds whatever the generator returned.
type CompositionError struct {
	Raw string
	Err error
}

func (e *CompositionError) Error() string {
	return fmt.Sprintf("composition failed: %v", e.Err)
}

func (e *CompositionError) Unwrap() error { return e.Err }
