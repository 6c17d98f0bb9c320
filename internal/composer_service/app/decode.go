package app

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/aradsms/greeting_services/internal/composer_service/domain"
)

// DecodeBundle turns a raw generator reply into a validated MessageBundle.
// Prose and code fences around the payload are skipped: every '{' in raw is tried
// as the start of an object and the first one that decodes and validates wins.
// It never returns a partially populated bundle.
func DecodeBundle(raw string, validate *validator.Validate) (*domain.MessageBundle, error) {
	var decodeErr, validateErr error
	for i := strings.IndexByte(raw, '{'); i >= 0; {
		b, err := decodeAt(raw[i:])
		if err != nil {
			if decodeErr == nil {
				decodeErr = err
			}
		} else if err := validate.Struct(b); err != nil {
			if validateErr == nil {
				validateErr = err
			}
		} else {
			return b, nil
		}

		next := strings.IndexByte(raw[i+1:], '{')
		if next < 0 {
			break
		}
		i += next + 1
	}

	switch {
	case validateErr != nil:
		return nil, &domain.CompositionError{Raw: raw, Err: fmt.Errorf("%w: %v", domain.ErrIncompleteBundle, validateErr)}
	case decodeErr != nil:
		return nil, &domain.CompositionError{Raw: raw, Err: fmt.Errorf("%w: %v", domain.ErrMalformedOutput, decodeErr)}
	default:
		return nil, &domain.CompositionError{Raw: raw, Err: domain.ErrMalformedOutput}
	}
}

// decodeAt reads one JSON object from the start of s; trailing text is ignored.
func decodeAt(s string) (*domain.MessageBundle, error) {
	var b domain.MessageBundle
	if err := json.NewDecoder(strings.NewReader(s)).Decode(&b); err != nil {
		return nil, err
	}
	b.Subject = strings.TrimSpace(b.Subject)
	b.Body = strings.TrimSpace(b.Body)
	b.ShortBody = strings.TrimSpace(b.ShortBody)
	b.HTMLBody = strings.TrimSpace(b.HTMLBody)
	return &b, nil
}
