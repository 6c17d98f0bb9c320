package app

import (
	"context"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/aradsms/greeting_services/internal/composer_service/domain"
)

// Composer asks a TextGenerator for a greeting and decodes the reply. It does not retry.
type Composer struct {
	generator       domain.TextGenerator
	senderSignature string
	validate        *validator.Validate
	logger          *slog.Logger
}

// NewComposer creates a Composer. senderSignature is embedded in every prompt.
func NewComposer(generator domain.TextGenerator, senderSignature string, logger *slog.Logger) *Composer {
	return &Composer{
		generator:       generator,
		senderSignature: senderSignature,
		validate:        validator.New(validator.WithRequiredStructEnabled()),
		logger:          logger.With("component", "composer"),
	}
}

// Compose generates a complete MessageBundle for recipientName and occasionLabel.
// Any failure is returned as *domain.CompositionError.
func (c *Composer) Compose(ctx context.Context, recipientName, occasionLabel string) (*domain.MessageBundle, error) {
	name := c.generator.GetName()
	prompt := BuildPrompt(recipientName, occasionLabel, c.senderSignature)

	timer := prometheus.NewTimer(generatorRequestDurationHist.WithLabelValues(name))
	raw, err := c.generator.Generate(ctx, prompt)
	timer.ObserveDuration()
	if err != nil {
		compositionsCounter.WithLabelValues(name, "error_generator").Inc()
		c.logger.WarnContext(ctx, "Text generator request failed", "error", err, "recipient", recipientName, "occasion", occasionLabel)
		return nil, &domain.CompositionError{Raw: raw, Err: fmt.Errorf("%w: %w", domain.ErrGeneratorUnavailable, err)}
	}

	bundle, err := DecodeBundle(raw, c.validate)
	if err != nil {
		compositionsCounter.WithLabelValues(name, "error_output").Inc()
		c.logger.WarnContext(ctx, "Generator reply rejected", "error", err, "recipient", recipientName, "raw_len", len(raw))
		return nil, err
	}

	if n := utf8.RuneCountInString(bundle.ShortBody); n > domain.ShortBodySoftLimit {
		shortBodyOverLimitCounter.Inc()
		c.logger.WarnContext(ctx, "Generated SMS body exceeds advisory length", "length", n, "limit", domain.ShortBodySoftLimit, "recipient", recipientName)
	}

	compositionsCounter.WithLabelValues(name, "success").Inc()
	c.logger.InfoContext(ctx, "Greeting composed", "recipient", recipientName, "occasion", occasionLabel)
	return bundle, nil
}
