package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aradsms/greeting_services/internal/delivery_service/domain"
)

// Router is the delivery gateway: it hands every message to the configured Sender.
type Router struct {
	active domain.Sender
	logger *slog.Logger
}

// NewRouter selects providerName from senders. Unknown names are a configuration error.
func NewRouter(providerName string, senders map[string]domain.Sender, logger *slog.Logger) (*Router, error) {
	name := strings.ToLower(strings.TrimSpace(providerName))
	active, ok := senders[name]
	if !ok || active == nil {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownProvider, providerName)
	}
	return &Router{
		active: active,
		logger: logger.With("component", "delivery_router"),
	}, nil
}

// Send delivers msg through the active provider. Every failure, including a panic inside
// the provider, comes back as *domain.DeliveryError.
func (r *Router) Send(ctx context.Context, msg domain.Message) (receipt *domain.SendReceipt, err error) {
	name := r.active.GetName()

	defer func() {
		if rec := recover(); rec != nil {
			deliverySendsCounter.WithLabelValues(name, "panic").Inc()
			r.logger.ErrorContext(ctx, "Delivery provider panicked", "panic", rec, "to", msg.To)
			receipt = nil
			err = &domain.DeliveryError{Provider: name, To: msg.To, Err: fmt.Errorf("provider panic: %v", rec)}
		}
	}()

	if vErr := msg.ValidateRecipient(); vErr != nil {
		deliverySendsCounter.WithLabelValues(name, "error_address").Inc()
		return nil, &domain.DeliveryError{Provider: name, To: msg.To, Err: vErr}
	}

	timer := prometheus.NewTimer(deliveryProviderRequestDurationHist.WithLabelValues(name))
	receipt, err = r.active.Send(ctx, msg)
	timer.ObserveDuration()

	if err != nil {
		deliverySendsCounter.WithLabelValues(name, "error_provider").Inc()
		r.logger.WarnContext(ctx, "Email delivery failed", "error", err, "to", msg.To)
		var de *domain.DeliveryError
		if errors.As(err, &de) {
			return nil, de
		}
		return nil, &domain.DeliveryError{Provider: name, To: msg.To, Err: err}
	}

	deliverySendsCounter.WithLabelValues(name, "success").Inc()
	return receipt, nil
}

// GetName returns the active provider's name.
func (r *Router) GetName() string {
	return r.active.GetName()
}
