package mock

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aradsms/greeting_services/internal/delivery_service/domain"
)

var _ domain.Sender = (*MockSender)(nil)

// MockSender records messages instead of delivering them.
type MockSender struct {
	logger         *slog.Logger
	FailSend       bool          // every Send fails
	SimulatedDelay time.Duration // to simulate network latency

	mu   sync.Mutex
	sent []domain.Message
}

// NewMockSender creates a new MockSender.
func NewMockSender(logger *slog.Logger, failSend bool, delay time.Duration) *MockSender {
	return &MockSender{
		logger:         logger.With("provider", "mock"),
		FailSend:       failSend,
		SimulatedDelay: delay,
	}
}

// Send simulates delivering msg.
func (s *MockSender) Send(ctx context.Context, msg domain.Message) (*domain.SendReceipt, error) {
	s.logger.InfoContext(ctx, "MockSender: Send called", "to", msg.To, "subject", msg.Subject, "body_length", len(msg.Body))

	if s.SimulatedDelay > 0 {
		select {
		case <-time.After(s.SimulatedDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if s.FailSend {
		s.logger.WarnContext(ctx, "mock sender simulated send failure", "to", msg.To)
		return nil, fmt.Errorf("%w: mock sender simulated failure", domain.ErrProviderRejected)
	}

	s.mu.Lock()
	s.sent = append(s.sent, msg)
	s.mu.Unlock()

	return &domain.SendReceipt{
		Provider:          s.GetName(),
		ProviderMessageID: "mock-" + uuid.NewString(),
		AcceptedAt:        time.Now().UTC(),
	}, nil
}

// Sent returns a copy of every message accepted so far.
func (s *MockSender) Sent() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Message, len(s.sent))
	copy(out, s.sent)
	return out
}

func (s *MockSender) GetName() string {
	return "mock"
}
