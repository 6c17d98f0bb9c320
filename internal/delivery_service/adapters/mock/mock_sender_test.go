package mock

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aradsms/greeting_services/internal/delivery_service/domain"
)

func TestMockSender(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	msg := domain.Message{To: "ada@x.io", Subject: "Happy Birthday", Body: "Dear Ada"}

	t.Run("records sent messages", func(t *testing.T) {
		s := NewMockSender(logger, false, 0)
		receipt, err := s.Send(context.Background(), msg)
		require.NoError(t, err)
		assert.Equal(t, "mock", receipt.Provider)
		assert.NotEmpty(t, receipt.ProviderMessageID)
		assert.Equal(t, []domain.Message{msg}, s.Sent())
	})

	t.Run("simulated failure", func(t *testing.T) {
		s := NewMockSender(logger, true, 0)
		_, err := s.Send(context.Background(), msg)
		assert.ErrorIs(t, err, domain.ErrProviderRejected)
		assert.Empty(t, s.Sent())
	})

	t.Run("delay honours cancellation", func(t *testing.T) {
		s := NewMockSender(logger, false, time.Minute)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		_, err := s.Send(ctx, msg)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}
