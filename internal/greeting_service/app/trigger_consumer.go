package app

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/aradsms/greeting_services/internal/greeting_service/domain"
)

// BatchRunner runs any batch request.
type BatchRunner interface {
	Run(ctx context.Context, req domain.BatchRequest) (*domain.BatchSummary, error)
}

// QueueSubscriber is the part of the NATS client the consumer needs.
type QueueSubscriber interface {
	SubscribeToSubjectWithQueue(ctx context.Context, subject, queueGroup string, handler func(msg *nats.Msg)) error
}

// TriggerConsumer runs batches requested over NATS.
type TriggerConsumer struct {
	natsClient QueueSubscriber
	runner     BatchRunner
	logger     *slog.Logger
}

// NewTriggerConsumer creates a new TriggerConsumer.
func NewTriggerConsumer(natsClient QueueSubscriber, runner BatchRunner, logger *slog.Logger) *TriggerConsumer {
	return &TriggerConsumer{
		natsClient: natsClient,
		runner:     runner,
		logger:     logger.With("component", "trigger_consumer"),
	}
}

type triggerReply struct {
	Summary *domain.BatchSummary `json:"summary,omitempty"`
	Error   string               `json:"error,omitempty"`
}

// HandleMessage decodes one batch request, runs it and replies when the message asks for it.
func (c *TriggerConsumer) HandleMessage(ctx context.Context, msg *nats.Msg) {
	c.logger.InfoContext(ctx, "Received batch trigger", "subject", msg.Subject, "data_len", len(msg.Data))

	var req domain.BatchRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		c.logger.ErrorContext(ctx, "Failed to deserialize batch trigger", "error", err, "data", string(msg.Data))
		c.reply(ctx, msg, triggerReply{Error: "invalid payload: " + err.Error()})
		return
	}

	summary, err := c.runner.Run(ctx, req)
	if err != nil {
		c.logger.ErrorContext(ctx, "Triggered batch failed", "error", err, "mode", req.Mode)
		c.reply(ctx, msg, triggerReply{Error: err.Error()})
		return
	}
	c.reply(ctx, msg, triggerReply{Summary: summary})
}

func (c *TriggerConsumer) reply(ctx context.Context, msg *nats.Msg, r triggerReply) {
	if msg.Reply == "" {
		return
	}
	data, err := json.Marshal(r)
	if err != nil {
		c.logger.ErrorContext(ctx, "Failed to marshal trigger reply", "error", err)
		return
	}
	if err := msg.Respond(data); err != nil {
		c.logger.WarnContext(ctx, "Failed to respond to batch trigger", "error", err, "reply", msg.Reply)
	}
}

// StartConsuming subscribes to subject in queueGroup and blocks until ctx is cancelled.
func (c *TriggerConsumer) StartConsuming(ctx context.Context, subject, queueGroup string) error {
	c.logger.InfoContext(ctx, "Starting NATS batch trigger subscription", "subject", subject, "queue_group", queueGroup)
	err := c.natsClient.SubscribeToSubjectWithQueue(ctx, subject, queueGroup, func(msg *nats.Msg) {
		c.HandleMessage(ctx, msg)
	})
	if err != nil {
		c.logger.ErrorContext(ctx, "NATS batch trigger subscription failed", "error", err, "subject", subject)
		return err
	}
	c.logger.InfoContext(ctx, "NATS batch trigger subscription ended", "subject", subject)
	return nil
}
