package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	composerdomain "github.com/aradsms/greeting_services/internal/composer_service/domain"
	contactdomain "github.com/aradsms/greeting_services/internal/contact_service/domain"
	deliverydomain "github.com/aradsms/greeting_services/internal/delivery_service/domain"
	"github.com/aradsms/greeting_services/internal/greeting_service/domain"
)

const reasonCancelled = "batch cancelled"

// Config holds orchestrator tuning.
type Config struct {
	Workers               int           // concurrent candidates; 1 processes them strictly in order
	CallTimeout           time.Duration // per Compose or Send call
	ComposeAttempts       int
	RecurringDateLabel    string
	DeliverySentSubject   string
	BatchCompletedSubject string
}

// Orchestrator runs greeting batches: select candidates, then compose, send and log each one.
type Orchestrator struct {
	contacts  domain.ContactStore
	catalog   domain.OccasionCatalog
	composer  domain.Composer
	gateway   domain.Gateway
	publisher domain.EventPublisher
	validate  *validator.Validate
	cfg       Config
	logger    *slog.Logger

	// Serializes log appends when Workers > 1.
	logMu sync.Mutex
}

// NewOrchestrator creates an Orchestrator. publisher may be nil.
func NewOrchestrator(
	contacts domain.ContactStore,
	catalog domain.OccasionCatalog,
	composer domain.Composer,
	gateway domain.Gateway,
	publisher domain.EventPublisher,
	cfg Config,
	logger *slog.Logger,
) *Orchestrator {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.ComposeAttempts < 1 {
		cfg.ComposeAttempts = 1
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 90 * time.Second
	}
	if cfg.RecurringDateLabel == "" {
		cfg.RecurringDateLabel = domain.DefaultRecurringDateLabel
	}
	return &Orchestrator{
		contacts:  contacts,
		catalog:   catalog,
		composer:  composer,
		gateway:   gateway,
		publisher: publisher,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		cfg:       cfg,
		logger:    logger.With("component", "orchestrator"),
	}
}

// Run validates req and dispatches to the matching mode.
func (o *Orchestrator) Run(ctx context.Context, req domain.BatchRequest) (*domain.BatchSummary, error) {
	req.GroupTag = strings.TrimSpace(req.GroupTag)
	if req.Mode == domain.ModeByGroup && req.GroupTag == "" {
		return nil, domain.ErrEmptyGroup
	}
	if err := o.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}
	switch req.Mode {
	case domain.ModeByDate:
		return o.RunByDate(ctx)
	case domain.ModeByGroup:
		return o.RunByGroup(ctx, req.GroupTag, req.Occasion, req.FallbackOccasion)
	default:
		return o.RunCustom(ctx, req.Groups, req.Title, req.Message)
	}
}

// RunByDate greets every non-opted-out recipient whose recurring date is today.
func (o *Orchestrator) RunByDate(ctx context.Context) (*domain.BatchSummary, error) {
	candidates, err := o.contacts.RecipientsMatchingToday(ctx)
	if err != nil {
		batchesCounter.WithLabelValues(string(domain.ModeByDate), "error_select").Inc()
		return nil, fmt.Errorf("select recurring-date candidates: %w", err)
	}
	return o.runBatch(ctx, domain.ModeByDate, o.cfg.RecurringDateLabel, contactdomain.OccasionRecurringDate, candidates), nil
}

// RunByGroup greets every recipient of tag for one of the group's catalog occasions.
// An empty occasion picks the first catalog entry. An empty catalog uses fallback, else occasion as typed.
func (o *Orchestrator) RunByGroup(ctx context.Context, tag, occasion, fallback string) (*domain.BatchSummary, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return nil, domain.ErrEmptyGroup
	}
	label, err := o.resolveGroupOccasion(ctx, tag, strings.TrimSpace(occasion), strings.TrimSpace(fallback))
	if err != nil {
		batchesCounter.WithLabelValues(string(domain.ModeByGroup), "error_select").Inc()
		return nil, err
	}
	candidates, err := o.contacts.RecipientsInGroup(ctx, tag)
	if err != nil {
		batchesCounter.WithLabelValues(string(domain.ModeByGroup), "error_select").Inc()
		return nil, fmt.Errorf("select group candidates: %w", err)
	}
	return o.runBatch(ctx, domain.ModeByGroup, label, contactdomain.OccasionGroup, candidates), nil
}

func (o *Orchestrator) resolveGroupOccasion(ctx context.Context, tag, occasion, fallback string) (string, error) {
	names, err := o.catalog.OccasionsForGroup(ctx, tag)
	if err != nil {
		return "", fmt.Errorf("load occasions for group %q: %w", tag, err)
	}
	if len(names) == 0 {
		if fallback != "" {
			return fallback, nil
		}
		if occasion != "" {
			return occasion, nil
		}
		return "", fmt.Errorf("%w: %q", domain.ErrNoOccasion, tag)
	}
	if occasion == "" {
		return names[0], nil
	}
	for _, n := range names {
		if n == occasion {
			return n, nil
		}
	}
	return "", fmt.Errorf("%w: %q is not an occasion of %q", domain.ErrUnknownOccasion, occasion, tag)
}

// RunCustom greets all recipients, or those of groups, with a free-form occasion.
// The label is message, or title when message is empty.
func (o *Orchestrator) RunCustom(ctx context.Context, groups []string, title, message string) (*domain.BatchSummary, error) {
	label := strings.TrimSpace(message)
	if label == "" {
		label = strings.TrimSpace(title)
	}
	if label == "" {
		return nil, fmt.Errorf("%w: custom batch needs a title or message", domain.ErrNoOccasion)
	}

	candidates, err := o.customCandidates(ctx, groups)
	if err != nil {
		batchesCounter.WithLabelValues(string(domain.ModeCustom), "error_select").Inc()
		return nil, fmt.Errorf("select custom candidates: %w", err)
	}
	return o.runBatch(ctx, domain.ModeCustom, label, contactdomain.OccasionCustom, candidates), nil
}

func (o *Orchestrator) customCandidates(ctx context.Context, groups []string) ([]*contactdomain.Recipient, error) {
	if len(groups) == 0 {
		return o.contacts.AllRecipients(ctx)
	}
	seen := make(map[uuid.UUID]struct{})
	var out []*contactdomain.Recipient
	for _, g := range groups {
		g = strings.TrimSpace(g)
		if g == "" {
			continue
		}
		rs, err := o.contacts.RecipientsInGroup(ctx, g)
		if err != nil {
			return nil, err
		}
		for _, r := range rs {
			if _, dup := seen[r.ID]; dup {
				continue
			}
			seen[r.ID] = struct{}{}
			out = append(out, r)
		}
	}
	return out, nil
}

func (o *Orchestrator) runBatch(
	ctx context.Context,
	mode domain.Mode,
	label string,
	occasionType contactdomain.OccasionType,
	candidates []*contactdomain.Recipient,
) *domain.BatchSummary {
	timer := prometheus.NewTimer(batchDurationHist.WithLabelValues(string(mode)))
	defer timer.ObserveDuration()

	summary := &domain.BatchSummary{
		ID:        uuid.New(),
		Mode:      mode,
		Occasion:  label,
		Total:     len(candidates),
		Results:   make([]domain.CandidateResult, len(candidates)),
		StartedAt: time.Now().UTC(),
	}
	o.logger.InfoContext(ctx, "Batch started", "batch_id", summary.ID, "mode", mode, "occasion", label, "candidates", len(candidates))

	g := new(errgroup.Group)
	g.SetLimit(o.cfg.Workers)
	for i, r := range candidates {
		i, r := i, r
		g.Go(func() error {
			summary.Results[i] = o.processCandidate(ctx, summary.ID, mode, label, occasionType, r)
			return nil
		})
	}
	_ = g.Wait()

	for _, res := range summary.Results {
		switch res.Status {
		case domain.StatusSent:
			summary.Sent++
		case domain.StatusSkipped:
			summary.Skipped++
			if res.Reason == reasonCancelled {
				summary.Cancelled = true
			}
		default:
			summary.Failed++
		}
	}
	summary.FinishedAt = time.Now().UTC()

	status := "completed"
	if summary.Cancelled {
		status = "cancelled"
	}
	batchesCounter.WithLabelValues(string(mode), status).Inc()
	o.logger.InfoContext(ctx, "Batch finished", "batch_id", summary.ID, "mode", mode,
		"total", summary.Total, "sent", summary.Sent, "skipped", summary.Skipped, "failed", summary.Failed, "cancelled", summary.Cancelled)

	o.publish(ctx, o.cfg.BatchCompletedSubject, summary.CompletedEvent())
	return summary
}

// processCandidate never panics and never returns an error; the outcome is in the result.
func (o *Orchestrator) processCandidate(
	ctx context.Context,
	batchID uuid.UUID,
	mode domain.Mode,
	label string,
	occasionType contactdomain.OccasionType,
	r *contactdomain.Recipient,
) (res domain.CandidateResult) {
	res = domain.CandidateResult{RecipientID: r.ID, Name: r.Name, Email: r.Email}
	defer func() {
		if rec := recover(); rec != nil {
			o.logger.ErrorContext(ctx, "Recovered panic while processing candidate", "panic", rec, "recipient_id", r.ID, "batch_id", batchID)
			res.Status = domain.StatusFailed
			res.Stage = domain.StagePanic
			res.Reason = fmt.Sprint(rec)
		}
		candidatesCounter.WithLabelValues(string(mode), string(res.Status), string(res.Stage)).Inc()
	}()

	if r.OptOut {
		res.Status = domain.StatusSkipped
		res.Reason = "opted out"
		return res
	}
	if ctx.Err() != nil {
		res.Status = domain.StatusSkipped
		res.Reason = reasonCancelled
		return res
	}

	// In-flight calls finish even if the batch is cancelled.
	callCtx := context.WithoutCancel(ctx)

	bundle, err := o.compose(callCtx, r.Name, label)
	if err != nil {
		o.logger.WarnContext(ctx, "Compose failed for candidate", "error", err, "recipient_id", r.ID, "batch_id", batchID)
		return failed(res, domain.StageCompose, err)
	}
	res.Subject = bundle.Subject

	sendCtx, cancel := context.WithTimeout(callCtx, o.cfg.CallTimeout)
	receipt, err := o.gateway.Send(sendCtx, deliverydomain.Message{
		To:       r.Email,
		ToName:   r.Name,
		Subject:  bundle.Subject,
		Body:     bundle.Body,
		HTMLBody: bundle.HTMLBody,
	})
	cancel()
	if err != nil {
		o.logger.WarnContext(ctx, "Send failed for candidate", "error", err, "recipient_id", r.ID, "batch_id", batchID)
		return failed(res, domain.StageSend, err)
	}
	if receipt != nil {
		res.ProviderMessageID = receipt.ProviderMessageID
	}

	entry, err := o.appendLog(callCtx, r.ID, occasionType, bundle.Body)
	if err != nil {
		o.logger.ErrorContext(ctx, "Greeting sent but log append failed", "error", err, "recipient_id", r.ID, "batch_id", batchID)
		return failed(res, domain.StageLog, err)
	}

	res.Status = domain.StatusSent
	res.LogID = &entry.ID
	o.logger.InfoContext(ctx, "Greeting delivered", "recipient_id", r.ID, "batch_id", batchID, "occasion", label)

	o.publish(ctx, o.cfg.DeliverySentSubject, domain.DeliverySentEvent{
		BatchID:           batchID,
		RecipientID:       r.ID,
		OccasionType:      string(occasionType),
		Occasion:          label,
		ProviderMessageID: res.ProviderMessageID,
		SentAt:            entry.SentAt,
	})
	return res
}

func (o *Orchestrator) appendLog(ctx context.Context, id uuid.UUID, t contactdomain.OccasionType, body string) (*contactdomain.SendLogEntry, error) {
	o.logMu.Lock()
	defer o.logMu.Unlock()
	return o.contacts.AppendLog(ctx, id, t, body)
}

func (o *Orchestrator) compose(ctx context.Context, name, label string) (*composerdomain.MessageBundle, error) {
	var lastErr error
	for attempt := 1; attempt <= o.cfg.ComposeAttempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, o.cfg.CallTimeout)
		bundle, err := o.composer.Compose(callCtx, name, label)
		cancel()
		if err == nil {
			return bundle, nil
		}
		lastErr = err
		o.logger.DebugContext(ctx, "Compose attempt failed", "attempt", attempt, "max_attempts", o.cfg.ComposeAttempts, "error", err)
	}
	return nil, lastErr
}

func failed(res domain.CandidateResult, stage domain.Stage, err error) domain.CandidateResult {
	res.Status = domain.StatusFailed
	res.Stage = stage
	res.Reason = err.Error()
	return res
}

func (o *Orchestrator) publish(ctx context.Context, subject string, event any) {
	if o.publisher == nil || subject == "" {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		o.logger.ErrorContext(ctx, "Failed to marshal event", "error", err, "subject", subject)
		return
	}
	if err := o.publisher.Publish(context.WithoutCancel(ctx), subject, data); err != nil {
		o.logger.WarnContext(ctx, "Failed to publish event", "error", err, "subject", subject)
	}
}
