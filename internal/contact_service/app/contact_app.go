package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aradsms/greeting_services/internal/contact_service/domain"
)

// Clock returns the current time. Tests inject a fixed one.
type Clock func() time.Time

// Option configures an Application.
type Option func(*Application)

// WithClock overrides the clock used for date matching and log timestamps.
func WithClock(c Clock) Option {
	return func(a *Application) { a.clock = c }
}

// Application is the contact store: recipients, group tags and the send log.
type Application struct {
	recipientRepo domain.RecipientRepository
	logRepo       domain.SendLogRepository
	logger        *slog.Logger
	clock         Clock

	logMu      sync.Mutex
	lastSentAt time.Time
}

// NewApplication creates a new Application instance.
func NewApplication(
	rRepo domain.RecipientRepository,
	lRepo domain.SendLogRepository,
	logger *slog.Logger,
	opts ...Option,
) *Application {
	a := &Application{
		recipientRepo: rRepo,
		logRepo:       lRepo,
		logger:        logger,
		clock:         time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Now returns the store clock's current time.
func (a *Application) Now() time.Time {
	return a.clock()
}

// RecipientInput carries user-supplied recipient fields.
type RecipientInput struct {
	Name          string
	Email         string
	Phone         string
	RecurringDate string // MM-DD or YYYY-MM-DD, empty for none
	GroupTag      string
	OptOut        bool
}

func (in RecipientInput) normalize() (RecipientInput, *domain.MonthDay, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.GroupTag = strings.TrimSpace(in.GroupTag)

	if in.Name == "" {
		return in, nil, fmt.Errorf("%w: name is required", domain.ErrInvalidRecipient)
	}
	if in.Email == "" {
		return in, nil, fmt.Errorf("%w: email is required", domain.ErrInvalidRecipient)
	}
	addr, err := mail.ParseAddress(in.Email)
	if err != nil {
		return in, nil, fmt.Errorf("%w: email %q: %v", domain.ErrInvalidRecipient, in.Email, err)
	}
	// Display-name forms like "Ada <ada@x.io>" are reduced to the bare address.
	in.Email = addr.Address

	var md *domain.MonthDay
	if strings.TrimSpace(in.RecurringDate) != "" {
		parsed, err := domain.ParseMonthDay(in.RecurringDate)
		if err != nil {
			return in, nil, fmt.Errorf("%w: %v", domain.ErrInvalidRecipient, err)
		}
		md = &parsed
	}
	return in, md, nil
}

// --- Recipient CRUD ---

// CreateRecipient validates input and stores a new recipient with a fresh ID.
func (a *Application) CreateRecipient(ctx context.Context, in RecipientInput) (*domain.Recipient, error) {
	in, md, err := in.normalize()
	if err != nil {
		return nil, err
	}
	r := domain.NewRecipient(uuid.New(), in.Name, in.Email, in.Phone, md, in.GroupTag, in.OptOut)
	if err := a.recipientRepo.Create(ctx, r); err != nil {
		a.logger.ErrorContext(ctx, "Failed to create recipient in app layer", "error", err, "name", in.Name)
		return nil, err
	}
	a.logger.InfoContext(ctx, "Recipient created in app layer", "recipient_id", r.ID)
	return r, nil
}

// GetRecipient retrieves a recipient by ID.
func (a *Application) GetRecipient(ctx context.Context, id uuid.UUID) (*domain.Recipient, error) {
	return a.recipientRepo.GetByID(ctx, id)
}

// ListRecipients returns a page of recipients ordered by name.
func (a *Application) ListRecipients(ctx context.Context, offset, limit int) ([]*domain.Recipient, error) {
	recipients, err := a.recipientRepo.List(ctx, offset, limit)
	if err != nil {
		return nil, err
	}
	return nonNil(recipients), nil
}

// UpdateRecipient replaces the mutable fields of an existing recipient. The ID never changes.
func (a *Application) UpdateRecipient(ctx context.Context, id uuid.UUID, in RecipientInput) (*domain.Recipient, error) {
	in, md, err := in.normalize()
	if err != nil {
		return nil, err
	}
	r, err := a.recipientRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	r.Name = in.Name
	r.Email = in.Email
	r.Phone = in.Phone
	r.RecurringDate = md
	r.GroupTag = in.GroupTag
	r.OptOut = in.OptOut
	r.UpdatedAt = a.clock().UTC()

	if err := a.recipientRepo.Update(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// DeleteRecipient removes a recipient. Existing log entries are kept.
func (a *Application) DeleteRecipient(ctx context.Context, id uuid.UUID) error {
	return a.recipientRepo.Delete(ctx, id)
}

// --- Candidate selection ---

// RecipientsMatchingToday returns non-opted-out recipients whose recurring date is today's month-day.
func (a *Application) RecipientsMatchingToday(ctx context.Context) ([]*domain.Recipient, error) {
	return a.RecipientsMatchingOn(ctx, a.clock())
}

// RecipientsMatchingOn is RecipientsMatchingToday evaluated as if today were day.
func (a *Application) RecipientsMatchingOn(ctx context.Context, day time.Time) ([]*domain.Recipient, error) {
	md := domain.MonthDayOf(day)
	recipients, err := a.recipientRepo.ListByMonthDay(ctx, md)
	if err != nil {
		return nil, err
	}

	// The repository already filters; this guards against a store that does not.
	out := make([]*domain.Recipient, 0, len(recipients))
	for _, r := range recipients {
		if r.OptOut || r.RecurringDate == nil || !r.RecurringDate.Matches(day) {
			continue
		}
		out = append(out, r)
	}
	a.logger.DebugContext(ctx, "Recipients matching month-day", "month_day", md.String(), "count", len(out))
	return out, nil
}

// RecipientsInGroup returns all recipients carrying tag, including opted-out ones.
func (a *Application) RecipientsInGroup(ctx context.Context, tag string) ([]*domain.Recipient, error) {
	recipients, err := a.recipientRepo.ListByGroup(ctx, strings.TrimSpace(tag))
	if err != nil {
		return nil, err
	}
	return nonNil(recipients), nil
}

// AllRecipients returns every recipient, including opted-out ones.
func (a *Application) AllRecipients(ctx context.Context) ([]*domain.Recipient, error) {
	recipients, err := a.recipientRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return nonNil(recipients), nil
}

// DistinctGroupTags returns the sorted set of non-empty group tags.
func (a *Application) DistinctGroupTags(ctx context.Context) ([]string, error) {
	tags, err := a.recipientRepo.DistinctGroupTags(ctx)
	if err != nil {
		return nil, err
	}
	if tags == nil {
		tags = []string{}
	}
	return tags, nil
}

// --- Send log ---

// AppendLog records a delivered greeting. SentAt never goes backwards within the process,
// even if the clock does.
func (a *Application) AppendLog(ctx context.Context, recipientID uuid.UUID, occasionType domain.OccasionType, body string) (*domain.SendLogEntry, error) {
	if _, err := domain.ParseOccasionType(string(occasionType)); err != nil {
		return nil, err
	}

	a.logMu.Lock()
	defer a.logMu.Unlock()

	sentAt := a.clock().UTC()
	if sentAt.Before(a.lastSentAt) {
		sentAt = a.lastSentAt
	}

	entry := &domain.SendLogEntry{
		ID:           uuid.New(),
		RecipientID:  recipientID,
		OccasionType: occasionType,
		Message:      body,
		SentAt:       sentAt,
	}
	if err := a.logRepo.Append(ctx, entry); err != nil {
		a.logger.ErrorContext(ctx, "Failed to append send log entry", "error", err, "recipient_id", recipientID)
		return nil, err
	}
	a.lastSentAt = sentAt
	return entry, nil
}

// ListLogs returns a page of log entries, newest first.
func (a *Application) ListLogs(ctx context.Context, offset, limit int) ([]*domain.SendLogView, error) {
	logs, err := a.logRepo.List(ctx, offset, limit)
	if err != nil {
		return nil, err
	}
	if logs == nil {
		logs = []*domain.SendLogView{}
	}
	return logs, nil
}

func nonNil(rs []*domain.Recipient) []*domain.Recipient {
	if rs == nil {
		return []*domain.Recipient{}
	}
	return rs
}
