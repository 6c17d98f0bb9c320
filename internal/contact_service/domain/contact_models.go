package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Recipient is a person who may receive greetings.
type Recipient struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone,omitempty"`
	RecurringDate *MonthDay `json:"recurring_date,omitempty"`
	GroupTag      string    `json:"group_tag,omitempty"`
	OptOut        bool      `json:"opt_out"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewRecipient creates a new Recipient instance.
// ID is typically generated before calling this.
func NewRecipient(id uuid.UUID, name, email, phone string, recurringDate *MonthDay, groupTag string, optOut bool) *Recipient {
	now := time.Now().UTC()
	return &Recipient{
		ID:            id,
		Name:          name,
		Email:         email,
		Phone:         phone,
		RecurringDate: recurringDate,
		GroupTag:      groupTag,
		OptOut:        optOut,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// OccasionType classifies a log entry.
type OccasionType string

const (
	OccasionRecurringDate OccasionType = "recurring-date"
	OccasionGroup         OccasionType = "group-occasion"
	OccasionCustom        OccasionType = "custom"
)

// ParseOccasionType validates s against the known occasion types.
func ParseOccasionType(s string) (OccasionType, error) {
	switch t := OccasionType(s); t {
	case OccasionRecurringDate, OccasionGroup, OccasionCustom:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidOccasionType, s)
	}
}

// SendLogEntry records one delivered greeting. Entries are append-only.
type SendLogEntry struct {
	ID           uuid.UUID    `json:"id"`
	RecipientID  uuid.UUID    `json:"recipient_id"`
	OccasionType OccasionType `json:"occasion_type"`
	Message      string       `json:"message"`
	SentAt       time.Time    `json:"sent_at"`
}

// SendLogView is a log entry joined with the recipient it mentions.
// RecipientName and RecipientEmail are empty when the recipient no longer exists.
type SendLogView struct {
	SendLogEntry
	RecipientName  string `json:"recipient_name"`
	RecipientEmail string `json:"recipient_email"`
}
