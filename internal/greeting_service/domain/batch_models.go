package domain

import (
	"time"

	"github.com/google/uuid"
)

// Mode selects how a batch picks its recipients and occasion label.
type Mode string

const (
	ModeByDate  Mode = "by-date"
	ModeByGroup Mode = "by-group"
	ModeCustom  Mode = "custom"
)

// DefaultRecurringDateLabel is the occasion label used for recurring-date batches.
const DefaultRecurringDateLabel = "Birthday"

// BatchRequest describes one batch run. It is the payload of the batch trigger subject
// and of the HTTP batch endpoints.
type BatchRequest struct {
	Mode             Mode     `json:"mode" validate:"required,oneof=by-date by-group custom"`
	GroupTag         string   `json:"group_tag,omitempty" validate:"required_if=Mode by-group"`
	Occasion         string   `json:"occasion,omitempty"`
	FallbackOccasion string   `json:"fallback_occasion,omitempty"`
	Groups           []string `json:"groups,omitempty" validate:"omitempty,dive,required"`
	Title            string   `json:"title,omitempty"`
	Message          string   `json:"message,omitempty"`
}

// CandidateStatus is the outcome for one recipient in a batch.
type CandidateStatus string

const (
	StatusSent    CandidateStatus = "sent"
	StatusSkipped CandidateStatus = "skipped"
	StatusFailed  CandidateStatus = "failed"
)

// Stage names the step at which a candidate failed.
type Stage string

const (
	StageCompose Stage = "compose"
	StageSend    Stage = "send"
	StageLog     Stage = "log"
	StagePanic   Stage = "panic"
)

// CandidateResult records what happened to one recipient.
type CandidateResult struct {
	RecipientID       uuid.UUID       `json:"recipient_id"`
	Name              string          `json:"name"`
	Email             string          `json:"email"`
	Status            CandidateStatus `json:"status"`
	Stage             Stage           `json:"stage,omitempty"`
	Reason            string          `json:"reason,omitempty"`
	Subject           string          `json:"subject,omitempty"`
	ProviderMessageID string          `json:"provider_message_id,omitempty"`
	LogID             *uuid.UUID      `json:"log_id,omitempty"`
}

// BatchSummary is the result of one batch run.
type BatchSummary struct {
	ID         uuid.UUID         `json:"id"`
	Mode       Mode              `json:"mode"`
	Occasion   string            `json:"occasion"`
	Total      int               `json:"total"`
	Sent       int               `json:"sent"`
	Skipped    int               `json:"skipped"`
	Failed     int               `json:"failed"`
	Cancelled  bool              `json:"cancelled"`
	Results    []CandidateResult `json:"results"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
}

// DeliverySentEvent is published for every recipient that received a greeting.
type DeliverySentEvent struct {
	BatchID           uuid.UUID `json:"batch_id"`
	RecipientID       uuid.UUID `json:"recipient_id"`
	OccasionType      string    `json:"occasion_type"`
	Occasion          string    `json:"occasion"`
	ProviderMessageID string    `json:"provider_message_id,omitempty"`
	SentAt            time.Time `json:"sent_at"`
}

// BatchCompletedEvent is published once per finished batch.
type BatchCompletedEvent struct {
	BatchID    uuid.UUID `json:"batch_id"`
	Mode       Mode      `json:"mode"`
	Occasion   string    `json:"occasion"`
	Total      int       `json:"total"`
	Sent       int       `json:"sent"`
	Skipped    int       `json:"skipped"`
	Failed     int       `json:"failed"`
	Cancelled  bool      `json:"cancelled"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// CompletedEvent returns the event form of s.
func (s *BatchSummary) CompletedEvent() BatchCompletedEvent {
	return BatchCompletedEvent{
		BatchID:    s.ID,
		Mode:       s.Mode,
		Occasion:   s.Occasion,
		Total:      s.Total,
		Sent:       s.Sent,
		Skipped:    s.Skipped,
		Failed:     s.Failed,
		Cancelled:  s.Cancelled,
		StartedAt:  s.StartedAt,
		FinishedAt: s.FinishedAt,
	}
}
