package domain

import (
	"context"

	"github.com/google/uuid"
)

// RecipientRepository defines the interface for managing Recipient data.
type RecipientRepository interface {
	Create(ctx context.Context, r *Recipient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Recipient, error)
	List(ctx context.Context, offset, limit int) ([]*Recipient, error)
	Update(ctx context.Context, r *Recipient) error
	Delete(ctx context.Context, id uuid.UUID) error

	// ListByMonthDay returns non-opted-out recipients whose recurring date is md.
	ListByMonthDay(ctx context.Context, md MonthDay) ([]*Recipient, error)
	// ListByGroup returns every recipient carrying tag, opted-out included.
	ListByGroup(ctx context.Context, tag string) ([]*Recipient, error)
	// ListAll returns every recipient, opted-out included.
	ListAll(ctx context.Context) ([]*Recipient, error)
	DistinctGroupTags(ctx context.Context) ([]string, error)
}

// SendLogRepository appends and lists send log entries.
type SendLogRepository interface {
	Append(ctx context.Context, entry *SendLogEntry) error
	List(ctx context.Context, offset, limit int) ([]*SendLogView, error)
}
