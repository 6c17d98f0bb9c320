package domain

import (
	"context"

	"github.com/google/uuid"

	composerdomain "github.com/aradsms/greeting_services/internal/composer_service/domain"
	contactdomain "github.com/aradsms/greeting_services/internal/contact_service/domain"
	deliverydomain "github.com/aradsms/greeting_services/internal/delivery_service/domain"
)

// ContactStore is the part of the contact store a batch needs.
type ContactStore interface {
	RecipientsMatchingToday(ctx context.Context) ([]*contactdomain.Recipient, error)
	RecipientsInGroup(ctx context.Context, tag string) ([]*contactdomain.Recipient, error)
	AllRecipients(ctx context.Context) ([]*contactdomain.Recipient, error)
	AppendLog(ctx context.Context, recipientID uuid.UUID, occasionType contactdomain.OccasionType, body string) (*contactdomain.SendLogEntry, error)
}

// OccasionCatalog lists the occasion names attached to a group.
type OccasionCatalog interface {
	OccasionsForGroup(ctx context.Context, tag string) ([]string, error)
}

// Composer produces a greeting for one recipient.
type Composer interface {
	Compose(ctx context.Context, recipientName, occasionLabel string) (*composerdomain.MessageBundle, error)
}

// Gateway delivers one greeting.
type Gateway interface {
	Send(ctx context.Context, msg deliverydomain.Message) (*deliverydomain.SendReceipt, error)
}

// EventPublisher publishes batch events. It may be nil.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}
