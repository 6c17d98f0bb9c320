package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Occasion is a named event attached to a group tag. Date is informational only.
type Occasion struct {
	ID        uuid.UUID  `json:"id"`
	GroupTag  string     `json:"group_tag"`
	Name      string     `json:"name"`
	Date      *time.Time `json:"date,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// OccasionRepository defines the interface for managing Occasion data.
// Duplicate (group tag, name) pairs are allowed.
type OccasionRepository interface {
	Create(ctx context.Context, o *Occasion) error
	// Update fills o.CreatedAt from the stored row.
	Update(ctx context.Context, o *Occasion) error
	Delete(ctx context.Context, id uuid.UUID) error
	// ListByGroup returns occasions for tag in insertion order; an empty tag lists everything.
	ListByGroup(ctx context.Context, tag string) ([]*Occasion, error)
}
