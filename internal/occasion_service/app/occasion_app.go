package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aradsms/greeting_services/internal/occasion_service/domain"
)

// Application is the occasion catalog.
type Application struct {
	repo   domain.OccasionRepository
	logger *slog.Logger
}

// NewApplication creates a new Application instance.
func NewApplication(repo domain.OccasionRepository, logger *slog.Logger) *Application {
	return &Application{repo: repo, logger: logger}
}

func validate(tag, name string) (string, string, error) {
	tag = strings.TrimSpace(tag)
	name = strings.TrimSpace(name)
	if tag == "" {
		return "", "", fmt.Errorf("%w: group tag is required", domain.ErrInvalidOccasion)
	}
	if name == "" {
		return "", "", fmt.Errorf("%w: name is required", domain.ErrInvalidOccasion)
	}
	return tag, name, nil
}

// OccasionsForGroup returns the occasion names attached to tag, possibly empty.
func (a *Application) OccasionsForGroup(ctx context.Context, tag string) ([]string, error) {
	occasions, err := a.repo.ListByGroup(ctx, strings.TrimSpace(tag))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(occasions))
	for _, o := range occasions {
		names = append(names, o.Name)
	}
	return names, nil
}

// ListOccasions returns full occasion records for tag, or all of them when tag is empty.
func (a *Application) ListOccasions(ctx context.Context, tag string) ([]*domain.Occasion, error) {
	occasions, err := a.repo.ListByGroup(ctx, strings.TrimSpace(tag))
	if err != nil {
		return nil, err
	}
	if occasions == nil {
		occasions = []*domain.Occasion{}
	}
	return occasions, nil
}

// AddOccasion stores a new occasion. Duplicates are not rejected.
func (a *Application) AddOccasion(ctx context.Context, tag, name string, date *time.Time) (*domain.Occasion, error) {
	tag, name, err := validate(tag, name)
	if err != nil {
		return nil, err
	}
	o := &domain.Occasion{
		ID:        uuid.New(),
		GroupTag:  tag,
		Name:      name,
		Date:      date,
		CreatedAt: time.Now().UTC(),
	}
	if err := a.repo.Create(ctx, o); err != nil {
		a.logger.ErrorContext(ctx, "Failed to add occasion", "error", err, "group_tag", tag, "name", name)
		return nil, err
	}
	a.logger.InfoContext(ctx, "Occasion added", "occasion_id", o.ID, "group_tag", tag, "name", name)
	return o, nil
}

// UpdateOccasion replaces tag, name and date of an existing occasion and returns the stored record.
func (a *Application) UpdateOccasion(ctx context.Context, id uuid.UUID, tag, name string, date *time.Time) (*domain.Occasion, error) {
	tag, name, err := validate(tag, name)
	if err != nil {
		return nil, err
	}
	o := &domain.Occasion{ID: id, GroupTag: tag, Name: name, Date: date}
	if err := a.repo.Update(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// DeleteOccasion removes an occasion by ID.
func (a *Application) DeleteOccasion(ctx context.Context, id uuid.UUID) error {
	return a.repo.Delete(ctx, id)
}
