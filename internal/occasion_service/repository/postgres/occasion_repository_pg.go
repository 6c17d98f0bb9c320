package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/aradsms/greeting_services/internal/occasion_service/domain"
	"github.com/aradsms/greeting_services/internal/platform/database"
)

type PgOccasionRepository struct {
	db     database.DB
	logger *slog.Logger
}

func NewPgOccasionRepository(db database.DB, logger *slog.Logger) *PgOccasionRepository {
	return &PgOccasionRepository{db: db, logger: logger}
}

func (r *PgOccasionRepository) Create(ctx context.Context, o *domain.Occasion) error {
	query := `INSERT INTO festivals (id, area, name, date, created_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.Exec(ctx, query, o.ID, o.GroupTag, o.Name, o.Date, o.CreatedAt); err != nil {
		r.logger.ErrorContext(ctx, "Error creating occasion", "error", err, "occasion_id", o.ID)
		return database.WrapStorage("create occasion", err)
	}
	return nil
}

// Update rewrites tag, name and date and fills o.CreatedAt from the stored row.
func (r *PgOccasionRepository) Update(ctx context.Context, o *domain.Occasion) error {
	query := `UPDATE festivals SET area = $1, name = $2, date = $3 WHERE id = $4 RETURNING created_at`
	if err := r.db.QueryRow(ctx, query, o.GroupTag, o.Name, o.Date, o.ID).Scan(&o.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "Occasion not found for update", "occasion_id", o.ID)
			return domain.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Error updating occasion", "error", err, "occasion_id", o.ID)
		return database.WrapStorage("update occasion", err)
	}
	return nil
}

func (r *PgOccasionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM festivals WHERE id = $1`, id)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error deleting occasion", "error", err, "occasion_id", id)
		return database.WrapStorage("delete occasion", err)
	}
	if tag.RowsAffected() == 0 {
		r.logger.WarnContext(ctx, "Occasion not found for delete", "occasion_id", id)
		return domain.ErrNotFound
	}
	return nil
}

func (r *PgOccasionRepository) ListByGroup(ctx context.Context, tag string) ([]*domain.Occasion, error) {
	query := `SELECT id, area, name, date, created_at FROM festivals WHERE ($1 = '' OR area = $1) ORDER BY created_at ASC, id ASC`
	rows, err := r.db.Query(ctx, query, tag)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error listing occasions", "error", err, "group_tag", tag)
		return nil, database.WrapStorage("list occasions", err)
	}
	defer rows.Close()

	occasions := []*domain.Occasion{}
	for rows.Next() {
		o := &domain.Occasion{}
		if err := rows.Scan(&o.ID, &o.GroupTag, &o.Name, &o.Date, &o.CreatedAt); err != nil {
			r.logger.ErrorContext(ctx, "Error scanning occasion row", "error", err)
			return nil, database.WrapStorage("list occasions", err)
		}
		occasions = append(occasions, o)
	}
	if err := rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating occasion rows", "error", err)
		return nil, database.WrapStorage("list occasions", err)
	}
	return occasions, nil
}
