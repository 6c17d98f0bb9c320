package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/aradsms/greeting_services/internal/contact_service/domain"
	"github.com/aradsms/greeting_services/internal/platform/database"
)

const recipientColumns = `id, name, email, phone, COALESCE(birthday, ''), area, dnc, created_at, updated_at`

type PgRecipientRepository struct {
	db     database.DB
	logger *slog.Logger
}

func NewPgRecipientRepository(db database.DB, logger *slog.Logger) *PgRecipientRepository {
	return &PgRecipientRepository{db: db, logger: logger}
}

func birthdayParam(md *domain.MonthDay) *string {
	if md == nil {
		return nil
	}
	s := md.String()
	return &s
}

// scanRecipient scans one row selected with recipientColumns.
func scanRecipient(row pgx.Row) (*domain.Recipient, error) {
	r := &domain.Recipient{}
	var birthday string
	if err := row.Scan(
		&r.ID, &r.Name, &r.Email, &r.Phone, &birthday, &r.GroupTag, &r.OptOut, &r.CreatedAt, &r.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if birthday != "" {
		md, err := domain.ParseMonthDay(birthday)
		if err != nil {
			return nil, err
		}
		r.RecurringDate = &md
	}
	return r, nil
}

func (r *PgRecipientRepository) Create(ctx context.Context, rc *domain.Recipient) error {
	query := `
		INSERT INTO users (id, name, email, phone, birthday, area, dnc, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.Exec(ctx, query,
		rc.ID, rc.Name, rc.Email, rc.Phone, birthdayParam(rc.RecurringDate), rc.GroupTag, rc.OptOut, rc.CreatedAt, rc.UpdatedAt,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error creating recipient", "error", err, "recipient_id", rc.ID)
		return database.WrapStorage("create recipient", err)
	}
	r.logger.InfoContext(ctx, "Recipient created successfully", "recipient_id", rc.ID)
	return nil
}

func (r *PgRecipientRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Recipient, error) {
	query := `SELECT ` + recipientColumns + ` FROM users WHERE id = $1`
	rc, err := scanRecipient(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "Recipient not found", "recipient_id", id)
			return nil, domain.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Error getting recipient by ID", "error", err, "recipient_id", id)
		return nil, database.WrapStorage("get recipient", err)
	}
	return rc, nil
}

func (r *PgRecipientRepository) List(ctx context.Context, offset, limit int) ([]*domain.Recipient, error) {
	query := `SELECT ` + recipientColumns + ` FROM users ORDER BY name ASC, id ASC LIMIT $1 OFFSET $2`
	return r.queryRecipients(ctx, "list recipients", query, limit, offset)
}

func (r *PgRecipientRepository) Update(ctx context.Context, rc *domain.Recipient) error {
	query := `
		UPDATE users
		SET name = $1, email = $2, phone = $3, birthday = $4, area = $5, dnc = $6, updated_at = $7
		WHERE id = $8
	`
	if rc.UpdatedAt.IsZero() {
		rc.UpdatedAt = time.Now().UTC()
	}
	tag, err := r.db.Exec(ctx, query,
		rc.Name, rc.Email, rc.Phone, birthdayParam(rc.RecurringDate), rc.GroupTag, rc.OptOut, rc.UpdatedAt, rc.ID,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error updating recipient", "error", err, "recipient_id", rc.ID)
		return database.WrapStorage("update recipient", err)
	}
	if tag.RowsAffected() == 0 {
		r.logger.WarnContext(ctx, "Recipient not found for update", "recipient_id", rc.ID)
		return domain.ErrNotFound
	}
	return nil
}

func (r *PgRecipientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error deleting recipient", "error", err, "recipient_id", id)
		return database.WrapStorage("delete recipient", err)
	}
	if tag.RowsAffected() == 0 {
		r.logger.WarnContext(ctx, "Recipient not found for delete", "recipient_id", id)
		return domain.ErrNotFound
	}
	r.logger.InfoContext(ctx, "Recipient deleted successfully", "recipient_id", id)
	return nil
}

func (r *PgRecipientRepository) ListByMonthDay(ctx context.Context, md domain.MonthDay) ([]*domain.Recipient, error) {
	query := `SELECT ` + recipientColumns + ` FROM users WHERE birthday = $1 AND dnc = FALSE ORDER BY name ASC, id ASC`
	return r.queryRecipients(ctx, "list recipients by month-day", query, md.String())
}

func (r *PgRecipientRepository) ListByGroup(ctx context.Context, tag string) ([]*domain.Recipient, error) {
	query := `SELECT ` + recipientColumns + ` FROM users WHERE area = $1 ORDER BY name ASC, id ASC`
	return r.queryRecipients(ctx, "list recipients by group", query, tag)
}

func (r *PgRecipientRepository) ListAll(ctx context.Context) ([]*domain.Recipient, error) {
	query := `SELECT ` + recipientColumns + ` FROM users ORDER BY name ASC, id ASC`
	return r.queryRecipients(ctx, "list all recipients", query)
}

func (r *PgRecipientRepository) DistinctGroupTags(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT DISTINCT area FROM users WHERE area <> '' ORDER BY area ASC`)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error listing group tags", "error", err)
		return nil, database.WrapStorage("list group tags", err)
	}
	defer rows.Close()

	tags := []string{}
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			r.logger.ErrorContext(ctx, "Error scanning group tag row", "error", err)
			return nil, database.WrapStorage("list group tags", err)
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating group tag rows", "error", err)
		return nil, database.WrapStorage("list group tags", err)
	}
	return tags, nil
}

func (r *PgRecipientRepository) queryRecipients(ctx context.Context, op, query string, args ...any) ([]*domain.Recipient, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error querying recipients", "error", err, "op", op)
		return nil, database.WrapStorage(op, err)
	}
	defer rows.Close()

	recipients := []*domain.Recipient{}
	for rows.Next() {
		rc, err := scanRecipient(rows)
		if err != nil {
			r.logger.ErrorContext(ctx, "Error scanning recipient row", "error", err, "op", op)
			return nil, database.WrapStorage(op, err)
		}
		recipients = append(recipients, rc)
	}
	if err := rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating recipient rows", "error", err, "op", op)
		return nil, database.WrapStorage(op, err)
	}
	return recipients, nil
}
