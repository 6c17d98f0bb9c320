package postgres

import (
	"context"
	"log/slog"

	"github.com/aradsms/greeting_services/internal/contact_service/domain"
	"github.com/aradsms/greeting_services/internal/platform/database"
)

type PgSendLogRepository struct {
	db     database.DB
	logger *slog.Logger
}

func NewPgSendLogRepository(db database.DB, logger *slog.Logger) *PgSendLogRepository {
	return &PgSendLogRepository{db: db, logger: logger}
}

func (r *PgSendLogRepository) Append(ctx context.Context, e *domain.SendLogEntry) error {
	query := `
		INSERT INTO greeting_logs (id, user_id, type, message, sent_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.Exec(ctx, query, e.ID, e.RecipientID, string(e.OccasionType), e.Message, e.SentAt)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error appending send log entry", "error", err, "recipient_id", e.RecipientID)
		return database.WrapStorage("append send log", err)
	}
	r.logger.InfoContext(ctx, "Send log entry appended", "log_id", e.ID, "recipient_id", e.RecipientID, "type", e.OccasionType)
	return nil
}

// List joins each entry with its recipient; entries whose recipient was deleted keep empty name/email.
func (r *PgSendLogRepository) List(ctx context.Context, offset, limit int) ([]*domain.SendLogView, error) {
	query := `
		SELECT l.id, l.user_id, l.type, l.message, l.sent_at, COALESCE(u.name, ''), COALESCE(u.email, '')
		FROM greeting_logs l
		LEFT JOIN users u ON u.id = l.user_id
		ORDER BY l.sent_at DESC, l.id ASC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error listing send log", "error", err)
		return nil, database.WrapStorage("list send log", err)
	}
	defer rows.Close()

	logs := []*domain.SendLogView{}
	for rows.Next() {
		v := &domain.SendLogView{}
		var occasionType string
		if err := rows.Scan(&v.ID, &v.RecipientID, &occasionType, &v.Message, &v.SentAt, &v.RecipientName, &v.RecipientEmail); err != nil {
			r.logger.ErrorContext(ctx, "Error scanning send log row", "error", err)
			return nil, database.WrapStorage("list send log", err)
		}
		v.OccasionType = domain.OccasionType(occasionType)
		logs = append(logs, v)
	}
	if err := rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating send log rows", "error", err)
		return nil, database.WrapStorage("list send log", err)
	}
	return logs, nil
}
