package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/storm-dispatch/internal/domain"
)

// StatusEventRepository persists the append-only ticket timeline.
type StatusEventRepository interface {
	Create(ctx context.Context, event *domain.StatusEvent) error
	ListByTicket(ctx context.Context, ticketID string, limit, offset int) ([]domain.StatusEvent, error)
}

type statusEventRepository struct {
	pool *pgxpool.Pool
}

// NewStatusEventRepository instantiates repository.
func NewStatusEventRepository(pool *pgxpool.Pool) StatusEventRepository {
	return &statusEventRepository{pool: pool}
}

func (r *statusEventRepository) Create(ctx context.Context, event *domain.StatusEvent) error {
	const query = `
        INSERT INTO status_events (ticket_id, old_status, new_status, changed_by_user_id, note)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, changed_at`
	return querier(ctx, r.pool).QueryRow(ctx, query,
		event.TicketID,
		event.OldStatus,
		event.NewStatus,
		event.ChangedByUserID,
		event.Note,
	).Scan(&event.ID, &event.ChangedAt)
}

func (r *statusEventRepository) ListByTicket(ctx context.Context, ticketID string, limit, offset int) ([]domain.StatusEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
        SELECT id, ticket_id, old_status, new_status, changed_by_user_id, changed_at, note
        FROM status_events WHERE ticket_id=$1 ORDER BY changed_at LIMIT $2 OFFSET $3`
	rows, err := querier(ctx, r.pool).Query(ctx, query, ticketID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.StatusEvent
	for rows.Next() {
		var event domain.StatusEvent
		if err := rows.Scan(
			&event.ID,
			&event.TicketID,
			&event.OldStatus,
			&event.NewStatus,
			&event.ChangedByUserID,
			&event.ChangedAt,
			&event.Note,
		); err != nil {
			return nil, err
		}
		result = append(result, event)
	}
	return result, rows.Err()
}
