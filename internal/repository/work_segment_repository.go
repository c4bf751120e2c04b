package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/storm-dispatch/internal/domain"
)

// WorkSegmentRepository persists crew time segments.
type WorkSegmentRepository interface {
	Create(ctx context.Context, segment *domain.WorkSegment) error
	// GetOpen returns nil when no open segment exists for the pair.
	GetOpen(ctx context.Context, ticketID, crewID string) (*domain.WorkSegment, error)
	// Close stamps ended_at on the open segment for the pair; no-op when
	// none is open.
	Close(ctx context.Context, ticketID, crewID string) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.WorkSegment, error)
}

type workSegmentRepository struct {
	pool *pgxpool.Pool
}

// NewWorkSegmentRepository instantiates repository.
func NewWorkSegmentRepository(pool *pgxpool.Pool) WorkSegmentRepository {
	return &workSegmentRepository{pool: pool}
}

const segmentColumns = `id, ticket_id, session_id, company_id, crew_id, started_at, ended_at, created_by_user_id`

func (r *workSegmentRepository) Create(ctx context.Context, segment *domain.WorkSegment) error {
	const query = `
        INSERT INTO work_segments (ticket_id, session_id, company_id, crew_id, created_by_user_id)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, started_at`
	return querier(ctx, r.pool).QueryRow(ctx, query,
		segment.TicketID,
		segment.SessionID,
		segment.CompanyID,
		segment.CrewID,
		segment.CreatedByUserID,
	).Scan(&segment.ID, &segment.StartedAt)
}

func (r *workSegmentRepository) GetOpen(ctx context.Context, ticketID, crewID string) (*domain.WorkSegment, error) {
	query := `SELECT ` + segmentColumns + ` FROM work_segments WHERE ticket_id=$1 AND crew_id=$2 AND ended_at IS NULL`
	var segment domain.WorkSegment
	err := querier(ctx, r.pool).QueryRow(ctx, query, ticketID, crewID).Scan(
		&segment.ID,
		&segment.TicketID,
		&segment.SessionID,
		&segment.CompanyID,
		&segment.CrewID,
		&segment.StartedAt,
		&segment.EndedAt,
		&segment.CreatedByUserID,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &segment, nil
}

func (r *workSegmentRepository) Close(ctx context.Context, ticketID, crewID string) error {
	const query = `
        UPDATE work_segments SET ended_at=NOW()
        WHERE ticket_id=$1 AND crew_id=$2 AND ended_at IS NULL`
	_, err := querier(ctx, r.pool).Exec(ctx, query, ticketID, crewID)
	return err
}

func (r *workSegmentRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.WorkSegment, error) {
	query := `SELECT ` + segmentColumns + ` FROM work_segments WHERE ticket_id=$1 ORDER BY started_at`
	rows, err := querier(ctx, r.pool).Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.WorkSegment
	for rows.Next() {
		var segment domain.WorkSegment
		if err := rows.Scan(
			&segment.ID,
			&segment.TicketID,
			&segment.SessionID,
			&segment.CompanyID,
			&segment.CrewID,
			&segment.StartedAt,
			&segment.EndedAt,
			&segment.CreatedByUserID,
		); err != nil {
			return nil, err
		}
		result = append(result, segment)
	}
	return result, rows.Err()
}
