package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/storm-dispatch/internal/domain"
)

// AssignmentRepository encapsulates crew assignment persistence.
type AssignmentRepository interface {
	Create(ctx context.Context, assignment *domain.Assignment) error
	Update(ctx context.Context, assignment *domain.Assignment) error
	GetByID(ctx context.Context, id string) (*domain.Assignment, error)
	// GetActiveByTicket returns nil when the ticket has no active assignment.
	GetActiveByTicket(ctx context.Context, ticketID string) (*domain.Assignment, error)
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Assignment, error)
}

type assignmentRepository struct {
	pool *pgxpool.Pool
}

// NewAssignmentRepository instantiates repository.
func NewAssignmentRepository(pool *pgxpool.Pool) AssignmentRepository {
	return &assignmentRepository{pool: pool}
}

const assignmentColumns = `id, ticket_id, company_id, crew_id, status, assigned_by_user_id,
	       assigned_at, responded_at, response_note, is_active`

func (r *assignmentRepository) Create(ctx context.Context, assignment *domain.Assignment) error {
	const query = `
        INSERT INTO assignments (ticket_id, company_id, crew_id, status, assigned_by_user_id, is_active)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, assigned_at`
	return querier(ctx, r.pool).QueryRow(ctx, query,
		assignment.TicketID,
		assignment.CompanyID,
		assignment.CrewID,
		assignment.Status,
		assignment.AssignedByUserID,
		assignment.IsActive,
	).Scan(&assignment.ID, &assignment.AssignedAt)
}

func (r *assignmentRepository) Update(ctx context.Context, assignment *domain.Assignment) error {
	const query = `
        UPDATE assignments SET status=$1, responded_at=$2, response_note=$3, is_active=$4
        WHERE id=$5`
	cmd, err := querier(ctx, r.pool).Exec(ctx, query,
		assignment.Status,
		assignment.RespondedAt,
		assignment.ResponseNote,
		assignment.IsActive,
		assignment.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *assignmentRepository) GetByID(ctx context.Context, id string) (*domain.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *assignmentRepository) GetActiveByTicket(ctx context.Context, ticketID string) (*domain.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE ticket_id=$1 AND is_active`
	assignment, err := r.fetchSingle(ctx, query, ticketID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return assignment, err
}

func (r *assignmentRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Assignment, error) {
	var assignment domain.Assignment
	if err := querier(ctx, r.pool).QueryRow(ctx, query, arg).Scan(
		&assignment.ID,
		&assignment.TicketID,
		&assignment.CompanyID,
		&assignment.CrewID,
		&assignment.Status,
		&assignment.AssignedByUserID,
		&assignment.AssignedAt,
		&assignment.RespondedAt,
		&assignment.ResponseNote,
		&assignment.IsActive,
	); err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (r *assignmentRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE ticket_id=$1 ORDER BY assigned_at`
	rows, err := querier(ctx, r.pool).Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Assignment
	for rows.Next() {
		var assignment domain.Assignment
		if err := rows.Scan(
			&assignment.ID,
			&assignment.TicketID,
			&assignment.CompanyID,
			&assignment.CrewID,
			&assignment.Status,
			&assignment.AssignedByUserID,
			&assignment.AssignedAt,
			&assignment.RespondedAt,
			&assignment.ResponseNote,
			&assignment.IsActive,
		); err != nil {
			return nil, err
		}
		result = append(result, assignment)
	}
	return result, rows.Err()
}
