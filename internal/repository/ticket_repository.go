package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/storm-dispatch/internal/domain"
	apperrors "github.com/spec-kit/storm-dispatch/pkg/util"
)

// TicketFilter captures listing parameters. Company and session filters are
// combined with the scope the caller's policy evaluation derived.
type TicketFilter struct {
	SessionID *string
	CompanyID *string
	// CompanyIDs restricts to a grant-derived company set;
	// IncludeUnassigned additionally admits tickets with no company yet
	// (the dispatch pool).
	CompanyIDs        []string
	IncludeUnassigned bool
	Statuses          []domain.TicketStatus
	Priorities        []domain.TicketPriority
	Limit             int
	Offset            int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	// Update performs a version-checked write and bumps Version; a stale
	// version yields a CONFLICT error.
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	// GetByIDForUpdate locks the ticket row for the duration of the
	// surrounding transaction.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, session_id, company_id, issue_type_id, priority, status,
	       address, latitude, longitude, created_by_user_id, version, created_at, updated_at, closed_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (session_id, company_id, issue_type_id, priority, status, address, latitude, longitude, created_by_user_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, version, created_at, updated_at`
	return querier(ctx, r.pool).QueryRow(ctx, query,
		ticket.SessionID,
		ticket.CompanyID,
		ticket.IssueTypeID,
		ticket.Priority,
		ticket.Status,
		ticket.Address,
		ticket.Latitude,
		ticket.Longitude,
		ticket.CreatedByUserID,
	).Scan(&ticket.ID, &ticket.Version, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET company_id=$1, priority=$2, status=$3, address=$4, latitude=$5, longitude=$6,
            closed_at=$7, version=version+1, updated_at=NOW()
        WHERE id=$8 AND version=$9`
	cmd, err := querier(ctx, r.pool).Exec(ctx, query,
		ticket.CompanyID,
		ticket.Priority,
		ticket.Status,
		ticket.Address,
		ticket.Latitude,
		ticket.Longitude,
		ticket.ClosedAt,
		ticket.ID,
		ticket.Version,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return apperrors.NewConflict("ticket was modified concurrently", map[string]any{"ticket_id": ticket.ID})
	}
	ticket.Version++
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE id=$1`, ticketColumns)
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE id=$1 FOR UPDATE`, ticketColumns)
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := querier(ctx, r.pool).QueryRow(ctx, query, arg).Scan(
		&ticket.ID,
		&ticket.SessionID,
		&ticket.CompanyID,
		&ticket.IssueTypeID,
		&ticket.Priority,
		&ticket.Status,
		&ticket.Address,
		&ticket.Latitude,
		&ticket.Longitude,
		&ticket.CreatedByUserID,
		&ticket.Version,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.ClosedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	base := fmt.Sprintf(`SELECT %s FROM tickets`, ticketColumns)
	clauses := []string{"1=1"}
	args := []any{}

	if filter.SessionID != nil {
		args = append(args, *filter.SessionID)
		clauses = append(clauses, fmt.Sprintf("session_id=$%d", len(args)))
	}
	if filter.CompanyID != nil {
		args = append(args, *filter.CompanyID)
		clauses = append(clauses, fmt.Sprintf("company_id=$%d", len(args)))
	}
	if len(filter.CompanyIDs) > 0 || filter.IncludeUnassigned {
		var companyClauses []string
		if len(filter.CompanyIDs) > 0 {
			placeholders := make([]string, len(filter.CompanyIDs))
			for i, id := range filter.CompanyIDs {
				args = append(args, id)
				placeholders[i] = fmt.Sprintf("$%d", len(args))
			}
			companyClauses = append(companyClauses, fmt.Sprintf("company_id IN (%s)", strings.Join(placeholders, ",")))
		}
		if filter.IncludeUnassigned {
			companyClauses = append(companyClauses, "company_id IS NULL")
		}
		clauses = append(clauses, "("+strings.Join(companyClauses, " OR ")+")")
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := querier(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.SessionID,
			&ticket.CompanyID,
			&ticket.IssueTypeID,
			&ticket.Priority,
			&ticket.Status,
			&ticket.Address,
			&ticket.Latitude,
			&ticket.Longitude,
			&ticket.CreatedByUserID,
			&ticket.Version,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
			&ticket.ClosedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
