package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/storm-dispatch/internal/domain"
)

// SessionRepository encapsulates storm session persistence.
type SessionRepository interface {
	Create(ctx context.Context, session *domain.StormSession) error
	Update(ctx context.Context, session *domain.StormSession) error
	GetByID(ctx context.Context, id string) (*domain.StormSession, error)
	List(ctx context.Context, activeOnly bool) ([]domain.StormSession, error)
}

type sessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository instantiates repository.
func NewSessionRepository(pool *pgxpool.Pool) SessionRepository {
	return &sessionRepository{pool: pool}
}

const sessionColumns = `id, name, utility, is_active, started_at, ended_at, created_at`

func (r *sessionRepository) Create(ctx context.Context, session *domain.StormSession) error {
	const query = `
        INSERT INTO storm_sessions (name, utility, is_active, started_at)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return querier(ctx, r.pool).QueryRow(ctx, query,
		session.Name,
		session.Utility,
		session.IsActive,
		session.StartedAt,
	).Scan(&session.ID, &session.CreatedAt)
}

func (r *sessionRepository) Update(ctx context.Context, session *domain.StormSession) error {
	const query = `UPDATE storm_sessions SET name=$1, utility=$2, is_active=$3, ended_at=$4 WHERE id=$5`
	cmd, err := querier(ctx, r.pool).Exec(ctx, query,
		session.Name,
		session.Utility,
		session.IsActive,
		session.EndedAt,
		session.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *sessionRepository) GetByID(ctx context.Context, id string) (*domain.StormSession, error) {
	const query = `SELECT ` + sessionColumns + ` FROM storm_sessions WHERE id=$1`
	var session domain.StormSession
	if err := querier(ctx, r.pool).QueryRow(ctx, query, id).Scan(
		&session.ID,
		&session.Name,
		&session.Utility,
		&session.IsActive,
		&session.StartedAt,
		&session.EndedAt,
		&session.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepository) List(ctx context.Context, activeOnly bool) ([]domain.StormSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM storm_sessions`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY started_at DESC`
	rows, err := querier(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.StormSession
	for rows.Next() {
		var session domain.StormSession
		if err := rows.Scan(
			&session.ID,
			&session.Name,
			&session.Utility,
			&session.IsActive,
			&session.StartedAt,
			&session.EndedAt,
			&session.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, session)
	}
	return result, rows.Err()
}
