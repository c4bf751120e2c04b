package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/storm-dispatch/internal/domain"
)

// CrewRepository encapsulates crew roster persistence.
type CrewRepository interface {
	Create(ctx context.Context, crew *domain.Crew) error
	Update(ctx context.Context, crew *domain.Crew) error
	GetByID(ctx context.Context, id string) (*domain.Crew, error)
	ListByCompany(ctx context.Context, companyID string) ([]domain.Crew, error)
}

type crewRepository struct {
	pool *pgxpool.Pool
}

// NewCrewRepository instantiates repository.
func NewCrewRepository(pool *pgxpool.Pool) CrewRepository {
	return &crewRepository{pool: pool}
}

func (r *crewRepository) Create(ctx context.Context, crew *domain.Crew) error {
	const query = `
        INSERT INTO crews (company_id, name, is_active)
        VALUES ($1,$2,$3)
        RETURNING id, created_at, updated_at`
	return querier(ctx, r.pool).QueryRow(ctx, query, crew.CompanyID, crew.Name, crew.IsActive).
		Scan(&crew.ID, &crew.CreatedAt, &crew.UpdatedAt)
}

func (r *crewRepository) Update(ctx context.Context, crew *domain.Crew) error {
	const query = `UPDATE crews SET name=$1, is_active=$2, updated_at=NOW() WHERE id=$3`
	cmd, err := querier(ctx, r.pool).Exec(ctx, query, crew.Name, crew.IsActive, crew.ID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *crewRepository) GetByID(ctx context.Context, id string) (*domain.Crew, error) {
	const query = `SELECT id, company_id, name, is_active, created_at, updated_at FROM crews WHERE id=$1`
	var crew domain.Crew
	if err := querier(ctx, r.pool).QueryRow(ctx, query, id).Scan(
		&crew.ID,
		&crew.CompanyID,
		&crew.Name,
		&crew.IsActive,
		&crew.CreatedAt,
		&crew.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &crew, nil
}

func (r *crewRepository) ListByCompany(ctx context.Context, companyID string) ([]domain.Crew, error) {
	const query = `SELECT id, company_id, name, is_active, created_at, updated_at FROM crews WHERE company_id=$1 ORDER BY name`
	rows, err := querier(ctx, r.pool).Query(ctx, query, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Crew
	for rows.Next() {
		var crew domain.Crew
		if err := rows.Scan(&crew.ID, &crew.CompanyID, &crew.Name, &crew.IsActive, &crew.CreatedAt, &crew.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, crew)
	}
	return result, rows.Err()
}
