package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/storm-dispatch/internal/domain"
)

// IssueTypeRepository encapsulates issue type persistence.
type IssueTypeRepository interface {
	Create(ctx context.Context, issueType *domain.IssueType) error
	GetByID(ctx context.Context, id string) (*domain.IssueType, error)
	List(ctx context.Context) ([]domain.IssueType, error)
}

type issueTypeRepository struct {
	pool *pgxpool.Pool
}

// NewIssueTypeRepository instantiates repository.
func NewIssueTypeRepository(pool *pgxpool.Pool) IssueTypeRepository {
	return &issueTypeRepository{pool: pool}
}

func (r *issueTypeRepository) Create(ctx context.Context, issueType *domain.IssueType) error {
	const query = `
        INSERT INTO issue_types (name, is_active)
        VALUES ($1,$2)
        RETURNING id, created_at`
	return querier(ctx, r.pool).QueryRow(ctx, query, issueType.Name, issueType.IsActive).
		Scan(&issueType.ID, &issueType.CreatedAt)
}

func (r *issueTypeRepository) GetByID(ctx context.Context, id string) (*domain.IssueType, error) {
	const query = `SELECT id, name, is_active, created_at FROM issue_types WHERE id=$1`
	var issueType domain.IssueType
	if err := querier(ctx, r.pool).QueryRow(ctx, query, id).Scan(
		&issueType.ID,
		&issueType.Name,
		&issueType.IsActive,
		&issueType.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &issueType, nil
}

func (r *issueTypeRepository) List(ctx context.Context) ([]domain.IssueType, error) {
	const query = `SELECT id, name, is_active, created_at FROM issue_types ORDER BY name`
	rows, err := querier(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.IssueType
	for rows.Next() {
		var issueType domain.IssueType
		if err := rows.Scan(&issueType.ID, &issueType.Name, &issueType.IsActive, &issueType.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, issueType)
	}
	return result, rows.Err()
}
