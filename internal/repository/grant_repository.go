package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/storm-dispatch/internal/domain"
)

// GrantRepository resolves and mutates utility-to-company grants. HasGrant
// is consulted by the policy engine on every UTILITY decision.
type GrantRepository interface {
	Create(ctx context.Context, grant *domain.CompanyGrant) error
	Delete(ctx context.Context, userID, companyID string) error
	HasGrant(ctx context.Context, userID, companyID string) (bool, error)
	ListCompanyIDs(ctx context.Context, userID string) ([]string, error)
}

type grantRepository struct {
	pool *pgxpool.Pool
}

// NewGrantRepository instantiates repository.
func NewGrantRepository(pool *pgxpool.Pool) GrantRepository {
	return &grantRepository{pool: pool}
}

func (r *grantRepository) Create(ctx context.Context, grant *domain.CompanyGrant) error {
	const query = `
        INSERT INTO company_grants (user_id, company_id, granted_by_user_id)
        VALUES ($1,$2,$3)
        ON CONFLICT (user_id, company_id) DO UPDATE SET granted_by_user_id=EXCLUDED.granted_by_user_id
        RETURNING id, created_at`
	return querier(ctx, r.pool).QueryRow(ctx, query,
		grant.UserID,
		grant.CompanyID,
		grant.GrantedByUserID,
	).Scan(&grant.ID, &grant.CreatedAt)
}

func (r *grantRepository) Delete(ctx context.Context, userID, companyID string) error {
	const query = `DELETE FROM company_grants WHERE user_id=$1 AND company_id=$2`
	_, err := querier(ctx, r.pool).Exec(ctx, query, userID, companyID)
	return err
}

func (r *grantRepository) HasGrant(ctx context.Context, userID, companyID string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM company_grants WHERE user_id=$1 AND company_id=$2)`
	var exists bool
	if err := querier(ctx, r.pool).QueryRow(ctx, query, userID, companyID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *grantRepository) ListCompanyIDs(ctx context.Context, userID string) ([]string, error) {
	const query = `SELECT company_id FROM company_grants WHERE user_id=$1`
	rows, err := querier(ctx, r.pool).Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		result = append(result, id)
	}
	return result, rows.Err()
}
