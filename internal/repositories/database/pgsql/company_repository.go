package pgsql

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/finbooks/ledger-core/internal/apperrors"
	"github.com/finbooks/ledger-core/internal/core/domain"
	portsrepo "github.com/finbooks/ledger-core/internal/core/ports/repositories"
)

type PgxCompanyRepository struct {
	BaseRepository
}

// newPgxCompanyRepository creates a new repository for company and membership data.
func newPgxCompanyRepository(pool *pgxpool.Pool) portsrepo.CompanyRepositoryFacade {
	return &PgxCompanyRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.CompanyRepositoryFacade = (*PgxCompanyRepository)(nil)

// SaveCompany inserts the company and the creator's admin membership in one
// transaction.
func (r *PgxCompanyRepository) SaveCompany(ctx context.Context, company domain.Company, creatorMembership domain.UserCompany) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	companyQuery := `
		INSERT INTO companies (company_id, name, description, default_currency_code, is_active, created_at, created_by, last_updated_at, last_updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
	`
	_, err = tx.Exec(ctx, companyQuery,
		company.CompanyID, company.Name, nullableString(company.Description),
		company.DefaultCurrencyCode, company.IsActive,
		company.CreatedAt, company.CreatedBy, company.LastUpdatedAt, company.LastUpdatedBy,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to insert company "+company.CompanyID, err)
	}

	membershipQuery := `
		INSERT INTO user_companies (user_id, company_id, role, joined_at)
		VALUES ($1, $2, $3, $4);
	`
	_, err = tx.Exec(ctx, membershipQuery,
		creatorMembership.UserID, creatorMembership.CompanyID, creatorMembership.Role, creatorMembership.JoinedAt,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to insert creator membership for company "+company.CompanyID, err)
	}

	return r.Commit(ctx, tx)
}

// FindCompanyByID retrieves a company by its ID.
func (r *PgxCompanyRepository) FindCompanyByID(ctx context.Context, companyID string) (*domain.Company, error) {
	query := `
		SELECT company_id, name, description, default_currency_code, is_active, created_at, created_by, last_updated_at, last_updated_by
		FROM companies
		WHERE company_id = $1;
	`
	var c domain.Company
	var description sql.NullString
	var defaultCurrency sql.NullString
	err := r.Pool.QueryRow(ctx, query, companyID).Scan(
		&c.CompanyID, &c.Name, &description, &defaultCurrency, &c.IsActive,
		&c.CreatedAt, &c.CreatedBy, &c.LastUpdatedAt, &c.LastUpdatedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find company by ID "+companyID, err)
	}
	c.Description = description.String
	if defaultCurrency.Valid {
		c.DefaultCurrencyCode = &defaultCurrency.String
	}
	return &c, nil
}

// FindUserCompanyRole retrieves a user's membership in a company. Returns
// (nil, nil) when the user has no membership row at all.
func (r *PgxCompanyRepository) FindUserCompanyRole(ctx context.Context, userID, companyID string) (*domain.UserCompany, error) {
	query := `
		SELECT user_id, company_id, role, joined_at
		FROM user_companies
		WHERE user_id = $1 AND company_id = $2;
	`
	var m domain.UserCompany
	err := r.Pool.QueryRow(ctx, query, userID, companyID).Scan(&m.UserID, &m.CompanyID, &m.Role, &m.JoinedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperrors.NewAppError(500, "failed to find membership for user "+userID, err)
	}
	return &m, nil
}

// UpsertUserCompanyRole inserts or updates a membership row.
func (r *PgxCompanyRepository) UpsertUserCompanyRole(ctx context.Context, membership domain.UserCompany) error {
	query := `
		INSERT INTO user_companies (user_id, company_id, role, joined_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, company_id) DO UPDATE SET role = EXCLUDED.role;
	`
	_, err := r.Pool.Exec(ctx, query, membership.UserID, membership.CompanyID, membership.Role, membership.JoinedAt)
	if err != nil {
		return apperrors.NewAppError(500, "failed to upsert membership for user "+membership.UserID, err)
	}
	return nil
}
