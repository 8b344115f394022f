package repositories

import (
	"context"

	"github.com/finbooks/ledger-core/internal/core/domain"
)

// CompanyRepositoryFacade is the read/write surface for companies and
// user-company memberships.
type CompanyRepositoryFacade interface {
	SaveCompany(ctx context.Context, company domain.Company, creatorMembership domain.UserCompany) error
	FindCompanyByID(ctx context.Context, companyID string) (*domain.Company, error)
	FindUserCompanyRole(ctx context.Context, userID, companyID string) (*domain.UserCompany, error)
	UpsertUserCompanyRole(ctx context.Context, membership domain.UserCompany) error
}
