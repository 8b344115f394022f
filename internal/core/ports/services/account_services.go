package services

import (
	"context"

	"github.com/finbooks/ledger-core/internal/core/domain"
	"github.com/finbooks/ledger-core/internal/dto"
)

// AccountSvcFacade manages the chart of accounts. Balances are read-only
// here; mutation belongs to the entry lifecycle exclusively.
type AccountSvcFacade interface {
	CreateAccount(ctx context.Context, companyID string, req dto.CreateAccountRequest, creatorUserID string) (*domain.Account, error)
	GetAccountByID(ctx context.Context, companyID, accountID string, requestingUserID string) (*domain.Account, error)

	// GetAccountByIDs returns the requested accounts keyed by ID. Missing IDs
	// are simply absent from the map.
	GetAccountByIDs(ctx context.Context, companyID string, accountIDs []string) (map[string]domain.Account, error)

	ListAccounts(ctx context.Context, companyID string, requestingUserID string) ([]domain.Account, error)
	DeactivateAccount(ctx context.Context, companyID, accountID string, actorID string) error

	// HasChartOfAccounts reports whether the company has configured any
	// accounts yet. Backs the auto-generator's soft skip.
	HasChartOfAccounts(ctx context.Context, companyID string) (bool, error)

	// CheckBalanceConsistency recomputes an account balance from posted lines
	// and compares it with the incrementally maintained value.
	CheckBalanceConsistency(ctx context.Context, companyID, accountID string, requestingUserID string) (*dto.BalanceCheckResponse, error)
}

// CompanySvcFacade manages companies and memberships, the substrate the RBAC
// authorizer reads from.
type CompanySvcFacade interface {
	CreateCompany(ctx context.Context, req dto.CreateCompanyRequest, creatorUserID string) (*domain.Company, error)
	GetCompanyByID(ctx context.Context, companyID string, requestingUserID string) (*domain.Company, error)
	AddMember(ctx context.Context, companyID string, req dto.AddMemberRequest, actorID string) error
}
