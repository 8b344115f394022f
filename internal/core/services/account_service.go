package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finbooks/ledger-core/internal/apperrors"
	"github.com/finbooks/ledger-core/internal/core/domain"
	portsrepo "github.com/finbooks/ledger-core/internal/core/ports/repositories"
	portssvc "github.com/finbooks/ledger-core/internal/core/ports/services"
	"github.com/finbooks/ledger-core/internal/dto"
	"github.com/finbooks/ledger-core/internal/middleware"
)

var (
	ErrUnknownAccountType = fmt.Errorf("%w: unknown account type", apperrors.ErrValidation)
)

type accountService struct {
	accountRepo portsrepo.AccountRepositoryFacade
	authorizer  portssvc.Authorizer
}

// NewAccountService creates the chart-of-accounts service.
func NewAccountService(accountRepo portsrepo.AccountRepositoryFacade, authorizer portssvc.Authorizer) portssvc.AccountSvcFacade {
	return &accountService{accountRepo: accountRepo, authorizer: authorizer}
}

var _ portssvc.AccountSvcFacade = (*accountService)(nil)

var validAccountTypes = map[domain.AccountType]bool{
	domain.Asset:        true,
	domain.Liability:    true,
	domain.Equity:       true,
	domain.Revenue:      true,
	domain.Expense:      true,
	domain.COGS:         true,
	domain.OtherIncome:  true,
	domain.OtherExpense: true,
}

// CreateAccount creates a new account with a zero opening balance.
// Implements portssvc.AccountSvcFacade.
func (s *accountService) CreateAccount(ctx context.Context, companyID string, req dto.CreateAccountRequest, creatorUserID string) (*domain.Account, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if err := s.authorizer.CanTransition(ctx, creatorUserID, companyID, portssvc.OpManageAccounts); err != nil {
		return nil, err
	}
	if !validAccountTypes[req.AccountType] {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAccountType, req.AccountType)
	}

	now := time.Now().UTC()
	account := domain.Account{
		AccountID:    uuid.NewString(),
		CompanyID:    companyID,
		Code:         req.Code,
		Name:         req.Name,
		AccountType:  req.AccountType,
		CurrencyCode: req.CurrencyCode,
		Description:  req.Description,
		IsActive:     true,
		Balance:      decimal.Zero,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     creatorUserID,
			LastUpdatedAt: now,
			LastUpdatedBy: creatorUserID,
		},
	}

	if err := s.accountRepo.SaveAccount(ctx, account); err != nil {
		logger.Error("Failed to save account", slog.String("error", err.Error()), slog.String("company_id", companyID))
		return nil, fmt.Errorf("failed to save account: %w", err)
	}

	logger.Info("Account created", slog.String("account_id", account.AccountID), slog.String("company_id", companyID))
	return &account, nil
}

// GetAccountByID retrieves a single account, hidden across tenants.
// Implements portssvc.AccountSvcFacade.
func (s *accountService) GetAccountByID(ctx context.Context, companyID, accountID string, requestingUserID string) (*domain.Account, error) {
	if err := s.authorizer.CanTransition(ctx, requestingUserID, companyID, portssvc.OpView); err != nil {
		return nil, err
	}
	return s.findCompanyAccount(ctx, companyID, accountID)
}

func (s *accountService) findCompanyAccount(ctx context.Context, companyID, accountID string) (*domain.Account, error) {
	account, err := s.accountRepo.FindAccountByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to find account %s: %w", accountID, err)
	}
	if account.CompanyID != companyID {
		return nil, apperrors.ErrNotFound
	}
	return account, nil
}

// GetAccountByIDs retrieves multiple accounts by ID, keyed by account ID.
// Accounts from other companies are silently omitted.
// Implements portssvc.AccountSvcFacade.
func (s *accountService) GetAccountByIDs(ctx context.Context, companyID string, accountIDs []string) (map[string]domain.Account, error) {
	if len(accountIDs) == 0 {
		return map[string]domain.Account{}, nil
	}
	accounts, err := s.accountRepo.FindAccountsByIDs(ctx, accountIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to find accounts: %w", err)
	}
	result := make(map[string]domain.Account, len(accounts))
	for id, acc := range accounts {
		if acc.CompanyID == companyID {
			result[id] = acc
		}
	}
	return result, nil
}

// ListAccounts returns all accounts for a company.
// Implements portssvc.AccountSvcFacade.
func (s *accountService) ListAccounts(ctx context.Context, companyID string, requestingUserID string) ([]domain.Account, error) {
	if err := s.authorizer.CanTransition(ctx, requestingUserID, companyID, portssvc.OpView); err != nil {
		return nil, err
	}
	accounts, err := s.accountRepo.ListAccountsByCompany(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, nil
}

// DeactivateAccount marks an account inactive. Existing posted history is
// untouched; new entries simply may not reference the account.
// Implements portssvc.AccountSvcFacade.
func (s *accountService) DeactivateAccount(ctx context.Context, companyID, accountID string, actorID string) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	if err := s.authorizer.CanTransition(ctx, actorID, companyID, portssvc.OpManageAccounts); err != nil {
		return err
	}
	if _, err := s.findCompanyAccount(ctx, companyID, accountID); err != nil {
		return err
	}
	if err := s.accountRepo.DeactivateAccount(ctx, accountID, actorID, time.Now().UTC()); err != nil {
		logger.Error("Failed to deactivate account", slog.String("error", err.Error()), slog.String("account_id", accountID))
		return fmt.Errorf("failed to deactivate account: %w", err)
	}
	logger.Info("Account deactivated", slog.String("account_id", accountID), slog.String("company_id", companyID))
	return nil
}

// HasChartOfAccounts reports whether a company has any accounts at all.
// Implements portssvc.AccountSvcFacade.
func (s *accountService) HasChartOfAccounts(ctx context.Context, companyID string) (bool, error) {
	count, err := s.accountRepo.CountAccountsByCompany(ctx, companyID)
	if err != nil {
		return false, fmt.Errorf("failed to count accounts: %w", err)
	}
	return count > 0, nil
}

// CheckBalanceConsistency recomputes an account's balance from its posted
// lines and compares it with the maintained running balance.
// Implements portssvc.AccountSvcFacade.
func (s *accountService) CheckBalanceConsistency(ctx context.Context, companyID, accountID string, requestingUserID string) (*dto.BalanceCheckResponse, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	account, err := s.GetAccountByID(ctx, companyID, accountID, requestingUserID)
	if err != nil {
		return nil, err
	}

	recomputed, err := s.accountRepo.SumPostedLineEffects(ctx, accountID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			recomputed = decimal.Zero
		} else {
			return nil, fmt.Errorf("failed to recompute balance: %w", err)
		}
	}

	consistent := account.Balance.Equal(recomputed)
	if !consistent {
		logger.Warn("Account balance drift detected",
			slog.String("account_id", accountID),
			slog.String("maintained", account.Balance.String()),
			slog.String("recomputed", recomputed.String()))
	}

	return &dto.BalanceCheckResponse{
		AccountID:  accountID,
		Maintained: account.Balance,
		Recomputed: recomputed,
		Consistent: consistent,
	}, nil
}
