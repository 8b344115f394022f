package repositories

import (
	"context"
	"time"

	"github.com/finbooks/ledger-core/internal/core/domain"
	"github.com/shopspring/decimal"
)

// AccountRepositoryFacade is the read/write surface for ledger accounts.
// Balance mutation is deliberately absent here: it happens only through
// LedgerTx.ApplyBalanceChanges inside an entry transition.
type AccountRepositoryFacade interface {
	SaveAccount(ctx context.Context, account domain.Account) error
	FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error)
	FindAccountsByIDs(ctx context.Context, accountIDs []string) (map[string]domain.Account, error)
	ListAccountsByCompany(ctx context.Context, companyID string) ([]domain.Account, error)

	// CountAccountsByCompany backs the auto-generator's soft-skip check for
	// companies that have not configured a chart of accounts yet.
	CountAccountsByCompany(ctx context.Context, companyID string) (int, error)

	DeactivateAccount(ctx context.Context, accountID string, actorID string, now time.Time) error

	// SumPostedLineEffects recomputes an account balance from scratch as the
	// sum of signed effects of all currently posted, non-voided lines.
	SumPostedLineEffects(ctx context.Context, accountID string) (decimal.Decimal, error)
}
