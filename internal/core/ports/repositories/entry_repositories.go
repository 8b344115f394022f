package repositories

import (
	"context"
	"time"

	"github.com/finbooks/ledger-core/internal/core/domain"
	"github.com/shopspring/decimal"
)

// LedgerTx is the set of operations available inside one atomic ledger unit.
// Every lifecycle transition composes these against a single database
// transaction: read + lock, validate, mutate balances, append audit. The
// implementation must guarantee that either all of it commits or none of it.
type LedgerTx interface {
	// InsertEntry persists a new entry with its lines and source links.
	InsertEntry(ctx context.Context, entry domain.JournalEntry, lines []domain.JournalLine, sources []domain.EntrySource) error

	// FindEntryForUpdate loads an entry and acquires an exclusive row lock on
	// it for the remainder of the transaction. Concurrent transitions on the
	// same entry serialize here.
	FindEntryForUpdate(ctx context.Context, entryID string) (*domain.JournalEntry, error)

	FindLinesByEntryID(ctx context.Context, entryID string) ([]domain.JournalLine, error)

	// UpdateEntryState writes the entry's status, actor stamps, void reason
	// and reversal links. Lines are never touched.
	UpdateEntryState(ctx context.Context, entry domain.JournalEntry) error

	// FindAccountsByIDsForUpdate loads accounts and locks their rows.
	// The implementation locks in sorted ID order to avoid deadlocks.
	FindAccountsByIDsForUpdate(ctx context.Context, accountIDs []string) (map[string]domain.Account, error)

	// ApplyBalanceChanges adds each signed delta to the matching account
	// balance. Accounts must already be locked via FindAccountsByIDsForUpdate.
	ApplyBalanceChanges(ctx context.Context, changes map[string]decimal.Decimal, actorID string, now time.Time) error

	// AppendAudit appends one immutable audit record.
	AppendAudit(ctx context.Context, record domain.AuditRecord) error

	// FindEntryIDByIdempotencyKey returns the entry already carrying the key
	// for the company, or nil when none exists.
	FindEntryIDByIdempotencyKey(ctx context.Context, companyID, key string) (*string, error)

	// HasApprovedDuplicate reports whether another approved or posted entry
	// with the same company, date and description exists.
	HasApprovedDuplicate(ctx context.Context, companyID string, entryDate time.Time, description string, excludeEntryID string) (bool, error)

	// HasPostedReferenceConflict reports whether another posted entry with the
	// same company, date and reference exists.
	HasPostedReferenceConflict(ctx context.Context, companyID string, entryDate time.Time, reference string, excludeEntryID string) (bool, error)

	// HasLaterPostedOnAccounts reports whether any posted entry with a later
	// entry date touches any of the given accounts.
	HasLaterPostedOnAccounts(ctx context.Context, companyID string, after time.Time, accountIDs []string, excludeEntryID string) (bool, error)
}

// EntryRepositoryFacade is the read/write surface for journal entries.
type EntryRepositoryFacade interface {
	// WithTx runs fn inside a single database transaction, committing when fn
	// returns nil and rolling everything back otherwise.
	WithTx(ctx context.Context, fn func(tx LedgerTx) error) error

	FindEntryByID(ctx context.Context, entryID string) (*domain.JournalEntry, error)
	FindLinesByEntryID(ctx context.Context, entryID string) ([]domain.JournalLine, error)
	FindSourcesByEntryID(ctx context.Context, entryID string) ([]domain.EntrySource, error)
	FindEntryByIdempotencyKey(ctx context.Context, companyID, key string) (*domain.JournalEntry, error)

	// ListEntriesByCompany returns a page of entries ordered by entry date
	// descending, plus a cursor token when more pages exist.
	ListEntriesByCompany(ctx context.Context, companyID string, limit int, nextToken *string) ([]domain.JournalEntry, *string, error)
}
