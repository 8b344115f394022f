package pgsql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/finbooks/ledger-core/internal/apperrors"
	"github.com/finbooks/ledger-core/internal/core/domain"
	portsrepo "github.com/finbooks/ledger-core/internal/core/ports/repositories"
)

type PgxAccountRepository struct {
	BaseRepository
}

// newPgxAccountRepository creates a new repository for account data.
func newPgxAccountRepository(pool *pgxpool.Pool) portsrepo.AccountRepositoryFacade {
	return &PgxAccountRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.AccountRepositoryFacade = (*PgxAccountRepository)(nil)

const accountColumns = `
	account_id, company_id, code, name, account_type, currency_code, description, is_active, balance,
	created_at, created_by, last_updated_at, last_updated_by`

func scanAccountFromRows(row pgx.Row) (*domain.Account, error) {
	var a domain.Account
	var description sql.NullString
	err := row.Scan(
		&a.AccountID, &a.CompanyID, &a.Code, &a.Name, &a.AccountType, &a.CurrencyCode,
		&description, &a.IsActive, &a.Balance,
		&a.CreatedAt, &a.CreatedBy, &a.LastUpdatedAt, &a.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	a.Description = description.String
	return &a, nil
}

// SaveAccount inserts a new account. A duplicate code within the company
// surfaces as ErrDuplicate.
func (r *PgxAccountRepository) SaveAccount(ctx context.Context, account domain.Account) error {
	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13);
	`
	_, err := r.Pool.Exec(ctx, query,
		account.AccountID, account.CompanyID, account.Code, account.Name,
		account.AccountType, account.CurrencyCode, nullableString(account.Description),
		account.IsActive, account.Balance,
		account.CreatedAt, account.CreatedBy, account.LastUpdatedAt, account.LastUpdatedBy,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return apperrors.NewAppError(409, "account code already exists in company", apperrors.ErrDuplicate)
		}
		return apperrors.NewAppError(500, "failed to insert account "+account.AccountID, err)
	}
	return nil
}

// FindAccountByID retrieves an account by its ID.
func (r *PgxAccountRepository) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_id = $1;`
	account, err := scanAccountFromRows(r.Pool.QueryRow(ctx, query, accountID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find account by ID "+accountID, err)
	}
	return account, nil
}

// FindAccountsByIDs retrieves multiple accounts, keyed by account ID.
// Missing IDs are simply absent from the result.
func (r *PgxAccountRepository) FindAccountsByIDs(ctx context.Context, accountIDs []string) (map[string]domain.Account, error) {
	if len(accountIDs) == 0 {
		return map[string]domain.Account{}, nil
	}
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_id = ANY($1);`
	rows, err := r.Pool.Query(ctx, query, accountIDs)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query accounts by IDs", err)
	}
	defer rows.Close()

	accounts := make(map[string]domain.Account, len(accountIDs))
	for rows.Next() {
		account, err := scanAccountFromRows(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan account row", err)
		}
		accounts[account.AccountID] = *account
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating account rows", err)
	}
	return accounts, nil
}

// ListAccountsByCompany retrieves all accounts for a company ordered by code.
func (r *PgxAccountRepository) ListAccountsByCompany(ctx context.Context, companyID string) ([]domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE company_id = $1 ORDER BY code;`
	rows, err := r.Pool.Query(ctx, query, companyID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query accounts for company "+companyID, err)
	}
	defer rows.Close()

	accounts := []domain.Account{}
	for rows.Next() {
		account, err := scanAccountFromRows(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan account row", err)
		}
		accounts = append(accounts, *account)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating account rows", err)
	}
	return accounts, nil
}

// CountAccountsByCompany counts accounts within a company.
func (r *PgxAccountRepository) CountAccountsByCompany(ctx context.Context, companyID string) (int, error) {
	var count int
	err := r.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM accounts WHERE company_id = $1;`, companyID).Scan(&count)
	if err != nil {
		return 0, apperrors.NewAppError(500, "failed to count accounts for company "+companyID, err)
	}
	return count, nil
}

// DeactivateAccount marks an account inactive.
func (r *PgxAccountRepository) DeactivateAccount(ctx context.Context, accountID string, actorID string, now time.Time) error {
	query := `
		UPDATE accounts
		SET is_active = FALSE, last_updated_at = $2, last_updated_by = $3
		WHERE account_id = $1;
	`
	tag, err := r.Pool.Exec(ctx, query, accountID, now, actorID)
	if err != nil {
		return apperrors.NewAppError(500, "failed to deactivate account "+accountID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// SumPostedLineEffects recomputes the balance from the lines of currently
// posted entries. The maintained balance must equal this sum at all times;
// drift indicates a ledger bug.
func (r *PgxAccountRepository) SumPostedLineEffects(ctx context.Context, accountID string) (decimal.Decimal, error) {
	var accountType domain.AccountType
	err := r.Pool.QueryRow(ctx, `SELECT account_type FROM accounts WHERE account_id = $1;`, accountID).Scan(&accountType)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, apperrors.ErrNotFound
		}
		return decimal.Zero, apperrors.NewAppError(500, "failed to find account "+accountID, err)
	}

	query := `
		SELECT COALESCE(SUM(CASE WHEN l.side = 'DEBIT' THEN l.amount ELSE -l.amount END), 0)
		FROM journal_lines l
		JOIN journal_entries e ON e.entry_id = l.entry_id
		WHERE l.account_id = $1 AND e.status = 'POSTED';
	`
	var debitNet decimal.Decimal
	if err := r.Pool.QueryRow(ctx, query, accountID).Scan(&debitNet); err != nil {
		return decimal.Zero, apperrors.NewAppError(500, "failed to sum posted lines for account "+accountID, err)
	}

	if accountType.NormalBalance() == domain.CreditNormal {
		return debitNet.Neg(), nil
	}
	return debitNet, nil
}
