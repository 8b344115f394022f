package pgsql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/finbooks/ledger-core/internal/apperrors"
	"github.com/finbooks/ledger-core/internal/core/domain"
	portsrepo "github.com/finbooks/ledger-core/internal/core/ports/repositories"
	"github.com/finbooks/ledger-core/internal/utils/pagination"
)

type PgxEntryRepository struct {
	BaseRepository
}

// newPgxEntryRepository creates a new repository for journal entry data.
func newPgxEntryRepository(pool *pgxpool.Pool) portsrepo.EntryRepositoryFacade {
	return &PgxEntryRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.EntryRepositoryFacade = (*PgxEntryRepository)(nil)

// ledgerTx adapts one pgx transaction to the LedgerTx port. It exists only
// for the duration of a WithTx call.
type ledgerTx struct {
	tx pgx.Tx
}

var _ portsrepo.LedgerTx = (*ledgerTx)(nil)

// WithTx runs fn inside a single database transaction. A nil return from fn
// commits; any error rolls everything back.
func (r *PgxEntryRepository) WithTx(ctx context.Context, fn func(tx portsrepo.LedgerTx) error) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx) // No-op once committed

	if err := fn(&ledgerTx{tx: tx}); err != nil {
		return err
	}
	return r.Commit(ctx, tx)
}

const entryColumns = `
	entry_id, company_id, reference, description, entry_date, entry_type, status,
	currency_code, exchange_rate, amount,
	submitted_by, submitted_at, approved_by, approved_at, posted_by, posted_at,
	voided_by, voided_at, void_reason, reverse_of_entry_id, reversal_entry_id, metadata,
	created_at, created_by, last_updated_at, last_updated_by`

// scanEntry scans one journal_entries row in entryColumns order.
func scanEntry(row pgx.Row) (*domain.JournalEntry, error) {
	var e domain.JournalEntry
	var reference, voidReason sql.NullString
	var exchangeRate decimal.NullDecimal
	var submittedBy, approvedBy, postedBy, voidedBy sql.NullString
	var submittedAt, approvedAt, postedAt, voidedAt sql.NullTime
	var reverseOf, reversalID sql.NullString
	var metadata []byte

	err := row.Scan(
		&e.EntryID, &e.CompanyID, &reference, &e.Description, &e.EntryDate, &e.EntryType, &e.Status,
		&e.CurrencyCode, &exchangeRate, &e.Amount,
		&submittedBy, &submittedAt, &approvedBy, &approvedAt, &postedBy, &postedAt,
		&voidedBy, &voidedAt, &voidReason, &reverseOf, &reversalID, &metadata,
		&e.CreatedAt, &e.CreatedBy, &e.LastUpdatedAt, &e.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}

	e.Reference = reference.String
	e.VoidReason = voidReason.String
	if exchangeRate.Valid {
		e.ExchangeRate = &exchangeRate.Decimal
	}
	assignNullString(&e.SubmittedBy, submittedBy)
	assignNullString(&e.ApprovedBy, approvedBy)
	assignNullString(&e.PostedBy, postedBy)
	assignNullString(&e.VoidedBy, voidedBy)
	assignNullTime(&e.SubmittedAt, submittedAt)
	assignNullTime(&e.ApprovedAt, approvedAt)
	assignNullTime(&e.PostedAt, postedAt)
	assignNullTime(&e.VoidedAt, voidedAt)
	assignNullString(&e.ReverseOfEntryID, reverseOf)
	assignNullString(&e.ReversalEntryID, reversalID)
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
			return nil, apperrors.NewAppError(500, "failed to decode entry metadata", err)
		}
	}
	return &e, nil
}

func assignNullString(target **string, src sql.NullString) {
	if src.Valid {
		v := src.String
		*target = &v
	}
}

func assignNullTime(target **time.Time, src sql.NullTime) {
	if src.Valid {
		v := src.Time
		*target = &v
	}
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func metadataJSON(m map[string]string) (interface{}, error) {
	if len(m) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to encode metadata", err)
	}
	return raw, nil
}

// InsertEntry persists the entry, its lines and its source links.
// Implements portsrepo.LedgerTx.
func (t *ledgerTx) InsertEntry(ctx context.Context, entry domain.JournalEntry, lines []domain.JournalLine, sources []domain.EntrySource) error {
	metadata, err := metadataJSON(entry.Metadata)
	if err != nil {
		return err
	}
	var exchangeRate interface{}
	if entry.ExchangeRate != nil {
		exchangeRate = *entry.ExchangeRate
	}

	entryQuery := `
		INSERT INTO journal_entries (` + entryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26);
	`
	_, err = t.tx.Exec(ctx, entryQuery,
		entry.EntryID, entry.CompanyID, nullableString(entry.Reference), entry.Description,
		entry.EntryDate, entry.EntryType, entry.Status,
		entry.CurrencyCode, exchangeRate, entry.Amount,
		entry.SubmittedBy, entry.SubmittedAt, entry.ApprovedBy, entry.ApprovedAt,
		entry.PostedBy, entry.PostedAt,
		entry.VoidedBy, entry.VoidedAt, nullableString(entry.VoidReason),
		entry.ReverseOfEntryID, entry.ReversalEntryID, metadata,
		entry.CreatedAt, entry.CreatedBy, entry.LastUpdatedAt, entry.LastUpdatedBy,
	)
	if err != nil {
		return mapInsertError("failed to insert journal entry "+entry.EntryID, err)
	}

	batch := &pgx.Batch{}
	lineQuery := `
		INSERT INTO journal_lines (line_id, entry_id, line_number, account_id, side, amount, description, currency_code, created_at, created_by, last_updated_at, last_updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);
	`
	for _, line := range lines {
		batch.Queue(lineQuery,
			line.LineID, line.EntryID, line.LineNumber, line.AccountID, line.Side,
			line.Amount, nullableString(line.Description), line.CurrencyCode,
			line.CreatedAt, line.CreatedBy, line.LastUpdatedAt, line.LastUpdatedBy,
		)
	}
	sourceQuery := `
		INSERT INTO entry_sources (source_id, entry_id, company_id, source_type, source_ref, link_type, idempotency_key, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
	`
	for _, source := range sources {
		payload, err := metadataJSON(source.Payload)
		if err != nil {
			return err
		}
		batch.Queue(sourceQuery,
			source.SourceID, source.EntryID, entry.CompanyID, source.SourceType, source.SourceRef,
			source.LinkType, source.IdempotencyKey, payload, source.CreatedAt,
		)
	}

	br := t.tx.SendBatch(ctx, batch)
	if err := br.Close(); err != nil {
		return mapInsertError("failed to insert lines/sources for entry "+entry.EntryID, err)
	}
	return nil
}

// mapInsertError surfaces unique violations as ErrDuplicate so callers can
// react to idempotency-key races.
func mapInsertError(message string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
		return apperrors.NewAppError(409, message, apperrors.ErrDuplicate)
	}
	return apperrors.NewAppError(500, message, err)
}

// FindEntryForUpdate loads an entry under an exclusive row lock.
// Implements portsrepo.LedgerTx.
func (t *ledgerTx) FindEntryForUpdate(ctx context.Context, entryID string) (*domain.JournalEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM journal_entries WHERE entry_id = $1 FOR UPDATE;`
	entry, err := scanEntry(t.tx.QueryRow(ctx, query, entryID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to lock entry "+entryID, err)
	}
	return entry, nil
}

// FindLinesByEntryID implements portsrepo.LedgerTx.
func (t *ledgerTx) FindLinesByEntryID(ctx context.Context, entryID string) ([]domain.JournalLine, error) {
	return queryLines(ctx, t.tx, entryID)
}

// UpdateEntryState implements portsrepo.LedgerTx.
func (t *ledgerTx) UpdateEntryState(ctx context.Context, entry domain.JournalEntry) error {
	query := `
		UPDATE journal_entries
		SET status = $2,
		    submitted_by = $3, submitted_at = $4,
		    approved_by = $5, approved_at = $6,
		    posted_by = $7, posted_at = $8,
		    voided_by = $9, voided_at = $10, void_reason = $11,
		    reversal_entry_id = $12,
		    last_updated_at = $13, last_updated_by = $14
		WHERE entry_id = $1;
	`
	tag, err := t.tx.Exec(ctx, query,
		entry.EntryID, entry.Status,
		entry.SubmittedBy, entry.SubmittedAt,
		entry.ApprovedBy, entry.ApprovedAt,
		entry.PostedBy, entry.PostedAt,
		entry.VoidedBy, entry.VoidedAt, nullableString(entry.VoidReason),
		entry.ReversalEntryID,
		entry.LastUpdatedAt, entry.LastUpdatedBy,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update entry "+entry.EntryID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// FindAccountsByIDsForUpdate locks account rows in sorted ID order so
// concurrent transitions touching overlapping account sets cannot deadlock.
// Implements portsrepo.LedgerTx.
func (t *ledgerTx) FindAccountsByIDsForUpdate(ctx context.Context, accountIDs []string) (map[string]domain.Account, error) {
	if len(accountIDs) == 0 {
		return map[string]domain.Account{}, nil
	}
	sorted := make([]string, len(accountIDs))
	copy(sorted, accountIDs)
	sort.Strings(sorted)

	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE account_id = ANY($1)
		ORDER BY account_id
		FOR UPDATE;
	`
	rows, err := t.tx.Query(ctx, query, sorted)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to lock accounts", err)
	}
	defer rows.Close()

	accounts := make(map[string]domain.Account, len(sorted))
	for rows.Next() {
		acc, err := scanAccountFromRows(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan locked account row", err)
		}
		accounts[acc.AccountID] = *acc
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating locked account rows", err)
	}
	return accounts, nil
}

// ApplyBalanceChanges adds signed deltas to the maintained account balances.
// Implements portsrepo.LedgerTx.
func (t *ledgerTx) ApplyBalanceChanges(ctx context.Context, changes map[string]decimal.Decimal, actorID string, now time.Time) error {
	if len(changes) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	query := `
		UPDATE accounts
		SET balance = balance + $2, last_updated_at = $3, last_updated_by = $4
		WHERE account_id = $1;
	`
	// Deterministic order to keep logs and batches reproducible.
	accountIDs := make([]string, 0, len(changes))
	for id := range changes {
		accountIDs = append(accountIDs, id)
	}
	sort.Strings(accountIDs)
	for _, id := range accountIDs {
		batch.Queue(query, id, changes[id], now, actorID)
	}

	br := t.tx.SendBatch(ctx, batch)
	if err := br.Close(); err != nil {
		return apperrors.NewAppError(500, "failed to apply balance changes", err)
	}
	return nil
}

// AppendAudit implements portsrepo.LedgerTx.
func (t *ledgerTx) AppendAudit(ctx context.Context, record domain.AuditRecord) error {
	changes, err := metadataJSON(record.Changes)
	if err != nil {
		return err
	}
	metadata, err := metadataJSON(record.Metadata)
	if err != nil {
		return err
	}
	var prevState, newState interface{}
	if len(record.PreviousState) > 0 {
		prevState = []byte(record.PreviousState)
	}
	if len(record.NewState) > 0 {
		newState = []byte(record.NewState)
	}

	query := `
		INSERT INTO journal_audits (audit_id, entry_id, event_type, previous_state, new_state, changes, metadata, actor_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
	`
	_, err = t.tx.Exec(ctx, query,
		record.AuditID, record.EntryID, record.EventType,
		prevState, newState, changes, metadata, record.ActorID, record.CreatedAt,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to append audit record for entry "+record.EntryID, err)
	}
	return nil
}

// FindEntryIDByIdempotencyKey implements portsrepo.LedgerTx.
func (t *ledgerTx) FindEntryIDByIdempotencyKey(ctx context.Context, companyID, key string) (*string, error) {
	query := `
		SELECT entry_id
		FROM entry_sources
		WHERE company_id = $1 AND idempotency_key = $2
		LIMIT 1;
	`
	var entryID string
	err := t.tx.QueryRow(ctx, query, companyID, key).Scan(&entryID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperrors.NewAppError(500, "failed idempotency key lookup", err)
	}
	return &entryID, nil
}

// HasApprovedDuplicate implements portsrepo.LedgerTx.
func (t *ledgerTx) HasApprovedDuplicate(ctx context.Context, companyID string, entryDate time.Time, description string, excludeEntryID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM journal_entries
			WHERE company_id = $1
			  AND entry_date = $2
			  AND description = $3
			  AND status IN ('APPROVED', 'POSTED')
			  AND entry_id <> $4
		);
	`
	var exists bool
	if err := t.tx.QueryRow(ctx, query, companyID, entryDate, description, excludeEntryID).Scan(&exists); err != nil {
		return false, apperrors.NewAppError(500, "failed duplicate approval check", err)
	}
	return exists, nil
}

// HasPostedReferenceConflict implements portsrepo.LedgerTx.
func (t *ledgerTx) HasPostedReferenceConflict(ctx context.Context, companyID string, entryDate time.Time, reference string, excludeEntryID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM journal_entries
			WHERE company_id = $1
			  AND entry_date = $2
			  AND reference = $3
			  AND status = 'POSTED'
			  AND entry_id <> $4
		);
	`
	var exists bool
	if err := t.tx.QueryRow(ctx, query, companyID, entryDate, reference, excludeEntryID).Scan(&exists); err != nil {
		return false, apperrors.NewAppError(500, "failed reference conflict check", err)
	}
	return exists, nil
}

// HasLaterPostedOnAccounts implements portsrepo.LedgerTx.
func (t *ledgerTx) HasLaterPostedOnAccounts(ctx context.Context, companyID string, after time.Time, accountIDs []string, excludeEntryID string) (bool, error) {
	if len(accountIDs) == 0 {
		return false, nil
	}
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM journal_entries e
			JOIN journal_lines l ON l.entry_id = e.entry_id
			WHERE e.company_id = $1
			  AND e.entry_date > $2
			  AND e.status = 'POSTED'
			  AND e.entry_id <> $3
			  AND l.account_id = ANY($4)
		);
	`
	var exists bool
	if err := t.tx.QueryRow(ctx, query, companyID, after, excludeEntryID, accountIDs).Scan(&exists); err != nil {
		return false, apperrors.NewAppError(500, "failed dependent entry check", err)
	}
	return exists, nil
}

// FindEntryByID retrieves an entry by its ID.
func (r *PgxEntryRepository) FindEntryByID(ctx context.Context, entryID string) (*domain.JournalEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM journal_entries WHERE entry_id = $1;`
	entry, err := scanEntry(r.Pool.QueryRow(ctx, query, entryID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find entry by ID "+entryID, err)
	}
	return entry, nil
}

// rowQuerier is satisfied by both *pgxpool.Pool and pgx.Tx.
type rowQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func queryLines(ctx context.Context, q rowQuerier, entryID string) ([]domain.JournalLine, error) {
	query := `
		SELECT line_id, entry_id, line_number, account_id, side, amount, description, currency_code,
		       created_at, created_by, last_updated_at, last_updated_by
		FROM journal_lines
		WHERE entry_id = $1
		ORDER BY line_number;
	`
	rows, err := q.Query(ctx, query, entryID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query lines for entry "+entryID, err)
	}
	defer rows.Close()

	lines := []domain.JournalLine{}
	for rows.Next() {
		var l domain.JournalLine
		var description sql.NullString
		err := rows.Scan(
			&l.LineID, &l.EntryID, &l.LineNumber, &l.AccountID, &l.Side, &l.Amount,
			&description, &l.CurrencyCode,
			&l.CreatedAt, &l.CreatedBy, &l.LastUpdatedAt, &l.LastUpdatedBy,
		)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan line row for entry "+entryID, err)
		}
		l.Description = description.String
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating line rows for entry "+entryID, err)
	}
	return lines, nil
}

// FindLinesByEntryID retrieves all lines for an entry, ordered by line number.
func (r *PgxEntryRepository) FindLinesByEntryID(ctx context.Context, entryID string) ([]domain.JournalLine, error) {
	return queryLines(ctx, r.Pool, entryID)
}

// FindSourcesByEntryID retrieves the source links for an entry.
func (r *PgxEntryRepository) FindSourcesByEntryID(ctx context.Context, entryID string) ([]domain.EntrySource, error) {
	query := `
		SELECT source_id, entry_id, source_type, source_ref, link_type, idempotency_key, payload, created_at
		FROM entry_sources
		WHERE entry_id = $1
		ORDER BY created_at;
	`
	rows, err := r.Pool.Query(ctx, query, entryID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query sources for entry "+entryID, err)
	}
	defer rows.Close()

	sources := []domain.EntrySource{}
	for rows.Next() {
		var s domain.EntrySource
		var idempotencyKey sql.NullString
		var payload []byte
		err := rows.Scan(&s.SourceID, &s.EntryID, &s.SourceType, &s.SourceRef, &s.LinkType, &idempotencyKey, &payload, &s.CreatedAt)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan source row for entry "+entryID, err)
		}
		assignNullString(&s.IdempotencyKey, idempotencyKey)
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &s.Payload); err != nil {
				return nil, apperrors.NewAppError(500, "failed to decode source payload", err)
			}
		}
		sources = append(sources, s)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating source rows for entry "+entryID, err)
	}
	return sources, nil
}

// FindEntryByIdempotencyKey returns the entry carrying the key for the
// company, or ErrNotFound.
func (r *PgxEntryRepository) FindEntryByIdempotencyKey(ctx context.Context, companyID, key string) (*domain.JournalEntry, error) {
	query := `
		SELECT ` + prefixedEntryColumns("e") + `
		FROM journal_entries e
		JOIN entry_sources s ON s.entry_id = e.entry_id
		WHERE s.company_id = $1 AND s.idempotency_key = $2
		LIMIT 1;
	`
	entry, err := scanEntry(r.Pool.QueryRow(ctx, query, companyID, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed idempotency key lookup", err)
	}
	return entry, nil
}

// prefixedEntryColumns qualifies entryColumns with a table alias for joins.
func prefixedEntryColumns(alias string) string {
	cols := ""
	for i, col := range []string{
		"entry_id", "company_id", "reference", "description", "entry_date", "entry_type", "status",
		"currency_code", "exchange_rate", "amount",
		"submitted_by", "submitted_at", "approved_by", "approved_at", "posted_by", "posted_at",
		"voided_by", "voided_at", "void_reason", "reverse_of_entry_id", "reversal_entry_id", "metadata",
		"created_at", "created_by", "last_updated_at", "last_updated_by",
	} {
		if i > 0 {
			cols += ", "
		}
		cols += alias + "." + col
	}
	return cols
}

// ListEntriesByCompany retrieves a paginated list of entries using
// token-based keyset pagination ordered by entry date then creation time.
func (r *PgxEntryRepository) ListEntriesByCompany(ctx context.Context, companyID string, limit int, nextToken *string) ([]domain.JournalEntry, *string, error) {
	if limit <= 0 {
		limit = 20
	}
	// Fetch one extra row to know whether another page exists.
	fetchLimit := limit + 1

	baseQuery := `SELECT ` + entryColumns + ` FROM journal_entries WHERE company_id = $1`
	orderByClause := `ORDER BY entry_date DESC, created_at DESC`

	var rows pgx.Rows
	var err error
	args := []interface{}{companyID}

	if nextToken != nil && *nextToken != "" {
		lastEntryDate, lastCreatedAt, decodeErr := pagination.DecodeToken(*nextToken)
		if decodeErr != nil {
			return nil, nil, apperrors.NewAppError(400, "invalid nextToken", decodeErr)
		}
		cursorClause := `AND (entry_date, created_at) < ($2, $3)`
		args = append(args, lastEntryDate, lastCreatedAt)
		query := baseQuery + " " + cursorClause + " " + orderByClause + " LIMIT $" + strconv.Itoa(len(args)+1) + ";"
		args = append(args, fetchLimit)
		rows, err = r.Pool.Query(ctx, query, args...)
	} else {
		query := baseQuery + " " + orderByClause + " LIMIT $" + strconv.Itoa(len(args)+1) + ";"
		args = append(args, fetchLimit)
		rows, err = r.Pool.Query(ctx, query, args...)
	}
	if err != nil {
		return nil, nil, apperrors.NewAppError(500, "failed to query entries for company "+companyID, err)
	}
	defer rows.Close()

	entries := make([]domain.JournalEntry, 0, fetchLimit)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, nil, apperrors.NewAppError(500, "failed to scan entry row", err)
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, apperrors.NewAppError(500, "error iterating entry rows", err)
	}

	var newNextToken *string
	if len(entries) > limit {
		entries = entries[:limit]
		last := entries[len(entries)-1]
		token := pagination.EncodeToken(last.EntryDate, last.CreatedAt)
		newNextToken = &token
	}
	return entries, newNextToken, nil
}
