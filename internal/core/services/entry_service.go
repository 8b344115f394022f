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
	"github.com/finbooks/ledger-core/internal/platform/config"
	"github.com/finbooks/ledger-core/internal/utils/accounting"
)

var (
	ErrEntryUnbalanced    = fmt.Errorf("%w: entry must be balanced", apperrors.ErrValidation)
	ErrEntryMinLines      = fmt.Errorf("%w: entry must have at least two lines", apperrors.ErrValidation)
	ErrEntryMinAccounts   = fmt.Errorf("%w: entry must affect at least two different accounts", apperrors.ErrValidation)
	ErrDescriptionMissing = fmt.Errorf("%w: entry description is required", apperrors.ErrValidation)
	ErrUnknownEntryType   = fmt.Errorf("%w: unknown entry type", apperrors.ErrValidation)
	ErrZeroAmountEntry    = fmt.Errorf("%w: entry total must not be zero", apperrors.ErrValidation)
	ErrAccountNotFound    = fmt.Errorf("%w: account not found", apperrors.ErrNotFound)
	ErrCurrencyMismatch   = fmt.Errorf("%w: account currency does not match entry currency", apperrors.ErrValidation)

	ErrInvalidState      = fmt.Errorf("%w: operation not allowed in current lifecycle state", apperrors.ErrConflict)
	ErrAlreadyPosted     = fmt.Errorf("%w: entry is already posted", apperrors.ErrConflict)
	ErrAlreadyVoid       = fmt.Errorf("%w: entry is already void", apperrors.ErrConflict)
	ErrAlreadyReversed   = fmt.Errorf("%w: entry already has a reversal", apperrors.ErrConflict)
	ErrIsReversal        = fmt.Errorf("%w: a reversal entry cannot be voided or reversed", apperrors.ErrBusinessRule)
	ErrInactiveAccount   = fmt.Errorf("%w: inactive account referenced", apperrors.ErrBusinessRule)
	ErrNegativeBalance   = fmt.Errorf("%w: operation would create a negative balance", apperrors.ErrBusinessRule)
	ErrOutOfPeriod       = fmt.Errorf("%w: entry date is outside the open accounting period", apperrors.ErrBusinessRule)
	ErrPostingConflict   = fmt.Errorf("%w: another posted entry carries the same reference for this date", apperrors.ErrBusinessRule)
	ErrDuplicateApproval = fmt.Errorf("%w: an approved entry with the same date and description already exists", apperrors.ErrBusinessRule)
	ErrSelfApproval      = fmt.Errorf("%w: entries cannot be approved by their creator", apperrors.ErrForbidden)
	ErrRetentionExpired  = fmt.Errorf("%w: entry is older than the retention window", apperrors.ErrBusinessRule)
	ErrDependentEntries  = fmt.Errorf("%w: later posted entries depend on the affected accounts", apperrors.ErrBusinessRule)
	ErrReversalDatePast  = fmt.Errorf("%w: reversal date must not be in the past", apperrors.ErrValidation)
)

// entryService is the journal entry lifecycle engine. Every transition runs
// inside one database transaction holding a row lock on the entry, so
// concurrent attempts on the same entry serialize and the loser fails its
// precondition check against the already-updated status.
type entryService struct {
	entryRepo  portsrepo.EntryRepositoryFacade
	auditRepo  portsrepo.AuditRepositoryFacade
	accountSvc portssvc.AccountSvcFacade
	authorizer portssvc.Authorizer
	policy     config.LedgerPolicy
}

// NewEntryService creates the lifecycle engine.
func NewEntryService(entryRepo portsrepo.EntryRepositoryFacade, auditRepo portsrepo.AuditRepositoryFacade, accountSvc portssvc.AccountSvcFacade, authorizer portssvc.Authorizer, policy config.LedgerPolicy) portssvc.EntrySvcFacade {
	return &entryService{
		entryRepo:  entryRepo,
		auditRepo:  auditRepo,
		accountSvc: accountSvc,
		authorizer: authorizer,
		policy:     policy,
	}
}

var _ portssvc.EntrySvcFacade = (*entryService)(nil)

// withinOpenPeriod checks the entry date against the configured lookback.
func (s *entryService) withinOpenPeriod(entryDate, now time.Time) bool {
	periodStart := now.AddDate(0, 0, -s.policy.PeriodLookbackDays)
	return !entryDate.Before(periodStart)
}

// withinRetentionWindow checks the void/reverse retention rule.
func (s *entryService) withinRetentionWindow(entry *domain.JournalEntry, now time.Time) bool {
	return now.Sub(entry.RetentionAnchor()) <= s.policy.RetentionWindow
}

// fetchEntryAccounts loads and validates the accounts behind a set of lines:
// each must exist, belong to the company, and (when requireActive) be active.
func (s *entryService) fetchEntryAccounts(ctx context.Context, companyID string, lines []domain.JournalLine, requireActive bool) (map[string]domain.Account, error) {
	accountIDs := make([]string, 0, len(lines))
	for _, line := range lines {
		accountIDs = append(accountIDs, line.AccountID)
	}
	accountsMap, err := s.accountSvc.GetAccountByIDs(ctx, companyID, uniqueStrings(accountIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch accounts: %w", err)
	}
	for _, id := range uniqueStrings(accountIDs) {
		acc, found := accountsMap[id]
		if !found {
			return nil, fmt.Errorf("%w: ID %s", ErrAccountNotFound, id)
		}
		if requireActive && !acc.IsActive {
			return nil, fmt.Errorf("%w: account %s", ErrInactiveAccount, id)
		}
	}
	return accountsMap, nil
}

// CreateEntry validates and persists a new manual entry in DRAFT.
// Implements portssvc.EntrySvcFacade.
func (s *entryService) CreateEntry(ctx context.Context, companyID string, req dto.CreateEntryRequest, creatorUserID string) (*domain.JournalEntry, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if err := s.authorizer.CanTransition(ctx, creatorUserID, companyID, portssvc.OpCreate); err != nil {
		logger.Warn("Authorization failed for CreateEntry", slog.String("user_id", creatorUserID), slog.String("company_id", companyID), slog.String("error", err.Error()))
		return nil, err
	}

	if req.Description == "" {
		return nil, ErrDescriptionMissing
	}
	if !domain.KnownEntryType(req.EntryType) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntryType, req.EntryType)
	}
	if len(req.Lines) < 2 {
		return nil, ErrEntryMinLines
	}

	accountSet := make(map[string]bool)
	for _, line := range req.Lines {
		accountSet[line.AccountID] = true
	}
	if len(accountSet) < 2 {
		return nil, ErrEntryMinAccounts
	}

	now := time.Now().UTC()
	entryID := uuid.NewString()

	lines := make([]domain.JournalLine, len(req.Lines))
	for i, lineReq := range req.Lines {
		lines[i] = domain.JournalLine{
			LineID:       uuid.NewString(),
			EntryID:      entryID,
			LineNumber:   i + 1,
			AccountID:    lineReq.AccountID,
			Side:         lineReq.Side,
			Amount:       lineReq.Amount,
			Description:  lineReq.Description,
			CurrencyCode: req.CurrencyCode,
			AuditFields: domain.AuditFields{
				CreatedAt:     now,
				CreatedBy:     creatorUserID,
				LastUpdatedAt: now,
				LastUpdatedBy: creatorUserID,
			},
		}
	}

	if err := accounting.ValidateBalanced(lines, s.policy.BalanceTolerance); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrEntryUnbalanced, err.Error())
	}
	if accounting.TotalDebits(lines).IsZero() {
		return nil, ErrZeroAmountEntry
	}

	accountsMap, err := s.fetchEntryAccounts(ctx, companyID, lines, true)
	if err != nil {
		return nil, err
	}
	for id, acc := range accountsMap {
		if acc.CurrencyCode != req.CurrencyCode {
			return nil, fmt.Errorf("%w: account %s is %s, entry is %s", ErrCurrencyMismatch, id, acc.CurrencyCode, req.CurrencyCode)
		}
	}

	entry := domain.JournalEntry{
		EntryID:      entryID,
		CompanyID:    companyID,
		Reference:    req.Reference,
		Description:  req.Description,
		EntryDate:    req.Date,
		EntryType:    req.EntryType,
		Status:       domain.Draft,
		CurrencyCode: req.CurrencyCode,
		ExchangeRate: req.ExchangeRate,
		Amount:       accounting.TotalDebits(lines),
		Metadata:     req.Metadata,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     creatorUserID,
			LastUpdatedAt: now,
			LastUpdatedBy: creatorUserID,
		},
	}

	sources := make([]domain.EntrySource, 0, len(req.Sources))
	for _, srcReq := range req.Sources {
		linkType := srcReq.LinkType
		if linkType == "" {
			linkType = domain.LinkSupporting
		}
		sources = append(sources, domain.EntrySource{
			SourceID:   uuid.NewString(),
			EntryID:    entryID,
			SourceType: srcReq.SourceType,
			SourceRef:  srcReq.SourceRef,
			LinkType:   linkType,
			Payload:    srcReq.Payload,
			CreatedAt:  now,
		})
	}

	err = s.entryRepo.WithTx(ctx, func(tx portsrepo.LedgerTx) error {
		if err := tx.InsertEntry(ctx, entry, lines, sources); err != nil {
			return fmt.Errorf("failed to insert entry: %w", err)
		}
		audit, err := NewAuditRecord(domain.AuditCreated, nil, &entry, nil, &creatorUserID, now)
		if err != nil {
			return err
		}
		return tx.AppendAudit(ctx, audit)
	})
	if err != nil {
		logger.Error("Failed to save entry", slog.String("error", err.Error()), slog.String("company_id", companyID))
		return nil, err
	}

	logger.Info("Entry created", slog.String("entry_id", entry.EntryID), slog.String("company_id", companyID))
	entry.Lines = nil
	return &entry, nil
}

// SubmitEntry moves DRAFT -> PENDING_APPROVAL.
// Implements portssvc.EntrySvcFacade.
func (s *entryService) SubmitEntry(ctx context.Context, companyID, entryID string, req dto.SubmitEntryRequest, actorID string) (*domain.JournalEntry, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	var updated *domain.JournalEntry
	err := s.entryRepo.WithTx(ctx, func(tx portsrepo.LedgerTx) error {
		entry, lines, err := s.lockEntryForTransition(ctx, tx, companyID, entryID, actorID, portssvc.OpSubmit)
		if err != nil {
			return err
		}
		if !entry.Status.CanTransitionTo(domain.PendingApproval) {
			return fmt.Errorf("%w: only draft entries can be submitted (status is %s)", ErrInvalidState, entry.Status)
		}
		if len(lines) < 2 {
			return ErrEntryMinLines
		}
		if err := accounting.ValidateBalanced(lines, s.policy.BalanceTolerance); err != nil {
			return fmt.Errorf("%w: %s", ErrEntryUnbalanced, err.Error())
		}

		now := time.Now().UTC()
		prev := *entry
		entry.Status = domain.PendingApproval
		entry.SubmittedBy = &actorID
		entry.SubmittedAt = &now
		entry.LastUpdatedAt = now
		entry.LastUpdatedBy = actorID

		if err := tx.UpdateEntryState(ctx, *entry); err != nil {
			return fmt.Errorf("failed to update entry state: %w", err)
		}
		audit, err := NewAuditRecord(domain.AuditSubmitted, &prev, entry, noteMetadata(req.Note), &actorID, now)
		if err != nil {
			return err
		}
		if err := tx.AppendAudit(ctx, audit); err != nil {
			return err
		}
		updated = entry
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Entry submitted", slog.String("entry_id", entryID), slog.String("company_id", companyID))
	return updated, nil
}

// ApproveEntry moves PENDING_APPROVAL -> APPROVED.
// Implements portssvc.EntrySvcFacade.
func (s *entryService) ApproveEntry(ctx context.Context, companyID, entryID string, req dto.ApproveEntryRequest, actorID string) (*domain.JournalEntry, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	var updated *domain.JournalEntry
	err := s.entryRepo.WithTx(ctx, func(tx portsrepo.LedgerTx) error {
		entry, lines, err := s.lockEntryForTransition(ctx, tx, companyID, entryID, actorID, portssvc.OpApprove)
		if err != nil {
			return err
		}
		if !entry.Status.CanTransitionTo(domain.Approved) {
			return fmt.Errorf("%w: only pending entries can be approved (status is %s)", ErrInvalidState, entry.Status)
		}
		if err := accounting.ValidateBalanced(lines, s.policy.BalanceTolerance); err != nil {
			return fmt.Errorf("%w: %s", ErrEntryUnbalanced, err.Error())
		}

		now := time.Now().UTC()
		if !s.withinOpenPeriod(entry.EntryDate, now) {
			return fmt.Errorf("%w: %s", ErrOutOfPeriod, entry.EntryDate.Format("2006-01-02"))
		}
		if actorID == entry.CreatedBy && !s.authorizer.CanSelfApprove(ctx, actorID, companyID) {
			return ErrSelfApproval
		}
		if _, err := s.fetchEntryAccounts(ctx, companyID, lines, true); err != nil {
			return err
		}

		dup, err := tx.HasApprovedDuplicate(ctx, companyID, entry.EntryDate, entry.Description, entry.EntryID)
		if err != nil {
			return fmt.Errorf("failed to check for duplicate approvals: %w", err)
		}
		if dup {
			return ErrDuplicateApproval
		}

		prev := *entry
		entry.Status = domain.Approved
		entry.ApprovedBy = &actorID
		entry.ApprovedAt = &now
		entry.LastUpdatedAt = now
		entry.LastUpdatedBy = actorID

		if err := tx.UpdateEntryState(ctx, *entry); err != nil {
			return fmt.Errorf("failed to update entry state: %w", err)
		}
		audit, err := NewAuditRecord(domain.AuditApproved, &prev, entry, noteMetadata(req.Note), &actorID, now)
		if err != nil {
			return err
		}
		if err := tx.AppendAudit(ctx, audit); err != nil {
			return err
		}
		updated = entry
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Entry approved", slog.String("entry_id", entryID), slog.String("company_id", companyID))
	return updated, nil
}

// PostEntry moves APPROVED -> POSTED and applies every line's effect to its
// account balance, atomically with the status change.
// Implements portssvc.EntrySvcFacade.
func (s *entryService) PostEntry(ctx context.Context, companyID, entryID string, req dto.PostEntryRequest, actorID string) (*domain.JournalEntry, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	var updated *domain.JournalEntry
	err := s.entryRepo.WithTx(ctx, func(tx portsrepo.LedgerTx) error {
		entry, lines, err := s.lockEntryForTransition(ctx, tx, companyID, entryID, actorID, portssvc.OpPost)
		if err != nil {
			return err
		}
		if entry.Status == domain.Posted {
			return ErrAlreadyPosted
		}
		if !entry.Status.CanTransitionTo(domain.Posted) {
			return fmt.Errorf("%w: only approved journal entries can be posted (status is %s)", ErrInvalidState, entry.Status)
		}
		if err := accounting.ValidateBalanced(lines, s.policy.BalanceTolerance); err != nil {
			return fmt.Errorf("%w: %s", ErrEntryUnbalanced, err.Error())
		}

		now := time.Now().UTC()
		if !s.withinOpenPeriod(entry.EntryDate, now) {
			return fmt.Errorf("%w: %s", ErrOutOfPeriod, entry.EntryDate.Format("2006-01-02"))
		}
		if entry.EntryDate.After(now) {
			if err := s.authorizer.CanTransition(ctx, actorID, companyID, portssvc.OpPostFuture); err != nil {
				return err
			}
		}

		if entry.Reference != "" {
			conflict, err := tx.HasPostedReferenceConflict(ctx, companyID, entry.EntryDate, entry.Reference, entry.EntryID)
			if err != nil {
				return fmt.Errorf("failed to check reference conflicts: %w", err)
			}
			if conflict {
				return fmt.Errorf("%w: reference %s", ErrPostingConflict, entry.Reference)
			}
		}

		accounts, changes, err := s.lockAndComputeChanges(ctx, tx, lines, false)
		if err != nil {
			return err
		}
		if violations := accounting.FindNegativeViolations(accounts, changes, s.policy.AllowNegativeBalances); len(violations) > 0 {
			return fmt.Errorf("%w: accounts %v", ErrNegativeBalance, violations)
		}

		if err := tx.ApplyBalanceChanges(ctx, changes, actorID, now); err != nil {
			return fmt.Errorf("failed to update account balances: %w", err)
		}

		prev := *entry
		entry.Status = domain.Posted
		entry.PostedBy = &actorID
		entry.PostedAt = &now
		entry.LastUpdatedAt = now
		entry.LastUpdatedBy = actorID

		if err := tx.UpdateEntryState(ctx, *entry); err != nil {
			return fmt.Errorf("failed to update entry state: %w", err)
		}
		audit, err := NewAuditRecord(domain.AuditPosted, &prev, entry, noteMetadata(req.Note), &actorID, now)
		if err != nil {
			return err
		}
		if err := tx.AppendAudit(ctx, audit); err != nil {
			return err
		}
		updated = entry
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Entry posted", slog.String("entry_id", entryID), slog.String("company_id", companyID))
	return updated, nil
}

// VoidEntry moves any non-VOID entry to VOID. When the entry was posted its
// balance effect is reverted in the same transaction.
// Implements portssvc.EntrySvcFacade.
func (s *entryService) VoidEntry(ctx context.Context, companyID, entryID string, req dto.VoidEntryRequest, actorID string) (*domain.JournalEntry, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if req.Reason == "" {
		return nil, fmt.Errorf("%w: void reason is required", apperrors.ErrValidation)
	}

	var updated *domain.JournalEntry
	err := s.entryRepo.WithTx(ctx, func(tx portsrepo.LedgerTx) error {
		entry, lines, err := s.lockEntryForTransition(ctx, tx, companyID, entryID, actorID, portssvc.OpVoid)
		if err != nil {
			return err
		}
		if !entry.Status.CanTransitionTo(domain.Void) {
			return ErrAlreadyVoid
		}
		if entry.HasReversal() {
			return ErrAlreadyReversed
		}
		if entry.IsReversal() {
			return ErrIsReversal
		}

		now := time.Now().UTC()
		if !s.withinRetentionWindow(entry, now) {
			return ErrRetentionExpired
		}

		wasPosted := entry.Status == domain.Posted
		if wasPosted {
			accounts, changes, err := s.lockAndComputeChanges(ctx, tx, lines, true)
			if err != nil {
				return err
			}
			if violations := accounting.FindNegativeViolations(accounts, changes, s.policy.AllowNegativeBalances); len(violations) > 0 {
				return fmt.Errorf("%w: accounts %v", ErrNegativeBalance, violations)
			}
			if err := s.checkDependents(ctx, tx, entry, lines); err != nil {
				return err
			}
			if err := tx.ApplyBalanceChanges(ctx, changes, actorID, now); err != nil {
				return fmt.Errorf("failed to revert account balances: %w", err)
			}
		}

		prev := *entry
		entry.Status = domain.Void
		entry.VoidedBy = &actorID
		entry.VoidedAt = &now
		entry.VoidReason = req.Reason
		entry.LastUpdatedAt = now
		entry.LastUpdatedBy = actorID

		if err := tx.UpdateEntryState(ctx, *entry); err != nil {
			return fmt.Errorf("failed to update entry state: %w", err)
		}
		audit, err := NewAuditRecord(domain.AuditVoided, &prev, entry, map[string]string{"reason": req.Reason}, &actorID, now)
		if err != nil {
			return err
		}
		if err := tx.AppendAudit(ctx, audit); err != nil {
			return err
		}
		updated = entry
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Entry voided", slog.String("entry_id", entryID), slog.String("company_id", companyID), slog.String("reason", req.Reason))
	return updated, nil
}

// ReverseEntry creates a new entry with every line's side flipped, links it to
// the original, and posts it immediately when auto-post is requested.
// Implements portssvc.EntrySvcFacade.
func (s *entryService) ReverseEntry(ctx context.Context, companyID, entryID string, req dto.ReverseEntryRequest, actorID string) (*domain.JournalEntry, *domain.JournalEntry, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	var original, reversal *domain.JournalEntry
	err := s.entryRepo.WithTx(ctx, func(tx portsrepo.LedgerTx) error {
		entry, lines, err := s.lockEntryForTransition(ctx, tx, companyID, entryID, actorID, portssvc.OpReverse)
		if err != nil {
			return err
		}
		if entry.Status != domain.Posted {
			return fmt.Errorf("%w: only posted entries can be reversed (status is %s)", ErrInvalidState, entry.Status)
		}
		if entry.HasReversal() {
			return ErrAlreadyReversed
		}
		if entry.IsReversal() {
			return ErrIsReversal
		}

		now := time.Now().UTC()
		if !s.withinRetentionWindow(entry, now) {
			return ErrRetentionExpired
		}

		reversalDate := now
		if req.ReversalDate != nil {
			reversalDate = req.ReversalDate.UTC()
		}
		if reversalDate.Before(startOfDay(now)) {
			return ErrReversalDatePast
		}

		newEntryID := uuid.NewString()
		reversalLines := make([]domain.JournalLine, len(lines))
		for i, origLine := range lines {
			reversalLines[i] = domain.JournalLine{
				LineID:       uuid.NewString(),
				EntryID:      newEntryID,
				LineNumber:   origLine.LineNumber,
				AccountID:    origLine.AccountID,
				Side:         origLine.Side.Flip(),
				Amount:       origLine.Amount,
				Description:  origLine.Description,
				CurrencyCode: origLine.CurrencyCode,
				AuditFields: domain.AuditFields{
					CreatedAt:     now,
					CreatedBy:     actorID,
					LastUpdatedAt: now,
					LastUpdatedBy: actorID,
				},
			}
		}

		description := req.DescriptionOverride
		if description == "" {
			description = fmt.Sprintf("Reversal of: %s", entry.Description)
		}

		status := domain.Approved
		if req.AutoPost {
			status = domain.Posted
		}

		newEntry := domain.JournalEntry{
			EntryID:          newEntryID,
			CompanyID:        companyID,
			Reference:        fmt.Sprintf("REV-%s", entry.Reference),
			Description:      description,
			EntryDate:        reversalDate,
			EntryType:        domain.TypeReversal,
			Status:           status,
			CurrencyCode:     entry.CurrencyCode,
			ExchangeRate:     entry.ExchangeRate,
			Amount:           entry.Amount,
			ReverseOfEntryID: &entry.EntryID,
			AuditFields: domain.AuditFields{
				CreatedAt:     now,
				CreatedBy:     actorID,
				LastUpdatedAt: now,
				LastUpdatedBy: actorID,
			},
		}
		if entry.Reference == "" {
			newEntry.Reference = ""
		}
		if req.AutoPost {
			newEntry.PostedBy = &actorID
			newEntry.PostedAt = &now
			newEntry.ApprovedBy = &actorID
			newEntry.ApprovedAt = &now
		} else {
			newEntry.ApprovedBy = &actorID
			newEntry.ApprovedAt = &now
		}

		accounts, changes, err := s.lockAndComputeChangesForLines(ctx, tx, reversalLines)
		if err != nil {
			return err
		}
		if req.AutoPost {
			if violations := accounting.FindNegativeViolations(accounts, changes, s.policy.AllowNegativeBalances); len(violations) > 0 {
				return fmt.Errorf("%w: accounts %v", ErrNegativeBalance, violations)
			}
		}
		if err := s.checkDependents(ctx, tx, entry, lines); err != nil {
			return err
		}

		source := domain.EntrySource{
			SourceID:   uuid.NewString(),
			EntryID:    newEntryID,
			SourceType: "journal_entry",
			SourceRef:  entry.EntryID,
			LinkType:   domain.LinkReversal,
			CreatedAt:  now,
		}
		if err := tx.InsertEntry(ctx, newEntry, reversalLines, []domain.EntrySource{source}); err != nil {
			return fmt.Errorf("failed to insert reversal entry: %w", err)
		}

		if req.AutoPost {
			if err := tx.ApplyBalanceChanges(ctx, changes, actorID, now); err != nil {
				return fmt.Errorf("failed to apply reversal balances: %w", err)
			}
		}

		prev := *entry
		entry.ReversalEntryID = &newEntryID
		entry.LastUpdatedAt = now
		entry.LastUpdatedBy = actorID
		if err := tx.UpdateEntryState(ctx, *entry); err != nil {
			return fmt.Errorf("failed to link reversal on original entry: %w", err)
		}

		origAudit, err := NewAuditRecord(domain.AuditReversalCreated, &prev, entry, map[string]string{"reversal_entry_id": newEntryID}, &actorID, now)
		if err != nil {
			return err
		}
		if err := tx.AppendAudit(ctx, origAudit); err != nil {
			return err
		}
		createdAudit, err := NewAuditRecord(domain.AuditCreated, nil, &newEntry, map[string]string{"reverse_of_entry_id": entry.EntryID}, &actorID, now)
		if err != nil {
			return err
		}
		if err := tx.AppendAudit(ctx, createdAudit); err != nil {
			return err
		}
		if req.AutoPost {
			postedAudit, err := NewAuditRecord(domain.AuditPosted, nil, &newEntry, nil, &actorID, now)
			if err != nil {
				return err
			}
			if err := tx.AppendAudit(ctx, postedAudit); err != nil {
				return err
			}
		}

		original = entry
		reversal = &newEntry
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	logger.Info("Entry reversed", slog.String("entry_id", entryID), slog.String("reversal_entry_id", reversal.EntryID))
	return original, reversal, nil
}

// GetEntryByID retrieves an entry with its lines.
// Implements portssvc.EntrySvcFacade.
func (s *entryService) GetEntryByID(ctx context.Context, companyID, entryID string, requestingUserID string) (*domain.JournalEntry, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if err := s.authorizer.CanTransition(ctx, requestingUserID, companyID, portssvc.OpView); err != nil {
		return nil, err
	}

	entry, err := s.entryRepo.FindEntryByID(ctx, entryID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			logger.Error("Failed to find entry by ID", slog.String("error", err.Error()), slog.String("entry_id", entryID))
		}
		return nil, fmt.Errorf("failed to find entry %s: %w", entryID, err)
	}
	if entry.CompanyID != companyID {
		// Obscure existence across tenants.
		return nil, apperrors.ErrNotFound
	}

	lines, err := s.entryRepo.FindLinesByEntryID(ctx, entryID)
	if err != nil {
		logger.Error("Failed to fetch entry lines", slog.String("error", err.Error()), slog.String("entry_id", entryID))
		return nil, fmt.Errorf("failed to retrieve lines for entry %s: %w", entryID, apperrors.ErrInternal)
	}
	entry.Lines = lines
	return entry, nil
}

// ListEntries retrieves a paginated list of entries for a company.
// Implements portssvc.EntrySvcFacade.
func (s *entryService) ListEntries(ctx context.Context, companyID string, userID string, params dto.ListEntriesParams) (*dto.ListEntriesResponse, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if err := s.authorizer.CanTransition(ctx, userID, companyID, portssvc.OpView); err != nil {
		return nil, err
	}

	limit := params.Limit
	if limit <= 0 {
		limit = 20
	}

	entries, nextToken, err := s.entryRepo.ListEntriesByCompany(ctx, companyID, limit, params.NextToken)
	if err != nil {
		logger.Error("Failed to list entries", slog.String("error", err.Error()), slog.String("company_id", companyID))
		return nil, fmt.Errorf("failed to retrieve entries: %w", err)
	}

	responses := make([]dto.EntryResponse, len(entries))
	for i := range entries {
		if params.IncludeLines {
			lines, err := s.entryRepo.FindLinesByEntryID(ctx, entries[i].EntryID)
			if err != nil {
				logger.Warn("Failed to fetch lines for entry during listing", slog.String("entry_id", entries[i].EntryID), slog.String("error", err.Error()))
			} else {
				entries[i].Lines = lines
			}
		}
		responses[i] = dto.ToEntryResponse(&entries[i])
	}

	return &dto.ListEntriesResponse{Entries: responses, NextToken: nextToken}, nil
}

// GetEntryTimeline returns the full audit trail for an entry, time ascending.
// Implements portssvc.EntrySvcFacade.
func (s *entryService) GetEntryTimeline(ctx context.Context, companyID, entryID string, requestingUserID string) ([]domain.AuditRecord, error) {
	if err := s.authorizer.CanTransition(ctx, requestingUserID, companyID, portssvc.OpView); err != nil {
		return nil, err
	}

	entry, err := s.entryRepo.FindEntryByID(ctx, entryID)
	if err != nil {
		return nil, fmt.Errorf("failed to find entry %s: %w", entryID, err)
	}
	if entry.CompanyID != companyID {
		return nil, apperrors.ErrNotFound
	}

	return s.auditRepo.ListAuditByEntryID(ctx, entryID)
}

// lockEntryForTransition acquires the entry row lock, verifies tenancy and
// authorization, and loads the entry's lines.
func (s *entryService) lockEntryForTransition(ctx context.Context, tx portsrepo.LedgerTx, companyID, entryID, actorID string, op portssvc.Operation) (*domain.JournalEntry, []domain.JournalLine, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if err := s.authorizer.CanTransition(ctx, actorID, companyID, op); err != nil {
		logger.Warn("Authorization failed for entry transition", slog.String("user_id", actorID), slog.String("company_id", companyID), slog.String("operation", string(op)), slog.String("error", err.Error()))
		return nil, nil, err
	}

	entry, err := tx.FindEntryForUpdate(ctx, entryID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, apperrors.ErrNotFound
		}
		return nil, nil, fmt.Errorf("failed to lock entry %s: %w", entryID, err)
	}
	if entry.CompanyID != companyID {
		// Obscure existence across tenants.
		return nil, nil, apperrors.ErrNotFound
	}

	lines, err := tx.FindLinesByEntryID(ctx, entryID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch lines for entry %s: %w", entryID, err)
	}
	return entry, lines, nil
}

// lockAndComputeChanges locks the accounts behind the given lines and computes
// the signed balance deltas for posting them; revert negates the effect
// (used by void-of-posted).
func (s *entryService) lockAndComputeChanges(ctx context.Context, tx portsrepo.LedgerTx, lines []domain.JournalLine, revert bool) (map[string]domain.Account, map[string]decimal.Decimal, error) {
	accounts, changes, err := s.lockAndComputeChangesForLines(ctx, tx, lines)
	if err != nil {
		return nil, nil, err
	}
	if revert {
		changes = accounting.NegateChanges(changes)
	}
	return accounts, changes, nil
}

func (s *entryService) lockAndComputeChangesForLines(ctx context.Context, tx portsrepo.LedgerTx, lines []domain.JournalLine) (map[string]domain.Account, map[string]decimal.Decimal, error) {
	accountIDs := make([]string, 0, len(lines))
	for _, line := range lines {
		accountIDs = append(accountIDs, line.AccountID)
	}
	accounts, err := tx.FindAccountsByIDsForUpdate(ctx, uniqueStrings(accountIDs))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to lock accounts for update: %w", err)
	}
	for _, id := range uniqueStrings(accountIDs) {
		acc, ok := accounts[id]
		if !ok {
			return nil, nil, fmt.Errorf("%w: ID %s", ErrAccountNotFound, id)
		}
		if !acc.IsActive {
			return nil, nil, fmt.Errorf("%w: account %s", ErrInactiveAccount, id)
		}
	}
	changes, err := accounting.EntryBalanceChanges(lines, accounts)
	if err != nil {
		return nil, nil, err
	}
	return accounts, changes, nil
}

// checkDependents applies the (configurable, deliberately coarse) rule that
// void/reverse is blocked while later posted entries touch the same accounts.
func (s *entryService) checkDependents(ctx context.Context, tx portsrepo.LedgerTx, entry *domain.JournalEntry, lines []domain.JournalLine) error {
	if !s.policy.StrictDependents {
		return nil
	}
	accountIDs := make([]string, 0, len(lines))
	for _, line := range lines {
		accountIDs = append(accountIDs, line.AccountID)
	}
	dependent, err := tx.HasLaterPostedOnAccounts(ctx, entry.CompanyID, entry.EntryDate, uniqueStrings(accountIDs), entry.EntryID)
	if err != nil {
		return fmt.Errorf("failed to check dependent entries: %w", err)
	}
	if dependent {
		return ErrDependentEntries
	}
	return nil
}

func noteMetadata(note string) map[string]string {
	if note == "" {
		return nil
	}
	return map[string]string{"note": note}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// uniqueStrings returns a slice containing only the unique strings from the input.
func uniqueStrings(input []string) []string {
	seen := make(map[string]struct{}, len(input))
	result := make([]string, 0, len(input))
	for _, str := range input {
		if _, ok := seen[str]; !ok {
			seen[str] = struct{}{}
			result = append(result, str)
		}
	}
	return result
}
