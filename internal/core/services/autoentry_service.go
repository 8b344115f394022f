package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

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
	ErrSourceRefMissing = fmt.Errorf("%w: source type and reference are required", apperrors.ErrValidation)
)

// autoEntryService generates journal entries from upstream business events
// (invoices, payments, payroll runs). Generation is idempotent per
// (company, idempotency key): a replayed event returns the original entry
// instead of creating a second one.
type autoEntryService struct {
	entryRepo  portsrepo.EntryRepositoryFacade
	accountSvc portssvc.AccountSvcFacade
	policy     config.LedgerPolicy
}

// NewAutoEntryService creates the automatic entry generator.
func NewAutoEntryService(entryRepo portsrepo.EntryRepositoryFacade, accountSvc portssvc.AccountSvcFacade, policy config.LedgerPolicy) portssvc.AutoEntrySvcFacade {
	return &autoEntryService{
		entryRepo:  entryRepo,
		accountSvc: accountSvc,
		policy:     policy,
	}
}

var _ portssvc.AutoEntrySvcFacade = (*autoEntryService)(nil)

// GenerateEntry builds, persists and (by default) posts an entry for a source
// event. Companies without a chart of accounts get a skipped outcome rather
// than an error so event producers do not retry forever.
// Implements portssvc.AutoEntrySvcFacade.
func (s *autoEntryService) GenerateEntry(ctx context.Context, companyID string, req dto.AutoEntryRequest, actorID *string) (*dto.AutoEntryResult, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if req.SourceType == "" || req.SourceRef == "" {
		return nil, ErrSourceRefMissing
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

	hasAccounts, err := s.accountSvc.HasChartOfAccounts(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to check chart of accounts: %w", err)
	}
	if !hasAccounts {
		logger.Info("Skipping automatic entry, company has no chart of accounts",
			slog.String("company_id", companyID), slog.String("source_ref", req.SourceRef))
		return &dto.AutoEntryResult{
			Outcome: dto.OutcomeSkipped,
			Reason:  "company has no chart of accounts",
		}, nil
	}

	if req.IdempotencyKey != nil {
		existing, err := s.entryRepo.FindEntryByIdempotencyKey(ctx, companyID, *req.IdempotencyKey)
		if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("failed idempotency lookup: %w", err)
		}
		if existing != nil {
			return s.duplicateResult(ctx, existing)
		}
	}

	now := time.Now().UTC()
	systemActor := "system"
	if actorID != nil {
		systemActor = *actorID
	}

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
				CreatedBy:     systemActor,
				LastUpdatedAt: now,
				LastUpdatedBy: systemActor,
			},
		}
	}
	if err := accounting.ValidateBalanced(lines, s.policy.BalanceTolerance); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrEntryUnbalanced, err.Error())
	}
	if accounting.TotalDebits(lines).IsZero() {
		return nil, ErrZeroAmountEntry
	}

	reference := req.Reference
	if reference == "" {
		reference = autoReference(req.SourceType, req.SourceRef, now)
	}

	metadata := req.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	metadata["automatic"] = "true"

	autoPost := req.WantsAutoPost()
	status := domain.Approved
	if autoPost {
		status = domain.Posted
	}

	entry := domain.JournalEntry{
		EntryID:      entryID,
		CompanyID:    companyID,
		Reference:    reference,
		Description:  req.Description,
		EntryDate:    req.Date,
		EntryType:    req.EntryType,
		Status:       status,
		CurrencyCode: req.CurrencyCode,
		Amount:       accounting.TotalDebits(lines),
		Metadata:     metadata,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     systemActor,
			LastUpdatedAt: now,
			LastUpdatedBy: systemActor,
		},
	}
	entry.ApprovedBy = &systemActor
	entry.ApprovedAt = &now
	if autoPost {
		entry.PostedBy = &systemActor
		entry.PostedAt = &now
	}

	source := domain.EntrySource{
		SourceID:       uuid.NewString(),
		EntryID:        entryID,
		SourceType:     req.SourceType,
		SourceRef:      req.SourceRef,
		LinkType:       domain.LinkOrigin,
		IdempotencyKey: req.IdempotencyKey,
		CreatedAt:      now,
	}

	err = s.entryRepo.WithTx(ctx, func(tx portsrepo.LedgerTx) error {
		if req.IdempotencyKey != nil {
			// Re-check under the transaction; the unique index is the
			// final arbiter for concurrent replays.
			if existingID, err := tx.FindEntryIDByIdempotencyKey(ctx, companyID, *req.IdempotencyKey); err != nil {
				return fmt.Errorf("failed idempotency lookup: %w", err)
			} else if existingID != nil {
				return fmt.Errorf("%w: idempotency key already used by entry %s", apperrors.ErrDuplicate, *existingID)
			}
		}

		accountIDs := make([]string, 0, len(lines))
		for _, line := range lines {
			accountIDs = append(accountIDs, line.AccountID)
		}
		accounts, err := tx.FindAccountsByIDsForUpdate(ctx, uniqueStrings(accountIDs))
		if err != nil {
			return fmt.Errorf("failed to lock accounts for update: %w", err)
		}
		for _, id := range uniqueStrings(accountIDs) {
			acc, ok := accounts[id]
			if !ok || acc.CompanyID != companyID {
				return fmt.Errorf("%w: ID %s", ErrAccountNotFound, id)
			}
			if !acc.IsActive {
				return fmt.Errorf("%w: account %s", ErrInactiveAccount, id)
			}
			if acc.CurrencyCode != req.CurrencyCode {
				return fmt.Errorf("%w: account %s is %s, entry is %s", ErrCurrencyMismatch, id, acc.CurrencyCode, req.CurrencyCode)
			}
		}

		if err := tx.InsertEntry(ctx, entry, lines, []domain.EntrySource{source}); err != nil {
			return fmt.Errorf("failed to insert automatic entry: %w", err)
		}

		if autoPost {
			changes, err := accounting.EntryBalanceChanges(lines, accounts)
			if err != nil {
				return err
			}
			if violations := accounting.FindNegativeViolations(accounts, changes, s.policy.AllowNegativeBalances); len(violations) > 0 {
				return fmt.Errorf("%w: accounts %v", ErrNegativeBalance, violations)
			}
			if err := tx.ApplyBalanceChanges(ctx, changes, systemActor, now); err != nil {
				return fmt.Errorf("failed to update account balances: %w", err)
			}
		}

		audit, err := NewAuditRecord(domain.AuditCreated, nil, &entry, map[string]string{"automatic": "true", "source_ref": req.SourceRef}, actorID, now)
		if err != nil {
			return err
		}
		if err := tx.AppendAudit(ctx, audit); err != nil {
			return err
		}
		if autoPost {
			posted, err := NewAuditRecord(domain.AuditPosted, nil, &entry, map[string]string{"automatic": "true"}, actorID, now)
			if err != nil {
				return err
			}
			if err := tx.AppendAudit(ctx, posted); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) && req.IdempotencyKey != nil {
			// Lost the race to a concurrent replay; return its entry.
			existing, lookupErr := s.entryRepo.FindEntryByIdempotencyKey(ctx, companyID, *req.IdempotencyKey)
			if lookupErr == nil && existing != nil {
				return s.duplicateResult(ctx, existing)
			}
		}
		logger.Error("Failed to generate automatic entry", slog.String("error", err.Error()),
			slog.String("company_id", companyID), slog.String("source_ref", req.SourceRef))
		return nil, err
	}

	logger.Info("Automatic entry generated", slog.String("entry_id", entry.EntryID),
		slog.String("company_id", companyID), slog.String("source_type", req.SourceType),
		slog.String("source_ref", req.SourceRef), slog.Bool("auto_post", autoPost))

	resp := dto.ToEntryResponse(&entry)
	return &dto.AutoEntryResult{
		Outcome: dto.OutcomeCreated,
		EntryID: entry.EntryID,
		Entry:   &resp,
	}, nil
}

func (s *autoEntryService) duplicateResult(ctx context.Context, existing *domain.JournalEntry) (*dto.AutoEntryResult, error) {
	lines, err := s.entryRepo.FindLinesByEntryID(ctx, existing.EntryID)
	if err == nil {
		existing.Lines = lines
	}
	resp := dto.ToEntryResponse(existing)
	return &dto.AutoEntryResult{
		Outcome: dto.OutcomeDuplicate,
		EntryID: existing.EntryID,
		Entry:   &resp,
	}, nil
}

// autoReference builds a reference like AUTO-INVOICE-a1b2c3d4-1735689600.
func autoReference(sourceType, sourceRef string, now time.Time) string {
	ref := sourceRef
	if len(ref) > 8 {
		ref = ref[:8]
	}
	return fmt.Sprintf("AUTO-%s-%s-%d", strings.ToUpper(sourceType), ref, now.Unix())
}
