package services

import (
	"context"

	"github.com/finbooks/ledger-core/internal/core/domain"
	"github.com/finbooks/ledger-core/internal/dto"
)

// EntrySvcFacade is the journal entry lifecycle engine: it owns the status
// state machine and enforces every transition precondition. All transitions
// execute as one atomic unit and append exactly one audit record each.
type EntrySvcFacade interface {
	// CreateEntry validates and persists a new manual entry in DRAFT.
	CreateEntry(ctx context.Context, companyID string, req dto.CreateEntryRequest, creatorUserID string) (*domain.JournalEntry, error)

	// SubmitEntry moves DRAFT -> PENDING_APPROVAL.
	SubmitEntry(ctx context.Context, companyID, entryID string, req dto.SubmitEntryRequest, actorID string) (*domain.JournalEntry, error)

	// ApproveEntry moves PENDING_APPROVAL -> APPROVED.
	ApproveEntry(ctx context.Context, companyID, entryID string, req dto.ApproveEntryRequest, actorID string) (*domain.JournalEntry, error)

	// PostEntry moves APPROVED -> POSTED and applies balance changes.
	PostEntry(ctx context.Context, companyID, entryID string, req dto.PostEntryRequest, actorID string) (*domain.JournalEntry, error)

	// VoidEntry moves any non-VOID entry to VOID, reverting balances when the
	// entry was posted.
	VoidEntry(ctx context.Context, companyID, entryID string, req dto.VoidEntryRequest, actorID string) (*domain.JournalEntry, error)

	// ReverseEntry creates a new entry with every line flipped and links it to
	// the original. Returns (original, reversal).
	ReverseEntry(ctx context.Context, companyID, entryID string, req dto.ReverseEntryRequest, actorID string) (*domain.JournalEntry, *domain.JournalEntry, error)

	GetEntryByID(ctx context.Context, companyID, entryID string, requestingUserID string) (*domain.JournalEntry, error)
	ListEntries(ctx context.Context, companyID string, userID string, params dto.ListEntriesParams) (*dto.ListEntriesResponse, error)

	// GetEntryTimeline returns the entry's audit trail, time ascending.
	GetEntryTimeline(ctx context.Context, companyID, entryID string, requestingUserID string) ([]domain.AuditRecord, error)
}

// AutoEntrySvcFacade translates external source-document events into balanced
// entries with at-most-once generation per idempotency key.
type AutoEntrySvcFacade interface {
	// GenerateEntry builds, persists and (by default) posts an entry for a
	// source event. A nil actorID marks the system actor.
	GenerateEntry(ctx context.Context, companyID string, req dto.AutoEntryRequest, actorID *string) (*dto.AutoEntryResult, error)
}
