package dto

import (
	"time"

	"github.com/finbooks/ledger-core/internal/core/domain"
	"github.com/shopspring/decimal"
)

// AutoLineRequest defines one leg of an auto-generated entry.
type AutoLineRequest struct {
	AccountID   string          `json:"accountID" binding:"required" validate:"required"`
	Side        domain.LineSide `json:"side" binding:"required,oneof=DEBIT CREDIT" validate:"required,oneof=DEBIT CREDIT"`
	Amount      decimal.Decimal `json:"amount" binding:"required" validate:"required"`
	Description string          `json:"description,omitempty"`
}

// AutoEntryRequest defines the payload for journal.auto: one source-document
// event translated into a balanced entry.
type AutoEntryRequest struct {
	Description    string            `json:"description" binding:"required" validate:"required"`
	Date           time.Time         `json:"date" binding:"required" validate:"required"`
	EntryType      domain.EntryType  `json:"entryType,omitempty"`
	CurrencyCode   string            `json:"currencyCode" binding:"required,len=3" validate:"required,len=3"`
	Reference      string            `json:"reference,omitempty"`
	Lines          []AutoLineRequest `json:"lines" binding:"required,min=2,dive" validate:"required,min=2,dive"`
	SourceType     string            `json:"sourceType" binding:"required" validate:"required"`
	SourceRef      string            `json:"sourceRef" binding:"required" validate:"required"`
	IdempotencyKey *string           `json:"idempotencyKey,omitempty"`
	AutoPost       *bool             `json:"autoPost,omitempty"` // Defaults to true
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// WantsAutoPost resolves the optional AutoPost flag to its default.
func (r *AutoEntryRequest) WantsAutoPost() bool {
	return r.AutoPost == nil || *r.AutoPost
}

// AutoEntryOutcome classifies the result of journal.auto.
type AutoEntryOutcome string

const (
	OutcomeCreated   AutoEntryOutcome = "created"
	OutcomeDuplicate AutoEntryOutcome = "duplicate"
	// OutcomeSkipped means the company has no chart of accounts yet; the
	// triggering event pipeline should treat it as "nothing to do".
	OutcomeSkipped AutoEntryOutcome = "skipped"
)

// AutoEntryResult is the outcome of journal.auto. EntryID is set for both
// created and duplicate outcomes; Entry only for created.
type AutoEntryResult struct {
	Outcome AutoEntryOutcome `json:"outcome"`
	EntryID string           `json:"entryID,omitempty"`
	Entry   *EntryResponse   `json:"entry,omitempty"`
	Reason  string           `json:"reason,omitempty"`
}
