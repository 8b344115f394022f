package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryStatus indicates the lifecycle state of a journal entry.
type EntryStatus string

const (
	Draft           EntryStatus = "DRAFT"
	PendingApproval EntryStatus = "PENDING_APPROVAL"
	Approved        EntryStatus = "APPROVED"
	Posted          EntryStatus = "POSTED"
	Void            EntryStatus = "VOID"
)

// forwardRank orders the forward lifecycle path. VOID is terminal and sits
// outside the ordering; a reversed entry keeps status POSTED.
var forwardRank = map[EntryStatus]int{
	Draft:           0,
	PendingApproval: 1,
	Approved:        2,
	Posted:          3,
}

// CanTransitionTo reports whether moving from s to next is a legal lifecycle
// step. The forward path is strictly one step at a time; VOID is reachable
// from every status except VOID itself, and nothing leaves VOID.
func (s EntryStatus) CanTransitionTo(next EntryStatus) bool {
	if s == Void {
		return false
	}
	if next == Void {
		return true
	}
	from, okFrom := forwardRank[s]
	to, okTo := forwardRank[next]
	if !okFrom || !okTo {
		return false
	}
	return to == from+1
}

// EntryType categorizes the business origin of a journal entry.
type EntryType string

const (
	TypeSales      EntryType = "SALES"
	TypePurchase   EntryType = "PURCHASE"
	TypePayment    EntryType = "PAYMENT"
	TypeReceipt    EntryType = "RECEIPT"
	TypeAdjustment EntryType = "ADJUSTMENT"
	TypeClosing    EntryType = "CLOSING"
	TypeOpening    EntryType = "OPENING"
	TypeReversal   EntryType = "REVERSAL"
	TypeAutomation EntryType = "AUTOMATION"
)

// KnownEntryType reports whether t is one of the enumerated entry types.
func KnownEntryType(t EntryType) bool {
	switch t {
	case TypeSales, TypePurchase, TypePayment, TypeReceipt, TypeAdjustment,
		TypeClosing, TypeOpening, TypeReversal, TypeAutomation:
		return true
	}
	return false
}

// JournalEntry represents a single, balanced accounting event composed of
// multiple lines. Lines are immutable once created; corrections happen via
// reversal entries, never in-place edits.
type JournalEntry struct {
	EntryID         string           `json:"entryID"`     // Primary Key (e.g., UUID)
	CompanyID       string           `json:"companyID"`   // Owning company (Not Null)
	Reference       string           `json:"reference"`   // Human reference, unique among posted entries per company+date
	Description     string           `json:"description"` // Required user description
	EntryDate       time.Time        `json:"entryDate"`   // Effective (accounting) date
	EntryType       EntryType        `json:"entryType"`
	Status          EntryStatus      `json:"status"`
	CurrencyCode    string           `json:"currencyCode"`
	ExchangeRate    *decimal.Decimal `json:"exchangeRate,omitempty"` // Optional rate to company base currency
	Amount          decimal.Decimal  `json:"amount"`                 // Total debit side; the economic value of the entry
	SubmittedBy     *string          `json:"submittedBy,omitempty"`
	SubmittedAt     *time.Time       `json:"submittedAt,omitempty"`
	ApprovedBy      *string          `json:"approvedBy,omitempty"`
	ApprovedAt      *time.Time       `json:"approvedAt,omitempty"`
	PostedBy        *string          `json:"postedBy,omitempty"`
	PostedAt        *time.Time       `json:"postedAt,omitempty"`
	VoidedBy        *string          `json:"voidedBy,omitempty"`
	VoidedAt        *time.Time       `json:"voidedAt,omitempty"`
	VoidReason      string           `json:"voidReason,omitempty"`
	ReverseOfEntryID *string         `json:"reverseOfEntryID,omitempty"` // Set when this entry reverses another
	ReversalEntryID  *string         `json:"reversalEntryID,omitempty"`  // Set when another entry reverses this one
	Metadata        map[string]string `json:"metadata,omitempty"`
	Lines           []JournalLine    `json:"lines,omitempty"` // Often loaded separately
	AuditFields
}

// IsReversal reports whether the entry itself reverses another entry.
func (e *JournalEntry) IsReversal() bool {
	return e.ReverseOfEntryID != nil
}

// HasReversal reports whether the entry has already been reversed.
func (e *JournalEntry) HasReversal() bool {
	return e.ReversalEntryID != nil
}

// RetentionAnchor is the timestamp the retention window is measured from:
// posted_at when the entry was posted, created_at otherwise.
func (e *JournalEntry) RetentionAnchor() time.Time {
	if e.PostedAt != nil {
		return *e.PostedAt
	}
	return e.CreatedAt
}
