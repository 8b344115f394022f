package domain

import "github.com/shopspring/decimal"

// LineSide indicates whether a journal line is a debit or a credit leg.
type LineSide string

const (
	Debit  LineSide = "DEBIT"
	Credit LineSide = "CREDIT"
)

// Flip returns the opposite side. Used when building reversal entries.
func (s LineSide) Flip() LineSide {
	if s == Debit {
		return Credit
	}
	return Debit
}

// JournalLine represents a single debit or credit leg within a journal entry,
// affecting one account. Amounts are always positive; the side carries the sign.
type JournalLine struct {
	LineID       string          `json:"lineID"`       // Primary Key (e.g., UUID)
	EntryID      string          `json:"entryID"`      // FK -> JournalEntry.entryID (Not Null)
	LineNumber   int             `json:"lineNumber"`   // Ordered, unique within the entry
	AccountID    string          `json:"accountID"`    // FK -> Account.accountID (Not Null)
	Side         LineSide        `json:"side"`         // DEBIT or CREDIT (Not Null)
	Amount       decimal.Decimal `json:"amount"`       // Positive value
	Description  string          `json:"description"`  // Nullable line description
	CurrencyCode string          `json:"currencyCode"` // Defaults to the entry currency
	AuditFields
}
