package domain

import (
	"github.com/shopspring/decimal"
)

// AccountType defines the fundamental accounting type of an account.
type AccountType string

const (
	Asset        AccountType = "ASSET"
	Liability    AccountType = "LIABILITY"
	Equity       AccountType = "EQUITY"
	Revenue      AccountType = "REVENUE"
	Expense      AccountType = "EXPENSE"
	COGS         AccountType = "COGS"
	OtherIncome  AccountType = "OTHER_INCOME"
	OtherExpense AccountType = "OTHER_EXPENSE"
)

// BalanceSide indicates which side of an entry increases an account.
type BalanceSide string

const (
	DebitNormal  BalanceSide = "DEBIT"
	CreditNormal BalanceSide = "CREDIT"
)

// NormalBalance returns the side that increases an account of this type.
// DEBIT-normal: asset, expense, COGS, other expense. CREDIT-normal: the rest.
func (t AccountType) NormalBalance() BalanceSide {
	switch t {
	case Asset, Expense, COGS, OtherExpense:
		return DebitNormal
	default:
		return CreditNormal
	}
}

// IsBalanceSheet reports whether accounts of this type appear on the balance
// sheet and are therefore subject to the non-negative balance rule.
func (t AccountType) IsBalanceSheet() bool {
	switch t {
	case Asset, Liability, Equity:
		return true
	default:
		return false
	}
}

// Account represents a ledger account within the core domain.
type Account struct {
	AccountID    string          `json:"accountID"`    // Primary Key (e.g., UUID)
	CompanyID    string          `json:"companyID"`    // FK -> companies.company_id (Not Null)
	Code         string          `json:"code"`         // Chart-of-accounts code, unique per company
	Name         string          `json:"name"`         // User-defined name
	AccountType  AccountType     `json:"accountType"`  // ASSET, LIABILITY, etc.
	CurrencyCode string          `json:"currencyCode"` // FK -> currencies.code (Not Null)
	Description  string          `json:"description"`  // Nullable user description
	IsActive     bool            `json:"isActive"`     // Inactive accounts reject new postings
	Balance      decimal.Decimal `json:"balance"`      // Maintained exclusively by posted/voided/reversed lines
	AuditFields
}
