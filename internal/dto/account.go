package dto

import (
	"github.com/finbooks/ledger-core/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateAccountRequest defines the payload for creating a ledger account.
type CreateAccountRequest struct {
	Code         string             `json:"code" binding:"required" validate:"required"`
	Name         string             `json:"name" binding:"required" validate:"required"`
	AccountType  domain.AccountType `json:"accountType" binding:"required" validate:"required"`
	CurrencyCode string             `json:"currencyCode" binding:"required,len=3" validate:"required,len=3"`
	Description  string             `json:"description,omitempty"`
}

// AccountResponse defines the data returned for an account.
type AccountResponse struct {
	AccountID     string          `json:"accountID"`
	CompanyID     string          `json:"companyID"`
	Code          string          `json:"code"`
	Name          string          `json:"name"`
	AccountType   string          `json:"accountType"`
	NormalBalance string          `json:"normalBalance"`
	CurrencyCode  string          `json:"currencyCode"`
	Description   string          `json:"description,omitempty"`
	IsActive      bool            `json:"isActive"`
	Balance       decimal.Decimal `json:"balance"`
}

// BalanceCheckResponse reports the maintained balance against a full recompute.
type BalanceCheckResponse struct {
	AccountID  string          `json:"accountID"`
	Maintained decimal.Decimal `json:"maintained"`
	Recomputed decimal.Decimal `json:"recomputed"`
	Consistent bool            `json:"consistent"`
}

// ToAccountResponse converts a domain.Account to its response DTO.
func ToAccountResponse(a *domain.Account) AccountResponse {
	return AccountResponse{
		AccountID:     a.AccountID,
		CompanyID:     a.CompanyID,
		Code:          a.Code,
		Name:          a.Name,
		AccountType:   string(a.AccountType),
		NormalBalance: string(a.AccountType.NormalBalance()),
		CurrencyCode:  a.CurrencyCode,
		Description:   a.Description,
		IsActive:      a.IsActive,
		Balance:       a.Balance,
	}
}
