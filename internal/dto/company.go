package dto

import "github.com/finbooks/ledger-core/internal/core/domain"

// CreateCompanyRequest defines the payload for creating a company.
type CreateCompanyRequest struct {
	Name                string  `json:"name" binding:"required" validate:"required"`
	Description         string  `json:"description,omitempty"`
	DefaultCurrencyCode *string `json:"defaultCurrencyCode,omitempty" validate:"omitempty,len=3"`
}

// AddMemberRequest defines the payload for granting or changing a member's
// role. Role REMOVED revokes the membership.
type AddMemberRequest struct {
	UserID string                 `json:"userID" binding:"required" validate:"required"`
	Role   domain.UserCompanyRole `json:"role" binding:"required,oneof=ADMIN APPROVER MEMBER READONLY REMOVED" validate:"required,oneof=ADMIN APPROVER MEMBER READONLY REMOVED"`
}

// CompanyResponse defines the data returned for a company.
type CompanyResponse struct {
	CompanyID           string  `json:"companyID"`
	Name                string  `json:"name"`
	Description         string  `json:"description,omitempty"`
	DefaultCurrencyCode *string `json:"defaultCurrencyCode,omitempty"`
	IsActive            bool    `json:"isActive"`
}

// ToCompanyResponse converts a domain.Company to its response DTO.
func ToCompanyResponse(c *domain.Company) CompanyResponse {
	return CompanyResponse{
		CompanyID:           c.CompanyID,
		Name:                c.Name,
		Description:         c.Description,
		DefaultCurrencyCode: c.DefaultCurrencyCode,
		IsActive:            c.IsActive,
	}
}
