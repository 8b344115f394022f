package domain

import "time"

// Company represents an isolated tenant containing accounts, entries, etc.
type Company struct {
	CompanyID           string  `json:"companyID"` // Primary Key (e.g., UUID)
	Name                string  `json:"name"`
	Description         string  `json:"description"`
	DefaultCurrencyCode *string `json:"defaultCurrencyCode"` // e.g. "USD"
	IsActive            bool    `json:"isActive"`
	AuditFields
}

// UserCompanyRole defines the possible roles a user can have within a company.
type UserCompanyRole string

const (
	RoleAdmin    UserCompanyRole = "ADMIN"
	RoleApprover UserCompanyRole = "APPROVER"
	RoleMember   UserCompanyRole = "MEMBER"
	RoleReadOnly UserCompanyRole = "READONLY"
	RoleRemoved  UserCompanyRole = "REMOVED" // For users removed from the company
)

// roleRank orders roles for capability comparison. REMOVED ranks below everything.
var roleRank = map[UserCompanyRole]int{
	RoleReadOnly: 1,
	RoleMember:   2,
	RoleApprover: 3,
	RoleAdmin:    4,
}

// AtLeast reports whether r grants the capabilities of required.
func (r UserCompanyRole) AtLeast(required UserCompanyRole) bool {
	return roleRank[r] >= roleRank[required] && roleRank[r] > 0
}

// UserCompany represents the membership of a user in a company.
type UserCompany struct {
	UserID    string          `json:"userID"`
	CompanyID string          `json:"companyID"`
	Role      UserCompanyRole `json:"role"`
	JoinedAt  time.Time       `json:"joinedAt"`
}
