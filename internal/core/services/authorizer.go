package services

import (
	"context"
	"fmt"

	"github.com/finbooks/ledger-core/internal/apperrors"
	"github.com/finbooks/ledger-core/internal/core/domain"
	portsrepo "github.com/finbooks/ledger-core/internal/core/ports/repositories"
	portssvc "github.com/finbooks/ledger-core/internal/core/ports/services"
)

// roleAuthorizer maps lifecycle operations to minimum company roles.
type roleAuthorizer struct {
	companyRepo portsrepo.CompanyRepositoryFacade
}

// NewRoleAuthorizer creates the role-based authorizer backed by company
// memberships.
func NewRoleAuthorizer(companyRepo portsrepo.CompanyRepositoryFacade) portssvc.Authorizer {
	return &roleAuthorizer{companyRepo: companyRepo}
}

var _ portssvc.Authorizer = (*roleAuthorizer)(nil)

var operationMinRole = map[portssvc.Operation]domain.UserCompanyRole{
	portssvc.OpView:           domain.RoleReadOnly,
	portssvc.OpCreate:         domain.RoleMember,
	portssvc.OpSubmit:         domain.RoleMember,
	portssvc.OpApprove:        domain.RoleApprover,
	portssvc.OpPost:           domain.RoleApprover,
	portssvc.OpVoid:           domain.RoleApprover,
	portssvc.OpReverse:        domain.RoleApprover,
	portssvc.OpPostFuture:     domain.RoleAdmin,
	portssvc.OpManageAccounts: domain.RoleAdmin,
}

// CanTransition checks that the actor holds at least the role the operation
// requires within the company.
// Implements portssvc.Authorizer.
func (a *roleAuthorizer) CanTransition(ctx context.Context, actorID, companyID string, op portssvc.Operation) error {
	required, known := operationMinRole[op]
	if !known {
		return fmt.Errorf("%w: unknown operation %s", apperrors.ErrInternal, op)
	}

	membership, err := a.companyRepo.FindUserCompanyRole(ctx, actorID, companyID)
	if err != nil {
		return fmt.Errorf("failed to check membership: %w", err)
	}
	if membership == nil || membership.Role == domain.RoleRemoved {
		return fmt.Errorf("%w: user is not a member of the company", apperrors.ErrForbidden)
	}
	if !membership.Role.AtLeast(required) {
		return fmt.Errorf("%w: operation %s requires role %s", apperrors.ErrForbidden, op, required)
	}
	return nil
}

// CanSelfApprove reports whether the actor may approve entries they created
// themselves. Only admins can.
// Implements portssvc.Authorizer.
func (a *roleAuthorizer) CanSelfApprove(ctx context.Context, actorID, companyID string) bool {
	membership, err := a.companyRepo.FindUserCompanyRole(ctx, actorID, companyID)
	if err != nil || membership == nil {
		return false
	}
	return membership.Role == domain.RoleAdmin
}
