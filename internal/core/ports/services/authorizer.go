package services

import "context"

// Operation names a lifecycle action an actor may or may not perform.
type Operation string

const (
	OpCreate  Operation = "create"
	OpSubmit  Operation = "submit"
	OpApprove Operation = "approve"
	OpPost    Operation = "post"
	// OpPostFuture is the elevated capability required to post an entry dated
	// in the future.
	OpPostFuture Operation = "post_future"
	OpVoid       Operation = "void"
	OpReverse    Operation = "reverse"
	OpView       Operation = "view"
	// OpManageAccounts covers chart-of-accounts administration.
	OpManageAccounts Operation = "manage_accounts"
)

// Authorizer answers whether an actor may perform a lifecycle operation for a
// company. Implementations vary by deployment (RBAC table lookup, claims);
// the core depends only on this interface. Denial is reported as an error
// satisfying errors.Is(err, apperrors.ErrForbidden); unknown membership as
// apperrors.ErrNotFound.
type Authorizer interface {
	CanTransition(ctx context.Context, actorID, companyID string, op Operation) error

	// CanSelfApprove reports whether the actor may approve entries they
	// created themselves.
	CanSelfApprove(ctx context.Context, actorID, companyID string) bool
}
