package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/finbooks/ledger-core/internal/apperrors"
	"github.com/finbooks/ledger-core/internal/core/domain"
	portsrepo "github.com/finbooks/ledger-core/internal/core/ports/repositories"
	portssvc "github.com/finbooks/ledger-core/internal/core/ports/services"
	"github.com/finbooks/ledger-core/internal/dto"
	"github.com/finbooks/ledger-core/internal/middleware"
)

type companyService struct {
	companyRepo portsrepo.CompanyRepositoryFacade
}

// NewCompanyService creates the company/tenant service.
func NewCompanyService(companyRepo portsrepo.CompanyRepositoryFacade) portssvc.CompanySvcFacade {
	return &companyService{companyRepo: companyRepo}
}

var _ portssvc.CompanySvcFacade = (*companyService)(nil)

// CreateCompany creates a company and makes the creator its admin in one
// transaction.
// Implements portssvc.CompanySvcFacade.
func (s *companyService) CreateCompany(ctx context.Context, req dto.CreateCompanyRequest, creatorUserID string) (*domain.Company, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	now := time.Now().UTC()
	company := domain.Company{
		CompanyID:           uuid.NewString(),
		Name:                req.Name,
		Description:         req.Description,
		DefaultCurrencyCode: req.DefaultCurrencyCode,
		IsActive:            true,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     creatorUserID,
			LastUpdatedAt: now,
			LastUpdatedBy: creatorUserID,
		},
	}
	membership := domain.UserCompany{
		UserID:    creatorUserID,
		CompanyID: company.CompanyID,
		Role:      domain.RoleAdmin,
		JoinedAt:  now,
	}

	if err := s.companyRepo.SaveCompany(ctx, company, membership); err != nil {
		logger.Error("Failed to save company", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to save company: %w", err)
	}

	logger.Info("Company created", slog.String("company_id", company.CompanyID), slog.String("created_by", creatorUserID))
	return &company, nil
}

// GetCompanyByID retrieves a company, restricted to its members.
// Implements portssvc.CompanySvcFacade.
func (s *companyService) GetCompanyByID(ctx context.Context, companyID, requestingUserID string) (*domain.Company, error) {
	membership, err := s.companyRepo.FindUserCompanyRole(ctx, requestingUserID, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	if membership == nil || membership.Role == domain.RoleRemoved {
		return nil, apperrors.ErrNotFound
	}
	return s.companyRepo.FindCompanyByID(ctx, companyID)
}

// AddMember grants or updates a user's role within a company. Only admins
// can manage membership.
// Implements portssvc.CompanySvcFacade.
func (s *companyService) AddMember(ctx context.Context, companyID string, req dto.AddMemberRequest, actorID string) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	actorMembership, err := s.companyRepo.FindUserCompanyRole(ctx, actorID, companyID)
	if err != nil {
		return fmt.Errorf("failed to check membership: %w", err)
	}
	if actorMembership == nil || actorMembership.Role != domain.RoleAdmin {
		return fmt.Errorf("%w: only admins can manage members", apperrors.ErrForbidden)
	}

	membership := domain.UserCompany{
		UserID:    req.UserID,
		CompanyID: companyID,
		Role:      req.Role,
		JoinedAt:  time.Now().UTC(),
	}
	if err := s.companyRepo.UpsertUserCompanyRole(ctx, membership); err != nil {
		logger.Error("Failed to upsert membership", slog.String("error", err.Error()), slog.String("company_id", companyID))
		return fmt.Errorf("failed to save membership: %w", err)
	}

	logger.Info("Company member updated", slog.String("company_id", companyID),
		slog.String("user_id", req.UserID), slog.String("role", string(req.Role)))
	return nil
}
