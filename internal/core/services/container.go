package services

import (
	portsrepo "github.com/finbooks/ledger-core/internal/core/ports/repositories"
	portssvc "github.com/finbooks/ledger-core/internal/core/ports/services"
	"github.com/finbooks/ledger-core/internal/platform/config"
)

// NewServiceContainer wires all services over the repository container.
func NewServiceContainer(repos *portsrepo.RepositoryContainer, cfg *config.Config) *portssvc.ServiceContainer {
	authorizer := NewRoleAuthorizer(repos.Company)
	accountSvc := NewAccountService(repos.Account, authorizer)
	entrySvc := NewEntryService(repos.Entry, repos.Audit, accountSvc, authorizer, cfg.Ledger)
	autoSvc := NewAutoEntryService(repos.Entry, accountSvc, cfg.Ledger)
	companySvc := NewCompanyService(repos.Company)

	return &portssvc.ServiceContainer{
		Entry:      entrySvc,
		AutoEntry:  autoSvc,
		Account:    accountSvc,
		Company:    companySvc,
		Authorizer: authorizer,
	}
}
