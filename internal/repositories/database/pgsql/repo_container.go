package pgsql

import (
	"github.com/jackc/pgx/v5/pgxpool"

	portsrepo "github.com/finbooks/ledger-core/internal/core/ports/repositories"
)

// NewRepositoryContainer wires every pgsql repository over one shared pool.
func NewRepositoryContainer(dbPool *pgxpool.Pool) *portsrepo.RepositoryContainer {
	return &portsrepo.RepositoryContainer{
		Entry:   newPgxEntryRepository(dbPool),
		Account: newPgxAccountRepository(dbPool),
		Audit:   newPgxAuditRepository(dbPool),
		Company: newPgxCompanyRepository(dbPool),
	}
}
