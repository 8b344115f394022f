package repositories

import (
	"context"

	"github.com/finbooks/ledger-core/internal/core/domain"
)

// AuditRepositoryFacade is the read surface for entry audit trails. Writes go
// exclusively through LedgerTx.AppendAudit so a record can never outlive or
// precede the state change it documents.
type AuditRepositoryFacade interface {
	// ListAuditByEntryID returns the full timeline for an entry, ordered by
	// time ascending.
	ListAuditByEntryID(ctx context.Context, entryID string) ([]domain.AuditRecord, error)
}
