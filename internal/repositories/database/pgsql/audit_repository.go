package pgsql

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/finbooks/ledger-core/internal/apperrors"
	"github.com/finbooks/ledger-core/internal/core/domain"
	portsrepo "github.com/finbooks/ledger-core/internal/core/ports/repositories"
)

type PgxAuditRepository struct {
	BaseRepository
}

// newPgxAuditRepository creates the read-side repository for audit trails.
// Audit writes happen only inside ledger transactions.
func newPgxAuditRepository(pool *pgxpool.Pool) portsrepo.AuditRepositoryFacade {
	return &PgxAuditRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.AuditRepositoryFacade = (*PgxAuditRepository)(nil)

// ListAuditByEntryID returns the timeline for an entry, oldest first.
func (r *PgxAuditRepository) ListAuditByEntryID(ctx context.Context, entryID string) ([]domain.AuditRecord, error) {
	query := `
		SELECT audit_id, entry_id, event_type, previous_state, new_state, changes, metadata, actor_id, created_at
		FROM journal_audits
		WHERE entry_id = $1
		ORDER BY created_at ASC, audit_id ASC;
	`
	rows, err := r.Pool.Query(ctx, query, entryID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query audit records for entry "+entryID, err)
	}
	defer rows.Close()

	records := []domain.AuditRecord{}
	for rows.Next() {
		var rec domain.AuditRecord
		var prevState, newState, changes, metadata []byte
		var actorID sql.NullString
		err := rows.Scan(&rec.AuditID, &rec.EntryID, &rec.EventType, &prevState, &newState, &changes, &metadata, &actorID, &rec.CreatedAt)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan audit row for entry "+entryID, err)
		}
		rec.PreviousState = prevState
		rec.NewState = newState
		if len(changes) > 0 {
			if err := json.Unmarshal(changes, &rec.Changes); err != nil {
				return nil, apperrors.NewAppError(500, "failed to decode audit changes", err)
			}
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &rec.Metadata); err != nil {
				return nil, apperrors.NewAppError(500, "failed to decode audit metadata", err)
			}
		}
		assignNullString(&rec.ActorID, actorID)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating audit rows for entry "+entryID, err)
	}
	return records, nil
}
