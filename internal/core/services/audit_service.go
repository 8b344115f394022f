package services

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/finbooks/ledger-core/internal/core/domain"
	"github.com/google/uuid"
)

// entrySnapshot is the audited view of an entry: the fields whose changes a
// reviewer cares about. Kept separate from domain.JournalEntry so adding
// internal fields never silently changes stored audit history.
type entrySnapshot struct {
	EntryID          string  `json:"entryID"`
	CompanyID        string  `json:"companyID"`
	Reference        string  `json:"reference,omitempty"`
	Description      string  `json:"description"`
	EntryDate        string  `json:"entryDate"`
	EntryType        string  `json:"entryType"`
	Status           string  `json:"status"`
	CurrencyCode     string  `json:"currencyCode"`
	Amount           string  `json:"amount"`
	VoidReason       string  `json:"voidReason,omitempty"`
	ReverseOfEntryID *string `json:"reverseOfEntryID,omitempty"`
	ReversalEntryID  *string `json:"reversalEntryID,omitempty"`
}

func snapshotEntry(e *domain.JournalEntry) *entrySnapshot {
	if e == nil {
		return nil
	}
	return &entrySnapshot{
		EntryID:          e.EntryID,
		CompanyID:        e.CompanyID,
		Reference:        e.Reference,
		Description:      e.Description,
		EntryDate:        e.EntryDate.Format(time.RFC3339),
		EntryType:        string(e.EntryType),
		Status:           string(e.Status),
		CurrencyCode:     e.CurrencyCode,
		Amount:           e.Amount.String(),
		VoidReason:       e.VoidReason,
		ReverseOfEntryID: e.ReverseOfEntryID,
		ReversalEntryID:  e.ReversalEntryID,
	}
}

// diffSnapshots computes a field -> "old -> new" map for the changed fields.
func diffSnapshots(prev, next *entrySnapshot) map[string]string {
	if prev == nil || next == nil {
		return nil
	}
	changes := make(map[string]string)
	put := func(field, oldVal, newVal string) {
		if oldVal != newVal {
			changes[field] = fmt.Sprintf("%s -> %s", oldVal, newVal)
		}
	}
	put("status", prev.Status, next.Status)
	put("description", prev.Description, next.Description)
	put("reference", prev.Reference, next.Reference)
	put("entryDate", prev.EntryDate, next.EntryDate)
	put("voidReason", prev.VoidReason, next.VoidReason)
	put("reversalEntryID", deref(prev.ReversalEntryID), deref(next.ReversalEntryID))
	put("reverseOfEntryID", deref(prev.ReverseOfEntryID), deref(next.ReverseOfEntryID))
	if len(changes) == 0 {
		return nil
	}
	return changes
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// NewAuditRecord builds one immutable audit record for a lifecycle event.
// prev is nil for creation events; actorID is nil for system actors.
func NewAuditRecord(event domain.AuditEventType, prev, next *domain.JournalEntry, metadata map[string]string, actorID *string, now time.Time) (domain.AuditRecord, error) {
	if next == nil {
		return domain.AuditRecord{}, fmt.Errorf("audit record requires a new state for event %s", event)
	}

	prevSnap := snapshotEntry(prev)
	nextSnap := snapshotEntry(next)

	var prevJSON, nextJSON json.RawMessage
	if prevSnap != nil {
		raw, err := json.Marshal(prevSnap)
		if err != nil {
			return domain.AuditRecord{}, fmt.Errorf("failed to marshal previous state snapshot: %w", err)
		}
		prevJSON = raw
	}
	raw, err := json.Marshal(nextSnap)
	if err != nil {
		return domain.AuditRecord{}, fmt.Errorf("failed to marshal new state snapshot: %w", err)
	}
	nextJSON = raw

	return domain.AuditRecord{
		AuditID:       uuid.NewString(),
		EntryID:       next.EntryID,
		EventType:     event,
		PreviousState: prevJSON,
		NewState:      nextJSON,
		Changes:       diffSnapshots(prevSnap, nextSnap),
		Metadata:      metadata,
		ActorID:       actorID,
		CreatedAt:     now,
	}, nil
}
