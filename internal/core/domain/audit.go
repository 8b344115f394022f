package domain

import (
	"encoding/json"
	"time"
)

// AuditEventType enumerates the recorded lifecycle events.
type AuditEventType string

const (
	AuditCreated         AuditEventType = "CREATED"
	AuditUpdated         AuditEventType = "UPDATED"
	AuditSubmitted       AuditEventType = "SUBMITTED"
	AuditApproved        AuditEventType = "APPROVED"
	AuditPosted          AuditEventType = "POSTED"
	AuditVoided          AuditEventType = "VOIDED"
	AuditReversalCreated AuditEventType = "REVERSAL_CREATED"
)

// AuditRecord is one append-only event in an entry's audit trail. Records are
// written in the same database transaction as the state change they document
// and are never updated or deleted. A nil ActorID marks a system actor.
type AuditRecord struct {
	AuditID       string            `json:"auditID"` // Primary Key (e.g., UUID)
	EntryID       string            `json:"entryID"` // FK -> JournalEntry.entryID (Not Null)
	EventType     AuditEventType    `json:"eventType"`
	PreviousState json.RawMessage   `json:"previousState,omitempty"` // Snapshot before the change
	NewState      json.RawMessage   `json:"newState,omitempty"`      // Snapshot after the change
	Changes       map[string]string `json:"changes,omitempty"`       // Field -> "old -> new" diff
	Metadata      map[string]string `json:"metadata,omitempty"`
	ActorID       *string           `json:"actorID,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
}
