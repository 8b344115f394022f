package dto

import (
	"encoding/json"
	"time"

	"github.com/finbooks/ledger-core/internal/core/domain"
)

// AuditRecordResponse defines one event in an entry's timeline.
type AuditRecordResponse struct {
	AuditID       string            `json:"auditID"`
	EntryID       string            `json:"entryID"`
	EventType     string            `json:"eventType"`
	PreviousState json.RawMessage   `json:"previousState,omitempty"`
	NewState      json.RawMessage   `json:"newState,omitempty"`
	Changes       map[string]string `json:"changes,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	ActorID       *string           `json:"actorID,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
}

// EntryTimelineResponse is the full audit trail for one entry, time ascending.
type EntryTimelineResponse struct {
	EntryID string                `json:"entryID"`
	Events  []AuditRecordResponse `json:"events"`
}

// ToAuditRecordResponse converts a domain.AuditRecord to its response DTO.
func ToAuditRecordResponse(r *domain.AuditRecord) AuditRecordResponse {
	return AuditRecordResponse{
		AuditID:       r.AuditID,
		EntryID:       r.EntryID,
		EventType:     string(r.EventType),
		PreviousState: r.PreviousState,
		NewState:      r.NewState,
		Changes:       r.Changes,
		Metadata:      r.Metadata,
		ActorID:       r.ActorID,
		CreatedAt:     r.CreatedAt,
	}
}
