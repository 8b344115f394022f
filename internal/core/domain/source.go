package domain

import "time"

// SourceLinkType distinguishes why a source document is linked to an entry.
type SourceLinkType string

const (
	LinkOrigin     SourceLinkType = "ORIGIN"
	LinkSupporting SourceLinkType = "SUPPORTING"
	LinkReversal   SourceLinkType = "REVERSAL"
)

// EntrySource links a journal entry to the external document that caused it.
// Created together with the entry, immutable afterwards. IdempotencyKey is
// unique per company when present; it is the durable dedup anchor for
// auto-generated entries.
type EntrySource struct {
	SourceID       string            `json:"sourceID"`  // Primary Key (e.g., UUID)
	EntryID        string            `json:"entryID"`   // FK -> JournalEntry.entryID (Not Null)
	SourceType     string            `json:"sourceType"` // e.g. "invoice", "payment"
	SourceRef      string            `json:"sourceRef"`  // External document identifier
	LinkType       SourceLinkType    `json:"linkType"`
	IdempotencyKey *string           `json:"idempotencyKey,omitempty"`
	Payload        map[string]string `json:"payload,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`
}
