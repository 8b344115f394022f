package dto

import (
	"time"

	"github.com/finbooks/ledger-core/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateLineRequest defines one debit or credit leg of a new entry.
type CreateLineRequest struct {
	AccountID   string          `json:"accountID" binding:"required" validate:"required"`
	Side        domain.LineSide `json:"side" binding:"required,oneof=DEBIT CREDIT" validate:"required,oneof=DEBIT CREDIT"`
	Amount      decimal.Decimal `json:"amount" binding:"required" validate:"required"`
	Description string          `json:"description,omitempty"`
}

// CreateEntryRequest defines the payload for journal.create.
type CreateEntryRequest struct {
	Description  string              `json:"description" binding:"required" validate:"required"`
	Date         time.Time           `json:"date" binding:"required" validate:"required"`
	EntryType    domain.EntryType    `json:"entryType" binding:"required" validate:"required"`
	Reference    string              `json:"reference,omitempty"`
	CurrencyCode string              `json:"currencyCode" binding:"required,len=3" validate:"required,len=3"`
	ExchangeRate *decimal.Decimal    `json:"exchangeRate,omitempty"`
	Lines        []CreateLineRequest `json:"lines" binding:"required,min=2,dive" validate:"required,min=2,dive"`
	Sources      []SourceRequest     `json:"sources,omitempty" validate:"omitempty,dive"`
	Metadata     map[string]string   `json:"metadata,omitempty"`
}

// SourceRequest links a new entry to an external source document.
type SourceRequest struct {
	SourceType string                `json:"sourceType" validate:"required"`
	SourceRef  string                `json:"sourceRef" validate:"required"`
	LinkType   domain.SourceLinkType `json:"linkType,omitempty"`
	Payload    map[string]string     `json:"payload,omitempty"`
}

// SubmitEntryRequest defines the payload for journal.submit.
type SubmitEntryRequest struct {
	Note string `json:"note,omitempty"`
}

// ApproveEntryRequest defines the payload for journal.approve.
type ApproveEntryRequest struct {
	Note string `json:"note,omitempty"`
}

// PostEntryRequest defines the payload for journal.post.
type PostEntryRequest struct {
	Note string `json:"note,omitempty"`
}

// VoidEntryRequest defines the payload for journal.void.
type VoidEntryRequest struct {
	Reason string `json:"reason" binding:"required" validate:"required"`
}

// ReverseEntryRequest defines the payload for journal.reverse.
type ReverseEntryRequest struct {
	ReversalDate        *time.Time `json:"reversalDate,omitempty"`
	DescriptionOverride string     `json:"descriptionOverride,omitempty"`
	AutoPost            bool       `json:"autoPost,omitempty"`
}

// LineResponse defines the data returned for a journal line.
type LineResponse struct {
	LineID      string          `json:"lineID"`
	LineNumber  int             `json:"lineNumber"`
	AccountID   string          `json:"accountID"`
	Side        string          `json:"side"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty"`
}

// EntryResponse defines the data returned for a journal entry.
type EntryResponse struct {
	EntryID          string            `json:"entryID"`
	CompanyID        string            `json:"companyID"`
	Reference        string            `json:"reference,omitempty"`
	Description      string            `json:"description"`
	Date             time.Time         `json:"date"`
	EntryType        string            `json:"entryType"`
	Status           string            `json:"status"`
	CurrencyCode     string            `json:"currencyCode"`
	Amount           decimal.Decimal   `json:"amount"`
	ReverseOfEntryID *string           `json:"reverseOfEntryID,omitempty"`
	ReversalEntryID  *string           `json:"reversalEntryID,omitempty"`
	VoidReason       string            `json:"voidReason,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
	Lines            []LineResponse    `json:"lines,omitempty"`
	CreatedAt        time.Time         `json:"createdAt"`
	CreatedBy        string            `json:"createdBy"`
}

// ReverseEntryResponse pairs the original with its newly created reversal.
type ReverseEntryResponse struct {
	Original EntryResponse `json:"original"`
	Reversal EntryResponse `json:"reversal"`
}

// ListEntriesParams holds parameters for listing entries.
type ListEntriesParams struct {
	Limit        int     `form:"limit"`
	NextToken    *string `form:"nextToken"`
	IncludeLines bool    `form:"includeLines"`
}

// ListEntriesResponse is a page of entries plus the cursor for the next page.
type ListEntriesResponse struct {
	Entries   []EntryResponse `json:"entries"`
	NextToken *string         `json:"nextToken,omitempty"`
}

// ToLineResponse converts a domain.JournalLine to its response DTO.
func ToLineResponse(line *domain.JournalLine) LineResponse {
	return LineResponse{
		LineID:      line.LineID,
		LineNumber:  line.LineNumber,
		AccountID:   line.AccountID,
		Side:        string(line.Side),
		Amount:      line.Amount,
		Description: line.Description,
	}
}

// ToEntryResponse converts a domain.JournalEntry to its response DTO.
func ToEntryResponse(e *domain.JournalEntry) EntryResponse {
	resp := EntryResponse{
		EntryID:          e.EntryID,
		CompanyID:        e.CompanyID,
		Reference:        e.Reference,
		Description:      e.Description,
		Date:             e.EntryDate,
		EntryType:        string(e.EntryType),
		Status:           string(e.Status),
		CurrencyCode:     e.CurrencyCode,
		Amount:           e.Amount,
		ReverseOfEntryID: e.ReverseOfEntryID,
		ReversalEntryID:  e.ReversalEntryID,
		VoidReason:       e.VoidReason,
		Metadata:         e.Metadata,
		CreatedAt:        e.CreatedAt,
		CreatedBy:        e.CreatedBy,
	}
	if len(e.Lines) > 0 {
		resp.Lines = make([]LineResponse, len(e.Lines))
		for i := range e.Lines {
			resp.Lines[i] = ToLineResponse(&e.Lines[i])
		}
	}
	return resp
}
