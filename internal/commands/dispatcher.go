// Package commands exposes the ledger core as a typed command surface.
// Callers that are not HTTP (event consumers, batch jobs, tests) dispatch
// named commands with JSON payloads and get JSON results back.
package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/finbooks/ledger-core/internal/apperrors"
	portssvc "github.com/finbooks/ledger-core/internal/core/ports/services"
	"github.com/finbooks/ledger-core/internal/dto"
)

// Command names accepted by the dispatcher.
const (
	CmdCreate  = "journal.create"
	CmdSubmit  = "journal.submit"
	CmdApprove = "journal.approve"
	CmdPost    = "journal.post"
	CmdVoid    = "journal.void"
	CmdReverse = "journal.reverse"
	CmdAuto    = "journal.auto"
)

// Request is one command invocation. EntryID is required for the transition
// commands and ignored by create/auto. ActorID is the explicit acting user;
// a nil ActorID is only legal for journal.auto (system actor).
type Request struct {
	Command   string          `json:"command" validate:"required"`
	CompanyID string          `json:"companyID" validate:"required"`
	EntryID   string          `json:"entryID,omitempty"`
	ActorID   *string         `json:"actorID,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Dispatcher routes command requests to the service facades.
type Dispatcher struct {
	entrySvc portssvc.EntrySvcFacade
	autoSvc  portssvc.AutoEntrySvcFacade
	validate *validator.Validate
}

// NewDispatcher creates a command dispatcher over the given services.
func NewDispatcher(entrySvc portssvc.EntrySvcFacade, autoSvc portssvc.AutoEntrySvcFacade) *Dispatcher {
	return &Dispatcher{
		entrySvc: entrySvc,
		autoSvc:  autoSvc,
		validate: validator.New(),
	}
}

// Dispatch executes one command and returns its JSON-marshalable result.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (any, error) {
	if err := d.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrValidation, err.Error())
	}

	switch req.Command {
	case CmdCreate:
		return d.create(ctx, req)
	case CmdSubmit:
		return d.transition(ctx, req, d.submit)
	case CmdApprove:
		return d.transition(ctx, req, d.approve)
	case CmdPost:
		return d.transition(ctx, req, d.post)
	case CmdVoid:
		return d.transition(ctx, req, d.void)
	case CmdReverse:
		return d.transition(ctx, req, d.reverse)
	case CmdAuto:
		return d.auto(ctx, req)
	default:
		return nil, fmt.Errorf("%w: unknown command %q", apperrors.ErrValidation, req.Command)
	}
}

func (d *Dispatcher) requireActor(req Request) (string, error) {
	if req.ActorID == nil || *req.ActorID == "" {
		return "", fmt.Errorf("%w: actorID is required for %s", apperrors.ErrValidation, req.Command)
	}
	return *req.ActorID, nil
}

// decodePayload unmarshals and validates the command payload into target.
func (d *Dispatcher) decodePayload(req Request, target any) error {
	payload := req.Payload
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	if err := json.Unmarshal(payload, target); err != nil {
		return fmt.Errorf("%w: malformed payload for %s: %s", apperrors.ErrValidation, req.Command, err.Error())
	}
	if err := d.validate.Struct(target); err != nil {
		return fmt.Errorf("%w: %s", apperrors.ErrValidation, err.Error())
	}
	return nil
}

func (d *Dispatcher) create(ctx context.Context, req Request) (any, error) {
	actorID, err := d.requireActor(req)
	if err != nil {
		return nil, err
	}
	var payload dto.CreateEntryRequest
	if err := d.decodePayload(req, &payload); err != nil {
		return nil, err
	}
	entry, err := d.entrySvc.CreateEntry(ctx, req.CompanyID, payload, actorID)
	if err != nil {
		return nil, err
	}
	return dto.ToEntryResponse(entry), nil
}

// transitionFn runs one lifecycle transition for an already-identified entry.
type transitionFn func(ctx context.Context, req Request, actorID string) (any, error)

func (d *Dispatcher) transition(ctx context.Context, req Request, fn transitionFn) (any, error) {
	if req.EntryID == "" {
		return nil, fmt.Errorf("%w: entryID is required for %s", apperrors.ErrValidation, req.Command)
	}
	actorID, err := d.requireActor(req)
	if err != nil {
		return nil, err
	}
	return fn(ctx, req, actorID)
}

func (d *Dispatcher) submit(ctx context.Context, req Request, actorID string) (any, error) {
	var payload dto.SubmitEntryRequest
	if err := d.decodePayload(req, &payload); err != nil {
		return nil, err
	}
	entry, err := d.entrySvc.SubmitEntry(ctx, req.CompanyID, req.EntryID, payload, actorID)
	if err != nil {
		return nil, err
	}
	return dto.ToEntryResponse(entry), nil
}

func (d *Dispatcher) approve(ctx context.Context, req Request, actorID string) (any, error) {
	var payload dto.ApproveEntryRequest
	if err := d.decodePayload(req, &payload); err != nil {
		return nil, err
	}
	entry, err := d.entrySvc.ApproveEntry(ctx, req.CompanyID, req.EntryID, payload, actorID)
	if err != nil {
		return nil, err
	}
	return dto.ToEntryResponse(entry), nil
}

func (d *Dispatcher) post(ctx context.Context, req Request, actorID string) (any, error) {
	var payload dto.PostEntryRequest
	if err := d.decodePayload(req, &payload); err != nil {
		return nil, err
	}
	entry, err := d.entrySvc.PostEntry(ctx, req.CompanyID, req.EntryID, payload, actorID)
	if err != nil {
		return nil, err
	}
	return dto.ToEntryResponse(entry), nil
}

func (d *Dispatcher) void(ctx context.Context, req Request, actorID string) (any, error) {
	var payload dto.VoidEntryRequest
	if err := d.decodePayload(req, &payload); err != nil {
		return nil, err
	}
	entry, err := d.entrySvc.VoidEntry(ctx, req.CompanyID, req.EntryID, payload, actorID)
	if err != nil {
		return nil, err
	}
	return dto.ToEntryResponse(entry), nil
}

func (d *Dispatcher) reverse(ctx context.Context, req Request, actorID string) (any, error) {
	var payload dto.ReverseEntryRequest
	if err := d.decodePayload(req, &payload); err != nil {
		return nil, err
	}
	original, reversal, err := d.entrySvc.ReverseEntry(ctx, req.CompanyID, req.EntryID, payload, actorID)
	if err != nil {
		return nil, err
	}
	return dto.ReverseEntryResponse{
		Original: dto.ToEntryResponse(original),
		Reversal: dto.ToEntryResponse(reversal),
	}, nil
}

func (d *Dispatcher) auto(ctx context.Context, req Request) (any, error) {
	var payload dto.AutoEntryRequest
	if err := d.decodePayload(req, &payload); err != nil {
		return nil, err
	}
	return d.autoSvc.GenerateEntry(ctx, req.CompanyID, payload, req.ActorID)
}
