package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Store is the single source of truth for requests. Update must be
// atomic relative to concurrent updates of the same id and report
// ErrVersionConflict when the record moved underneath the caller.
type Store interface {
	Create(ctx context.Context, req *Request) error
	Get(ctx context.Context, id int64) (*Request, error)
	Update(ctx context.Context, req *Request) error
	Delete(ctx context.Context, id int64) error
	ListByStatus(ctx context.Context, status Status, limit int) ([]*Request, error)
	ListByRequester(ctx context.Context, requesterID int64, limit int) ([]*Request, error)
	BookedSlots(ctx context.Context, date time.Time) ([]Slot, error)
}

// Ledger mirrors committed request state to an external append-only
// log. Both calls are best-effort; a mirror failure never rolls back
// the store.
type Ledger interface {
	Sync(ctx context.Context, req *Request) error
	Remove(ctx context.Context, req *Request) error
}

// Config tunes the lifecycle engine.
type Config struct {
	// LeadTime is the minimum delay between request creation and the
	// earliest selectable slot.
	LeadTime time.Duration
	// RecencyWindow bounds how many of a requester's most recent
	// requests remain eligible for self-service edit and delete.
	RecencyWindow int
	// BlockDoubleBooking makes the engine refuse a slot already held
	// by another live request. The dock historically allows double
	// booking and only surfaces occupancy for human review, so the
	// default is off.
	BlockDoubleBooking bool
}

const (
	defaultRecencyWindow = 20
	// Bounded retries when an optimistic write loses the race; guards
	// are re-evaluated against the fresh record on every pass.
	maxConflictRetries = 3
)

// Engine owns the request state machine. It validates every requested
// transition against the current state, the role of the actor and slot
// legality, then persists the new state and reports who must be told.
type Engine struct {
	store  Store
	ledger Ledger
	cfg    Config
	now    func() time.Time
}

// NewEngine creates a lifecycle engine. ledger may be nil.
func NewEngine(store Store, ledger Ledger, cfg Config) *Engine {
	if cfg.LeadTime <= 0 {
		cfg.LeadTime = DefaultLeadTime
	}
	if cfg.RecencyWindow <= 0 {
		cfg.RecencyWindow = defaultRecencyWindow
	}
	return &Engine{
		store:  store,
		ledger: ledger,
		cfg:    cfg,
		now:    time.Now,
	}
}

// Execute runs one command to completion: read, guard, mutate, commit.
// On success it returns the committed request and the notification
// intents the caller must hand to the dispatcher. No mutation happens
// when an error is returned.
func (e *Engine) Execute(ctx context.Context, actor Actor, cmd Command) (*Request, []Intent, error) {
	if c, ok := cmd.(CreateRequest); ok {
		return e.create(ctx, actor, c)
	}

	id, err := commandRequestID(cmd)
	if err != nil {
		return nil, nil, err
	}

	lastErr := error(ErrVersionConflict)
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		req, err := e.store.Get(ctx, id)
		if err != nil {
			return nil, nil, err
		}

		intents, remove, err := e.transition(ctx, actor, req, cmd)
		if err != nil {
			return nil, nil, err
		}

		if remove {
			if err := e.store.Delete(ctx, req.ID); err != nil {
				return nil, nil, err
			}
			e.mirrorRemove(ctx, req)
			return req, intents, nil
		}

		req.UpdatedAt = e.now()
		if err := e.store.Update(ctx, req); err != nil {
			if errors.Is(err, ErrVersionConflict) {
				lastErr = err
				continue
			}
			return nil, nil, err
		}
		e.mirrorSync(ctx, req)
		return req, intents, nil
	}
	return nil, nil, lastErr
}

func (e *Engine) create(ctx context.Context, actor Actor, cmd CreateRequest) (*Request, []Intent, error) {
	if actor.Role != RoleRequester {
		return nil, nil, fmt.Errorf("create: %w", ErrUnauthorized)
	}
	if strings.TrimSpace(cmd.Supplier) == "" || strings.TrimSpace(cmd.Phone) == "" {
		return nil, nil, fmt.Errorf("create: supplier and phone are required: %w", ErrInvalidTransition)
	}
	if !cmd.Loading.Valid() {
		return nil, nil, fmt.Errorf("create: unknown loading type %q: %w", cmd.Loading, ErrInvalidTransition)
	}

	now := e.now()
	if err := e.validateSlot(ctx, cmd.Slot, now, now); err != nil {
		return nil, nil, err
	}

	req := &Request{
		RequesterID:      actor.ID,
		Supplier:         strings.TrimSpace(cmd.Supplier),
		Phone:            strings.TrimSpace(cmd.Phone),
		CargoVolume:      strings.TrimSpace(cmd.CargoVolume),
		CargoDescription: strings.TrimSpace(cmd.CargoDescription),
		Loading:          cmd.Loading,
		Planned:          cmd.Slot,
		Confirmed:        cmd.Slot,
		Status:           StatusNew,
		CreatedAt:        now,
		UpdatedAt:        now,
		Version:          1,
	}
	req.AppendLog(actorLabel(actor), "created request", now)

	if err := e.store.Create(ctx, req); err != nil {
		return nil, nil, err
	}
	e.mirrorSync(ctx, req)

	intents := []Intent{approversIntent(req, KindNewRequestCreated, slotPayload(req, ""))}
	return req, intents, nil
}

// transition applies cmd to req in place. It returns remove=true when
// the record must be hard-deleted instead of updated.
func (e *Engine) transition(ctx context.Context, actor Actor, req *Request, cmd Command) (intents []Intent, remove bool, err error) {
	// Completed records are immutable: no edits, no deletions, no
	// admin actions. Terminal records accept only a hard delete.
	if req.Completed() {
		return nil, false, fmt.Errorf("request #%d: %w", req.ID, ErrRequestClosed)
	}
	if req.Status.Terminal() {
		if _, ok := cmd.(AdminDelete); !ok {
			return nil, false, fmt.Errorf("request #%d: %w", req.ID, ErrRequestClosed)
		}
	}

	now := e.now()

	switch c := cmd.(type) {
	case Approve:
		if err := requireApprover(actor); err != nil {
			return nil, false, err
		}
		if req.Status != StatusNew {
			return nil, false, &TransitionError{Action: c.CommandName(), From: req.Status}
		}
		req.Confirmed = req.Planned
		req.ApproverID = actor.ID
		req.Status = StatusApproved
		return []Intent{requesterIntent(req, KindApproved, slotPayload(req, ""))}, false, nil

	case Reject:
		if err := requireApprover(actor); err != nil {
			return nil, false, err
		}
		reason, err := requireReason(c.Reason)
		if err != nil {
			return nil, false, err
		}
		if req.Status != StatusNew && !req.Status.Pending() {
			return nil, false, &TransitionError{Action: c.CommandName(), From: req.Status}
		}
		req.Pending = Slot{}
		req.ApproverID = actor.ID
		req.Status = StatusRejected
		req.AppendLog(actorLabel(actor), reason, now)
		return []Intent{requesterIntent(req, KindRejected, slotPayload(req, reason))}, false, nil

	case ProposeChange:
		if err := requireApprover(actor); err != nil {
			return nil, false, err
		}
		reason, err := requireReason(c.Reason)
		if err != nil {
			return nil, false, err
		}
		switch req.Status {
		case StatusNew, StatusApproved, StatusPendingApproverDecision:
		default:
			return nil, false, &TransitionError{Action: c.CommandName(), From: req.Status}
		}
		if err := e.validateSlot(ctx, c.Slot, now, req.CreatedAt); err != nil {
			return nil, false, err
		}
		req.Planned = c.Slot
		req.Pending = Slot{}
		req.ApproverID = actor.ID
		req.Status = StatusPendingRequesterConfirm
		req.AppendLog(actorLabel(actor), reason, now)
		return []Intent{requesterIntent(req, KindChangeProposed, slotPayload(req, reason))}, false, nil

	case Confirm:
		if err := requireOwner(actor, req); err != nil {
			return nil, false, err
		}
		if req.Status != StatusPendingRequesterConfirm && req.Status != StatusPendingRequesterFinal {
			return nil, false, &TransitionError{Action: c.CommandName(), From: req.Status}
		}
		req.Confirmed = req.Planned
		req.Status = StatusApproved
		return []Intent{approversIntent(req, KindChangeConfirmed, slotPayload(req, ""))}, false, nil

	case Decline:
		if err := requireOwner(actor, req); err != nil {
			return nil, false, err
		}
		reason, err := requireReason(c.Reason)
		if err != nil {
			return nil, false, err
		}
		if req.Status != StatusPendingRequesterConfirm {
			return nil, false, &TransitionError{Action: c.CommandName(), From: req.Status}
		}
		req.Status = StatusPendingApproverDecision
		req.AppendLog(actorLabel(actor), reason, now)
		return []Intent{approversIntent(req, KindChangeDeclined, slotPayload(req, reason))}, false, nil

	case CounterPropose:
		if err := requireOwner(actor, req); err != nil {
			return nil, false, err
		}
		reason, err := requireReason(c.Reason)
		if err != nil {
			return nil, false, err
		}
		if req.Status != StatusPendingRequesterConfirm {
			return nil, false, &TransitionError{Action: c.CommandName(), From: req.Status}
		}
		if err := e.validateSlot(ctx, c.Slot, now, req.CreatedAt); err != nil {
			return nil, false, err
		}
		req.Pending = c.Slot
		req.Status = StatusPendingApproverDecision
		req.AppendLog(actorLabel(actor), reason, now)
		return []Intent{approversIntent(req, KindCounterProposed, slotPayload(req, reason))}, false, nil

	case Withdraw:
		if err := requireOwner(actor, req); err != nil {
			return nil, false, err
		}
		reason, err := requireReason(c.Reason)
		if err != nil {
			return nil, false, err
		}
		if req.Status != StatusPendingRequesterConfirm && req.Status != StatusPendingRequesterFinal {
			return nil, false, &TransitionError{Action: c.CommandName(), From: req.Status}
		}
		req.Status = StatusRejected
		req.AppendLog(actorLabel(actor), reason, now)
		return []Intent{approversIntent(req, KindWithdrawn, slotPayload(req, reason))}, false, nil

	case KeepOriginal:
		if err := requireApprover(actor); err != nil {
			return nil, false, err
		}
		if req.Status != StatusPendingApproverDecision {
			return nil, false, &TransitionError{Action: c.CommandName(), From: req.Status}
		}
		// Confirmed still holds the pre-proposal slot.
		req.Planned = req.Confirmed
		req.Pending = Slot{}
		req.ApproverID = actor.ID
		req.Status = StatusApproved
		return []Intent{requesterIntent(req, KindApproved, slotPayload(req, ""))}, false, nil

	case KeepProposed:
		if err := requireApprover(actor); err != nil {
			return nil, false, err
		}
		if req.Status != StatusPendingApproverDecision {
			return nil, false, &TransitionError{Action: c.CommandName(), From: req.Status}
		}
		req.Pending = Slot{}
		req.ApproverID = actor.ID
		req.Status = StatusPendingRequesterFinal
		payload := slotPayload(req, "")
		payload["final"] = "true"
		return []Intent{requesterIntent(req, KindChangeProposed, payload)}, false, nil

	case AcceptCounter:
		if err := requireApprover(actor); err != nil {
			return nil, false, err
		}
		if req.Status != StatusPendingApproverDecision {
			return nil, false, &TransitionError{Action: c.CommandName(), From: req.Status}
		}
		if req.Pending.IsZero() {
			return nil, false, &TransitionError{Action: c.CommandName(), From: req.Status}
		}
		req.Planned = req.Pending
		req.Confirmed = req.Pending
		req.Pending = Slot{}
		req.ApproverID = actor.ID
		req.Status = StatusApproved
		return []Intent{requesterIntent(req, KindCounterAccepted, slotPayload(req, ""))}, false, nil

	case RejectCounter:
		if err := requireApprover(actor); err != nil {
			return nil, false, err
		}
		reason, err := requireReason(c.Reason)
		if err != nil {
			return nil, false, err
		}
		if req.Status != StatusPendingApproverDecision {
			return nil, false, &TransitionError{Action: c.CommandName(), From: req.Status}
		}
		req.Pending = Slot{}
		req.ApproverID = actor.ID
		req.Status = StatusPendingRequesterFinal
		req.AppendLog(actorLabel(actor), reason, now)
		return []Intent{requesterIntent(req, KindCounterRejected, slotPayload(req, reason))}, false, nil

	case Finish:
		if err := requireApprover(actor); err != nil {
			return nil, false, err
		}
		return e.complete(actor, req, c.CommandName(), now)

	case AutoComplete:
		if actor.Role != RoleSweeper {
			return nil, false, fmt.Errorf("auto-complete: %w", ErrUnauthorized)
		}
		return e.complete(actor, req, c.CommandName(), now)

	case RequesterEdit:
		if err := e.requireRecentOwned(ctx, actor, req); err != nil {
			return nil, false, err
		}
		diff, err := applyEdit(req, c.Field, c.Value)
		if err != nil {
			return nil, false, err
		}
		req.Pending = Slot{}
		req.ApproverID = 0
		req.Status = StatusNew
		req.AppendLog(actorLabel(actor), diff, now)
		payload := slotPayload(req, diff)
		payload["edited"] = "true"
		return []Intent{approversIntent(req, KindNewRequestCreated, payload)}, false, nil

	case RequesterDelete:
		if err := e.requireRecentOwned(ctx, actor, req); err != nil {
			return nil, false, err
		}
		reason, err := requireReason(c.Reason)
		if err != nil {
			return nil, false, err
		}
		req.Pending = Slot{}
		req.Status = StatusWithdrawn
		req.AppendLog(actorLabel(actor), reason, now)
		return []Intent{approversIntent(req, KindWithdrawn, slotPayload(req, reason))}, false, nil

	case AdminDelete:
		if err := requireApprover(actor); err != nil {
			return nil, false, err
		}
		if req.Status == StatusNew && !actor.Privileged {
			return nil, false, fmt.Errorf("deleting a new request: %w", ErrUnauthorized)
		}
		payload := slotPayload(req, "")
		payload["action"] = "deleted"
		return []Intent{
			requesterIntent(req, KindAdminAction, payload),
			approversIntent(req, KindAdminAction, payload),
		}, true, nil

	default:
		return nil, false, fmt.Errorf("unknown command %T: %w", cmd, ErrInvalidTransition)
	}
}

func (e *Engine) complete(actor Actor, req *Request, action string, now time.Time) ([]Intent, bool, error) {
	if req.Status != StatusApproved {
		return nil, false, &TransitionError{Action: action, From: req.Status}
	}
	req.CompletedAt = now
	if req.ApproverID == 0 && actor.Role == RoleApprover {
		req.ApproverID = actor.ID
	}
	req.AppendLog(actorLabel(actor), "completed", now)
	return []Intent{requesterIntent(req, KindCompleted, slotPayload(req, ""))}, false, nil
}

// validateSlot re-runs the availability calculation from scratch for a
// final selection, then optionally cross-checks occupancy.
func (e *Engine) validateSlot(ctx context.Context, slot Slot, now, createdAt time.Time) error {
	if slot.IsZero() {
		return &SlotError{Slot: slot, Constraint: "no date selected"}
	}
	loc := slot.Date.Location()
	earliest := EarliestSelectable(now.In(loc), createdAt.In(loc), e.cfg.LeadTime)
	if err := ValidateSlot(slot, earliest); err != nil {
		return err
	}
	if !e.cfg.BlockDoubleBooking {
		return nil
	}
	booked, err := e.store.BookedSlots(ctx, slot.Date)
	if err != nil {
		return err
	}
	for _, b := range booked {
		if b.Hour == slot.Hour && b.Minute == slot.Minute && DateOf(b.Date).Equal(DateOf(slot.Date)) {
			return &SlotError{Slot: slot, Constraint: "already booked"}
		}
	}
	return nil
}

// requireRecentOwned guards self-service edit/delete: the request must
// belong to the actor and be among their most recent ones.
func (e *Engine) requireRecentOwned(ctx context.Context, actor Actor, req *Request) error {
	if err := requireOwner(actor, req); err != nil {
		return err
	}
	recent, err := e.store.ListByRequester(ctx, actor.ID, e.cfg.RecencyWindow)
	if err != nil {
		return err
	}
	for _, r := range recent {
		if r.ID == req.ID {
			return nil
		}
	}
	return fmt.Errorf("request #%d is outside the self-service window: %w", req.ID, ErrUnauthorized)
}

func (e *Engine) mirrorSync(ctx context.Context, req *Request) {
	if e.ledger == nil {
		return
	}
	if err := e.ledger.Sync(ctx, req); err != nil {
		slog.Warn("ledger sync failed", "request_id", req.ID, "error", err)
	}
}

func (e *Engine) mirrorRemove(ctx context.Context, req *Request) {
	if e.ledger == nil {
		return
	}
	if err := e.ledger.Remove(ctx, req); err != nil {
		slog.Warn("ledger remove failed", "request_id", req.ID, "error", err)
	}
}

func applyEdit(req *Request, field EditField, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("edit %s: %w", field, ErrMissingReason)
	}
	var old string
	switch field {
	case FieldSupplier:
		old, req.Supplier = req.Supplier, value
	case FieldPhone:
		old, req.Phone = req.Phone, value
	case FieldCargoVolume:
		old, req.CargoVolume = req.CargoVolume, value
	case FieldCargoDescription:
		old, req.CargoDescription = req.CargoDescription, value
	case FieldLoading:
		lt := LoadingType(value)
		if !lt.Valid() {
			return "", fmt.Errorf("edit %s: unknown loading type %q: %w", field, value, ErrInvalidTransition)
		}
		old, req.Loading = string(req.Loading), lt
	default:
		return "", fmt.Errorf("edit: unknown field %q: %w", field, ErrInvalidTransition)
	}
	return fmt.Sprintf("%s: %q -> %q", field, old, value), nil
}

func requireOwner(actor Actor, req *Request) error {
	if actor.Role != RoleRequester || actor.ID != req.RequesterID {
		return fmt.Errorf("request #%d belongs to another requester: %w", req.ID, ErrUnauthorized)
	}
	return nil
}

func requireApprover(actor Actor) error {
	if actor.Role != RoleApprover {
		return fmt.Errorf("approver action: %w", ErrUnauthorized)
	}
	return nil
}

func requireReason(reason string) (string, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return "", ErrMissingReason
	}
	return reason, nil
}

func actorLabel(actor Actor) string {
	if actor.Role == RoleSweeper {
		return "sweeper"
	}
	return fmt.Sprintf("%s#%d", actor.Role, actor.ID)
}

func slotPayload(req *Request, reason string) map[string]string {
	p := map[string]string{
		"supplier": req.Supplier,
		"planned":  req.Planned.String(),
		"status":   string(req.Status),
	}
	if !req.Confirmed.IsZero() {
		p["confirmed"] = req.Confirmed.String()
	}
	if !req.Pending.IsZero() {
		p["pending"] = req.Pending.String()
	}
	if reason != "" {
		p["reason"] = reason
	}
	return p
}

func commandRequestID(cmd Command) (int64, error) {
	switch c := cmd.(type) {
	case Approve:
		return c.RequestID, nil
	case Reject:
		return c.RequestID, nil
	case ProposeChange:
		return c.RequestID, nil
	case Confirm:
		return c.RequestID, nil
	case Decline:
		return c.RequestID, nil
	case CounterPropose:
		return c.RequestID, nil
	case Withdraw:
		return c.RequestID, nil
	case KeepOriginal:
		return c.RequestID, nil
	case KeepProposed:
		return c.RequestID, nil
	case AcceptCounter:
		return c.RequestID, nil
	case RejectCounter:
		return c.RequestID, nil
	case Finish:
		return c.RequestID, nil
	case AutoComplete:
		return c.RequestID, nil
	case RequesterEdit:
		return c.RequestID, nil
	case RequesterDelete:
		return c.RequestID, nil
	case AdminDelete:
		return c.RequestID, nil
	default:
		return 0, fmt.Errorf("unknown command %T: %w", cmd, ErrInvalidTransition)
	}
}
