package booking

import (
	"errors"
	"fmt"
)

// Sentinel errors for the lifecycle engine. All of them are recoverable
// at the boundary: the front end surfaces a user-facing message and the
// dispatcher keeps running.
var (
	ErrInvalidTransition = errors.New("invalid transition")
	ErrSlotUnavailable   = errors.New("slot unavailable")
	ErrNotFound          = errors.New("request not found")
	ErrRequestClosed     = errors.New("request closed")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrMissingReason     = errors.New("reason required")
	ErrVersionConflict   = errors.New("concurrent update conflict")
)

// SlotError reports which calculator constraint a chosen slot violates.
type SlotError struct {
	Slot       Slot
	Constraint string
}

func (e *SlotError) Error() string {
	return fmt.Sprintf("slot %s unavailable: %s", e.Slot, e.Constraint)
}

func (e *SlotError) Unwrap() error { return ErrSlotUnavailable }

// TransitionError reports an action that is not legal from the current state.
type TransitionError struct {
	Action string
	From   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("action %q not allowed from status %q", e.Action, e.From)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }
