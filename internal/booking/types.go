package booking

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a booking request.
type Status string

const (
	StatusNew                     Status = "new"
	StatusApproved                Status = "approved"
	StatusRejected                Status = "rejected"
	StatusWithdrawn               Status = "withdrawn"
	StatusPendingRequesterConfirm Status = "pending_requester_confirm"
	StatusPendingApproverDecision Status = "pending_approver_decision"
	StatusPendingRequesterFinal   Status = "pending_requester_final"
)

// Terminal reports whether no further transition is possible from s.
// Approved requests terminate only once completed, which is tracked on
// the request itself.
func (s Status) Terminal() bool {
	return s == StatusRejected || s == StatusWithdrawn
}

// Pending reports whether the request is mid-negotiation.
func (s Status) Pending() bool {
	switch s {
	case StatusPendingRequesterConfirm, StatusPendingApproverDecision, StatusPendingRequesterFinal:
		return true
	}
	return false
}

// LoadingType describes how the cargo arrives at the dock.
type LoadingType string

const (
	LoadingPalletized LoadingType = "palletized"
	LoadingBulk       LoadingType = "bulk"
)

// Valid reports whether t is a known loading type.
func (t LoadingType) Valid() bool {
	return t == LoadingPalletized || t == LoadingBulk
}

// Slot is a bookable (date, time-of-day) pair at 30-minute granularity.
type Slot struct {
	Date   time.Time // calendar date, midnight in the operating location
	Hour   int
	Minute int
}

// IsZero reports whether the slot is unset.
func (s Slot) IsZero() bool {
	return s.Date.IsZero()
}

// Instant returns the wall-clock moment the slot begins, in the
// location of the slot date.
func (s Slot) Instant() time.Time {
	return time.Date(s.Date.Year(), s.Date.Month(), s.Date.Day(), s.Hour, s.Minute, 0, 0, s.Date.Location())
}

func (s Slot) String() string {
	if s.IsZero() {
		return "-"
	}
	return fmt.Sprintf("%s %02d:%02d", s.Date.Format("02.01.2006"), s.Hour, s.Minute)
}

// DateOf truncates t to midnight in its own location.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// LogEntry is one step of the negotiation trail. Entries are only ever
// appended, never rewritten.
type LogEntry struct {
	Actor  string    `json:"actor"`
	Reason string    `json:"reason"`
	At     time.Time `json:"at"`
}

// Request is the unit of work: one driver's ask for a dock slot.
type Request struct {
	ID          int64
	RequesterID int64
	ApproverID  int64 // 0 until an approver acts on the request

	Supplier         string
	Phone            string
	CargoVolume      string
	CargoDescription string
	Loading          LoadingType

	// Planned is the slot currently on the table: what was originally
	// requested, or what the approver most recently proposed.
	Planned Slot
	// Pending holds a requester counter-proposal awaiting an approver
	// decision; zero in every other state.
	Pending Slot
	// Confirmed is the slot in force; it changes only on entry into
	// the approved status.
	Confirmed Slot

	Status Status
	Log    []LogEntry

	// LedgerRef is an opaque handle owned by the external ledger mirror.
	LedgerRef string

	RemindedAt  time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt time.Time

	// Version guards optimistic store updates.
	Version int64
}

// Completed reports whether the delivery has happened.
func (r *Request) Completed() bool {
	return !r.CompletedAt.IsZero()
}

// Closed reports whether the request accepts no further transitions.
func (r *Request) Closed() bool {
	return r.Status.Terminal() || r.Completed()
}

// AppendLog adds a negotiation trail entry tagged with the acting party.
func (r *Request) AppendLog(actor, reason string, at time.Time) {
	r.Log = append(r.Log, LogEntry{Actor: actor, Reason: reason, At: at})
}

// Role distinguishes the acting party in a transition.
type Role string

const (
	RoleRequester Role = "requester"
	RoleApprover  Role = "approver"
	RoleSweeper   Role = "sweeper"
)

// Actor is the resolved identity behind a command.
type Actor struct {
	ID         int64
	Role       Role
	Privileged bool
}

// Approver is a lightweight principal allowed to decide on requests.
type Approver struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Privileged bool   `json:"privileged"`
}
