package booking

// Command is one explicit lifecycle action. The engine dispatches with a
// type switch; nothing in the core routes on free-text action strings.
type Command interface {
	// CommandName labels the action in errors and in the negotiation log.
	CommandName() string
}

// EditField names a descriptive request field a requester may change.
type EditField string

const (
	FieldSupplier         EditField = "supplier"
	FieldPhone            EditField = "phone"
	FieldCargoVolume      EditField = "cargo_volume"
	FieldCargoDescription EditField = "cargo_description"
	FieldLoading          EditField = "loading_type"
)

// CreateRequest opens a new request with the slot the requester chose.
type CreateRequest struct {
	Supplier         string
	Phone            string
	CargoVolume      string
	CargoDescription string
	Loading          LoadingType
	Slot             Slot
}

// Approve accepts the request as planned.
type Approve struct{ RequestID int64 }

// Reject declines the request outright.
type Reject struct {
	RequestID int64
	Reason    string
}

// ProposeChange puts a different slot on the table.
type ProposeChange struct {
	RequestID int64
	Slot      Slot
	Reason    string
}

// Confirm accepts the slot the approver proposed.
type Confirm struct{ RequestID int64 }

// Decline refuses the proposed slot without offering another.
type Decline struct {
	RequestID int64
	Reason    string
}

// CounterPropose refuses the proposed slot and offers another.
type CounterPropose struct {
	RequestID int64
	Slot      Slot
	Reason    string
}

// Withdraw abandons the negotiation from the requester side.
type Withdraw struct {
	RequestID int64
	Reason    string
}

// KeepOriginal resolves a contested change by restoring the slot that
// was in force before the proposal.
type KeepOriginal struct{ RequestID int64 }

// KeepProposed holds firm on the proposed slot; the requester gets one
// final confirm-or-withdraw round.
type KeepProposed struct{ RequestID int64 }

// AcceptCounter approves the requester's counter-proposal.
type AcceptCounter struct{ RequestID int64 }

// RejectCounter refuses the counter-proposal; the requester gets one
// final confirm-or-withdraw round on the approver's slot.
type RejectCounter struct {
	RequestID int64
	Reason    string
}

// Finish marks an approved request as completed.
type Finish struct{ RequestID int64 }

// AutoComplete is the sweeper's synthetic finish past the grace deadline.
type AutoComplete struct{ RequestID int64 }

// RequesterEdit changes a descriptive field and sends the request back
// to the approval queue.
type RequesterEdit struct {
	RequestID int64
	Field     EditField
	Value     string
}

// RequesterDelete withdraws one of the requester's own recent requests.
type RequesterDelete struct {
	RequestID int64
	Reason    string
}

// AdminDelete hard-removes a request from the store.
type AdminDelete struct{ RequestID int64 }

func (CreateRequest) CommandName() string   { return "create" }
func (Approve) CommandName() string         { return "approve" }
func (Reject) CommandName() string          { return "reject" }
func (ProposeChange) CommandName() string   { return "propose-change" }
func (Confirm) CommandName() string         { return "confirm" }
func (Decline) CommandName() string         { return "decline" }
func (CounterPropose) CommandName() string  { return "counter-propose" }
func (Withdraw) CommandName() string        { return "withdraw" }
func (KeepOriginal) CommandName() string    { return "keep-original" }
func (KeepProposed) CommandName() string    { return "keep-proposed" }
func (AcceptCounter) CommandName() string   { return "accept-counter" }
func (RejectCounter) CommandName() string   { return "reject-counter" }
func (Finish) CommandName() string          { return "finish" }
func (AutoComplete) CommandName() string    { return "auto-complete" }
func (RequesterEdit) CommandName() string   { return "edit" }
func (RequesterDelete) CommandName() string { return "delete" }
func (AdminDelete) CommandName() string     { return "admin-delete" }
