package booking

// IntentKind classifies what a notification is about.
type IntentKind string

const (
	KindNewRequestCreated IntentKind = "new_request_created"
	KindApproved          IntentKind = "approved"
	KindRejected          IntentKind = "rejected"
	KindChangeProposed    IntentKind = "change_proposed"
	KindChangeConfirmed   IntentKind = "change_confirmed"
	KindChangeDeclined    IntentKind = "change_declined"
	KindCounterProposed   IntentKind = "counter_proposed"
	KindCounterAccepted   IntentKind = "counter_accepted"
	KindCounterRejected   IntentKind = "counter_rejected"
	KindWithdrawn         IntentKind = "withdrawn"
	KindCompleted         IntentKind = "completed"
	KindAdminAction       IntentKind = "admin_action"
	KindReminder          IntentKind = "reminder"
)

// Audience selects who an intent is for. Expanding the approver
// audience into concrete chat ids is the dispatcher's job; the engine
// never talks to a delivery transport.
type Audience int

const (
	AudienceRequester Audience = iota
	AudienceApprovers
)

// Intent records that someone must be told something. Delivery is
// at-least-once and fire-and-forget.
type Intent struct {
	Audience  Audience
	Recipient int64 // set when Audience is AudienceRequester
	RequestID int64
	Kind      IntentKind
	Payload   map[string]string
}

func requesterIntent(req *Request, kind IntentKind, payload map[string]string) Intent {
	return Intent{
		Audience:  AudienceRequester,
		Recipient: req.RequesterID,
		RequestID: req.ID,
		Kind:      kind,
		Payload:   payload,
	}
}

func approversIntent(req *Request, kind IntentKind, payload map[string]string) Intent {
	return Intent{
		Audience:  AudienceApprovers,
		RequestID: req.ID,
		Kind:      kind,
		Payload:   payload,
	}
}
