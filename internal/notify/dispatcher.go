package notify

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/dclink/dockslot/internal/booking"
	"github.com/dclink/dockslot/internal/bus"
)

// Roster resolves the approver audience at dispatch time, so roster
// changes take effect without restarts.
type Roster interface {
	Approvers(ctx context.Context) ([]booking.Approver, error)
}

// Dispatcher turns notification intents into outbound chat messages.
// It is the only component that knows who sits behind an audience.
type Dispatcher struct {
	bus     *bus.MessageBus
	roster  Roster
	channel string
}

// NewDispatcher creates a dispatcher publishing to channel via msgBus.
func NewDispatcher(msgBus *bus.MessageBus, roster Roster, channel string) *Dispatcher {
	return &Dispatcher{bus: msgBus, roster: roster, channel: channel}
}

// Dispatch renders and publishes every intent. A roster lookup failure
// drops the approver broadcast with a log line; the state change that
// produced the intents is already committed and must not be rolled
// back for a notification problem.
func (d *Dispatcher) Dispatch(ctx context.Context, req *booking.Request, intents []booking.Intent) {
	requestID := bus.RequestIDFromContext(ctx)
	for _, intent := range intents {
		text, buttons := render(req, intent)
		for _, chatID := range d.recipients(ctx, intent) {
			d.bus.PublishOutbound(&bus.OutboundMessage{
				Channel:   d.channel,
				ChatID:    chatID,
				Content:   text,
				Buttons:   buttons,
				RequestID: requestID,
				Metadata: map[string]any{
					"kind":       string(intent.Kind),
					"request_id": intent.RequestID,
				},
			})
		}
	}
}

func (d *Dispatcher) recipients(ctx context.Context, intent booking.Intent) []string {
	switch intent.Audience {
	case booking.AudienceRequester:
		return []string{strconv.FormatInt(intent.Recipient, 10)}
	case booking.AudienceApprovers:
		approvers, err := d.roster.Approvers(ctx)
		if err != nil {
			slog.Error("resolve approver audience failed", "kind", intent.Kind, "booking_id", intent.RequestID, "error", err)
			return nil
		}
		chatIDs := make([]string, 0, len(approvers))
		for _, a := range approvers {
			chatIDs = append(chatIDs, strconv.FormatInt(a.ID, 10))
		}
		return chatIDs
	default:
		slog.Warn("unknown audience", "audience", intent.Audience, "kind", intent.Kind)
		return nil
	}
}
