package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/dclink/dockslot/internal/booking"
	"github.com/dclink/dockslot/internal/bus"
	"github.com/dclink/dockslot/internal/metrics"
	"github.com/dclink/dockslot/internal/session"
)

// Engine executes typed booking commands.
type Engine interface {
	Execute(ctx context.Context, actor booking.Actor, cmd booking.Command) (*booking.Request, []booking.Intent, error)
}

// Store is the read side the dialogue needs beyond the engine.
type Store interface {
	Get(ctx context.Context, id int64) (*booking.Request, error)
	ListByStatus(ctx context.Context, status booking.Status, limit int) ([]*booking.Request, error)
	ListByRequester(ctx context.Context, requesterID int64, limit int) ([]*booking.Request, error)
	All(ctx context.Context) ([]*booking.Request, error)
	BookedSlots(ctx context.Context, date time.Time) ([]booking.Slot, error)
}

// Roster manages the approver principals.
type Roster interface {
	IsApprover(ctx context.Context, id int64) (*booking.Approver, error)
	Approvers(ctx context.Context) ([]booking.Approver, error)
	PutApprover(ctx context.Context, a booking.Approver) error
	RemoveApprover(ctx context.Context, id int64) error
}

// Notifier fans committed intents out to their audiences.
type Notifier interface {
	Dispatch(ctx context.Context, req *booking.Request, intents []booking.Intent)
}

// Config tunes the dialogue loop.
type Config struct {
	// SuperadminID always resolves as a privileged approver.
	SuperadminID int64
	// LeadTime mirrors the engine's slot lead time so keyboards offer
	// the same choices the engine will accept.
	LeadTime time.Duration
	// Location is the dock timezone the pickers operate in.
	Location *time.Location
	// RecencyWindow bounds the "my requests" listing.
	RecencyWindow int
}

// Loop is the chat front end: it consumes inbound messages, drives the
// dialogue forms, and translates button presses into engine commands.
type Loop struct {
	bus           *bus.MessageBus
	engine        Engine
	store         Store
	roster        Roster
	notifier      Notifier
	sessions      *session.Manager
	cfg           Config
	runtimeMetric *metrics.RuntimeMetrics
	now           func() time.Time
}

// NewLoop creates the dialogue loop.
func NewLoop(msgBus *bus.MessageBus, engine Engine, store Store, roster Roster, notifier Notifier, sessions *session.Manager, cfg Config) *Loop {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.LeadTime <= 0 {
		cfg.LeadTime = booking.DefaultLeadTime
	}
	if cfg.RecencyWindow <= 0 {
		cfg.RecencyWindow = 20
	}
	return &Loop{
		bus:      msgBus,
		engine:   engine,
		store:    store,
		roster:   roster,
		notifier: notifier,
		sessions: sessions,
		cfg:      cfg,
		now:      time.Now,
	}
}

// SetRuntimeMetrics attaches a runtime metrics recorder for command stats.
func (l *Loop) SetRuntimeMetrics(recorder *metrics.RuntimeMetrics) {
	l.runtimeMetric = recorder
}

// Run consumes inbound messages until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	slog.Info("intake loop started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-l.bus.Inbound():
			if !ok {
				return fmt.Errorf("inbound channel closed")
			}
			if msg == nil {
				slog.Warn("received nil inbound message")
				continue
			}
			if strings.TrimSpace(msg.RequestID) == "" {
				msg.RequestID = bus.NewRequestID()
			}
			l.process(bus.WithRequestID(ctx, msg.RequestID), msg)
		}
	}
}

func (l *Loop) process(ctx context.Context, msg *bus.InboundMessage) {
	actor, err := l.resolveActor(ctx, msg.SenderID)
	if err != nil {
		slog.Error("resolve actor failed", "request_id", msg.RequestID, "sender", msg.SenderID, "error", err)
		l.reply(msg, "⚠ Сервіс тимчасово недоступний. Спробуйте пізніше.", nil)
		return
	}

	if msg.IsCallback() {
		l.handleCallback(ctx, actor, msg)
		return
	}
	l.handleText(ctx, actor, msg)
}

// resolveActor maps a chat sender onto a booking role. Unknown senders
// are requesters; roster members and the superadmin are approvers.
func (l *Loop) resolveActor(ctx context.Context, senderID string) (booking.Actor, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(senderID), 10, 64)
	if err != nil {
		return booking.Actor{}, fmt.Errorf("sender id %q: %w", senderID, err)
	}

	if l.cfg.SuperadminID != 0 && id == l.cfg.SuperadminID {
		return booking.Actor{ID: id, Role: booking.RoleApprover, Privileged: true}, nil
	}

	approver, err := l.roster.IsApprover(ctx, id)
	if err != nil {
		return booking.Actor{}, err
	}
	if approver != nil {
		return booking.Actor{ID: id, Role: booking.RoleApprover, Privileged: approver.Privileged}, nil
	}
	return booking.Actor{ID: id, Role: booking.RoleRequester}, nil
}

// execute runs a command through the engine, records metrics, and fans
// out the resulting intents. The returned request is nil on failure.
func (l *Loop) execute(ctx context.Context, actor booking.Actor, cmd booking.Command) (*booking.Request, error) {
	start := l.now()
	req, intents, err := l.engine.Execute(ctx, actor, cmd)
	if _, recErr := l.runtimeMetric.RecordCommand(l.now().Sub(start), err); recErr != nil {
		slog.Warn("record command metrics failed", "error", recErr)
	}
	if err != nil {
		return nil, err
	}
	if len(intents) > 0 {
		l.notifier.Dispatch(ctx, req, intents)
	}
	return req, nil
}

func (l *Loop) reply(msg *bus.InboundMessage, text string, buttons [][]bus.Button) {
	l.bus.PublishOutbound(&bus.OutboundMessage{
		Channel:   msg.Channel,
		ChatID:    msg.ChatID,
		Content:   text,
		Buttons:   buttons,
		RequestID: msg.RequestID,
	})
}

// replyError maps engine errors onto user-facing text.
func (l *Loop) replyError(msg *bus.InboundMessage, err error) {
	slog.Info("command rejected", "request_id", msg.RequestID, "sender", msg.SenderID, "error", err)
	l.reply(msg, userError(err), nil)
}

func userError(err error) string {
	var slotErr *booking.SlotError
	switch {
	case errors.As(err, &slotErr):
		return "⚠ Обраний час недоступний: " + slotConstraintLabel(slotErr.Constraint)
	case errors.Is(err, booking.ErrNotFound):
		return "⚠ Заявку не знайдено."
	case errors.Is(err, booking.ErrRequestClosed):
		return "⚠ Заявка вже закрита, дії неможливі."
	case errors.Is(err, booking.ErrInvalidTransition):
		return "⚠ Ця дія вже неактуальна. Можливо, заявку оброблено раніше."
	case errors.Is(err, booking.ErrUnauthorized):
		return "⛔ У вас немає прав на цю дію."
	case errors.Is(err, booking.ErrMissingReason):
		return "⚠ Вкажіть причину."
	case errors.Is(err, booking.ErrVersionConflict):
		return "⚠ Заявку щойно змінив хтось інший. Відкрийте її ще раз."
	default:
		return "⚠ Сталася помилка. Спробуйте ще раз."
	}
}

func slotConstraintLabel(constraint string) string {
	switch constraint {
	case "dock is closed on Sundays":
		return "склад не працює в неділю."
	case "date is in the past":
		return "дата вже минула."
	case "outside operating hours":
		return "поза робочими годинами складу."
	case "inside the lead-time window":
		return "занадто близько до поточного часу."
	case "already booked":
		return "цей час вже зайнято."
	default:
		return "оберіть інший час."
	}
}
