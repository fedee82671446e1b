package intake

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/dclink/dockslot/internal/booking"
	"github.com/dclink/dockslot/internal/bus"
	"github.com/dclink/dockslot/internal/notify"
	"github.com/dclink/dockslot/internal/session"
)

func (l *Loop) handleCallback(ctx context.Context, actor booking.Actor, msg *bus.InboundMessage) {
	data := strings.TrimSpace(msg.CallbackData)

	switch data {
	case cbMenuMain:
		l.clearForm(msg)
		l.showMainMenu(actor, msg)
		return
	case cbMenuNew:
		l.startIntakeForm(msg)
		return
	case cbMenuMy:
		l.showMyRequests(ctx, actor, msg)
		return
	case cbMenuAdmin:
		if actor.Role != booking.RoleApprover {
			l.reply(msg, "⛔ Ви не адміністратор.", nil)
			return
		}
		l.reply(msg, "⚙️ <b>Адмін-панель:</b>", adminMenu(actor.Privileged))
		return
	case cbAdminNew:
		if actor.Role != booking.RoleApprover {
			l.reply(msg, "⛔ Ви не адміністратор.", nil)
			return
		}
		l.showNewRequests(ctx, msg)
		return
	case cbAdminAll:
		if actor.Role != booking.RoleApprover {
			l.reply(msg, "⛔ Ви не адміністратор.", nil)
			return
		}
		l.showRecentRequests(ctx, msg)
		return
	case cbAdminBusy:
		if actor.Role != booking.RoleApprover {
			l.reply(msg, "⛔ Ви не адміністратор.", nil)
			return
		}
		l.showOccupancy(ctx, msg)
		return
	case cbAdminAdd, cbAdminRemove:
		if !actor.Privileged {
			l.reply(msg, "⛔ Тільки головний адміністратор може змінювати список.", nil)
			return
		}
		l.startRosterForm(msg, data)
		return
	case cbCancelForm:
		l.clearForm(msg)
		l.reply(msg, "🚫 Скасовано.", mainMenu(actor.Role == booking.RoleApprover))
		return
	}

	if strings.HasPrefix(data, "pick_") {
		l.handleFormPick(ctx, actor, msg, data)
		return
	}

	action, id, err := notify.ParseCallback(data)
	if err != nil {
		slog.Warn("unparseable callback", "request_id", msg.RequestID, "data", data)
		return
	}
	l.handleAction(ctx, actor, msg, action, id)
}

func (l *Loop) handleAction(ctx context.Context, actor booking.Actor, msg *bus.InboundMessage, action string, id int64) {
	switch action {
	case notify.CBApprove:
		l.runAndAck(ctx, actor, msg, booking.Approve{RequestID: id}, "✔ Підтверджено! Водія повідомлено.")
	case notify.CBConfirm:
		req, err := l.execute(ctx, actor, booking.Confirm{RequestID: id})
		if err != nil {
			l.replyError(msg, err)
			return
		}
		l.reply(msg, fmt.Sprintf("🎉 Час підтверджено!\n%s", slotText(req.Confirmed)), nil)
	case notify.CBKeepOriginal:
		l.runAndAck(ctx, actor, msg, booking.KeepOriginal{RequestID: id}, "↩️ Повернуто початковий час. Водія повідомлено.")
	case notify.CBKeepProposed:
		l.runAndAck(ctx, actor, msg, booking.KeepProposed{RequestID: id}, "📌 Запропонований час залишено. Водію надіслано фінальне підтвердження.")
	case notify.CBAcceptCounter:
		l.runAndAck(ctx, actor, msg, booking.AcceptCounter{RequestID: id}, "✔ Час водія прийнято.")
	case notify.CBFinish:
		l.runAndAck(ctx, actor, msg, booking.Finish{RequestID: id}, "✅ Візит завершено.")
	case cbAdminDelete:
		l.runAndAck(ctx, actor, msg, booking.AdminDelete{RequestID: id}, "🗑 Заявку видалено.")

	case notify.CBReject, notify.CBDecline, notify.CBRejectCounter, notify.CBWithdraw, notify.CBDelete:
		l.startReasonForm(msg, action, id)

	case notify.CBChange:
		l.startSlotForm(msg, session.ModeChange, id)
	case notify.CBCounter:
		l.startSlotForm(msg, session.ModeCounter, id)

	case notify.CBView:
		l.showCard(ctx, actor, msg, id)
	case notify.CBEdit:
		l.reply(msg, "✏️ Що змінити?", editFieldKeyboard(id))

	default:
		if field, ok := strings.CutPrefix(action, "editf_"); ok {
			l.startEditForm(msg, id, field)
			return
		}
		slog.Warn("unknown callback action", "request_id", msg.RequestID, "action", action)
	}
}

// runAndAck executes a command that needs no further input and replies
// with a short confirmation.
func (l *Loop) runAndAck(ctx context.Context, actor booking.Actor, msg *bus.InboundMessage, cmd booking.Command, ack string) {
	if _, err := l.execute(ctx, actor, cmd); err != nil {
		l.replyError(msg, err)
		return
	}
	l.reply(msg, ack, nil)
}

func (l *Loop) showCard(ctx context.Context, actor booking.Actor, msg *bus.InboundMessage, id int64) {
	req, err := l.store.Get(ctx, id)
	if err != nil {
		l.replyError(msg, err)
		return
	}
	l.reply(msg, notify.Card(req), cardButtons(req, actor))
}

// handleFormPick feeds one keyboard choice into the sender's active form.
func (l *Loop) handleFormPick(ctx context.Context, actor booking.Actor, msg *bus.InboundMessage, data string) {
	kind, value, ok := strings.Cut(data, ":")
	if !ok {
		return
	}

	form := l.sessions.GetOrCreate(msg.SessionKey())
	if !form.Active() {
		l.reply(msg, "⚠ Форма вже неактивна. Почніть заново.", mainMenu(actor.Role == booking.RoleApprover))
		return
	}

	switch kind {
	case cbPickLoading:
		l.pickLoading(ctx, actor, msg, form, value)
	case cbPickDay:
		l.pickDay(msg, form, value)
	case cbPickHour:
		l.pickHour(msg, form, value)
	case cbPickMinute:
		l.pickMinute(ctx, actor, msg, form, value)
	}
}

func (l *Loop) pickLoading(ctx context.Context, actor booking.Actor, msg *bus.InboundMessage, form *session.Form, value string) {
	loading := booking.LoadingType(value)
	if !loading.Valid() {
		l.reply(msg, "⚠ Невідомий тип завантаження.", loadingKeyboard())
		return
	}

	if form.Mode == session.ModeEdit && form.Field == string(booking.FieldLoading) {
		id := form.RequestID
		l.clearForm(msg)
		l.runAndAck(ctx, actor, msg, booking.RequesterEdit{RequestID: id, Field: booking.FieldLoading, Value: value},
			"✏️ Зміни збережено. Заявка повернулася на розгляд адміністратору.")
		return
	}

	if form.Step != session.StepLoading {
		return
	}
	form.Loading = value
	form.Step = session.StepDate
	l.saveForm(msg, form)
	l.reply(msg, "📅 Оберіть дату:", dateKeyboard(l.earliest()))
}

func (l *Loop) pickDay(msg *bus.InboundMessage, form *session.Form, value string) {
	if form.Step != session.StepDate {
		return
	}
	day, err := time.ParseInLocation("2006-01-02", value, l.cfg.Location)
	if err != nil {
		l.reply(msg, "⚠ Невірна дата, оберіть зі списку.", dateKeyboard(l.earliest()))
		return
	}
	form.Date = value
	form.Step = session.StepHour
	l.saveForm(msg, form)
	l.reply(msg, "⏰ Оберіть годину:", hourKeyboard(day, l.earliest()))
}

func (l *Loop) pickHour(msg *bus.InboundMessage, form *session.Form, value string) {
	if form.Step != session.StepHour {
		return
	}
	hour, err := strconv.Atoi(value)
	if err != nil {
		return
	}
	day, err := time.ParseInLocation("2006-01-02", form.Date, l.cfg.Location)
	if err != nil {
		return
	}
	form.Hour = hour
	form.Step = session.StepMinute
	l.saveForm(msg, form)
	l.reply(msg, "🕒 Оберіть час:", minuteKeyboard(day, hour, l.earliest()))
}

func (l *Loop) pickMinute(ctx context.Context, actor booking.Actor, msg *bus.InboundMessage, form *session.Form, value string) {
	if form.Step != session.StepMinute {
		return
	}
	minute, err := strconv.Atoi(value)
	if err != nil {
		return
	}
	form.Minute = minute

	switch form.Mode {
	case session.ModeCreate:
		l.submitIntakeForm(ctx, actor, msg, form)
	case session.ModeChange, session.ModeCounter:
		form.Step = session.StepReason
		l.saveForm(msg, form)
		l.reply(msg, "✍️ Вкажіть причину зміни часу:", [][]bus.Button{cancelRow()})
	default:
		l.clearForm(msg)
	}
}

func (l *Loop) formSlot(form *session.Form) (booking.Slot, error) {
	day, err := time.ParseInLocation("2006-01-02", form.Date, l.cfg.Location)
	if err != nil {
		return booking.Slot{}, err
	}
	return booking.Slot{Date: day, Hour: form.Hour, Minute: form.Minute}, nil
}

// earliest is the lead-time floor the pickers offer slots from.
func (l *Loop) earliest() time.Time {
	now := l.now().In(l.cfg.Location)
	return booking.EarliestSelectable(now, now, l.cfg.LeadTime)
}

func slotText(slot booking.Slot) string {
	return fmt.Sprintf("📅 %s  ⏰ %02d:%02d", slot.Date.Format("02.01.2006"), slot.Hour, slot.Minute)
}
