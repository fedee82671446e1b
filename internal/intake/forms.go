package intake

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/dclink/dockslot/internal/booking"
	"github.com/dclink/dockslot/internal/bus"
	"github.com/dclink/dockslot/internal/notify"
	"github.com/dclink/dockslot/internal/session"
)

const welcomeText = "🟥 <b>DC Link — Електронна черга водіїв</b>\n\n" +
	"👋 Вітаємо! Цей бот допоможе забронювати час вивантаження на складі.\n" +
	"Оберіть дію:"

func (l *Loop) handleText(ctx context.Context, actor booking.Actor, msg *bus.InboundMessage) {
	text := strings.TrimSpace(msg.Content)

	switch text {
	case "/start", "/menu", "🏠 Головне меню":
		l.clearForm(msg)
		l.reply(msg, welcomeText, mainMenu(actor.Role == booking.RoleApprover))
		return
	}

	form := l.sessions.GetOrCreate(msg.SessionKey())
	if !form.Active() {
		l.reply(msg, "Оберіть дію:", mainMenu(actor.Role == booking.RoleApprover))
		return
	}

	switch form.Step {
	case session.StepSupplier:
		if text == "" {
			l.reply(msg, "⚠ Введіть постачальника.", nil)
			return
		}
		form.Supplier = text
		form.Step = session.StepPhone
		l.saveForm(msg, form)
		l.reply(msg, "📞 Введіть номер телефону водія (+380...):", [][]bus.Button{cancelRow()})

	case session.StepPhone:
		if text == "" {
			l.reply(msg, "⚠ Введіть номер телефону.", nil)
			return
		}
		form.Phone = text
		form.Step = session.StepCargoVolume
		l.saveForm(msg, form)
		l.reply(msg, "⚖️ Введіть обсяг вантажу (палети / тонни):", [][]bus.Button{cancelRow()})

	case session.StepCargoVolume:
		form.CargoVolume = text
		form.Step = session.StepCargoDescription
		l.saveForm(msg, form)
		l.reply(msg, "📋 Опишіть вантаж:", [][]bus.Button{cancelRow()})

	case session.StepCargoDescription:
		form.CargoDescription = text
		form.Step = session.StepLoading
		l.saveForm(msg, form)
		l.reply(msg, "🧱 Оберіть тип завантаження:", loadingKeyboard())

	case session.StepReason:
		l.submitReason(ctx, actor, msg, form, text)

	case session.StepEditValue:
		l.submitEditValue(ctx, actor, msg, form, text)

	case session.StepLoading, session.StepDate, session.StepHour, session.StepMinute:
		l.reply(msg, "Скористайтеся кнопками вище, щоб зробити вибір.", nil)

	default:
		slog.Warn("form in unknown step", "request_id", msg.RequestID, "step", form.Step)
		l.clearForm(msg)
	}
}

func (l *Loop) startIntakeForm(msg *bus.InboundMessage) {
	form := l.sessions.GetOrCreate(msg.SessionKey())
	form.Reset()
	form.Mode = session.ModeCreate
	form.Step = session.StepSupplier
	l.saveForm(msg, form)
	l.reply(msg, "🏢 Вкажіть постачальника:", [][]bus.Button{cancelRow()})
}

func (l *Loop) startReasonForm(msg *bus.InboundMessage, action string, id int64) {
	form := l.sessions.GetOrCreate(msg.SessionKey())
	form.Reset()
	form.Mode = session.ModeReason
	form.Action = action
	form.RequestID = id
	form.Step = session.StepReason
	l.saveForm(msg, form)
	l.reply(msg, "✍️ Вкажіть причину:", [][]bus.Button{cancelRow()})
}

func (l *Loop) startSlotForm(msg *bus.InboundMessage, mode session.Mode, id int64) {
	form := l.sessions.GetOrCreate(msg.SessionKey())
	form.Reset()
	form.Mode = mode
	form.RequestID = id
	form.Step = session.StepDate
	l.saveForm(msg, form)
	l.reply(msg, "📅 Оберіть нову дату:", dateKeyboard(l.earliest()))
}

func (l *Loop) startEditForm(msg *bus.InboundMessage, id int64, field string) {
	form := l.sessions.GetOrCreate(msg.SessionKey())
	form.Reset()
	form.Mode = session.ModeEdit
	form.RequestID = id
	form.Field = field

	if field == string(booking.FieldLoading) {
		form.Step = session.StepLoading
		l.saveForm(msg, form)
		l.reply(msg, "🧱 Оберіть новий тип завантаження:", loadingKeyboard())
		return
	}

	form.Step = session.StepEditValue
	l.saveForm(msg, form)
	l.reply(msg, "✍️ Введіть нове значення:", [][]bus.Button{cancelRow()})
}

func (l *Loop) startRosterForm(msg *bus.InboundMessage, action string) {
	form := l.sessions.GetOrCreate(msg.SessionKey())
	form.Reset()
	form.Mode = session.ModeEdit
	form.Action = action
	form.Step = session.StepEditValue
	l.saveForm(msg, form)
	if action == cbAdminAdd {
		l.reply(msg, "➕ Введіть Telegram ID нового адміністратора (можна додати ім'я через пробіл):", [][]bus.Button{cancelRow()})
		return
	}
	l.reply(msg, "➖ Введіть Telegram ID адміністратора для видалення:", [][]bus.Button{cancelRow()})
}

// submitIntakeForm turns a completed questionnaire into a create command.
func (l *Loop) submitIntakeForm(ctx context.Context, actor booking.Actor, msg *bus.InboundMessage, form *session.Form) {
	slot, err := l.formSlot(form)
	if err != nil {
		l.clearForm(msg)
		l.reply(msg, "⚠ Форма пошкоджена, почніть заново.", mainMenu(actor.Role == booking.RoleApprover))
		return
	}

	cmd := booking.CreateRequest{
		Supplier:         form.Supplier,
		Phone:            form.Phone,
		CargoVolume:      form.CargoVolume,
		CargoDescription: form.CargoDescription,
		Loading:          booking.LoadingType(form.Loading),
		Slot:             slot,
	}
	l.clearForm(msg)

	req, err := l.execute(ctx, actor, cmd)
	if err != nil {
		l.replyError(msg, err)
		return
	}
	l.reply(msg, fmt.Sprintf("✅ Заявку #%d відправлено адміністратору!\n%s", req.ID, slotText(req.Planned)), nil)
}

// submitReason finishes a flow that was waiting for free-text input.
func (l *Loop) submitReason(ctx context.Context, actor booking.Actor, msg *bus.InboundMessage, form *session.Form, reason string) {
	if reason == "" {
		l.reply(msg, "⚠ Вкажіть причину.", nil)
		return
	}
	id := form.RequestID

	var cmd booking.Command
	var ack string
	switch form.Mode {
	case session.ModeChange:
		slot, err := l.formSlot(form)
		if err != nil {
			l.clearForm(msg)
			l.reply(msg, "⚠ Форма пошкоджена, почніть заново.", nil)
			return
		}
		cmd = booking.ProposeChange{RequestID: id, Slot: slot, Reason: reason}
		ack = "🔁 Пропозицію нового часу надіслано водію."
	case session.ModeCounter:
		slot, err := l.formSlot(form)
		if err != nil {
			l.clearForm(msg)
			l.reply(msg, "⚠ Форма пошкоджена, почніть заново.", nil)
			return
		}
		cmd = booking.CounterPropose{RequestID: id, Slot: slot, Reason: reason}
		ack = "🕒 Вашу пропозицію часу надіслано адміністратору."
	case session.ModeReason:
		switch form.Action {
		case notify.CBReject:
			cmd = booking.Reject{RequestID: id, Reason: reason}
			ack = "❌ Відхилено. Водія повідомлено."
		case notify.CBDecline:
			cmd = booking.Decline{RequestID: id, Reason: reason}
			ack = "❌ Відмову надіслано адміністратору."
		case notify.CBRejectCounter:
			cmd = booking.RejectCounter{RequestID: id, Reason: reason}
			ack = "❌ Пропозицію водія відхилено. Йому надіслано фінальне підтвердження."
		case notify.CBWithdraw:
			cmd = booking.Withdraw{RequestID: id, Reason: reason}
			ack = "🚫 Заявку скасовано."
		case notify.CBDelete:
			cmd = booking.RequesterDelete{RequestID: id, Reason: reason}
			ack = "🗑 Заявку скасовано."
		}
	}
	l.clearForm(msg)
	if cmd == nil {
		slog.Warn("reason form without action", "request_id", msg.RequestID)
		return
	}
	l.runAndAck(ctx, actor, msg, cmd, ack)
}

// submitEditValue finishes a field edit or a roster change.
func (l *Loop) submitEditValue(ctx context.Context, actor booking.Actor, msg *bus.InboundMessage, form *session.Form, text string) {
	switch form.Action {
	case cbAdminAdd:
		l.clearForm(msg)
		if !actor.Privileged {
			l.reply(msg, "⛔ Тільки головний адміністратор може змінювати список.", nil)
			return
		}
		idPart, name, _ := strings.Cut(text, " ")
		id, err := strconv.ParseInt(idPart, 10, 64)
		if err != nil {
			l.reply(msg, "⚠ ID має бути числовим.", nil)
			return
		}
		if err := l.roster.PutApprover(ctx, booking.Approver{ID: id, Name: strings.TrimSpace(name)}); err != nil {
			l.replyError(msg, err)
			return
		}
		l.reply(msg, fmt.Sprintf("✔ Користувача <code>%d</code> додано як адміністратора.", id), nil)
		return

	case cbAdminRemove:
		l.clearForm(msg)
		if !actor.Privileged {
			l.reply(msg, "⛔ Тільки головний адміністратор може змінювати список.", nil)
			return
		}
		id, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
		if err != nil {
			l.reply(msg, "⚠ ID має бути числовим.", nil)
			return
		}
		if l.cfg.SuperadminID != 0 && id == l.cfg.SuperadminID {
			l.reply(msg, "⚠ Головного адміністратора видалити не можна.", nil)
			return
		}
		if err := l.roster.RemoveApprover(ctx, id); err != nil {
			l.replyError(msg, err)
			return
		}
		l.reply(msg, fmt.Sprintf("🗑 Адміністратора <code>%d</code> видалено.", id), nil)
		return
	}

	if text == "" {
		l.reply(msg, "⚠ Введіть нове значення.", nil)
		return
	}
	id := form.RequestID
	field := booking.EditField(form.Field)
	l.clearForm(msg)
	l.runAndAck(ctx, actor, msg, booking.RequesterEdit{RequestID: id, Field: field, Value: text},
		"✏️ Зміни збережено. Заявка повернулася на розгляд адміністратору.")
}

func (l *Loop) showMainMenu(actor booking.Actor, msg *bus.InboundMessage) {
	l.reply(msg, "🏠 Ви у головному меню. Оберіть дію:", mainMenu(actor.Role == booking.RoleApprover))
}

func (l *Loop) saveForm(msg *bus.InboundMessage, form *session.Form) {
	if err := l.sessions.Save(form); err != nil {
		slog.Warn("persist form failed", "request_id", msg.RequestID, "key", form.Key, "error", err)
	}
}

func (l *Loop) clearForm(msg *bus.InboundMessage) {
	l.sessions.Clear(msg.SessionKey())
}
