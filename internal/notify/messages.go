package notify

import (
	"fmt"
	"strings"

	"github.com/dclink/dockslot/internal/booking"
	"github.com/dclink/dockslot/internal/bus"
)

func loadingLabel(lt booking.LoadingType) string {
	switch lt {
	case booking.LoadingPalletized:
		return "палетний"
	case booking.LoadingBulk:
		return "навалом"
	default:
		return string(lt)
	}
}

func statusLabel(s booking.Status) string {
	switch s {
	case booking.StatusNew:
		return "🟢 Нова"
	case booking.StatusApproved:
		return "✔ Підтверджена"
	case booking.StatusRejected:
		return "❌ Відхилена"
	case booking.StatusWithdrawn:
		return "↩️ Скасована"
	case booking.StatusPendingRequesterConfirm:
		return "⏳ Очікує підтвердження водія"
	case booking.StatusPendingApproverDecision:
		return "⏳ Очікує рішення адміністратора"
	case booking.StatusPendingRequesterFinal:
		return "⏳ Фінальне підтвердження"
	default:
		return string(s)
	}
}

func slotLine(slot booking.Slot) string {
	if slot.IsZero() {
		return "—"
	}
	return fmt.Sprintf("📅 %s  ⏰ %02d:%02d", slot.Date.Format("02.01.2006"), slot.Hour, slot.Minute)
}

// Card renders the full request card shown to approvers.
func Card(req *booking.Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📦 <b>Заявка #%d</b>\n", req.ID)
	fmt.Fprintf(&b, "Статус: %s\n\n", statusLabel(req.Status))
	fmt.Fprintf(&b, "🏢 <b>Постачальник:</b> %s\n", req.Supplier)
	fmt.Fprintf(&b, "📞 <b>Телефон:</b> %s\n", req.Phone)
	if req.CargoVolume != "" {
		fmt.Fprintf(&b, "⚖️ <b>Обсяг:</b> %s\n", req.CargoVolume)
	}
	if req.CargoDescription != "" {
		fmt.Fprintf(&b, "📋 <b>Вантаж:</b> %s\n", req.CargoDescription)
	}
	fmt.Fprintf(&b, "🧱 <b>Тип завантаження:</b> %s\n", loadingLabel(req.Loading))
	fmt.Fprintf(&b, "%s", slotLine(req.Planned))
	if !req.Pending.IsZero() {
		fmt.Fprintf(&b, "\n🔁 <b>Зустрічна пропозиція:</b> %s", slotLine(req.Pending))
	}
	return b.String()
}

// render builds the message text and keyboard for one intent.
func render(req *booking.Request, intent booking.Intent) (string, [][]bus.Button) {
	reason := intent.Payload["reason"]
	final := intent.Payload["final"] == "true"
	edited := intent.Payload["edited"] == "true"

	switch intent.Kind {
	case booking.KindNewRequestCreated:
		header := fmt.Sprintf("📦 <b>Нова заявка #%d</b>", req.ID)
		if edited {
			header = fmt.Sprintf("✏️ <b>Заявка #%d оновлена</b>", req.ID)
			if reason != "" {
				header += "\n" + reason
			}
		}
		return header + "\n\n" + Card(req), [][]bus.Button{
			bus.ButtonRow(bus.Button{Text: "✔ Підтвердити", Data: CallbackData(CBApprove, req.ID)}),
			bus.ButtonRow(bus.Button{Text: "🔁 Змінити дату/час", Data: CallbackData(CBChange, req.ID)}),
			bus.ButtonRow(bus.Button{Text: "❌ Відхилити", Data: CallbackData(CBReject, req.ID)}),
		}

	case booking.KindApproved:
		return fmt.Sprintf("🎉 <b>Заявка #%d підтверджена!</b>\n%s", req.ID, slotLine(req.Confirmed)), nil

	case booking.KindRejected:
		text := fmt.Sprintf("❌ <b>Заявку #%d відхилено адміністратором.</b>", req.ID)
		if reason != "" {
			text += "\nПричина: " + reason
		}
		return text, nil

	case booking.KindChangeProposed:
		text := fmt.Sprintf("🔄 <b>Час вашої заявки #%d запропоновано змінити:</b>\n%s", req.ID, slotLine(req.Planned))
		if reason != "" {
			text += "\nПричина: " + reason
		}
		rows := [][]bus.Button{
			bus.ButtonRow(bus.Button{Text: "✅ Підтвердити", Data: CallbackData(CBConfirm, req.ID)}),
		}
		if final {
			text += "\n\nЦе фінальна пропозиція. Підтвердіть час або скасуйте заявку."
			rows = append(rows, bus.ButtonRow(bus.Button{Text: "🚫 Скасувати заявку", Data: CallbackData(CBWithdraw, req.ID)}))
		} else {
			rows = append(rows,
				bus.ButtonRow(bus.Button{Text: "❌ Відхилити", Data: CallbackData(CBDecline, req.ID)}),
				bus.ButtonRow(bus.Button{Text: "🕒 Запропонувати свій час", Data: CallbackData(CBCounter, req.ID)}),
				bus.ButtonRow(bus.Button{Text: "🚫 Скасувати заявку", Data: CallbackData(CBWithdraw, req.ID)}))
		}
		return text, rows

	case booking.KindChangeConfirmed:
		return fmt.Sprintf("ℹ️ <b>Заявка #%d: водій підтвердив новий час</b>\n%s", req.ID, slotLine(req.Confirmed)), nil

	case booking.KindChangeDeclined:
		text := fmt.Sprintf("ℹ️ <b>Водій відхилив запропонований час заявки #%d</b>", req.ID)
		if reason != "" {
			text += "\nПричина: " + reason
		}
		return text + "\n\n" + Card(req), [][]bus.Button{
			bus.ButtonRow(bus.Button{Text: "📌 Залишити запропонований час", Data: CallbackData(CBKeepProposed, req.ID)}),
			bus.ButtonRow(bus.Button{Text: "↩️ Повернути початковий час", Data: CallbackData(CBKeepOriginal, req.ID)}),
			bus.ButtonRow(bus.Button{Text: "🔁 Запропонувати інший час", Data: CallbackData(CBChange, req.ID)}),
		}

	case booking.KindCounterProposed:
		text := fmt.Sprintf("🔁 <b>Зустрічна пропозиція по заявці #%d</b>\n%s", req.ID, slotLine(req.Pending))
		if reason != "" {
			text += "\nПричина: " + reason
		}
		return text + "\n\n" + Card(req), [][]bus.Button{
			bus.ButtonRow(bus.Button{Text: "✅ Прийняти час водія", Data: CallbackData(CBAcceptCounter, req.ID)}),
			bus.ButtonRow(bus.Button{Text: "❌ Відхилити пропозицію", Data: CallbackData(CBRejectCounter, req.ID)}),
			bus.ButtonRow(bus.Button{Text: "↩️ Повернути початковий час", Data: CallbackData(CBKeepOriginal, req.ID)}),
			bus.ButtonRow(bus.Button{Text: "🔁 Запропонувати інший час", Data: CallbackData(CBChange, req.ID)}),
		}

	case booking.KindCounterAccepted:
		return fmt.Sprintf("✔ <b>Ваш час по заявці #%d прийнято!</b>\n%s", req.ID, slotLine(req.Confirmed)), nil

	case booking.KindCounterRejected:
		text := fmt.Sprintf("❌ <b>Вашу пропозицію часу по заявці #%d відхилено.</b>\nЗалишається: %s", req.ID, slotLine(req.Planned))
		if reason != "" {
			text += "\nПричина: " + reason
		}
		text += "\n\nЦе фінальна пропозиція. Підтвердіть час або скасуйте заявку."
		return text, [][]bus.Button{
			bus.ButtonRow(bus.Button{Text: "✅ Підтвердити", Data: CallbackData(CBConfirm, req.ID)}),
			bus.ButtonRow(bus.Button{Text: "🚫 Скасувати заявку", Data: CallbackData(CBWithdraw, req.ID)}),
		}

	case booking.KindWithdrawn:
		text := fmt.Sprintf("↩️ <b>Заявку #%d скасовано водієм.</b>", req.ID)
		if reason != "" {
			text += "\nПричина: " + reason
		}
		return text, nil

	case booking.KindCompleted:
		return fmt.Sprintf("✅ <b>Візит за заявкою #%d завершено.</b>\nДякуємо!", req.ID), nil

	case booking.KindAdminAction:
		action := intent.Payload["action"]
		if action == "" {
			action = "оброблена"
		}
		return fmt.Sprintf("ℹ️ <b>Заявка #%d: %s адміністратором.</b>", req.ID, adminActionLabel(action)), nil

	case booking.KindReminder:
		return fmt.Sprintf("⏰ <b>Нагадування:</b> ваша заявка #%d запланована на\n%s", req.ID, slotLine(req.Confirmed)), nil

	default:
		return fmt.Sprintf("ℹ️ Заявка #%d: %s", req.ID, intent.Kind), nil
	}
}

func adminActionLabel(action string) string {
	if action == "deleted" {
		return "видалена"
	}
	return action
}
