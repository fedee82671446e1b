package intake

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dclink/dockslot/internal/booking"
	"github.com/dclink/dockslot/internal/bus"
	"github.com/dclink/dockslot/internal/notify"
)

// Menu and form picker callback payloads. Request actions use the
// notify package's "<action>:<id>" codec; everything here is either a
// bare menu token or a "pick_*:<value>" form token resolved against the
// sender's active form.
const (
	cbMenuMain  = "go_main"
	cbMenuNew   = "menu_new"
	cbMenuMy    = "menu_my"
	cbMenuAdmin = "menu_admin"

	cbAdminNew    = "admin_new"
	cbAdminAll    = "admin_all"
	cbAdminBusy   = "admin_busy"
	cbAdminAdd    = "admin_add"
	cbAdminRemove = "admin_remove"

	cbPickDay     = "pick_day"
	cbPickHour    = "pick_hour"
	cbPickMinute  = "pick_min"
	cbPickLoading = "pick_loading"
	cbCancelForm  = "cancel_form"

	cbAdminDelete = "admin_delete"
)

// pickDays is how many calendar days the date picker offers.
const pickDays = 14

var ukDays = [...]string{"Нд", "Пн", "Вт", "Ср", "Чт", "Пт", "Сб"}

func mainMenu(isApprover bool) [][]bus.Button {
	rows := [][]bus.Button{
		bus.ButtonRow(bus.Button{Text: "▶️ Створити заявку", Data: cbMenuNew}),
		bus.ButtonRow(bus.Button{Text: "📋 Мої заявки", Data: cbMenuMy}),
	}
	if isApprover {
		rows = append(rows, bus.ButtonRow(bus.Button{Text: "⚙️ Адмін-панель", Data: cbMenuAdmin}))
	}
	return rows
}

func adminMenu(privileged bool) [][]bus.Button {
	rows := [][]bus.Button{
		bus.ButtonRow(bus.Button{Text: "🆕 Нові заявки", Data: cbAdminNew}),
		bus.ButtonRow(bus.Button{Text: "📚 Останні заявки", Data: cbAdminAll}),
		bus.ButtonRow(bus.Button{Text: "📊 Зайнятість складу", Data: cbAdminBusy}),
	}
	if privileged {
		rows = append(rows,
			bus.ButtonRow(bus.Button{Text: "➕ Додати адміністратора", Data: cbAdminAdd}),
			bus.ButtonRow(bus.Button{Text: "➖ Видалити адміністратора", Data: cbAdminRemove}))
	}
	rows = append(rows, bus.ButtonRow(bus.Button{Text: "🏠 Головне меню", Data: cbMenuMain}))
	return rows
}

func loadingKeyboard() [][]bus.Button {
	return [][]bus.Button{
		bus.ButtonRow(bus.Button{Text: "📦 На палетах", Data: cbPickLoading + ":" + string(booking.LoadingPalletized)}),
		bus.ButtonRow(bus.Button{Text: "🧱 Навалом", Data: cbPickLoading + ":" + string(booking.LoadingBulk)}),
		cancelRow(),
	}
}

// dateKeyboard offers the next bookable dates starting at the lead-time
// floor. Sundays and days with no selectable hours are left out.
func dateKeyboard(earliest time.Time) [][]bus.Button {
	var rows [][]bus.Button
	var row []bus.Button

	day := booking.DateOf(earliest)
	for i := 0; i < pickDays; i++ {
		date := day.AddDate(0, 0, i)
		if len(booking.AvailableHours(date, earliest)) == 0 {
			continue
		}
		label := fmt.Sprintf("%s %s", ukDays[int(date.Weekday())], date.Format("02.01"))
		row = append(row, bus.Button{Text: label, Data: cbPickDay + ":" + date.Format("2006-01-02")})
		if len(row) == 3 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, cancelRow())
	return rows
}

func hourKeyboard(date, earliest time.Time) [][]bus.Button {
	var rows [][]bus.Button
	var row []bus.Button
	for _, h := range booking.AvailableHours(date, earliest) {
		row = append(row, bus.Button{Text: fmt.Sprintf("%02d", h), Data: cbPickHour + ":" + strconv.Itoa(h)})
		if len(row) == 4 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, cancelRow())
	return rows
}

func minuteKeyboard(date time.Time, hour int, earliest time.Time) [][]bus.Button {
	var row []bus.Button
	for _, m := range booking.AvailableMinutes(date, hour, earliest) {
		row = append(row, bus.Button{Text: fmt.Sprintf("%02d:%02d", hour, m), Data: cbPickMinute + ":" + strconv.Itoa(m)})
	}
	rows := [][]bus.Button{}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, cancelRow())
	return rows
}

func cancelRow() []bus.Button {
	return bus.ButtonRow(bus.Button{Text: "🚫 Скасувати", Data: cbCancelForm})
}

// editFieldKeyboard lets a requester pick which field of a recent
// request to change.
func editFieldKeyboard(id int64) [][]bus.Button {
	return [][]bus.Button{
		bus.ButtonRow(bus.Button{Text: "🏢 Постачальник", Data: editFieldCallback(booking.FieldSupplier, id)}),
		bus.ButtonRow(bus.Button{Text: "📞 Телефон", Data: editFieldCallback(booking.FieldPhone, id)}),
		bus.ButtonRow(bus.Button{Text: "⚖️ Обсяг вантажу", Data: editFieldCallback(booking.FieldCargoVolume, id)}),
		bus.ButtonRow(bus.Button{Text: "📋 Опис вантажу", Data: editFieldCallback(booking.FieldCargoDescription, id)}),
		bus.ButtonRow(bus.Button{Text: "🧱 Тип завантаження", Data: editFieldCallback(booking.FieldLoading, id)}),
		cancelRow(),
	}
}

// editFieldCallback builds "editf_<field>:<id>" so the token always
// names a field the engine accepts.
func editFieldCallback(field booking.EditField, id int64) string {
	return notify.CallbackData("editf_"+string(field), id)
}

// cardButtons picks the actions to offer under a request card, driven
// by who is looking and where the request stands.
func cardButtons(req *booking.Request, actor booking.Actor) [][]bus.Button {
	if req.Completed() {
		return nil
	}

	var rows [][]bus.Button
	if actor.Role == booking.RoleApprover {
		switch req.Status {
		case booking.StatusNew:
			rows = append(rows,
				bus.ButtonRow(bus.Button{Text: "✔ Підтвердити", Data: notify.CallbackData(notify.CBApprove, req.ID)}),
				bus.ButtonRow(bus.Button{Text: "🔁 Змінити дату/час", Data: notify.CallbackData(notify.CBChange, req.ID)}),
				bus.ButtonRow(bus.Button{Text: "❌ Відхилити", Data: notify.CallbackData(notify.CBReject, req.ID)}))
		case booking.StatusApproved:
			rows = append(rows,
				bus.ButtonRow(bus.Button{Text: "✅ Завершити візит", Data: notify.CallbackData(notify.CBFinish, req.ID)}),
				bus.ButtonRow(bus.Button{Text: "🔁 Змінити дату/час", Data: notify.CallbackData(notify.CBChange, req.ID)}))
		case booking.StatusPendingApproverDecision:
			if !req.Pending.IsZero() {
				rows = append(rows,
					bus.ButtonRow(bus.Button{Text: "✅ Прийняти час водія", Data: notify.CallbackData(notify.CBAcceptCounter, req.ID)}),
					bus.ButtonRow(bus.Button{Text: "❌ Відхилити пропозицію", Data: notify.CallbackData(notify.CBRejectCounter, req.ID)}))
			} else {
				rows = append(rows,
					bus.ButtonRow(bus.Button{Text: "📌 Залишити запропонований час", Data: notify.CallbackData(notify.CBKeepProposed, req.ID)}))
			}
			rows = append(rows,
				bus.ButtonRow(bus.Button{Text: "↩️ Повернути початковий час", Data: notify.CallbackData(notify.CBKeepOriginal, req.ID)}),
				bus.ButtonRow(bus.Button{Text: "🔁 Запропонувати інший час", Data: notify.CallbackData(notify.CBChange, req.ID)}))
		}
		if req.Status.Terminal() || (actor.Privileged && req.Status == booking.StatusNew) {
			rows = append(rows, bus.ButtonRow(bus.Button{Text: "🗑 Видалити", Data: notify.CallbackData(cbAdminDelete, req.ID)}))
		}
		return rows
	}

	if actor.ID != req.RequesterID {
		return nil
	}
	switch req.Status {
	case booking.StatusPendingRequesterConfirm:
		rows = append(rows,
			bus.ButtonRow(bus.Button{Text: "✅ Підтвердити", Data: notify.CallbackData(notify.CBConfirm, req.ID)}),
			bus.ButtonRow(bus.Button{Text: "❌ Відхилити", Data: notify.CallbackData(notify.CBDecline, req.ID)}),
			bus.ButtonRow(bus.Button{Text: "🕒 Запропонувати свій час", Data: notify.CallbackData(notify.CBCounter, req.ID)}),
			bus.ButtonRow(bus.Button{Text: "🚫 Скасувати заявку", Data: notify.CallbackData(notify.CBWithdraw, req.ID)}))
	case booking.StatusPendingRequesterFinal:
		rows = append(rows,
			bus.ButtonRow(bus.Button{Text: "✅ Підтвердити", Data: notify.CallbackData(notify.CBConfirm, req.ID)}),
			bus.ButtonRow(bus.Button{Text: "🚫 Скасувати заявку", Data: notify.CallbackData(notify.CBWithdraw, req.ID)}))
	default:
		if !req.Status.Terminal() {
			rows = append(rows,
				bus.ButtonRow(bus.Button{Text: "✏️ Редагувати", Data: notify.CallbackData(notify.CBEdit, req.ID)}),
				bus.ButtonRow(bus.Button{Text: "🗑 Видалити", Data: notify.CallbackData(notify.CBDelete, req.ID)}))
		}
	}
	return rows
}
