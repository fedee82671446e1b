package intake

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dclink/dockslot/internal/booking"
	"github.com/dclink/dockslot/internal/bus"
	"github.com/dclink/dockslot/internal/notify"
)

// recentListLimit bounds the admin "last requests" view.
const recentListLimit = 20

// occupancyDays is how far ahead the occupancy overview looks.
const occupancyDays = 7

func (l *Loop) showMyRequests(ctx context.Context, actor booking.Actor, msg *bus.InboundMessage) {
	reqs, err := l.store.ListByRequester(ctx, actor.ID, l.cfg.RecencyWindow)
	if err != nil {
		l.replyError(msg, err)
		return
	}
	if len(reqs) == 0 {
		l.reply(msg, "У вас ще немає заявок.", mainMenu(actor.Role == booking.RoleApprover))
		return
	}
	l.reply(msg, "📋 <b>Ваші останні заявки:</b>", listButtons(reqs))
}

func (l *Loop) showNewRequests(ctx context.Context, msg *bus.InboundMessage) {
	reqs, err := l.store.ListByStatus(ctx, booking.StatusNew, recentListLimit)
	if err != nil {
		l.replyError(msg, err)
		return
	}
	if len(reqs) == 0 {
		l.reply(msg, "🟢 Нових заявок немає.", nil)
		return
	}
	l.reply(msg, "🆕 <b>Нові заявки:</b>", listButtons(reqs))
}

func (l *Loop) showRecentRequests(ctx context.Context, msg *bus.InboundMessage) {
	all, err := l.store.All(ctx)
	if err != nil {
		l.replyError(msg, err)
		return
	}
	if len(all) == 0 {
		l.reply(msg, "⚪ Заявок поки немає.", nil)
		return
	}

	// All returns oldest first; take the tail, newest on top.
	if len(all) > recentListLimit {
		all = all[len(all)-recentListLimit:]
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	l.reply(msg, fmt.Sprintf("📚 <b>Останні %d заявок:</b>", len(all)), listButtons(all))
}

// showOccupancy renders booked slots per day for the coming week, so an
// approver sees collisions before double booking turns into a queue at
// the gate.
func (l *Loop) showOccupancy(ctx context.Context, msg *bus.InboundMessage) {
	now := l.now().In(l.cfg.Location)
	var b strings.Builder
	b.WriteString("📊 <b>Зайнятість складу:</b>\n\n")

	for i := 0; i < occupancyDays; i++ {
		day := booking.DateOf(now).AddDate(0, 0, i)
		if day.Weekday() == time.Sunday {
			continue
		}
		slots, err := l.store.BookedSlots(ctx, day)
		if err != nil {
			l.replyError(msg, err)
			return
		}
		fmt.Fprintf(&b, "%s %s — ", ukDays[int(day.Weekday())], day.Format("02.01"))
		if len(slots) == 0 {
			b.WriteString("вільно\n")
			continue
		}
		sort.Slice(slots, func(i, j int) bool {
			if slots[i].Hour != slots[j].Hour {
				return slots[i].Hour < slots[j].Hour
			}
			return slots[i].Minute < slots[j].Minute
		})
		marks := make([]string, 0, len(slots))
		for _, s := range slots {
			marks = append(marks, fmt.Sprintf("%02d:%02d", s.Hour, s.Minute))
		}
		b.WriteString(strings.Join(marks, ", ") + "\n")
	}
	l.reply(msg, b.String(), nil)
}

// listButtons renders one view button per request.
func listButtons(reqs []*booking.Request) [][]bus.Button {
	rows := make([][]bus.Button, 0, len(reqs)+1)
	for _, req := range reqs {
		label := fmt.Sprintf("#%d — %s %02d:%02d (%s)",
			req.ID, req.Planned.Date.Format("02.01.2006"), req.Planned.Hour, req.Planned.Minute, statusBadge(req))
		rows = append(rows, bus.ButtonRow(bus.Button{Text: label, Data: notify.CallbackData(notify.CBView, req.ID)}))
	}
	rows = append(rows, bus.ButtonRow(bus.Button{Text: "🏠 Головне меню", Data: cbMenuMain}))
	return rows
}

func statusBadge(req *booking.Request) string {
	if req.Completed() {
		return "✅ завершена"
	}
	switch req.Status {
	case booking.StatusNew:
		return "🟢 нова"
	case booking.StatusApproved:
		return "✔ підтверджена"
	case booking.StatusRejected:
		return "❌ відхилена"
	case booking.StatusWithdrawn:
		return "↩️ скасована"
	default:
		return "⏳ в обробці"
	}
}
