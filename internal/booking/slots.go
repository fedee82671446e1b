package booking

import "time"

// Operating window of the dock. The latest bookable slot is 16:30.
const (
	OpenHour = 9
	LastHour = 16
)

// DefaultLeadTime is the minimum delay between creating a request and
// the earliest selectable slot.
const DefaultLeadTime = time.Hour

// slotMinutes are the minute marks offered within each operating hour.
var slotMinutes = [...]int{0, 30}

// EarliestSelectable returns the lead-time floor: the stricter of the
// live current time and createdAt plus the lead time. Every slot choice
// is validated against this bound, both when offering slots and when
// re-validating the final selection.
func EarliestSelectable(now, createdAt time.Time, lead time.Duration) time.Time {
	if lead <= 0 {
		lead = DefaultLeadTime
	}
	floor := createdAt.Add(lead)
	if now.After(floor) {
		return now
	}
	return floor
}

// AvailableHours returns the hours of the operating window selectable on
// date given the lead-time floor. Sundays and dates before the floor's
// date yield no hours at all.
func AvailableHours(date, earliest time.Time) []int {
	day := DateOf(date)
	if day.Weekday() == time.Sunday {
		return nil
	}
	floorDay := DateOf(earliest)
	if day.Before(floorDay) {
		return nil
	}

	var hours []int
	for h := OpenHour; h <= LastHour; h++ {
		if day.Equal(floorDay) && h < earliest.Hour() {
			continue
		}
		hours = append(hours, h)
	}
	return hours
}

// AvailableMinutes returns the minute marks selectable within hour on
// date given the lead-time floor. Hours outside the operating window
// yield nothing.
func AvailableMinutes(date time.Time, hour int, earliest time.Time) []int {
	if hour < OpenHour || hour > LastHour {
		return nil
	}
	day := DateOf(date)
	if day.Weekday() == time.Sunday {
		return nil
	}
	floorDay := DateOf(earliest)
	if day.Before(floorDay) {
		return nil
	}

	var minutes []int
	for _, m := range slotMinutes {
		if day.Equal(floorDay) {
			if hour < earliest.Hour() {
				continue
			}
			if hour == earliest.Hour() && m < earliest.Minute() {
				continue
			}
		}
		minutes = append(minutes, m)
	}
	return minutes
}

// ValidateSlot re-checks a chosen slot from scratch against the same
// rules that produced the offered sets. It never trusts values echoed
// back by a client.
func ValidateSlot(slot Slot, earliest time.Time) error {
	if slot.IsZero() {
		return &SlotError{Slot: slot, Constraint: "no date selected"}
	}
	day := DateOf(slot.Date)
	if day.Weekday() == time.Sunday {
		return &SlotError{Slot: slot, Constraint: "dock is closed on Sundays"}
	}
	if day.Before(DateOf(earliest)) {
		return &SlotError{Slot: slot, Constraint: "date is in the past"}
	}
	if slot.Hour < OpenHour || slot.Hour > LastHour {
		return &SlotError{Slot: slot, Constraint: "outside operating hours"}
	}
	for _, m := range AvailableMinutes(slot.Date, slot.Hour, earliest) {
		if m == slot.Minute {
			return nil
		}
	}
	validMark := false
	for _, m := range slotMinutes {
		if m == slot.Minute {
			validMark = true
			break
		}
	}
	if !validMark {
		return &SlotError{Slot: slot, Constraint: "not a 30-minute mark"}
	}
	return &SlotError{Slot: slot, Constraint: "inside the lead-time window"}
}
