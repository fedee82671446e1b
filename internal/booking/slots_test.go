package booking

import (
	"errors"
	"testing"
	"time"
)

// 2026-03-01 is a Sunday; 2026-03-03 a Tuesday.
var (
	sunday  = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	tuesday = time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)
)

func TestAvailableHours_SundayEmpty(t *testing.T) {
	earliest := time.Date(2026, 2, 20, 8, 0, 0, 0, time.UTC)
	if hours := AvailableHours(sunday, earliest); len(hours) != 0 {
		t.Fatalf("expected no hours on Sunday, got %v", hours)
	}
	if minutes := AvailableMinutes(sunday, 10, earliest); len(minutes) != 0 {
		t.Fatalf("expected no minutes on Sunday, got %v", minutes)
	}
}

func TestAvailableHours_FullWindow(t *testing.T) {
	earliest := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	hours := AvailableHours(tuesday, earliest)
	want := []int{9, 10, 11, 12, 13, 14, 15, 16}
	if len(hours) != len(want) {
		t.Fatalf("expected %v, got %v", want, hours)
	}
	for i, h := range want {
		if hours[i] != h {
			t.Fatalf("expected %v, got %v", want, hours)
		}
	}
}

func TestAvailableHours_FloorDayCutsEarlierHours(t *testing.T) {
	earliest := time.Date(2026, 3, 3, 12, 15, 0, 0, time.UTC)
	hours := AvailableHours(tuesday, earliest)
	if len(hours) == 0 || hours[0] != 12 {
		t.Fatalf("expected first hour 12, got %v", hours)
	}
	if hours[len(hours)-1] != 16 {
		t.Fatalf("expected last hour 16, got %v", hours)
	}
}

func TestAvailableHours_PastDateEmpty(t *testing.T) {
	earliest := time.Date(2026, 3, 4, 8, 0, 0, 0, time.UTC)
	if hours := AvailableHours(tuesday, earliest); len(hours) != 0 {
		t.Fatalf("expected no hours for a past date, got %v", hours)
	}
}

func TestAvailableMinutes_OutsideWindowEmpty(t *testing.T) {
	earliest := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	for _, hour := range []int{0, 8, 17, 23} {
		if minutes := AvailableMinutes(tuesday, hour, earliest); len(minutes) != 0 {
			t.Fatalf("hour %d: expected no minutes, got %v", hour, minutes)
		}
	}
}

func TestAvailableMinutes_FloorHourCutsEarlierMinutes(t *testing.T) {
	earliest := time.Date(2026, 3, 3, 10, 15, 0, 0, time.UTC)

	minutes := AvailableMinutes(tuesday, 10, earliest)
	if len(minutes) != 1 || minutes[0] != 30 {
		t.Fatalf("expected only :30 at the floor hour, got %v", minutes)
	}

	minutes = AvailableMinutes(tuesday, 11, earliest)
	if len(minutes) != 2 {
		t.Fatalf("expected both marks after the floor hour, got %v", minutes)
	}
}

func TestEarliestSelectable_StricterBoundWins(t *testing.T) {
	createdAt := time.Date(2026, 3, 3, 7, 0, 0, 0, time.UTC)

	now := time.Date(2026, 3, 3, 7, 30, 0, 0, time.UTC)
	got := EarliestSelectable(now, createdAt, time.Hour)
	if !got.Equal(createdAt.Add(time.Hour)) {
		t.Fatalf("expected createdAt+lead, got %s", got)
	}

	now = time.Date(2026, 3, 3, 9, 45, 0, 0, time.UTC)
	got = EarliestSelectable(now, createdAt, time.Hour)
	if !got.Equal(now) {
		t.Fatalf("expected live now to win, got %s", got)
	}
}

func TestValidateSlot(t *testing.T) {
	earliest := time.Date(2026, 3, 3, 10, 15, 0, 0, time.UTC)

	cases := []struct {
		name    string
		slot    Slot
		wantErr bool
	}{
		{"ok", Slot{Date: tuesday, Hour: 11, Minute: 0}, false},
		{"ok half past", Slot{Date: tuesday, Hour: 16, Minute: 30}, false},
		{"sunday", Slot{Date: sunday.AddDate(0, 0, 7), Hour: 11, Minute: 0}, true},
		{"past date", Slot{Date: tuesday.AddDate(0, 0, -7), Hour: 11, Minute: 0}, true},
		{"too early", Slot{Date: tuesday, Hour: 8, Minute: 0}, true},
		{"too late", Slot{Date: tuesday, Hour: 17, Minute: 0}, true},
		{"inside lead window", Slot{Date: tuesday, Hour: 10, Minute: 0}, true},
		{"off-grid minute", Slot{Date: tuesday, Hour: 11, Minute: 45}, true},
		{"zero", Slot{}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateSlot(tc.slot, earliest)
			if tc.wantErr {
				if !errors.Is(err, ErrSlotUnavailable) {
					t.Fatalf("expected ErrSlotUnavailable, got %v", err)
				}
				var se *SlotError
				if !errors.As(err, &se) || se.Constraint == "" {
					t.Fatalf("expected a named constraint, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateSlot_AgreesWithOfferedSets(t *testing.T) {
	earliest := time.Date(2026, 3, 3, 12, 40, 0, 0, time.UTC)

	for _, h := range AvailableHours(tuesday, earliest) {
		for _, m := range AvailableMinutes(tuesday, h, earliest) {
			slot := Slot{Date: tuesday, Hour: h, Minute: m}
			if err := ValidateSlot(slot, earliest); err != nil {
				t.Fatalf("offered slot %s failed re-validation: %v", slot, err)
			}
		}
	}
}
