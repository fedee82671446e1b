package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestManager_GetOrCreate(t *testing.T) {
	mgr := NewManager(t.TempDir(), 0)

	form1 := mgr.GetOrCreate("telegram:123")
	form2 := mgr.GetOrCreate("telegram:123")

	if form1 != form2 {
		t.Error("expected same form instance")
	}
}

func TestForm_SaveAndLoad(t *testing.T) {
	baseDir := t.TempDir()

	mgr1 := NewManager(baseDir, 0)
	form := mgr1.GetOrCreate("telegram:42")
	form.Mode = ModeCreate
	form.Step = StepDate
	form.Supplier = "ACME Logistics"
	form.Phone = "+380501112233"
	form.Loading = "palletized"

	if err := mgr1.Save(form); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	// A fresh manager over the same dir revives the half-filled form.
	mgr2 := NewManager(baseDir, 0)
	loaded := mgr2.GetOrCreate("telegram:42")

	if !loaded.Active() {
		t.Fatal("expected revived form to be active")
	}
	if loaded.Step != StepDate || loaded.Mode != ModeCreate {
		t.Fatalf("dialogue position lost: step=%s mode=%s", loaded.Step, loaded.Mode)
	}
	if loaded.Supplier != "ACME Logistics" || loaded.Phone != "+380501112233" {
		t.Fatalf("collected fields lost: %+v", loaded)
	}
}

func TestForm_InactiveNotSaved(t *testing.T) {
	baseDir := t.TempDir()

	mgr := NewManager(baseDir, 0)
	form := mgr.GetOrCreate("telegram:7")

	if err := mgr.Save(form); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	entries, err := os.ReadDir(filepath.Join(baseDir, "sessions"))
	if err != nil {
		t.Fatalf("ReadDir error: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no file for an inactive form, found %d entries", len(entries))
	}
}

func TestForm_Expiry(t *testing.T) {
	mgr := NewManager(t.TempDir(), 30*time.Minute)
	base := time.Date(2026, 3, 3, 8, 0, 0, 0, time.UTC)
	mgr.now = func() time.Time { return base }

	form := mgr.GetOrCreate("telegram:9")
	form.Mode = ModeCounter
	form.Step = StepHour
	form.RequestID = 5
	if err := mgr.Save(form); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	mgr.now = func() time.Time { return base.Add(31 * time.Minute) }
	revived := mgr.GetOrCreate("telegram:9")
	if revived.Active() {
		t.Fatalf("expected expired form reset, got %+v", revived)
	}
}

func TestManager_PruneExpired(t *testing.T) {
	mgr := NewManager(t.TempDir(), 10*time.Minute)
	base := time.Date(2026, 3, 3, 8, 0, 0, 0, time.UTC)
	mgr.now = func() time.Time { return base }

	stale := mgr.GetOrCreate("telegram:1")
	stale.Step = StepSupplier
	stale.Mode = ModeCreate
	if err := mgr.Save(stale); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	mgr.now = func() time.Time { return base.Add(5 * time.Minute) }
	fresh := mgr.GetOrCreate("telegram:2")
	fresh.Step = StepPhone
	fresh.Mode = ModeCreate
	if err := mgr.Save(fresh); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	mgr.now = func() time.Time { return base.Add(12 * time.Minute) }
	if n := mgr.PruneExpired(); n != 1 {
		t.Fatalf("expected 1 pruned form, got %d", n)
	}
	if got := mgr.GetOrCreate("telegram:2"); !got.Active() {
		t.Fatal("fresh form must survive pruning")
	}
}

func TestForm_Reset(t *testing.T) {
	form := &Form{Key: "telegram:3", Step: StepMinute, Mode: ModeChange, RequestID: 8, Date: "2026-03-05"}
	form.Reset()
	if form.Key != "telegram:3" {
		t.Fatalf("reset must keep the key, got %q", form.Key)
	}
	if form.Active() || form.RequestID != 0 || form.Date != "" {
		t.Fatalf("reset left state behind: %+v", form)
	}
}
