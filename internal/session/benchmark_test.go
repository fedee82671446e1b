package session

import (
	"fmt"
	"testing"
)

func BenchmarkManager_Save(b *testing.B) {
	dir := b.TempDir()
	mgr := NewManager(dir, 0)
	form := mgr.GetOrCreate("bench-save")
	form.Mode = ModeCreate
	form.Step = StepMinute
	form.Supplier = "ACME Logistics"
	form.Phone = "+380501112233"
	form.CargoVolume = "2 tons"
	form.CargoDescription = "tinned goods"
	form.Loading = "palletized"
	form.Date = "2026-03-05"

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := mgr.Save(form); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkManager_GetOrCreate(b *testing.B) {
	dir := b.TempDir()
	mgr := NewManager(dir, 0)

	for i := 0; i < 100; i++ {
		form := mgr.GetOrCreate(fmt.Sprintf("bench:%d", i))
		form.Mode = ModeCreate
		form.Step = StepSupplier
		if err := mgr.Save(form); err != nil {
			b.Fatal(err)
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		mgr.GetOrCreate(fmt.Sprintf("bench:%d", i%100))
	}
}
