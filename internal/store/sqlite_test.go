package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/dclink/dockslot/internal/booking"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "dockslot.sqlite"), time.UTC)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleRequest(requesterID int64) *booking.Request {
	created := time.Date(2026, 3, 3, 8, 0, 0, 0, time.UTC)
	slot := booking.Slot{Date: time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), Hour: 10, Minute: 30}
	req := &booking.Request{
		RequesterID:      requesterID,
		Supplier:         "ACME Logistics",
		Phone:            "+380501112233",
		CargoVolume:      "2 tons",
		CargoDescription: "tinned goods",
		Loading:          booking.LoadingPalletized,
		Planned:          slot,
		Confirmed:        slot,
		Status:           booking.StatusNew,
		CreatedAt:        created,
		UpdatedAt:        created,
		Version:          1,
	}
	req.AppendLog("requester#100", "created request", created)
	return req
}

func TestCreateAndGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	req := sampleRequest(100)
	if err := s.Create(ctx, req); err != nil {
		t.Fatalf("create: %v", err)
	}
	if req.ID == 0 {
		t.Fatal("expected an assigned id")
	}

	got, err := s.Get(ctx, req.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Supplier != req.Supplier || got.Phone != req.Phone || got.Loading != req.Loading {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.Planned != req.Planned || got.Confirmed != req.Confirmed {
		t.Fatalf("slot round trip mismatch: planned=%s confirmed=%s", got.Planned, got.Confirmed)
	}
	if !got.Pending.IsZero() {
		t.Fatalf("expected empty pending slot, got %s", got.Pending)
	}
	if !got.CreatedAt.Equal(req.CreatedAt) {
		t.Fatalf("created_at mismatch: %s vs %s", got.CreatedAt, req.CreatedAt)
	}
	if len(got.Log) != 1 || got.Log[0].Reason != "created request" {
		t.Fatalf("log round trip mismatch: %+v", got.Log)
	}
	if got.Version != 1 {
		t.Fatalf("expected version 1, got %d", got.Version)
	}
}

func TestGetNotFound(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.Get(context.Background(), 404); !errors.Is(err, booking.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdate_OptimisticLocking(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	req := sampleRequest(100)
	if err := s.Create(ctx, req); err != nil {
		t.Fatalf("create: %v", err)
	}

	first, _ := s.Get(ctx, req.ID)
	second, _ := s.Get(ctx, req.ID)

	first.Status = booking.StatusApproved
	first.ApproverID = 200
	if err := s.Update(ctx, first); err != nil {
		t.Fatalf("first update: %v", err)
	}
	if first.Version != 2 {
		t.Fatalf("expected version bumped to 2, got %d", first.Version)
	}

	second.Status = booking.StatusRejected
	if err := s.Update(ctx, second); !errors.Is(err, booking.ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict on stale write, got %v", err)
	}

	got, _ := s.Get(ctx, req.ID)
	if got.Status != booking.StatusApproved || got.Version != 2 {
		t.Fatalf("stale write must not land: status=%s version=%d", got.Status, got.Version)
	}
}

func TestUpdate_AppendsLog(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	req := sampleRequest(100)
	if err := s.Create(ctx, req); err != nil {
		t.Fatalf("create: %v", err)
	}

	req.Status = booking.StatusRejected
	req.AppendLog("approver#200", "no capacity", time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC))
	if err := s.Update(ctx, req); err != nil {
		t.Fatalf("update: %v", err)
	}

	// A second write with the same log must not duplicate entries.
	req.Supplier = "ACME Logistics LLC"
	if err := s.Update(ctx, req); err != nil {
		t.Fatalf("second update: %v", err)
	}

	got, _ := s.Get(ctx, req.ID)
	if len(got.Log) != 2 {
		t.Fatalf("expected 2 log entries, got %d: %+v", len(got.Log), got.Log)
	}
	if got.Log[1].Actor != "approver#200" || got.Log[1].Reason != "no capacity" {
		t.Fatalf("unexpected appended entry: %+v", got.Log[1])
	}
}

func TestUpdateMissingRequest(t *testing.T) {
	s := openTestStore(t)
	req := sampleRequest(100)
	req.ID = 404
	if err := s.Update(context.Background(), req); !errors.Is(err, booking.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	req := sampleRequest(100)
	if err := s.Create(ctx, req); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.Delete(ctx, req.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(ctx, req.ID); !errors.Is(err, booking.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.Delete(ctx, req.ID); !errors.Is(err, booking.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on double delete, got %v", err)
	}
}

func TestListByStatusAndRequester(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		req := sampleRequest(100)
		if err := s.Create(ctx, req); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	other := sampleRequest(101)
	other.Status = booking.StatusApproved
	if err := s.Create(ctx, other); err != nil {
		t.Fatalf("create: %v", err)
	}

	fresh, err := s.ListByStatus(ctx, booking.StatusNew, 0)
	if err != nil {
		t.Fatalf("list by status: %v", err)
	}
	if len(fresh) != 3 {
		t.Fatalf("expected 3 new requests, got %d", len(fresh))
	}
	if fresh[0].ID < fresh[1].ID {
		t.Fatal("expected newest first")
	}

	mine, err := s.ListByRequester(ctx, 100, 2)
	if err != nil {
		t.Fatalf("list by requester: %v", err)
	}
	if len(mine) != 2 {
		t.Fatalf("expected the limit to apply, got %d", len(mine))
	}
	for _, r := range mine {
		if r.RequesterID != 100 {
			t.Fatalf("foreign request in result: %+v", r)
		}
	}
}

func TestBookedSlots(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	day := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)

	// Live request on the day: counts its planned slot.
	live := sampleRequest(100)
	if err := s.Create(ctx, live); err != nil {
		t.Fatalf("create: %v", err)
	}

	// Approved with a renegotiated slot: counts confirmed, not planned.
	moved := sampleRequest(101)
	moved.Status = booking.StatusApproved
	moved.Confirmed = booking.Slot{Date: day, Hour: 14, Minute: 0}
	moved.Planned = booking.Slot{Date: day.AddDate(0, 0, 1), Hour: 9, Minute: 0}
	if err := s.Create(ctx, moved); err != nil {
		t.Fatalf("create: %v", err)
	}

	// Terminal requests never occupy slots.
	dead := sampleRequest(102)
	dead.Status = booking.StatusWithdrawn
	if err := s.Create(ctx, dead); err != nil {
		t.Fatalf("create: %v", err)
	}

	slots, err := s.BookedSlots(ctx, day)
	if err != nil {
		t.Fatalf("booked slots: %v", err)
	}
	if len(slots) != 2 {
		t.Fatalf("expected 2 occupied slots, got %d: %v", len(slots), slots)
	}
	seen := map[string]bool{}
	for _, slot := range slots {
		seen[slot.String()] = true
	}
	if !seen[live.Planned.String()] {
		t.Fatalf("missing planned slot of the live request: %v", slots)
	}
	if !seen[moved.Confirmed.String()] {
		t.Fatalf("missing confirmed slot of the approved request: %v", slots)
	}
}

func TestMarkReminded(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	req := sampleRequest(100)
	if err := s.Create(ctx, req); err != nil {
		t.Fatalf("create: %v", err)
	}
	at := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	if err := s.MarkReminded(ctx, req.ID, at); err != nil {
		t.Fatalf("mark reminded: %v", err)
	}
	got, _ := s.Get(ctx, req.ID)
	if !got.RemindedAt.Equal(at) {
		t.Fatalf("expected reminded_at %s, got %s", at, got.RemindedAt)
	}
}

func TestApproverRoster(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.PutApprover(ctx, booking.Approver{ID: 200, Name: "Olena"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.PutApprover(ctx, booking.Approver{ID: 201, Name: "Ihor", Privileged: true}); err != nil {
		t.Fatalf("put: %v", err)
	}
	// Upsert keeps a single row per id.
	if err := s.PutApprover(ctx, booking.Approver{ID: 200, Name: "Olena K.", Privileged: true}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	all, err := s.Approvers(ctx)
	if err != nil {
		t.Fatalf("approvers: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 approvers, got %d", len(all))
	}
	if all[0].Name != "Olena K." || !all[0].Privileged {
		t.Fatalf("upsert did not apply: %+v", all[0])
	}

	a, err := s.IsApprover(ctx, 201)
	if err != nil {
		t.Fatalf("is approver: %v", err)
	}
	if a == nil || !a.Privileged {
		t.Fatalf("expected privileged approver 201, got %+v", a)
	}

	if a, err = s.IsApprover(ctx, 999); err != nil || a != nil {
		t.Fatalf("expected nil for an unknown id, got %+v err=%v", a, err)
	}

	if err := s.RemoveApprover(ctx, 200); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if all, _ = s.Approvers(ctx); len(all) != 1 {
		t.Fatalf("expected 1 approver after removal, got %d", len(all))
	}
}

func TestAllLoadsLogs(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	req := sampleRequest(100)
	if err := s.Create(ctx, req); err != nil {
		t.Fatalf("create: %v", err)
	}
	req2 := sampleRequest(101)
	if err := s.Create(ctx, req2); err != nil {
		t.Fatalf("create: %v", err)
	}

	all, err := s.All(ctx)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(all))
	}
	if all[0].ID > all[1].ID {
		t.Fatal("expected oldest first")
	}
	for _, r := range all {
		if len(r.Log) == 0 {
			t.Fatalf("expected logs loaded for request %d", r.ID)
		}
	}
}
