package ledger

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/dclink/dockslot/internal/booking"
)

func mirrorRequest(id int64, supplier string) *booking.Request {
	slot := booking.Slot{Date: time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), Hour: 10, Minute: 30}
	return &booking.Request{
		ID:          id,
		RequesterID: 100,
		Supplier:    supplier,
		Phone:       "+380501112233",
		Loading:     booking.LoadingPalletized,
		Planned:     slot,
		Confirmed:   slot,
		Status:      booking.StatusNew,
		UpdatedAt:   time.Date(2026, 3, 3, 8, 0, 0, 0, time.UTC),
	}
}

func readRows(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows("Заявки")
	if err != nil {
		t.Fatalf("get rows: %v", err)
	}
	return rows
}

func TestWorkbook_SyncCreatesAndUpserts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.xlsx")
	wb := NewWorkbook(path)
	ctx := context.Background()

	if err := wb.Sync(ctx, mirrorRequest(1, "ACME")); err != nil {
		t.Fatalf("first sync: %v", err)
	}
	if err := wb.Sync(ctx, mirrorRequest(2, "Beta Freight")); err != nil {
		t.Fatalf("second sync: %v", err)
	}

	rows := readRows(t, path)
	if len(rows) != 3 {
		t.Fatalf("expected header and 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "ID" {
		t.Fatalf("expected header row, got %v", rows[0])
	}

	// Re-syncing the same request must overwrite, not append.
	updated := mirrorRequest(1, "ACME Logistics LLC")
	updated.Status = booking.StatusApproved
	if err := wb.Sync(ctx, updated); err != nil {
		t.Fatalf("upsert sync: %v", err)
	}
	rows = readRows(t, path)
	if len(rows) != 3 {
		t.Fatalf("expected upsert to keep 2 rows, got %d", len(rows)-1)
	}
	if rows[1][1] != "ACME Logistics LLC" || rows[1][8] != "approved" {
		t.Fatalf("row not updated: %v", rows[1])
	}
}

func TestWorkbook_Remove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.xlsx")
	wb := NewWorkbook(path)
	ctx := context.Background()

	for id := int64(1); id <= 3; id++ {
		if err := wb.Sync(ctx, mirrorRequest(id, "Supplier "+strconv.FormatInt(id, 10))); err != nil {
			t.Fatalf("sync %d: %v", id, err)
		}
	}
	if err := wb.Remove(ctx, mirrorRequest(2, "")); err != nil {
		t.Fatalf("remove: %v", err)
	}

	rows := readRows(t, path)
	if len(rows) != 3 {
		t.Fatalf("expected header and 2 rows after removal, got %d", len(rows))
	}
	for _, row := range rows[1:] {
		if row[0] == "2" {
			t.Fatalf("row 2 still present: %v", rows)
		}
	}
}

func TestWorkbook_RemoveMissingFileIsNoop(t *testing.T) {
	wb := NewWorkbook(filepath.Join(t.TempDir(), "absent.xlsx"))
	if err := wb.Remove(context.Background(), mirrorRequest(1, "ACME")); err != nil {
		t.Fatalf("expected no error for a missing mirror, got %v", err)
	}
}

func TestExport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export", "requests.xlsx")
	reqs := []*booking.Request{mirrorRequest(1, "ACME"), mirrorRequest(2, "Beta Freight")}

	if err := Export(path, reqs); err != nil {
		t.Fatalf("export: %v", err)
	}
	rows := readRows(t, path)
	if len(rows) != 3 {
		t.Fatalf("expected header and 2 rows, got %d", len(rows))
	}
	if rows[2][1] != "Beta Freight" {
		t.Fatalf("unexpected row order: %v", rows)
	}
}

func TestNop(t *testing.T) {
	var n Nop
	if err := n.Sync(context.Background(), mirrorRequest(1, "ACME")); err != nil {
		t.Fatalf("nop sync: %v", err)
	}
	if err := n.Remove(context.Background(), mirrorRequest(1, "ACME")); err != nil {
		t.Fatalf("nop remove: %v", err)
	}
}
