package ledger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/xuri/excelize/v2"

	"github.com/dclink/dockslot/internal/booking"
)

const sheetName = "Заявки"

var headerRow = []any{
	"ID", "Постачальник", "Телефон", "Обсяг", "Вантаж",
	"Тип завантаження", "Дата", "Час", "Статус", "Завершено", "Оновлено",
}

// Workbook mirrors request state into an xlsx file the warehouse staff
// already work with. One row per request, keyed by id in column A.
// All calls are best-effort from the engine's point of view; a sync
// failure is logged upstream and never rolls back the store.
type Workbook struct {
	path string
	mu   sync.Mutex
}

// NewWorkbook creates a mirror at path. The file is created lazily on
// the first sync.
func NewWorkbook(path string) *Workbook {
	return &Workbook{path: path}
}

// Sync writes or overwrites the row for req.
func (w *Workbook) Sync(_ context.Context, req *booking.Request) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, created, err := w.open()
	if err != nil {
		return err
	}
	defer f.Close()

	row, err := findRow(f, req.ID)
	if err != nil {
		return err
	}
	if row == 0 {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			return fmt.Errorf("scan sheet: %w", err)
		}
		row = len(rows) + 1
	}

	cell, _ := excelize.CoordinatesToCellName(1, row)
	if err := f.SetSheetRow(sheetName, cell, rowValues(req)); err != nil {
		return fmt.Errorf("write row: %w", err)
	}
	return w.save(f, created)
}

// Remove deletes the row for req. A missing file or row is not an
// error; the mirror simply has nothing to forget.
func (w *Workbook) Remove(_ context.Context, req *booking.Request) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := os.Stat(w.path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	f, _, err := w.open()
	if err != nil {
		return err
	}
	defer f.Close()

	row, err := findRow(f, req.ID)
	if err != nil || row == 0 {
		return err
	}
	if err := f.RemoveRow(sheetName, row); err != nil {
		return fmt.Errorf("remove row: %w", err)
	}
	return w.save(f, false)
}

func (w *Workbook) open() (*excelize.File, bool, error) {
	f, err := excelize.OpenFile(w.path)
	if err == nil {
		return f, false, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, false, fmt.Errorf("open ledger workbook: %w", err)
	}

	f = excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, false, err
	}
	if err := f.SetSheetRow(sheetName, "A1", &headerRow); err != nil {
		return nil, false, err
	}
	return f, true, nil
}

func (w *Workbook) save(f *excelize.File, created bool) error {
	if created {
		if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
			return fmt.Errorf("create ledger dir: %w", err)
		}
		if err := f.SaveAs(w.path); err != nil {
			return fmt.Errorf("save ledger workbook: %w", err)
		}
		return nil
	}
	if err := f.Save(); err != nil {
		return fmt.Errorf("save ledger workbook: %w", err)
	}
	return nil
}

// Export rebuilds the whole ledger file from scratch and writes it to
// path. Used by the export command.
func Export(path string, reqs []*booking.Request) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}
	if err := f.SetSheetRow(sheetName, "A1", &headerRow); err != nil {
		return err
	}
	for i, req := range reqs {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheetName, cell, rowValues(req)); err != nil {
			return fmt.Errorf("write row for request %d: %w", req.ID, err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save export: %w", err)
	}
	return nil
}

func rowValues(req *booking.Request) *[]any {
	slot := req.Confirmed
	if slot.IsZero() {
		slot = req.Planned
	}
	date, clock := "", ""
	if !slot.IsZero() {
		date = slot.Date.Format("02.01.2006")
		clock = fmt.Sprintf("%02d:%02d", slot.Hour, slot.Minute)
	}
	completed := ""
	if req.Completed() {
		completed = req.CompletedAt.Format("02.01.2006 15:04")
	}
	return &[]any{
		req.ID, req.Supplier, req.Phone, req.CargoVolume, req.CargoDescription,
		string(req.Loading), date, clock, string(req.Status), completed,
		req.UpdatedAt.Format("02.01.2006 15:04"),
	}
}

func findRow(f *excelize.File, id int64) (int, error) {
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return 0, fmt.Errorf("scan sheet: %w", err)
	}
	want := strconv.FormatInt(id, 10)
	for i, row := range rows {
		if i == 0 || len(row) == 0 {
			continue
		}
		if row[0] == want {
			return i + 1, nil
		}
	}
	return 0, nil
}

// Nop is a ledger mirror that records nothing. Used when no ledger
// path is configured.
type Nop struct{}

func (Nop) Sync(context.Context, *booking.Request) error   { return nil }
func (Nop) Remove(context.Context, *booking.Request) error { return nil }
