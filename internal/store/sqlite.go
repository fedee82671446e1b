package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure Go driver, no CGO

	"github.com/dclink/dockslot/internal/booking"
)

// Store persists booking requests, their negotiation logs and the
// approver roster in a single SQLite database.
type Store struct {
	db  *sql.DB
	loc *time.Location
}

// Open opens (or creates) the database at path and runs migrations.
// WAL mode and busy_timeout avoid "database locked" errors when the
// bot and the sweeper write concurrently. loc is the timezone slot
// dates are materialized in; nil means time.Local.
func Open(path string, loc *time.Location) (*Store, error) {
	if loc == nil {
		loc = time.Local
	}
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_synchronous=NORMAL", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{db: db, loc: loc}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS requests (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		requester_id INTEGER NOT NULL,
		approver_id INTEGER NOT NULL DEFAULT 0,
		supplier TEXT NOT NULL,
		phone TEXT NOT NULL,
		cargo_volume TEXT NOT NULL DEFAULT '',
		cargo_description TEXT NOT NULL DEFAULT '',
		loading_type TEXT NOT NULL,
		planned_date TEXT NOT NULL DEFAULT '',
		planned_hour INTEGER NOT NULL DEFAULT 0,
		planned_minute INTEGER NOT NULL DEFAULT 0,
		pending_date TEXT NOT NULL DEFAULT '',
		pending_hour INTEGER NOT NULL DEFAULT 0,
		pending_minute INTEGER NOT NULL DEFAULT 0,
		confirmed_date TEXT NOT NULL DEFAULT '',
		confirmed_hour INTEGER NOT NULL DEFAULT 0,
		confirmed_minute INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL CHECK(status IN (
			'new', 'approved', 'rejected', 'withdrawn',
			'pending_requester_confirm', 'pending_approver_decision', 'pending_requester_final')),
		ledger_ref TEXT NOT NULL DEFAULT '',
		reminded_at TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		completed_at TEXT NOT NULL DEFAULT '',
		version INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS request_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		request_id INTEGER NOT NULL,
		actor TEXT NOT NULL,
		reason TEXT NOT NULL,
		at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS approvers (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		privileged INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_requests_status ON requests(status);
	CREATE INDEX IF NOT EXISTS idx_requests_requester ON requests(requester_id);
	CREATE INDEX IF NOT EXISTS idx_requests_planned_date ON requests(planned_date);
	CREATE INDEX IF NOT EXISTS idx_request_log_request ON request_log(request_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

const requestColumns = `id, requester_id, approver_id, supplier, phone, cargo_volume, cargo_description,
	loading_type, planned_date, planned_hour, planned_minute,
	pending_date, pending_hour, pending_minute,
	confirmed_date, confirmed_hour, confirmed_minute,
	status, ledger_ref, reminded_at, created_at, updated_at, completed_at, version`

// Create inserts a new request together with its initial log entries
// and fills in the assigned id.
func (s *Store) Create(ctx context.Context, req *booking.Request) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
	INSERT INTO requests (requester_id, approver_id, supplier, phone, cargo_volume, cargo_description,
		loading_type, planned_date, planned_hour, planned_minute,
		pending_date, pending_hour, pending_minute,
		confirmed_date, confirmed_hour, confirmed_minute,
		status, ledger_ref, reminded_at, created_at, updated_at, completed_at, version)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		req.RequesterID, req.ApproverID, req.Supplier, req.Phone, req.CargoVolume, req.CargoDescription,
		string(req.Loading), encodeDate(req.Planned), req.Planned.Hour, req.Planned.Minute,
		encodeDate(req.Pending), req.Pending.Hour, req.Pending.Minute,
		encodeDate(req.Confirmed), req.Confirmed.Hour, req.Confirmed.Minute,
		string(req.Status), req.LedgerRef, encodeTime(req.RemindedAt),
		encodeTime(req.CreatedAt), encodeTime(req.UpdatedAt), encodeTime(req.CompletedAt), req.Version)
	if err != nil {
		return fmt.Errorf("insert request: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	req.ID = id

	for _, entry := range req.Log {
		if err := insertLog(ctx, tx, id, entry); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Get loads a request and its full negotiation log.
func (s *Store) Get(ctx context.Context, id int64) (*booking.Request, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM requests WHERE id = ?`, id)
	req, err := s.scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("request %d: %w", id, booking.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if req.Log, err = s.loadLog(ctx, id); err != nil {
		return nil, err
	}
	return req, nil
}

// Update writes a request back under optimistic locking. The row must
// still carry the version the caller read; otherwise the write is
// refused with ErrVersionConflict. New log entries are appended in the
// same transaction. On success req.Version is bumped to match the row.
func (s *Store) Update(ctx context.Context, req *booking.Request) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
	UPDATE requests SET
		requester_id = ?, approver_id = ?, supplier = ?, phone = ?, cargo_volume = ?, cargo_description = ?,
		loading_type = ?, planned_date = ?, planned_hour = ?, planned_minute = ?,
		pending_date = ?, pending_hour = ?, pending_minute = ?,
		confirmed_date = ?, confirmed_hour = ?, confirmed_minute = ?,
		status = ?, ledger_ref = ?, reminded_at = ?, updated_at = ?, completed_at = ?,
		version = version + 1
	WHERE id = ? AND version = ?`,
		req.RequesterID, req.ApproverID, req.Supplier, req.Phone, req.CargoVolume, req.CargoDescription,
		string(req.Loading), encodeDate(req.Planned), req.Planned.Hour, req.Planned.Minute,
		encodeDate(req.Pending), req.Pending.Hour, req.Pending.Minute,
		encodeDate(req.Confirmed), req.Confirmed.Hour, req.Confirmed.Minute,
		string(req.Status), req.LedgerRef, encodeTime(req.RemindedAt),
		encodeTime(req.UpdatedAt), encodeTime(req.CompletedAt),
		req.ID, req.Version)
	if err != nil {
		return fmt.Errorf("update request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM requests WHERE id = ?`, req.ID).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return fmt.Errorf("request %d: %w", req.ID, booking.ErrNotFound)
		}
		return fmt.Errorf("request %d: %w", req.ID, booking.ErrVersionConflict)
	}

	var have int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM request_log WHERE request_id = ?`, req.ID).Scan(&have); err != nil {
		return err
	}
	if have < len(req.Log) {
		for _, entry := range req.Log[have:] {
			if err := insertLog(ctx, tx, req.ID, entry); err != nil {
				return err
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	req.Version++
	return nil
}

// Delete hard-removes a request and its log.
func (s *Store) Delete(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM requests WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("request %d: %w", id, booking.ErrNotFound)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM request_log WHERE request_id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// ListByStatus returns requests in a status, newest first. limit <= 0
// means no limit. Logs are not loaded.
func (s *Store) ListByStatus(ctx context.Context, status booking.Status, limit int) ([]*booking.Request, error) {
	return s.list(ctx, `SELECT `+requestColumns+` FROM requests WHERE status = ? ORDER BY id DESC`, limit, string(status))
}

// ListByRequester returns one requester's requests, newest first.
func (s *Store) ListByRequester(ctx context.Context, requesterID int64, limit int) ([]*booking.Request, error) {
	return s.list(ctx, `SELECT `+requestColumns+` FROM requests WHERE requester_id = ? ORDER BY id DESC`, limit, requesterID)
}

// All returns every request, oldest first, with logs loaded. Used by
// the spreadsheet export.
func (s *Store) All(ctx context.Context) ([]*booking.Request, error) {
	reqs, err := s.list(ctx, `SELECT `+requestColumns+` FROM requests ORDER BY id`, 0)
	if err != nil {
		return nil, err
	}
	for _, req := range reqs {
		if req.Log, err = s.loadLog(ctx, req.ID); err != nil {
			return nil, err
		}
	}
	return reqs, nil
}

// BookedSlots returns the effective slot of every live request on a
// given day. Approved requests count their confirmed slot, requests
// still in flight their planned one.
func (s *Store) BookedSlots(ctx context.Context, date time.Time) ([]booking.Slot, error) {
	day := encodeDate(booking.Slot{Date: date, Hour: 0, Minute: 0})
	rows, err := s.db.QueryContext(ctx, `
	SELECT planned_date, planned_hour, planned_minute,
		confirmed_date, confirmed_hour, confirmed_minute, status
	FROM requests
	WHERE status NOT IN ('rejected', 'withdrawn')
		AND (planned_date = ? OR confirmed_date = ?)`, day, day)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var slots []booking.Slot
	for rows.Next() {
		var pd, cd, status string
		var ph, pm, ch, cm int
		if err := rows.Scan(&pd, &ph, &pm, &cd, &ch, &cm, &status); err != nil {
			return nil, err
		}
		src, h, m := pd, ph, pm
		if booking.Status(status) == booking.StatusApproved {
			src, h, m = cd, ch, cm
		}
		if src != day {
			continue
		}
		slot, err := s.decodeSlot(src, h, m)
		if err != nil {
			return nil, err
		}
		slots = append(slots, slot)
	}
	return slots, rows.Err()
}

// MarkReminded records that the upcoming-visit reminder went out.
func (s *Store) MarkReminded(ctx context.Context, id int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE requests SET reminded_at = ? WHERE id = ?`, encodeTime(at), id)
	return err
}

// Approvers returns the full approver roster.
func (s *Store) Approvers(ctx context.Context) ([]booking.Approver, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, privileged FROM approvers ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []booking.Approver
	for rows.Next() {
		var a booking.Approver
		var priv int
		if err := rows.Scan(&a.ID, &a.Name, &priv); err != nil {
			return nil, err
		}
		a.Privileged = priv != 0
		out = append(out, a)
	}
	return out, rows.Err()
}

// PutApprover inserts or updates a roster entry.
func (s *Store) PutApprover(ctx context.Context, a booking.Approver) error {
	priv := 0
	if a.Privileged {
		priv = 1
	}
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO approvers (id, name, privileged) VALUES (?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET name = excluded.name, privileged = excluded.privileged`,
		a.ID, a.Name, priv)
	return err
}

// RemoveApprover drops a roster entry. Removing an unknown id is not
// an error.
func (s *Store) RemoveApprover(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM approvers WHERE id = ?`, id)
	return err
}

// IsApprover looks up a roster entry. A nil result means the user is
// not on the roster.
func (s *Store) IsApprover(ctx context.Context, id int64) (*booking.Approver, error) {
	var a booking.Approver
	var priv int
	err := s.db.QueryRowContext(ctx, `SELECT id, name, privileged FROM approvers WHERE id = ?`, id).
		Scan(&a.ID, &a.Name, &priv)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	a.Privileged = priv != 0
	return &a, nil
}

func (s *Store) list(ctx context.Context, query string, limit int, args ...any) ([]*booking.Request, error) {
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*booking.Request
	for rows.Next() {
		req, err := s.scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

func (s *Store) loadLog(ctx context.Context, requestID int64) ([]booking.LogEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT actor, reason, at FROM request_log WHERE request_id = ? ORDER BY id`, requestID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var log []booking.LogEntry
	for rows.Next() {
		var entry booking.LogEntry
		var at string
		if err := rows.Scan(&entry.Actor, &entry.Reason, &at); err != nil {
			return nil, err
		}
		if entry.At, err = decodeTime(at); err != nil {
			return nil, err
		}
		log = append(log, entry)
	}
	return log, rows.Err()
}

func insertLog(ctx context.Context, tx *sql.Tx, requestID int64, entry booking.LogEntry) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO request_log (request_id, actor, reason, at) VALUES (?, ?, ?, ?)`,
		requestID, entry.Actor, entry.Reason, encodeTime(entry.At))
	if err != nil {
		return fmt.Errorf("insert log entry: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanRequest(row rowScanner) (*booking.Request, error) {
	var req booking.Request
	var loading, status string
	var pd, nd, cd string
	var ph, pm, nh, nm, ch, cm int
	var remindedAt, createdAt, updatedAt, completedAt string

	err := row.Scan(&req.ID, &req.RequesterID, &req.ApproverID, &req.Supplier, &req.Phone,
		&req.CargoVolume, &req.CargoDescription, &loading,
		&pd, &ph, &pm, &nd, &nh, &nm, &cd, &ch, &cm,
		&status, &req.LedgerRef, &remindedAt, &createdAt, &updatedAt, &completedAt, &req.Version)
	if err != nil {
		return nil, err
	}

	req.Loading = booking.LoadingType(loading)
	req.Status = booking.Status(status)
	if req.Planned, err = s.decodeSlot(pd, ph, pm); err != nil {
		return nil, err
	}
	if req.Pending, err = s.decodeSlot(nd, nh, nm); err != nil {
		return nil, err
	}
	if req.Confirmed, err = s.decodeSlot(cd, ch, cm); err != nil {
		return nil, err
	}
	if req.RemindedAt, err = decodeTime(remindedAt); err != nil {
		return nil, err
	}
	if req.CreatedAt, err = decodeTime(createdAt); err != nil {
		return nil, err
	}
	if req.UpdatedAt, err = decodeTime(updatedAt); err != nil {
		return nil, err
	}
	if req.CompletedAt, err = decodeTime(completedAt); err != nil {
		return nil, err
	}
	return &req, nil
}

const dateLayout = "2006-01-02"

func encodeDate(slot booking.Slot) string {
	if slot.Date.IsZero() {
		return ""
	}
	return slot.Date.Format(dateLayout)
}

func (s *Store) decodeSlot(date string, hour, minute int) (booking.Slot, error) {
	if date == "" {
		return booking.Slot{}, nil
	}
	d, err := time.ParseInLocation(dateLayout, date, s.loc)
	if err != nil {
		return booking.Slot{}, fmt.Errorf("parse slot date %q: %w", date, err)
	}
	return booking.Slot{Date: d, Hour: hour, Minute: minute}, nil
}

func encodeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func decodeTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}
