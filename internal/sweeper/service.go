package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/adhocore/gronx"

	"github.com/dclink/dockslot/internal/booking"
)

// Engine executes lifecycle commands on behalf of the sweeper.
type Engine interface {
	Execute(ctx context.Context, actor booking.Actor, cmd booking.Command) (*booking.Request, []booking.Intent, error)
}

// Store is the read side the sweeper scans for due requests.
type Store interface {
	ListByStatus(ctx context.Context, status booking.Status, limit int) ([]*booking.Request, error)
	MarkReminded(ctx context.Context, id int64, at time.Time) error
}

// Notifier delivers the intents produced by sweeps.
type Notifier interface {
	Dispatch(ctx context.Context, req *booking.Request, intents []booking.Intent)
}

// Config tunes the sweeper.
type Config struct {
	// Schedule is a cron expression for sweep runs.
	Schedule string
	// Grace is how long after the confirmed slot an approved request
	// may sit before it is auto-completed.
	Grace time.Duration
	// ReminderLead is how far before the confirmed slot the upcoming
	// visit reminder goes out. Zero disables reminders.
	ReminderLead time.Duration
}

const (
	DefaultSchedule = "*/5 * * * *"
	DefaultGrace    = 20 * time.Hour
)

// Service closes out overdue approved requests and sends visit
// reminders on a cron schedule.
type Service struct {
	engine   Engine
	store    Store
	notifier Notifier
	cfg      Config

	mu       sync.Mutex
	nextRun  time.Time
	stopChan chan struct{}
	stopped  chan struct{}
	running  bool

	now func() time.Time
}

// NewService creates a sweeper. notifier may be nil.
func NewService(engine Engine, store Store, notifier Notifier, cfg Config) *Service {
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultSchedule
	}
	if cfg.Grace <= 0 {
		cfg.Grace = DefaultGrace
	}
	return &Service{
		engine:   engine,
		store:    store,
		notifier: notifier,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Start validates the schedule and begins the polling loop.
func (s *Service) Start() error {
	if !gronx.New().IsValid(s.cfg.Schedule) {
		return fmt.Errorf("sweeper: invalid schedule %q", s.cfg.Schedule)
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	next, err := gronx.NextTickAfter(s.cfg.Schedule, s.now(), false)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("sweeper: compute first run: %w", err)
	}
	s.nextRun = next
	s.stopChan = make(chan struct{})
	s.stopped = make(chan struct{})
	s.running = true
	s.mu.Unlock()

	go s.loop()

	slog.Info("sweeper started", "schedule", s.cfg.Schedule, "grace", s.cfg.Grace)
	return nil
}

// Stop gracefully shuts down the polling loop.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopChan)
	s.mu.Unlock()

	<-s.stopped
	slog.Info("sweeper stopped")
}

func (s *Service) loop() {
	defer close(s.stopped)

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

func (s *Service) tick() {
	now := s.now()

	s.mu.Lock()
	due := !s.nextRun.IsZero() && !now.Before(s.nextRun)
	if due {
		next, err := gronx.NextTickAfter(s.cfg.Schedule, now, false)
		if err != nil {
			slog.Warn("sweeper: compute next run failed", "error", err)
			s.nextRun = now.Add(time.Minute)
		} else {
			s.nextRun = next
		}
	}
	s.mu.Unlock()

	if !due {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	completed, reminded, err := s.RunOnce(ctx)
	if err != nil {
		slog.Error("sweep failed", "error", err)
		return
	}
	if completed > 0 || reminded > 0 {
		slog.Info("sweep done", "completed", completed, "reminded", reminded)
	}
}

// RunOnce scans approved requests once. A failure on one request never
// blocks the rest of the batch.
func (s *Service) RunOnce(ctx context.Context) (completed, reminded int, err error) {
	reqs, err := s.store.ListByStatus(ctx, booking.StatusApproved, 0)
	if err != nil {
		return 0, 0, fmt.Errorf("list approved requests: %w", err)
	}

	now := s.now()
	for _, req := range reqs {
		if req.Completed() {
			continue
		}
		if now.After(s.graceDeadline(req)) {
			if s.complete(ctx, req) {
				completed++
			}
			continue
		}
		if s.remind(ctx, req, now) {
			reminded++
		}
	}
	return completed, reminded, nil
}

// graceDeadline is when an approved request counts as silently done:
// the confirmed slot plus the grace period, or the last update plus
// the grace period when no slot was ever confirmed.
func (s *Service) graceDeadline(req *booking.Request) time.Time {
	if !req.Confirmed.IsZero() {
		return req.Confirmed.Instant().Add(s.cfg.Grace)
	}
	return req.UpdatedAt.Add(s.cfg.Grace)
}

func (s *Service) complete(ctx context.Context, req *booking.Request) bool {
	actor := booking.Actor{Role: booking.RoleSweeper}
	updated, intents, err := s.engine.Execute(ctx, actor, booking.AutoComplete{RequestID: req.ID})
	if err != nil {
		slog.Error("auto-complete failed", "booking_id", req.ID, "error", err)
		return false
	}
	if s.notifier != nil {
		s.notifier.Dispatch(ctx, updated, intents)
	}
	slog.Info("request auto-completed", "booking_id", req.ID, "slot", updated.Confirmed.String())
	return true
}

func (s *Service) remind(ctx context.Context, req *booking.Request, now time.Time) bool {
	if s.cfg.ReminderLead <= 0 || !req.RemindedAt.IsZero() || req.Confirmed.IsZero() {
		return false
	}
	start := req.Confirmed.Instant()
	if now.After(start) || start.Sub(now) > s.cfg.ReminderLead {
		return false
	}

	if err := s.store.MarkReminded(ctx, req.ID, now); err != nil {
		slog.Error("mark reminded failed", "booking_id", req.ID, "error", err)
		return false
	}
	if s.notifier != nil {
		intent := booking.Intent{
			Audience:  booking.AudienceRequester,
			Recipient: req.RequesterID,
			RequestID: req.ID,
			Kind:      booking.KindReminder,
		}
		s.notifier.Dispatch(ctx, req, []booking.Intent{intent})
	}
	return true
}
