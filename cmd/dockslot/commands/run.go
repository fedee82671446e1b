package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dclink/dockslot/internal/booking"
	"github.com/dclink/dockslot/internal/bus"
	"github.com/dclink/dockslot/internal/channel"
	"github.com/dclink/dockslot/internal/channel/telegram"
	"github.com/dclink/dockslot/internal/config"
	"github.com/dclink/dockslot/internal/intake"
	"github.com/dclink/dockslot/internal/ledger"
	"github.com/dclink/dockslot/internal/metrics"
	"github.com/dclink/dockslot/internal/notify"
	"github.com/dclink/dockslot/internal/session"
	"github.com/dclink/dockslot/internal/store"
	"github.com/dclink/dockslot/internal/sweeper"
)

func NewRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the dockslot bot",
		RunE:  runServer,
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Channels.Telegram.Enabled && strings.TrimSpace(cfg.Channels.Telegram.Token) == "" {
		return fmt.Errorf("telegram channel enabled but no token configured in %s", config.ConfigPath())
	}

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	db, err := store.Open(cfg.DatabasePath(), loc)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	// The superadmin is always on the roster so approver broadcasts
	// reach them even on a fresh database.
	if cfg.Booking.SuperadminID != 0 {
		if err := db.PutApprover(ctx, booking.Approver{
			ID:         cfg.Booking.SuperadminID,
			Name:       "superadmin",
			Privileged: true,
		}); err != nil {
			return fmt.Errorf("seed superadmin: %w", err)
		}
	}

	var mirror booking.Ledger = ledger.Nop{}
	if cfg.Ledger.Enabled {
		mirror = ledger.NewWorkbook(cfg.Ledger.Path)
	}

	engine := booking.NewEngine(db, mirror, booking.Config{
		LeadTime:           cfg.LeadTime(),
		RecencyWindow:      cfg.Booking.RecencyWindow,
		BlockDoubleBooking: cfg.Booking.BlockDoubleBooking,
	})

	msgBus := bus.NewMessageBus(100)
	defer msgBus.Close()

	runtimeMetric := metrics.NewRuntimeMetrics(cfg.DataDir())
	dispatcher := notify.NewDispatcher(msgBus, db, "telegram")
	sessions := session.NewManager(cfg.DataDir(), cfg.FormTTL())

	loop := intake.NewLoop(msgBus, engine, db, db, dispatcher, sessions, intake.Config{
		SuperadminID:  cfg.Booking.SuperadminID,
		LeadTime:      cfg.LeadTime(),
		Location:      loc,
		RecencyWindow: cfg.Booking.RecencyWindow,
	})
	loop.SetRuntimeMetrics(runtimeMetric)

	errCh := make(chan error, 2)
	go func() {
		if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("intake loop failed: %w", err)
		}
	}()

	sweepSvc := sweeper.NewService(engine, db, dispatcher, sweeper.Config{
		Schedule:     cfg.Sweeper.Schedule,
		Grace:        cfg.Grace(),
		ReminderLead: cfg.ReminderLead(),
	})
	if cfg.Sweeper.Enabled {
		if err := sweepSvc.Start(); err != nil {
			return fmt.Errorf("start sweeper: %w", err)
		}
	}

	chanMgr := channel.NewManager(msgBus)
	chanMgr.SetRuntimeMetrics(runtimeMetric)

	if cfg.Channels.Telegram.Enabled {
		chanMgr.Register(telegram.New(&cfg.Channels.Telegram, msgBus))
	}

	chanMgr.StartAll(ctx)
	go chanMgr.RouteOutbound(ctx)

	fmt.Println("Dockslot bot running. Press Ctrl+C to stop.")

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		slog.Error("server component failed", "error", runErr)
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	slog.Info("shutting down")
	if cfg.Sweeper.Enabled {
		sweepSvc.Stop()
	}
	chanMgr.StopAll(shutdownCtx)

	return runErr
}
