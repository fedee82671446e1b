package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dclink/dockslot/internal/booking"
	"github.com/dclink/dockslot/internal/config"
	"github.com/dclink/dockslot/internal/metrics"
	"github.com/dclink/dockslot/internal/store"
)

func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show dockslot configuration status",
		RunE:  runStatus,
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	fmt.Println("=== Dockslot Status ===")
	fmt.Println()

	fmt.Printf("Config: %s\n", config.ConfigPath())
	if _, err := os.Stat(config.ConfigPath()); err == nil {
		fmt.Println("  Status: OK")
	} else {
		fmt.Println("  Status: Not found (run 'dockslot init')")
	}

	fmt.Printf("\nData: %s\n", cfg.DataDir())
	fmt.Printf("  Timezone: %s\n", cfg.Booking.Timezone)
	fmt.Printf("  Lead time: %s\n", cfg.LeadTime())

	fmt.Println("\nTelegram:")
	if !cfg.Channels.Telegram.Enabled {
		fmt.Println("  disabled")
	} else if strings.TrimSpace(cfg.Channels.Telegram.Token) == "" {
		fmt.Println("  enabled (no token configured)")
	} else {
		fmt.Println("  enabled (ready)")
	}
	if cfg.Booking.SuperadminID != 0 {
		fmt.Printf("  Superadmin: %d\n", cfg.Booking.SuperadminID)
	} else {
		fmt.Println("  Superadmin: not set")
	}

	fmt.Println("\nSweeper:")
	if cfg.Sweeper.Enabled {
		fmt.Printf("  enabled (schedule=%q, grace=%s, reminder_lead=%s)\n", cfg.Sweeper.Schedule, cfg.Grace(), cfg.ReminderLead())
	} else {
		fmt.Println("  disabled")
	}

	fmt.Println("\nLedger:")
	if cfg.Ledger.Enabled {
		fmt.Printf("  enabled (%s)\n", cfg.Ledger.Path)
	} else {
		fmt.Println("  disabled")
	}

	if _, err := os.Stat(cfg.DatabasePath()); err == nil {
		printDatabaseStatus(cfg)
	} else {
		fmt.Println("\nDatabase: not created yet")
	}

	if snapshot, err := metrics.ReadRuntimeSnapshot(cfg.DataDir()); err == nil && snapshot.HasData() {
		fmt.Println("\nRuntime metrics:")
		fmt.Printf("  Commands: %d total, %d errors, %d conflicts\n",
			snapshot.Command.Total, snapshot.Command.Errors, snapshot.Command.Conflicts)
		fmt.Printf("  Channel sends: %d total, %d failed\n",
			snapshot.Channel.SendAttempts, snapshot.Channel.SendFailures)
	}

	return nil
}

func printDatabaseStatus(cfg *config.Config) {
	loc, err := cfg.Location()
	if err != nil {
		return
	}
	db, err := store.Open(cfg.DatabasePath(), loc)
	if err != nil {
		fmt.Printf("\nDatabase: unavailable (%v)\n", err)
		return
	}
	defer db.Close()
	ctx := context.Background()

	fmt.Printf("\nDatabase: %s\n", cfg.DatabasePath())

	statuses := []booking.Status{
		booking.StatusNew,
		booking.StatusApproved,
		booking.StatusPendingRequesterConfirm,
		booking.StatusPendingApproverDecision,
		booking.StatusPendingRequesterFinal,
	}
	for _, status := range statuses {
		reqs, err := db.ListByStatus(ctx, status, 0)
		if err != nil {
			continue
		}
		if len(reqs) > 0 {
			fmt.Printf("  %s: %d\n", status, len(reqs))
		}
	}

	approvers, err := db.Approvers(ctx)
	if err == nil {
		fmt.Printf("  Approvers: %d\n", len(approvers))
	}
}
