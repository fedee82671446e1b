package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dclink/dockslot/internal/config"
	"github.com/dclink/dockslot/internal/ledger"
	"github.com/dclink/dockslot/internal/store"
)

func NewExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [path]",
		Short: "Export all requests to an xlsx workbook",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runExport,
	}
}

func runExport(cmd *cobra.Command, args []string) error {
	path := "dockslot_export.xlsx"
	if len(args) == 1 {
		path = args[0]
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	db, err := store.Open(cfg.DatabasePath(), loc)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	reqs, err := db.All(context.Background())
	if err != nil {
		return fmt.Errorf("load requests: %w", err)
	}

	if err := ledger.Export(path, reqs); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	fmt.Printf("Exported %d requests to %s\n", len(reqs), path)
	return nil
}
