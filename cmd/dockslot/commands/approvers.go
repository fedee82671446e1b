package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dclink/dockslot/internal/booking"
	"github.com/dclink/dockslot/internal/config"
	"github.com/dclink/dockslot/internal/store"
)

func NewApproversCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "approvers",
		Short: "Manage the approver roster",
	}

	var privileged bool
	addCmd := &cobra.Command{
		Use:   "add <telegram-id> [name]",
		Short: "Add an approver",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseApproverID(args[0])
			if err != nil {
				return err
			}
			name := ""
			if len(args) == 2 {
				name = args[1]
			}
			return withStore(func(ctx context.Context, db *store.Store) error {
				if err := db.PutApprover(ctx, booking.Approver{ID: id, Name: name, Privileged: privileged}); err != nil {
					return err
				}
				fmt.Printf("Approver %d added\n", id)
				return nil
			})
		},
	}
	addCmd.Flags().BoolVar(&privileged, "privileged", false, "Grant hard-delete and roster rights")

	removeCmd := &cobra.Command{
		Use:   "remove <telegram-id>",
		Short: "Remove an approver",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseApproverID(args[0])
			if err != nil {
				return err
			}
			return withStore(func(ctx context.Context, db *store.Store) error {
				if err := db.RemoveApprover(ctx, id); err != nil {
					return err
				}
				fmt.Printf("Approver %d removed\n", id)
				return nil
			})
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List approvers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, db *store.Store) error {
				approvers, err := db.Approvers(ctx)
				if err != nil {
					return err
				}
				if len(approvers) == 0 {
					fmt.Println("No approvers configured")
					return nil
				}
				for _, a := range approvers {
					line := strconv.FormatInt(a.ID, 10)
					if a.Name != "" {
						line += "  " + a.Name
					}
					if a.Privileged {
						line += "  (privileged)"
					}
					fmt.Println(line)
				}
				return nil
			})
		},
	}

	cmd.AddCommand(addCmd, removeCmd, listCmd)
	return cmd
}

func parseApproverID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("telegram id must be numeric, got %q", arg)
	}
	return id, nil
}

func withStore(fn func(ctx context.Context, db *store.Store) error) error {
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
	return fn(context.Background(), db)
}
