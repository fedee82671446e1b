package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dclink/dockslot/internal/config"
	"github.com/spf13/cobra"
)

func NewInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize dockslot configuration",
		RunE:  runInit,
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath := config.ConfigPath()

	if _, err := os.Stat(configPath); err == nil {
		fmt.Printf("Config already exists: %s\n", configPath)
		return nil
	}

	cfg := config.DefaultConfig()

	dirs := []string{
		config.ConfigDir(),
		cfg.DataDir(),
		filepath.Join(cfg.DataDir(), "sessions"),
		filepath.Join(cfg.DataDir(), "state"),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Printf("Dockslot initialized!\n")
	fmt.Printf("Config: %s\n", configPath)
	fmt.Printf("Data:   %s\n", cfg.DataDir())
	fmt.Printf("\nNext steps:\n")
	fmt.Printf("1. Edit %s: set channels.telegram.token and booking.superadmin_id\n", configPath)
	fmt.Printf("2. Run 'dockslot run' to start the bot\n")

	return nil
}
