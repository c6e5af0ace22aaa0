package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/switchboardhq/switchboard/internal/config"
	"github.com/switchboardhq/switchboard/internal/db"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sb",
		Short: "Switchboard — notification delivery for AI agents",
		Long:  "Switchboard drains pending notifications to AI agents through an OpenClaw-compatible gateway, one session at a time.",
	}

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newDBCmd())
	cmd.AddCommand(newDeliverCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newDashboardCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "sb %s (commit: %s, built: %s)\n", Version, Commit, Date)
		},
	}
}

// connectFromConfig loads the config file and opens the database.
func connectFromConfig(configPath string) (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	gormDB, err := db.Connect(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	return cfg, gormDB, nil
}

func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(newRootCmd()))
}
