package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/switchboardhq/switchboard/internal/db"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
	}

	cmd.AddCommand(newDBInitCmd())
	cmd.AddCommand(newDBResetCmd())
	return cmd
}

func newDBInitCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the Switchboard database",
		Long:  "Connects to the configured database and migrates all tables.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBInit(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "switchboard.yaml", "path to Switchboard config file")
	return cmd
}

func runDBInit(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Connected to %s database for account %q\n", cfg.Database.Driver, cfg.AccountID)

	if err := db.Migrate(gormDB); err != nil {
		return err
	}
	fmt.Fprintf(out, "Migrated %d tables\n", len(db.AllModels()))

	fmt.Fprintln(out, "\nSwitchboard database initialized successfully.")
	return nil
}

func newDBResetCmd() *cobra.Command {
	var (
		configPath string
		yes        bool
	)

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Drop and re-create all Switchboard tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBReset(cmd, configPath, yes)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "switchboard.yaml", "path to Switchboard config file")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation prompt")
	return cmd
}

func runDBReset(cmd *cobra.Command, configPath string, skipConfirm bool) error {
	out := cmd.OutOrStdout()

	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	if !skipConfirm && !confirmReset(cmd, cfg.Database.Database, cfg.Database.Path) {
		fmt.Fprintln(out, "Aborted.")
		return nil
	}

	if err := db.Reset(gormDB); err != nil {
		return err
	}
	fmt.Fprintf(out, "Dropped and re-created %d tables\n", len(db.AllModels()))

	fmt.Fprintln(out, "\nSwitchboard database reset successfully.")
	return nil
}

func confirmReset(cmd *cobra.Command, dbName, path string) bool {
	out := cmd.OutOrStdout()
	in := cmd.InOrStdin()

	target := dbName
	if target == "" {
		target = path
	}
	fmt.Fprintf(out, "WARNING: This will permanently delete all data in %q.\n", target)
	fmt.Fprintln(out, "This action cannot be undone.")
	fmt.Fprintln(out)
	fmt.Fprint(out, "Type \"yes\" to confirm: ")

	scanner := bufio.NewScanner(in)
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text()) == "yes"
	}
	return false
}
