package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/switchboardhq/switchboard/internal/store"
)

func newStatusCmd() *cobra.Command {
	var (
		configPath string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show delivery queue status",
		Long:  "Displays the pending notification count, active agents, and recent delivery outcomes.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, configPath, limit)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "switchboard.yaml", "path to Switchboard config file")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of recent deliveries to show")
	return cmd
}

func runStatus(cmd *cobra.Command, configPath string, limit int) error {
	out := cmd.OutOrStdout()
	ctx := context.Background()

	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	st := store.New(gormDB)

	pending, err := st.PendingCount(ctx, cfg.AccountID)
	if err != nil {
		return err
	}
	agents, err := st.ActiveAgents(ctx, cfg.AccountID)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Account:        %s\n", cfg.AccountID)
	fmt.Fprintf(out, "Pending:        %d notification(s)\n", pending)
	fmt.Fprintf(out, "Active agents:  %d\n", len(agents))
	for _, a := range agents {
		fmt.Fprintf(out, "  %-24s %s\n", a.ID, a.Name)
	}

	recent, err := st.RecentDeliveries(ctx, limit)
	if err != nil {
		return err
	}
	if len(recent) == 0 {
		fmt.Fprintln(out, "\nNo deliveries recorded yet.")
		return nil
	}

	fmt.Fprintf(out, "\nRecent deliveries (newest first):\n")
	for _, d := range recent {
		line := fmt.Sprintf("  [%s] #%d %s %s",
			d.CreatedAt.Format("15:04:05"), d.NotificationID, d.Outcome, d.SessionKey)
		if d.Detail != "" {
			line += " (" + d.Detail + ")"
		}
		fmt.Fprintln(out, line)
	}
	return nil
}
