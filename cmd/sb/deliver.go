package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/switchboardhq/switchboard/internal/alert"
	"github.com/switchboardhq/switchboard/internal/alert/discord"
	"github.com/switchboardhq/switchboard/internal/alert/slack"
	"github.com/switchboardhq/switchboard/internal/config"
	"github.com/switchboardhq/switchboard/internal/dashboard"
	"github.com/switchboardhq/switchboard/internal/delivery"
	"github.com/switchboardhq/switchboard/internal/gateway"
	"github.com/switchboardhq/switchboard/internal/store"
	"github.com/switchboardhq/switchboard/internal/tools"
)

func newDeliverCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "deliver",
		Short: "Run the notification delivery daemon",
		Long: `Polls for pending notifications and delivers them to agents through the
gateway. Runs until interrupted. Starts the dashboard and alert digest
when configured.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeliver(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "switchboard.yaml", "path to Switchboard config file")
	return cmd
}

func runDeliver(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Loaded config for account %q from %s\n", cfg.AccountID, configPath)

	st := store.New(gormDB)
	registry := gateway.NewRegistry()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Register each active agent's main session so agent-level notifications
	// are deliverable immediately. Task sessions register lazily.
	agents, err := st.ActiveAgents(ctx, cfg.AccountID)
	if err != nil {
		return fmt.Errorf("list agents: %w", err)
	}
	for _, a := range agents {
		registry.Register(fmt.Sprintf("agent:%s:main", a.ID), a.ID)
	}
	fmt.Fprintf(out, "Registered %d agent sessions\n", registry.Len())

	client, err := gateway.NewClient(gateway.ClientOpts{
		BaseURL:  cfg.Gateway.BaseURL,
		Token:    cfg.Gateway.Token,
		Timeout:  cfg.GatewayTimeout(),
		Registry: registry,
	})
	if err != nil {
		return err
	}

	notifiers, err := buildNotifiers(cfg)
	if err != nil {
		return err
	}
	if notifiers.Len() > 0 {
		fmt.Fprintf(out, "Alerting to %d destination(s)\n", notifiers.Len())
	}

	var alerter delivery.Alerter
	if notifiers.Len() > 0 {
		alerter = notifiers
	}

	sched, err := delivery.New(delivery.Options{
		Store:         st,
		Gateway:       client,
		Registry:      registry,
		Tools:         tools.NewRegistry(),
		Alerts:        alerter,
		AccountID:     cfg.AccountID,
		PollInterval:  cfg.PollInterval(),
		BackoffBase:   cfg.BackoffBase(),
		BackoffMax:    cfg.BackoffMax(),
		BatchSize:     cfg.Delivery.BatchSize,
		MaxNoResponse: cfg.Delivery.MaxNoResponse,
		MaxSessions:   cfg.Delivery.MaxSessions,
		Out:           out,
	})
	if err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(out, "\nReceived %s, shutting down...\n", sig)
		cancel()
	}()

	if cfg.Dashboard.Enabled {
		go func() {
			err := dashboard.Start(ctx, dashboard.StartOpts{
				DB:    gormDB,
				State: sched.State,
				Port:  cfg.Dashboard.Port,
				Out:   out,
			})
			if err != nil {
				log.Printf("dashboard: %v", err)
			}
		}()
	}

	if cfg.Alerts.DigestCron != "" && notifiers.Len() > 0 {
		if err := alert.ValidateCron(cfg.Alerts.DigestCron); err != nil {
			return fmt.Errorf("invalid digest_cron %q: %w", cfg.Alerts.DigestCron, err)
		}
		go alert.RunDigest(ctx, cfg.Alerts.DigestCron, digestStats(st, cfg.AccountID), notifiers)
		fmt.Fprintf(out, "Digest scheduled (%s)\n", cfg.Alerts.DigestCron)
	}

	return sched.Run(ctx)
}

// buildNotifiers creates alert destinations for every configured channel.
func buildNotifiers(cfg *config.Config) (*alert.Multi, error) {
	var notifiers []alert.Notifier

	if cfg.Alerts.Slack.BotToken != "" {
		n, err := slack.New(slack.Opts{
			BotToken:  cfg.Alerts.Slack.BotToken,
			ChannelID: cfg.Alerts.Slack.ChannelID,
		})
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, n)
	}
	if cfg.Alerts.Discord.BotToken != "" {
		n, err := discord.New(discord.Opts{
			BotToken:  cfg.Alerts.Discord.BotToken,
			ChannelID: cfg.Alerts.Discord.ChannelID,
		})
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, n)
	}
	return alert.NewMulti(notifiers...), nil
}

// digestStats adapts the store's delivery log queries to the digest format.
func digestStats(st *store.Store, accountID string) alert.StatsFunc {
	return func(ctx context.Context, since time.Time) (alert.DigestStats, error) {
		counts, err := st.DeliveryCountsSince(ctx, since)
		if err != nil {
			return alert.DigestStats{}, err
		}
		pending, err := st.PendingCount(ctx, accountID)
		if err != nil {
			return alert.DigestStats{}, err
		}
		return alert.DigestStats{
			PeriodStart: since,
			PeriodEnd:   time.Now(),
			Delivered:   int(counts[string(delivery.OutcomeDelivered)]),
			RetryPend:   int(counts[string(delivery.OutcomeRetryPending)]),
			Exhausted:   int(counts[string(delivery.OutcomeExhausted)]),
			Failed:      int(counts[string(delivery.OutcomeFailed)]),
			Skipped:     int(counts[string(delivery.OutcomeSkipped)]),
			Pending:     pending,
		}, nil
	}
}
