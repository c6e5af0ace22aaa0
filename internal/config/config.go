// Package config provides YAML-based configuration loading for Switchboard.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level Switchboard configuration, loaded from
// switchboard.yaml.
type Config struct {
	AccountID string          `yaml:"account_id"`
	Gateway   GatewayConfig   `yaml:"gateway"`
	Delivery  DeliveryConfig  `yaml:"delivery"`
	Database  DatabaseConfig  `yaml:"database"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Alerts    AlertsConfig    `yaml:"alerts"`
}

// GatewayConfig holds connection settings for the agent gateway.
type GatewayConfig struct {
	BaseURL   string `yaml:"base_url"`
	Token     string `yaml:"token"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// DeliveryConfig holds scheduler tuning knobs.
type DeliveryConfig struct {
	PollIntervalMs int `yaml:"poll_interval_ms"`
	BackoffBaseMs  int `yaml:"backoff_base_ms"`
	BackoffMaxMs   int `yaml:"backoff_max_ms"`
	BatchSize      int `yaml:"batch_size"`
	MaxNoResponse  int `yaml:"max_no_response"`
	MaxSessions    int `yaml:"max_sessions"`
}

// DatabaseConfig holds connection settings for the backing database.
// Driver "sqlite" uses Path; driver "mysql" uses Host/Port/User/Database.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Path     string `yaml:"path"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Database string `yaml:"database"`
}

// DashboardConfig holds settings for the HTTP dashboard.
type DashboardConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// AlertsConfig holds operator alerting settings. Notifiers with empty
// tokens are not started.
type AlertsConfig struct {
	Slack      SlackConfig   `yaml:"slack"`
	Discord    DiscordConfig `yaml:"discord"`
	DigestCron string        `yaml:"digest_cron"` // 5-field cron expression; empty disables
}

// SlackConfig holds Slack notifier credentials.
type SlackConfig struct {
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
}

// DiscordConfig holds Discord notifier credentials.
type DiscordConfig struct {
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.AccountID == "" {
		c.AccountID = "default"
	}
	if c.Gateway.TimeoutMs == 0 {
		c.Gateway.TimeoutMs = 120_000
	}
	if c.Delivery.PollIntervalMs == 0 {
		c.Delivery.PollIntervalMs = 30_000
	}
	if c.Delivery.BackoffBaseMs == 0 {
		c.Delivery.BackoffBaseMs = 5_000
	}
	if c.Delivery.BackoffMaxMs == 0 {
		c.Delivery.BackoffMaxMs = 300_000
	}
	if c.Delivery.BatchSize == 0 {
		c.Delivery.BatchSize = 50
	}
	if c.Delivery.MaxNoResponse == 0 {
		c.Delivery.MaxNoResponse = 3
	}
	if c.Delivery.MaxSessions == 0 {
		c.Delivery.MaxSessions = 8
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Path == "" {
		c.Database.Path = "switchboard.db"
	}
	if c.Database.Host == "" {
		c.Database.Host = "127.0.0.1"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Database.User == "" {
		c.Database.User = "root"
	}
	if c.Dashboard.Port == 0 {
		c.Dashboard.Port = 8787
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.Gateway.BaseURL == "" {
		errs = append(errs, "gateway.base_url is required")
	}
	if c.Database.Driver != "sqlite" && c.Database.Driver != "mysql" {
		errs = append(errs, fmt.Sprintf("database.driver must be sqlite or mysql, got %q", c.Database.Driver))
	}
	if c.Database.Driver == "mysql" && c.Database.Database == "" {
		errs = append(errs, "database.database is required for mysql")
	}
	if c.Delivery.BackoffMaxMs < c.Delivery.BackoffBaseMs {
		errs = append(errs, "delivery.backoff_max_ms must be >= backoff_base_ms")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// GatewayTimeout returns the per-call gateway timeout as a duration.
func (c *Config) GatewayTimeout() time.Duration {
	return time.Duration(c.Gateway.TimeoutMs) * time.Millisecond
}

// PollInterval returns the steady-state poll interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Delivery.PollIntervalMs) * time.Millisecond
}

// BackoffBase returns the base inter-cycle backoff as a duration.
func (c *Config) BackoffBase() time.Duration {
	return time.Duration(c.Delivery.BackoffBaseMs) * time.Millisecond
}

// BackoffMax returns the backoff cap as a duration.
func (c *Config) BackoffMax() time.Duration {
	return time.Duration(c.Delivery.BackoffMaxMs) * time.Millisecond
}
