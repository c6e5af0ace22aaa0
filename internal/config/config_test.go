package config

import (
	"strings"
	"testing"
	"time"
)

const minimalYAML = `
gateway:
  base_url: http://localhost:8750
`

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if cfg.AccountID != "default" {
		t.Errorf("AccountID = %q, want default", cfg.AccountID)
	}
	if cfg.Delivery.BatchSize != 50 {
		t.Errorf("BatchSize = %d, want 50", cfg.Delivery.BatchSize)
	}
	if cfg.Delivery.MaxNoResponse != 3 {
		t.Errorf("MaxNoResponse = %d, want 3", cfg.Delivery.MaxNoResponse)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("Driver = %q, want sqlite", cfg.Database.Driver)
	}
	if got := cfg.PollInterval(); got != 30*time.Second {
		t.Errorf("PollInterval = %s, want 30s", got)
	}
	if got := cfg.GatewayTimeout(); got != 120*time.Second {
		t.Errorf("GatewayTimeout = %s, want 120s", got)
	}
}

func TestParse_MissingBaseURL(t *testing.T) {
	_, err := Parse([]byte("account_id: acme\n"))
	if err == nil {
		t.Fatal("expected validation error for missing gateway.base_url")
	}
	if !strings.Contains(err.Error(), "gateway.base_url") {
		t.Errorf("error = %v, want mention of gateway.base_url", err)
	}
}

func TestParse_BadDriver(t *testing.T) {
	yaml := minimalYAML + `
database:
  driver: postgres
`
	_, err := Parse([]byte(yaml))
	if err == nil || !strings.Contains(err.Error(), "database.driver") {
		t.Errorf("error = %v, want driver validation failure", err)
	}
}

func TestParse_MySQLRequiresDatabase(t *testing.T) {
	yaml := minimalYAML + `
database:
  driver: mysql
`
	_, err := Parse([]byte(yaml))
	if err == nil || !strings.Contains(err.Error(), "database.database") {
		t.Errorf("error = %v, want mysql database validation failure", err)
	}
}

func TestParse_BackoffOrdering(t *testing.T) {
	yaml := minimalYAML + `
delivery:
  backoff_base_ms: 10000
  backoff_max_ms: 5000
`
	_, err := Parse([]byte(yaml))
	if err == nil || !strings.Contains(err.Error(), "backoff_max_ms") {
		t.Errorf("error = %v, want backoff ordering failure", err)
	}
}

func TestParse_Overrides(t *testing.T) {
	yaml := `
account_id: acme
gateway:
  base_url: http://gw:9999
  token: secret
  timeout_ms: 1500
delivery:
  poll_interval_ms: 1000
  max_no_response: 5
alerts:
  digest_cron: "0 9 * * *"
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Gateway.Token != "secret" {
		t.Errorf("Token = %q, want secret", cfg.Gateway.Token)
	}
	if cfg.Delivery.MaxNoResponse != 5 {
		t.Errorf("MaxNoResponse = %d, want 5", cfg.Delivery.MaxNoResponse)
	}
	if cfg.Alerts.DigestCron != "0 9 * * *" {
		t.Errorf("DigestCron = %q", cfg.Alerts.DigestCron)
	}
	if got := cfg.GatewayTimeout(); got != 1500*time.Millisecond {
		t.Errorf("GatewayTimeout = %s, want 1.5s", got)
	}
}
