package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeTestConfig creates a minimal sqlite-backed config file in a temp dir.
func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "switchboard.db")
	cfg := `account_id: test
gateway:
  base_url: http://localhost:18789
database:
  driver: sqlite
  path: ` + dbPath + "\n"

	path := filepath.Join(dir, "switchboard.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDBInit(t *testing.T) {
	cfgPath := writeTestConfig(t)

	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"db", "init", "-c", cfgPath})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("db init failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "Migrated 5 tables") {
		t.Errorf("output = %s, want migration count", out)
	}
	if !strings.Contains(out, "initialized successfully") {
		t.Errorf("output = %s, want success line", out)
	}
}

func TestDBReset_SkipConfirm(t *testing.T) {
	cfgPath := writeTestConfig(t)

	// Initialize first.
	initCmd := newRootCmd()
	initCmd.SetOut(new(bytes.Buffer))
	initCmd.SetArgs([]string{"db", "init", "-c", cfgPath})
	if err := initCmd.Execute(); err != nil {
		t.Fatalf("db init failed: %v", err)
	}

	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"db", "reset", "-c", cfgPath, "-y"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("db reset failed: %v", err)
	}
	if !strings.Contains(buf.String(), "reset successfully") {
		t.Errorf("output = %s, want success line", buf.String())
	}
}

func TestDBReset_Aborted(t *testing.T) {
	cfgPath := writeTestConfig(t)

	initCmd := newRootCmd()
	initCmd.SetOut(new(bytes.Buffer))
	initCmd.SetArgs([]string{"db", "init", "-c", cfgPath})
	if err := initCmd.Execute(); err != nil {
		t.Fatalf("db init failed: %v", err)
	}

	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetIn(strings.NewReader("no\n"))
	cmd.SetArgs([]string{"db", "reset", "-c", cfgPath})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("db reset failed: %v", err)
	}
	if !strings.Contains(buf.String(), "Aborted.") {
		t.Errorf("output = %s, want abort line", buf.String())
	}
}

func TestStatus_EmptyQueue(t *testing.T) {
	cfgPath := writeTestConfig(t)

	initCmd := newRootCmd()
	initCmd.SetOut(new(bytes.Buffer))
	initCmd.SetArgs([]string{"db", "init", "-c", cfgPath})
	if err := initCmd.Execute(); err != nil {
		t.Fatalf("db init failed: %v", err)
	}

	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"status", "-c", cfgPath})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("status failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "Pending:        0 notification(s)") {
		t.Errorf("output = %s, want zero pending", out)
	}
	if !strings.Contains(out, "No deliveries recorded yet.") {
		t.Errorf("output = %s, want empty delivery log note", out)
	}
}
