package tools

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/switchboardhq/switchboard/internal/gateway"
)

func TestRegistry_RunKnownTool(t *testing.T) {
	r := NewRegistry()
	r.Register("echo", func(ctx context.Context, arguments string) (string, error) {
		return "echo: " + arguments, nil
	})

	out, err := r.Run(context.Background(), gateway.ToolCall{Name: "echo", Arguments: `{"x":1}`})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out != `echo: {"x":1}` {
		t.Errorf("out = %q", out)
	}
}

func TestRegistry_UnknownTool(t *testing.T) {
	r := NewRegistry()
	_, err := r.Run(context.Background(), gateway.ToolCall{Name: "missing"})
	if err == nil {
		t.Fatal("expected error for unknown tool")
	}
	if !strings.Contains(err.Error(), "missing") {
		t.Errorf("error should name the tool: %v", err)
	}
}

func TestRegistry_WrapsToolErrors(t *testing.T) {
	r := NewRegistry()
	r.Register("flaky", func(ctx context.Context, arguments string) (string, error) {
		return "", errors.New("upstream unavailable")
	})

	_, err := r.Run(context.Background(), gateway.ToolCall{Name: "flaky"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "flaky") || !strings.Contains(err.Error(), "upstream unavailable") {
		t.Errorf("error = %v", err)
	}
}

func TestRegistry_Names(t *testing.T) {
	r := NewRegistry()
	r.Register("a", func(ctx context.Context, arguments string) (string, error) { return "", nil })
	r.Register("b", func(ctx context.Context, arguments string) (string, error) { return "", nil })

	names := r.Names()
	if len(names) != 2 {
		t.Errorf("names = %v, want 2 entries", names)
	}
}
