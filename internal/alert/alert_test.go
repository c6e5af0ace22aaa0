package alert

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type stubNotifier struct {
	name  string
	err   error
	posts []string
}

func (s *stubNotifier) Name() string { return s.name }

func (s *stubNotifier) Post(ctx context.Context, text string) error {
	s.posts = append(s.posts, text)
	return s.err
}

func TestMulti_FansOut(t *testing.T) {
	a := &stubNotifier{name: "slack"}
	b := &stubNotifier{name: "discord"}
	m := NewMulti(a, nil, b)

	if m.Len() != 2 {
		t.Fatalf("Len = %d, want 2 (nil entries skipped)", m.Len())
	}
	if err := m.Post(context.Background(), "hello"); err != nil {
		t.Fatalf("Post: %v", err)
	}
	if len(a.posts) != 1 || len(b.posts) != 1 {
		t.Errorf("posts = %d/%d, want 1/1", len(a.posts), len(b.posts))
	}
}

func TestMulti_FailureDoesNotBlockOthers(t *testing.T) {
	a := &stubNotifier{name: "slack", err: errors.New("channel_not_found")}
	b := &stubNotifier{name: "discord"}
	m := NewMulti(a, b)

	err := m.Post(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected aggregated error")
	}
	if !strings.Contains(err.Error(), "slack") {
		t.Errorf("error should name the failing notifier: %v", err)
	}
	if len(b.posts) != 1 {
		t.Error("second notifier should still receive the alert")
	}
}

func TestValidateCron(t *testing.T) {
	if err := ValidateCron("0 9 * * 1-5"); err != nil {
		t.Errorf("valid expression rejected: %v", err)
	}
	if err := ValidateCron("not a cron"); err == nil {
		t.Error("invalid expression accepted")
	}
}

func TestNextCronDuration(t *testing.T) {
	// Every minute: the next fire is at most 60s away.
	d := nextCronDuration("* * * * *")
	if d <= 0 || d > time.Minute {
		t.Errorf("nextCronDuration = %s, want (0, 1m]", d)
	}
	if d := nextCronDuration("bogus"); d != 0 {
		t.Errorf("parse error should return 0, got %s", d)
	}
}

func TestFormatDigest(t *testing.T) {
	s := DigestStats{
		PeriodStart: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		Delivered:   12,
		Exhausted:   1,
		Pending:     4,
	}
	text := FormatDigest(s)
	for _, want := range []string{"Delivered: 12", "Retry exhausted (fallback posted): 1", "Queue depth: 4"} {
		if !strings.Contains(text, want) {
			t.Errorf("digest missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "Failed:") {
		t.Error("zero-valued lines should be omitted")
	}
}

func TestDigestStatsQuiet(t *testing.T) {
	if !(DigestStats{}).quiet() {
		t.Error("zero stats should be quiet")
	}
	if (DigestStats{Delivered: 1}).quiet() {
		t.Error("stats with activity should not be quiet")
	}
}
