package discord

import (
	"context"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
)

// mockSession records sent messages.
type mockSession struct {
	sent []string
	err  error
}

func (m *mockSession) ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.sent = append(m.sent, content)
	if m.err != nil {
		return nil, m.err
	}
	return &discordgo.Message{Content: content}, nil
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Opts{ChannelID: "123"}); err == nil {
		t.Error("expected error without bot token or session")
	}
	if _, err := New(Opts{BotToken: "tok"}); err == nil {
		t.Error("expected error without channel ID")
	}
}

func TestPost(t *testing.T) {
	mock := &mockSession{}
	n, err := New(Opts{Session: mock, ChannelID: "123"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := n.Post(context.Background(), "delivery failing"); err != nil {
		t.Fatalf("Post: %v", err)
	}
	if len(mock.sent) != 1 || mock.sent[0] != "delivery failing" {
		t.Errorf("sent = %v", mock.sent)
	}
}

func TestPost_ChunksLongMessages(t *testing.T) {
	mock := &mockSession{}
	n, err := New(Opts{Session: mock, ChannelID: "123"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	long := strings.Repeat("line of digest output\n", 150) // ~3300 chars
	if err := n.Post(context.Background(), long); err != nil {
		t.Fatalf("Post: %v", err)
	}
	if len(mock.sent) < 2 {
		t.Fatalf("sent %d chunks, want at least 2", len(mock.sent))
	}
	var total int
	for i, chunk := range mock.sent {
		if len(chunk) > maxMessageLen {
			t.Errorf("chunk %d is %d chars, over the limit", i, len(chunk))
		}
		total += len(chunk)
	}
	if total != len(long) {
		t.Errorf("chunks total %d chars, want %d", total, len(long))
	}
}

func TestSplitMessage_PrefersNewlines(t *testing.T) {
	text := strings.Repeat("x", 90) + "\n" + strings.Repeat("y", 90)
	chunks := splitMessage(text, 100)
	if len(chunks) != 2 {
		t.Fatalf("chunks = %d, want 2", len(chunks))
	}
	if !strings.HasSuffix(chunks[0], "\n") {
		t.Error("first chunk should break at the newline")
	}
}
