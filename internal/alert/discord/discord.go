// Package discord implements the alert Notifier for Discord using the REST API.
package discord

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/bwmarrin/discordgo"
)

const (
	// maxRetries is the max number of retries for rate-limited API calls.
	maxRetries = 3
	// maxMessageLen is Discord's content length limit per message.
	maxMessageLen = 2000
)

// session abstracts the discordgo.Session methods we use, enabling test mocks.
type session interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// realSession wraps *discordgo.Session to implement the session interface.
type realSession struct {
	s *discordgo.Session
}

func (r *realSession) ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	return r.s.ChannelMessageSend(channelID, content, options...)
}

// Notifier posts alerts to a single Discord channel.
type Notifier struct {
	sess      session
	channelID string
}

// Opts holds parameters for creating a Discord Notifier.
type Opts struct {
	BotToken  string // Discord bot token
	ChannelID string
	// For testing: inject a mock session instead of the real Discord API.
	Session session
}

// New creates a Discord Notifier. Alerts go out over plain REST, so no
// Gateway WebSocket is opened.
func New(opts Opts) (*Notifier, error) {
	if opts.Session == nil && opts.BotToken == "" {
		return nil, fmt.Errorf("discord: bot token is required")
	}
	if opts.ChannelID == "" {
		return nil, fmt.Errorf("discord: channel ID is required")
	}

	n := &Notifier{channelID: opts.ChannelID, sess: opts.Session}
	if n.sess == nil {
		dg, err := discordgo.New("Bot " + opts.BotToken)
		if err != nil {
			return nil, fmt.Errorf("discord: create session: %w", err)
		}
		n.sess = &realSession{s: dg}
	}
	return n, nil
}

func (n *Notifier) Name() string { return "discord" }

// Post sends the alert text to the configured channel, splitting it into
// chunks under Discord's message length limit.
func (n *Notifier) Post(ctx context.Context, text string) error {
	for _, chunk := range splitMessage(text, maxMessageLen) {
		err := retryOnRateLimit(ctx, func() error {
			_, sendErr := n.sess.ChannelMessageSend(n.channelID, chunk)
			return sendErr
		})
		if err != nil {
			return fmt.Errorf("discord: send message: %w", err)
		}
	}
	return nil
}

// splitMessage breaks text into chunks of at most limit runes, preferring
// newline boundaries.
func splitMessage(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}
	var chunks []string
	for len(text) > limit {
		cut := limit
		for i := limit; i > limit/2; i-- {
			if text[i-1] == '\n' {
				cut = i
				break
			}
		}
		chunks = append(chunks, text[:cut])
		text = text[cut:]
	}
	if len(text) > 0 {
		chunks = append(chunks, text)
	}
	return chunks
}

// retryOnRateLimit calls fn and retries with exponential backoff on Discord
// rate limit errors. It respects context cancellation.
func retryOnRateLimit(ctx context.Context, fn func() error) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		restErr, ok := err.(*discordgo.RESTError)
		if !ok || restErr.Response == nil || restErr.Response.StatusCode != 429 {
			return err // not a rate limit error
		}

		if attempt == maxRetries {
			return err
		}

		wait := time.Duration(math.Pow(2, float64(attempt))) * time.Second
		log.Printf("discord: rate limited (attempt %d/%d), retrying in %v",
			attempt+1, maxRetries, wait)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil // unreachable
}
