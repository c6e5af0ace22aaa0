// Package slack implements the alert Notifier for Slack using the Web API.
package slack

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	slackapi "github.com/slack-go/slack"
)

// maxRetries is the max number of retries for rate-limited API calls.
const maxRetries = 3

// slackClient abstracts the Slack API methods we use, enabling test mocks.
type slackClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// Notifier posts alerts to a single Slack channel.
type Notifier struct {
	client    slackClient
	channelID string
}

// Opts holds parameters for creating a Slack Notifier.
type Opts struct {
	BotToken  string // xoxb-... Slack bot token
	ChannelID string
	// For testing: inject a mock client instead of the real Slack API.
	Client slackClient
}

// New creates a Slack Notifier.
func New(opts Opts) (*Notifier, error) {
	if opts.Client == nil && opts.BotToken == "" {
		return nil, fmt.Errorf("slack: bot token is required")
	}
	if opts.ChannelID == "" {
		return nil, fmt.Errorf("slack: channel ID is required")
	}

	n := &Notifier{channelID: opts.ChannelID, client: opts.Client}
	if n.client == nil {
		n.client = slackapi.New(opts.BotToken)
	}
	return n, nil
}

func (n *Notifier) Name() string { return "slack" }

// Post sends the alert text to the configured channel.
func (n *Notifier) Post(ctx context.Context, text string) error {
	err := retryOnRateLimit(ctx, func() error {
		_, _, postErr := n.client.PostMessageContext(ctx, n.channelID,
			slackapi.MsgOptionText(text, false))
		return postErr
	})
	if err != nil {
		return fmt.Errorf("slack: post message: %w", err)
	}
	return nil
}

// retryOnRateLimit calls fn and retries with backoff on Slack rate limit errors.
// It respects context cancellation and the RetryAfter duration from Slack.
func retryOnRateLimit(ctx context.Context, fn func() error) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		var rle *slackapi.RateLimitedError
		if !errors.As(err, &rle) {
			return err // not a rate limit error, don't retry
		}

		if attempt == maxRetries {
			return err
		}

		wait := rle.RetryAfter
		if wait <= 0 {
			wait = time.Duration(math.Pow(2, float64(attempt))) * time.Second
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil // unreachable
}
