// Package noresponse classifies gateway reply text that carries no usable
// agent reply: heartbeat no-ops, explicit no-reply sentinels, and known
// placeholder strings. It also builds the fallback message posted when
// retries are exhausted.
package noresponse

import (
	"regexp"
	"strings"
)

// HeartbeatSentinel is the no-op acknowledgement an agent returns for
// heartbeat pings. A heartbeat reply marks the notification delivered but
// is never posted as a thread message.
const HeartbeatSentinel = "HEARTBEAT_OK"

// heartbeatPreamble matches the "loading context" lines a gateway may emit
// before the heartbeat sentinel.
var heartbeatPreamble = regexp.MustCompile(`(?i)^loading context for heartbeat\b`)

// noReplySentinels are single-token values an agent may return to
// explicitly decline a reply.
var noReplySentinels = map[string]struct{}{
	"NO_REPLY":    {},
	"NO_RESPONSE": {},
}

// placeholders are the fixed "no response" strings the gateway itself may
// return instead of a genuine reply, optionally preceded by @mentions.
var placeholders = []string{
	"(no response)",
	"(no output)",
}

// fallbackSummary is the distinctive first section of a fallback message;
// IsFallbackMessage keys off it.
const fallbackSummary = "No response was produced after repeated delivery attempts."

// IsHeartbeat reports whether text is a heartbeat no-op: its last non-empty
// line is the heartbeat sentinel, and every preceding non-empty line is a
// loading-context preamble.
func IsHeartbeat(text string) bool {
	var lines []string
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return false
	}
	if lines[len(lines)-1] != HeartbeatSentinel {
		return false
	}
	for _, line := range lines[:len(lines)-1] {
		if !heartbeatPreamble.MatchString(line) {
			return false
		}
	}
	return true
}

// IsNoReplySignal reports whether the trimmed text is exactly one of the
// no-reply sentinels.
func IsNoReplySignal(text string) bool {
	_, ok := noReplySentinels[strings.TrimSpace(text)]
	return ok
}

// ParsePlaceholder detects a known placeholder string, optionally preceded
// by a whitespace-separated run of @mention tokens and nothing else. It
// returns the mention prefix (empty when none) and whether it matched.
func ParsePlaceholder(text string) (mentionPrefix string, ok bool) {
	trimmed := strings.TrimSpace(text)
	lower := strings.ToLower(trimmed)

	for _, p := range placeholders {
		if !strings.HasSuffix(lower, p) {
			continue
		}
		head := strings.TrimSpace(trimmed[:len(trimmed)-len(p)])
		if head == "" {
			return "", true
		}
		tokens := strings.Fields(head)
		for _, tok := range tokens {
			if !strings.HasPrefix(tok, "@") {
				return "", false
			}
		}
		return strings.Join(tokens, " "), true
	}
	return "", false
}

// BuildFallbackMessage returns the structured fallback body posted when
// retries are exhausted, optionally prefixed with the mention run carried
// by the placeholder.
func BuildFallbackMessage(mentionPrefix string) string {
	body := "Summary: " + fallbackSummary + "\n" +
		"Work done: none was recorded for this notification.\n" +
		"Next step: review the task thread and re-assign or prompt the agent directly.\n" +
		"Sources: delivery scheduler (automatic fallback)."
	if mentionPrefix != "" {
		return mentionPrefix + "\n\n" + body
	}
	return body
}

// IsFallbackMessage reports whether text is a fallback message produced by
// BuildFallbackMessage, with or without a mention prefix. Upstream code uses
// it to avoid re-processing fallback content as a fresh reply.
func IsFallbackMessage(text string) bool {
	return strings.Contains(text, fallbackSummary)
}
