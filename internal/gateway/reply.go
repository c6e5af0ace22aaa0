package gateway

import (
	"encoding/json"
	"strings"
)

// Reply is the normalized result of one gateway call.
type Reply struct {
	Text      string
	ToolCalls []ToolCall
}

// ToolCall is a function invocation requested by the agent.
type ToolCall struct {
	CallID    string
	Name      string
	Arguments string
}

// replyPayload mirrors the structured reply shapes the gateway has produced
// over time. All fields are optional; extraction walks them in a fixed order.
type replyPayload struct {
	OutputText string            `json:"output_text"`
	Output     []json.RawMessage `json:"output"`
	Text       json.RawMessage   `json:"text"`
	Content    json.RawMessage   `json:"content"`
}

// outputItem is one entry of the "output" array. An item carrying both a
// call_id and a name is a tool call; anything else is treated as text.
type outputItem struct {
	Type      string          `json:"type"`
	CallID    string          `json:"call_id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
	Text      json.RawMessage `json:"text"`
	Content   json.RawMessage `json:"content"`
}

// ParseReply decodes a gateway response body into a Reply. The decode is
// deliberately tolerant: the reply shape has evolved and legacy or alternate
// shapes must not break delivery. Extraction strategies are tried in order
// (output array, output_text, text, content, raw string) and the first one
// yielding text wins. Tool calls are only ever carried by the output array.
func ParseReply(body []byte) *Reply {
	raw := strings.TrimSpace(string(body))
	if raw == "" {
		return &Reply{}
	}
	if !looksLikeJSON(raw) {
		return &Reply{Text: raw}
	}

	var payload replyPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		// Malformed JSON falls back to the raw trimmed body.
		return &Reply{Text: raw}
	}

	reply := &Reply{}
	var parts []string

	for _, item := range payload.Output {
		var it outputItem
		if err := json.Unmarshal(item, &it); err != nil {
			continue
		}
		if it.CallID != "" && it.Name != "" {
			reply.ToolCalls = append(reply.ToolCalls, ToolCall{
				CallID:    it.CallID,
				Name:      it.Name,
				Arguments: decodeArguments(it.Arguments),
			})
			continue
		}
		parts = append(parts, extractText(it.Text)...)
		parts = append(parts, extractText(it.Content)...)
	}

	if len(parts) == 0 {
		if t := strings.TrimSpace(payload.OutputText); t != "" {
			parts = append(parts, t)
		}
	}
	if len(parts) == 0 {
		parts = extractText(payload.Text)
	}
	if len(parts) == 0 {
		parts = extractText(payload.Content)
	}

	reply.Text = strings.Join(parts, "\n")
	return reply
}

// looksLikeJSON reports whether the trimmed body plausibly holds a JSON
// object or array. Anything else is treated as a plain-text reply.
func looksLikeJSON(s string) bool {
	return strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[")
}

// decodeArguments normalizes a tool call's arguments to a string. The
// gateway sends either a JSON-encoded string or an inline object.
func decodeArguments(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// extractText pulls ordered text parts out of an arbitrarily shaped value:
// a string, an array of values, or an object with text/content fields.
// Empty strings are discarded after trimming.
func extractText(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s = strings.TrimSpace(s); s != "" {
			return []string{s}
		}
		return nil
	}

	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err == nil {
		var parts []string
		for _, el := range arr {
			parts = append(parts, extractText(el)...)
		}
		return parts
	}

	var obj struct {
		Text    json.RawMessage `json:"text"`
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		if parts := extractText(obj.Text); len(parts) > 0 {
			return parts
		}
		return extractText(obj.Content)
	}

	return nil
}
