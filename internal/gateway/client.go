// Package gateway implements the HTTP protocol client for an
// OpenClaw-compatible agent gateway, plus the session registry that binds
// conversational session keys to agents.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout is the per-call timeout used when none is configured.
const DefaultTimeout = 2 * time.Minute

// ToolDef describes a tool offered to the agent for one request.
type ToolDef struct {
	Type        string         `json:"type"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// ToolOutput carries one executed tool result back to the gateway.
type ToolOutput struct {
	CallID string `json:"call_id"`
	Output string `json:"output"`
}

// SendOpts holds optional parameters for one send.
type SendOpts struct {
	Instructions string
	Tools        []ToolDef
	ToolChoice   any // "auto", "required", or {type:"function", name}
}

// requestBody is the wire shape for POST /v1/responses.
type requestBody struct {
	Model              string       `json:"model"`
	Input              string       `json:"input,omitempty"`
	Stream             bool         `json:"stream"`
	User               string       `json:"user"`
	Instructions       string       `json:"instructions,omitempty"`
	Tools              []ToolDef    `json:"tools,omitempty"`
	ToolChoice         any          `json:"tool_choice,omitempty"`
	FunctionCallOutput []ToolOutput `json:"function_call_output,omitempty"`
}

// Client sends messages to agents through the gateway. Routing headers carry
// the session key and agent ID so the gateway executes the run under the
// correct conversational session; sending without them causes agent-visible
// capability loss, not just a wrong reply.
type Client struct {
	baseURL  string
	token    string
	timeout  time.Duration
	registry *Registry
	http     *http.Client
}

// ClientOpts holds parameters for creating a Client.
type ClientOpts struct {
	BaseURL  string
	Token    string // optional bearer token
	Timeout  time.Duration
	Registry *Registry
	// For testing: inject a custom HTTP client.
	HTTPClient *http.Client
}

// NewClient creates a gateway Client.
func NewClient(opts ClientOpts) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("gateway: base URL is required")
	}
	if opts.Registry == nil {
		return nil, fmt.Errorf("gateway: registry is required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		token:    opts.Token,
		timeout:  timeout,
		registry: opts.Registry,
		http:     httpClient,
	}, nil
}

// Send delivers a message to the agent owning sessionKey and returns the
// normalized reply. Unknown session keys fail fast without calling the
// gateway.
func (c *Client) Send(ctx context.Context, sessionKey, message string, opts SendOpts) (*Reply, error) {
	sess, ok := c.registry.Lookup(sessionKey)
	if !ok {
		return nil, fmt.Errorf("gateway: unknown session key %q", sessionKey)
	}

	body := requestBody{
		Model:        "openclaw:" + sess.AgentID,
		Input:        message,
		Stream:       false,
		User:         sessionKey,
		Instructions: opts.Instructions,
		Tools:        opts.Tools,
		ToolChoice:   opts.ToolChoice,
	}

	raw, err := c.post(ctx, sessionKey, sess.AgentID, body)
	if err != nil {
		return nil, err
	}
	c.registry.Touch(sessionKey)
	return ParseReply(raw), nil
}

// SendToolResults submits executed tool outputs for a previous reply's tool
// calls and returns the resulting text. No tool-call extraction is expected
// on this leg.
func (c *Client) SendToolResults(ctx context.Context, sessionKey string, outputs []ToolOutput) (string, error) {
	sess, ok := c.registry.Lookup(sessionKey)
	if !ok {
		return "", fmt.Errorf("gateway: unknown session key %q", sessionKey)
	}

	body := requestBody{
		Model:              "openclaw:" + sess.AgentID,
		Stream:             false,
		User:               sessionKey,
		FunctionCallOutput: outputs,
	}

	raw, err := c.post(ctx, sessionKey, sess.AgentID, body)
	if err != nil {
		return "", err
	}
	c.registry.Touch(sessionKey)
	return ParseReply(raw).Text, nil
}

// post executes one gateway call with the per-call timeout and returns the
// raw response body.
func (c *Client) post(ctx context.Context, sessionKey, agentID string, body requestBody) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("gateway: encode request: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.baseURL+"/v1/responses", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("gateway: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-openclaw-session-key", sessionKey)
	req.Header.Set("x-openclaw-agent-id", agentID)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, &TimeoutError{SessionKey: sessionKey, Timeout: c.timeout}
		}
		return nil, fmt.Errorf("gateway: post: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("gateway: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(raw)),
		}
	}
	return raw, nil
}
