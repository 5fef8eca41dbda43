package qwen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/MikeSquared-Agency/petpal/internal/conversation"
)

// maxResponseSize caps how much of a response body is read.
const maxResponseSize = 10 << 20

// Client talks to an OpenAI-compatible chat completions endpoint
// (DashScope compatible mode by default). It holds no conversation state
// and is safe for concurrent use.
type Client struct {
	endpoint string
	apiKey   string
	client   *http.Client
	logger   *slog.Logger
}

func NewClient(endpoint, apiKey string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// Message is the wire form of a conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type request struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

// Required envelope fields are pointers so their absence can be told apart
// from zero values.
type response struct {
	ID      *string   `json:"id"`
	Model   *string   `json:"model"`
	Choices *[]choice `json:"choices"`
	Usage   *Usage    `json:"usage"`
}

type choice struct {
	Message      *replyMessage `json:"message"`
	FinishReason *string       `json:"finish_reason"`
	Index        *int          `json:"index"`
}

type replyMessage struct {
	Role    *string `json:"role"`
	Content *string `json:"content"`
}

// Usage is token accounting reported by the endpoint. Informational only.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// WireMessages projects a conversation onto wire messages. When system is
// non-empty and the first message is not already a system message, a system
// message is prepended. The input slice is never modified.
func WireMessages(messages []conversation.Message, system string) []Message {
	out := make([]Message, 0, len(messages)+1)
	for _, m := range messages {
		out = append(out, Message{Role: wireRole(m.Role()), Content: m.Content})
	}
	if system != "" && (len(out) == 0 || out[0].Role != "system") {
		out = append([]Message{{Role: "system", Content: system}}, out...)
	}
	return out
}

func wireRole(r conversation.Role) string {
	switch r {
	case conversation.RoleUser:
		return "user"
	case conversation.RoleSystem:
		return "system"
	default:
		return "assistant"
	}
}

// Complete sends the conversation to the endpoint and returns the first
// choice's content verbatim. A single attempt is made.
func (c *Client) Complete(ctx context.Context, model string, messages []conversation.Message, system string) (string, error) {
	if err := c.checkConfig(model); err != nil {
		return "", err
	}

	reqBody := request{
		Model:    model,
		Messages: WireMessages(messages, system),
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", &TransportError{Op: "marshal request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", &TransportError{Op: "create request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return "", &TransportError{Op: "api call", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", &TransportError{Op: "read response", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("completion failed",
			"status", resp.StatusCode,
			"model", model,
			"body", string(respBody),
		)
		return "", &HTTPError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var apiResp response
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", &DecodingError{Err: err}
	}
	if err := apiResp.validate(); err != nil {
		return "", &DecodingError{Err: err}
	}

	attrs := []any{
		"id", *apiResp.ID,
		"model", *apiResp.Model,
		"choices", len(*apiResp.Choices),
		"elapsed", time.Since(start),
	}
	if u := apiResp.Usage; u != nil {
		attrs = append(attrs,
			"prompt_tokens", u.PromptTokens,
			"completion_tokens", u.CompletionTokens,
			"total_tokens", u.TotalTokens,
		)
	}
	c.logger.Debug("completion received", attrs...)

	if len(*apiResp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	return *(*apiResp.Choices)[0].Message.Content, nil
}

func (c *Client) checkConfig(model string) error {
	if c.endpoint == "" {
		return &ConfigurationError{Field: "endpoint", Reason: "is not set"}
	}
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return &ConfigurationError{Field: "endpoint", Reason: fmt.Sprintf("is malformed: %v", err)}
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &ConfigurationError{Field: "endpoint", Reason: fmt.Sprintf("%q is not an absolute http(s) URL", c.endpoint)}
	}
	if c.apiKey == "" {
		return &ConfigurationError{Field: "api key", Reason: "is not set"}
	}
	if model == "" {
		return &ConfigurationError{Field: "model", Reason: "is not set"}
	}
	return nil
}

func (r *response) validate() error {
	switch {
	case r.ID == nil:
		return errors.New("missing id")
	case r.Model == nil:
		return errors.New("missing model")
	case r.Choices == nil:
		return errors.New("missing choices")
	}
	for i, ch := range *r.Choices {
		switch {
		case ch.Index == nil:
			return fmt.Errorf("choice %d: missing index", i)
		case ch.Message == nil:
			return fmt.Errorf("choice %d: missing message", i)
		case ch.Message.Role == nil:
			return fmt.Errorf("choice %d: missing message role", i)
		case ch.Message.Content == nil:
			return fmt.Errorf("choice %d: missing message content", i)
		}
	}
	return nil
}
