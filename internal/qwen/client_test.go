package qwen

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/MikeSquared-Agency/petpal/internal/conversation"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(url string) *Client {
	return NewClient(url, "test-key", 5*time.Second, discardLogger())
}

func writeEnvelope(w http.ResponseWriter, content string) {
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{
		"id":    "chatcmpl-1",
		"model": "qwen-plus",
		"choices": []map[string]any{
			{
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
				"index":         0,
			},
		},
		"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	})
}

func TestComplete_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("expected bearer auth, got %q", r.Header.Get("Authorization"))
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("expected Content-Type application/json, got %q", r.Header.Get("Content-Type"))
		}

		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.Model != "qwen-plus" {
			t.Errorf("expected model qwen-plus, got %q", req.Model)
		}
		want := []Message{
			{Role: "system", Content: "you are a vet"},
			{Role: "user", Content: "狗狗呕吐怎么办"},
		}
		if diff := cmp.Diff(want, req.Messages); diff != "" {
			t.Errorf("unexpected messages (-want +got):\n%s", diff)
		}

		writeEnvelope(w, "建议先禁食观察")
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	conv := []conversation.Message{conversation.UserMessage("狗狗呕吐怎么办")}
	before := append([]conversation.Message(nil), conv...)

	result, err := c.Complete(context.Background(), "qwen-plus", conv, "you are a vet")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "建议先禁食观察" {
		t.Errorf("expected reply verbatim, got %q", result)
	}
	if len(conv) != len(before) || conv[0].ID != before[0].ID || conv[0].Content != before[0].Content {
		t.Error("input conversation was mutated")
	}
}

func TestComplete_ReplyNotTrimmed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, "  padded reply\n")
	}))
	defer server.Close()

	got, err := newTestClient(server.URL).Complete(context.Background(), "m", nil, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "  padded reply\n" {
		t.Errorf("expected untrimmed reply, got %q", got)
	}
}

func TestWireMessages_RoleMapping(t *testing.T) {
	in := []conversation.Message{
		conversation.UserMessage("q1"),
		conversation.AssistantMessage("a1"),
		conversation.UserMessage("q2"),
	}
	got := WireMessages(in, "")
	want := []Message{
		{Role: "user", Content: "q1"},
		{Role: "assistant", Content: "a1"},
		{Role: "user", Content: "q2"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("role mapping mismatch (-want +got):\n%s", diff)
	}
}

func TestWireMessages_AIAlias(t *testing.T) {
	role, err := conversation.ParseRole("ai")
	if err != nil {
		t.Fatal(err)
	}
	got := WireMessages([]conversation.Message{conversation.NewMessage(role, "hi")}, "")
	if got[0].Role != "assistant" {
		t.Errorf("expected ai to be sent as assistant, got %q", got[0].Role)
	}
}

func TestWireMessages_SystemInjection(t *testing.T) {
	tests := []struct {
		name   string
		in     []conversation.Message
		system string
		want   []Message
	}{
		{
			name:   "prepended before user",
			in:     []conversation.Message{conversation.UserMessage("q")},
			system: "sys",
			want:   []Message{{Role: "system", Content: "sys"}, {Role: "user", Content: "q"}},
		},
		{
			name:   "prepended before assistant greeting",
			in:     []conversation.Message{conversation.AssistantMessage("hello"), conversation.UserMessage("q")},
			system: "sys",
			want: []Message{
				{Role: "system", Content: "sys"},
				{Role: "assistant", Content: "hello"},
				{Role: "user", Content: "q"},
			},
		},
		{
			name:   "existing system message kept",
			in:     []conversation.Message{conversation.SystemMessage("mine"), conversation.UserMessage("q")},
			system: "sys",
			want:   []Message{{Role: "system", Content: "mine"}, {Role: "user", Content: "q"}},
		},
		{
			name:   "empty conversation",
			in:     nil,
			system: "sys",
			want:   []Message{{Role: "system", Content: "sys"}},
		},
		{
			name:   "no instruction",
			in:     []conversation.Message{conversation.UserMessage("q")},
			system: "",
			want:   []Message{{Role: "user", Content: "q"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WireMessages(tt.in, tt.system)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestComplete_StatusGate(t *testing.T) {
	for _, status := range []int{http.StatusCreated, http.StatusBadRequest, http.StatusUnauthorized, http.StatusTooManyRequests, http.StatusInternalServerError} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			w.Write([]byte(`{"error":{"message":"quota exceeded"}}`))
		}))

		_, err := newTestClient(server.URL).Complete(context.Background(), "m", []conversation.Message{conversation.UserMessage("hi")}, "")
		server.Close()

		var httpErr *HTTPError
		if !errors.As(err, &httpErr) {
			t.Errorf("status %d: expected HTTPError, got %v", status, err)
			continue
		}
		if httpErr.StatusCode != status {
			t.Errorf("expected status %d, got %d", status, httpErr.StatusCode)
		}
		if httpErr.Body != `{"error":{"message":"quota exceeded"}}` {
			t.Errorf("expected raw body preserved, got %q", httpErr.Body)
		}
	}
}

func TestComplete_DecodingError(t *testing.T) {
	bodies := map[string]string{
		"not json":        "this is not json",
		"missing choices": `{"id":"x","model":"m"}`,
		"null choices":    `{"id":"x","model":"m","choices":null}`,
		"missing id":      `{"model":"m","choices":[]}`,
		"missing message": `{"id":"x","model":"m","choices":[{"index":0}]}`,
		"empty message":   `{"id":"x","model":"m","choices":[{"message":{},"index":0}]}`,
		"null content":    `{"id":"x","model":"m","choices":[{"message":{"role":"assistant","content":null},"index":0}]}`,
		"missing content": `{"id":"x","model":"m","choices":[{"message":{"role":"assistant"},"index":0}]}`,
		"missing role":    `{"id":"x","model":"m","choices":[{"message":{"content":"ok"},"index":0}]}`,
		"missing index":   `{"id":"x","model":"m","choices":[{"message":{"role":"assistant","content":"ok"}}]}`,
		"wrong type":      `{"id":"x","model":"m","choices":"nope"}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte(body))
			}))
			defer server.Close()

			got, err := newTestClient(server.URL).Complete(context.Background(), "m", nil, "")
			var decErr *DecodingError
			if !errors.As(err, &decErr) {
				t.Fatalf("expected DecodingError, got %v (reply %q)", err, got)
			}
		})
	}
}

func TestComplete_EmptyChoices(t *testing.T) {
	bodies := map[string]string{
		"with usage":    `{"id":"x","model":"m","choices":[],"usage":{"prompt_tokens":1,"completion_tokens":0,"total_tokens":1}}`,
		"without usage": `{"id":"x","model":"m","choices":[]}`,
		"null usage":    `{"id":"x","model":"m","choices":[],"usage":null}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte(body))
			}))
			defer server.Close()

			_, err := newTestClient(server.URL).Complete(context.Background(), "m", nil, "")
			if !errors.Is(err, ErrEmptyResponse) {
				t.Fatalf("expected ErrEmptyResponse, got %v", err)
			}
		})
	}
}

func TestComplete_NullFinishReason(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"id":"x","model":"m","choices":[{"message":{"role":"assistant","content":"ok"},"finish_reason":null,"index":0}]}`))
	}))
	defer server.Close()

	got, err := newTestClient(server.URL).Complete(context.Background(), "m", nil, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ok" {
		t.Errorf("expected ok, got %q", got)
	}
}

func TestComplete_ConfigurationErrors(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeEnvelope(w, "should not happen")
	}))
	defer server.Close()

	tests := []struct {
		name     string
		endpoint string
		key      string
		model    string
		field    string
	}{
		{"no endpoint", "", "k", "m", "endpoint"},
		{"relative endpoint", "/v1/chat", "k", "m", "endpoint"},
		{"bad scheme", "ftp://example.com/v1", "k", "m", "endpoint"},
		{"malformed endpoint", "http://[::1", "k", "m", "endpoint"},
		{"no key", server.URL, "", "m", "api key"},
		{"no model", server.URL, "k", "", "model"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClient(tt.endpoint, tt.key, time.Second, discardLogger())
			_, err := c.Complete(context.Background(), tt.model, []conversation.Message{conversation.UserMessage("hi")}, "")
			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigurationError, got %v", err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("expected field %q, got %q", tt.field, cfgErr.Field)
			}
		})
	}
	if n := hits.Load(); n != 0 {
		t.Errorf("expected no network calls on configuration errors, got %d", n)
	}
}

func TestComplete_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := newTestClient(url).Complete(context.Background(), "m", nil, "")
	var tErr *TransportError
	if !errors.As(err, &tErr) {
		t.Fatalf("expected TransportError, got %v", err)
	}
}

func TestComplete_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient(server.URL).Complete(ctx, "m", nil, "")
	var tErr *TransportError
	if !errors.As(err, &tErr) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected wrapped context.Canceled, got %v", err)
	}
}

func TestComplete_RecoversAfterFailure(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeEnvelope(w, "fine")
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	if _, err := c.Complete(context.Background(), "m", nil, ""); err == nil {
		t.Fatal("expected first call to fail")
	}
	got, err := c.Complete(context.Background(), "m", nil, "")
	if err != nil {
		t.Fatalf("expected second call to succeed, got %v", err)
	}
	if got != "fine" {
		t.Errorf("expected fine, got %q", got)
	}
	if calls.Load() != 2 {
		t.Errorf("expected exactly one attempt per call, got %d requests", calls.Load())
	}
}
