package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func sentimentPrompt() []Message {
	return []Message{
		{Role: "system", Content: "You are a data analyst for the product team."},
		{Role: "user", Content: "Which region has the worst sentiment?"},
		{Role: "assistant", Content: "**Southwest** at -0.40."},
		{Role: "user", Content: "And how many late deliveries there?"},
	}
}

func TestOllamaGenerateSendsConversation(t *testing.T) {
	var got ollamaChatRequest
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]any{"role": "assistant", "content": "**12** late deliveries in Southwest."},
			"done":    true,
		})
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, oneShot(2*time.Second))
	resp, err := c.Generate(context.Background(), GenerateRequest{
		Model: "llama3.1:8b", Messages: sentimentPrompt(), MaxTokens: 256, Temperature: 0.3,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(resp.Choices) != 1 || resp.Choices[0].Message.Content != "**12** late deliveries in Southwest." {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if !strings.HasPrefix(resp.RequestID, "ollama_") {
		t.Fatalf("expected synthesized request id, got %q", resp.RequestID)
	}
	if got.Model != "llama3.1:8b" || got.Stream {
		t.Fatalf("unexpected request header fields: %+v", got)
	}
	want := sentimentPrompt()
	if len(got.Messages) != len(want) {
		t.Fatalf("expected %d messages, got %d", len(want), len(got.Messages))
	}
	for i, m := range want {
		if got.Messages[i].Role != m.Role || got.Messages[i].Content != m.Content {
			t.Fatalf("message %d = %+v, want %+v", i, got.Messages[i], m)
		}
	}
	if got.Options["num_predict"] == nil {
		t.Fatalf("expected max tokens to be forwarded as num_predict, got options %v", got.Options)
	}
}

func TestOllamaGenerateClassifiesStatus(t *testing.T) {
	cases := []struct {
		status int
		check  func(error) bool
	}{
		{http.StatusNotFound, func(err error) bool { var e *ModelNotFoundError; return errors.As(err, &e) }},
		{http.StatusBadRequest, func(err error) bool { var e *BadRequestError; return errors.As(err, &e) }},
		{http.StatusInternalServerError, func(err error) bool { var e *ServerError; return errors.As(err, &e) }},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprint(tc.status), func(t *testing.T) {
			srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_ = json.NewEncoder(w).Encode(map[string]any{"error": "model 'llama9' not found"})
			}))
			defer srv.Close()
			c := NewOllamaClient(srv.URL, oneShot(2*time.Second))
			_, err := c.Generate(context.Background(), GenerateRequest{Model: "llama9", Messages: sentimentPrompt()})
			if err == nil || !tc.check(err) {
				t.Fatalf("status %d: unexpected error %T: %v", tc.status, err, err)
			}
		})
	}
}

func TestOllamaGenerateUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("cannot open local listener: %v", err)
	}
	host := "http://" + ln.Addr().String()
	ln.Close()

	c := NewOllamaClient(host, oneShot(time.Second))
	_, err = c.Generate(context.Background(), GenerateRequest{Model: "llama3.1:8b", Messages: sentimentPrompt()})
	var un *UnreachableError
	if !errors.As(err, &un) {
		t.Fatalf("expected UnreachableError, got %T: %v", err, err)
	}
	if un.Host != host {
		t.Fatalf("host = %q, want %q", un.Host, host)
	}
	if !Transient(err) || Hint(err) == "" {
		t.Fatalf("unreachable should be transient with a hint")
	}
}

func TestOllamaRejectsIncompleteRequests(t *testing.T) {
	c := NewOllamaClient("", oneShot(time.Second))
	ctx := context.Background()

	if _, err := c.Generate(ctx, GenerateRequest{Model: "llama3.1:8b"}); err == nil || err.Error() != "messages cannot be empty" {
		t.Fatalf("expected 'messages cannot be empty', got %v", err)
	}
	if _, err := c.Generate(ctx, GenerateRequest{Messages: sentimentPrompt()}); err == nil || err.Error() != "model cannot be empty" {
		t.Fatalf("expected 'model cannot be empty', got %v", err)
	}
	err := c.GenerateStream(ctx, GenerateRequest{Model: "llama3.1:8b"}, func(string) {})
	if err == nil || err.Error() != "messages cannot be empty" {
		t.Fatalf("stream: expected 'messages cannot be empty', got %v", err)
	}
}

func TestOllamaGenerateStreamNDJSON(t *testing.T) {
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaChatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if !req.Stream {
			http.Error(w, "expected stream", http.StatusBadRequest)
			return
		}
		enc := json.NewEncoder(w)
		for _, part := range []string{"**Southwest** ", "has ", "27.0% ", "late."} {
			_ = enc.Encode(map[string]any{"message": map[string]any{"role": "assistant", "content": part}})
		}
		_ = enc.Encode(map[string]any{"message": map[string]any{"role": "assistant", "content": ""}, "done": true})
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, oneShot(2*time.Second))
	var b strings.Builder
	deltas := 0
	err := c.GenerateStream(context.Background(), GenerateRequest{Model: "llama3.1:8b", Messages: sentimentPrompt()}, func(d string) {
		deltas++
		b.WriteString(d)
	})
	if err != nil {
		t.Fatalf("GenerateStream: %v", err)
	}
	if deltas != 4 || b.String() != "**Southwest** has 27.0% late." {
		t.Fatalf("got %d deltas %q", deltas, b.String())
	}
}

func TestOllamaRetriesServerError(t *testing.T) {
	var calls int32
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]any{"error": "model is loading"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]any{"role": "assistant", "content": "ready"},
			"done":    true,
		})
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, HTTPOptions{Retry: RetryPolicy{Attempts: 2, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}})
	resp, err := c.Generate(context.Background(), GenerateRequest{Model: "llama3.1:8b", Messages: sentimentPrompt()})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if atomic.LoadInt32(&calls) != 2 || resp.Choices[0].Message.Content != "ready" {
		t.Fatalf("calls=%d resp=%+v", calls, resp)
	}
}
