package ai

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

const defaultOllamaHost = "http://127.0.0.1:11434"

// OllamaClient calls a local Ollama daemon's /api/chat endpoint.
type OllamaClient struct {
	http  *http.Client
	host  string
	retry RetryPolicy
}

// NewOllamaClient targets host, or the default local daemon when host is
// empty. opts.BaseURL is ignored; the host is the base.
func NewOllamaClient(host string, opts HTTPOptions) *OllamaClient {
	host = strings.TrimRight(host, "/")
	if host == "" {
		host = defaultOllamaHost
	}
	return &OllamaClient{
		http:  opts.client(60 * time.Second),
		host:  host,
		retry: opts.Retry.orDefault(2, 200*time.Millisecond, time.Second),
	}
}

type ollamaChatRequest struct {
	Model    string         `json:"model"`
	Messages []Message      `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

// ollamaChatChunk is both the full reply and one NDJSON stream line.
type ollamaChatChunk struct {
	Message Message `json:"message"`
	Done    bool    `json:"done"`
}

func ollamaBody(req GenerateRequest, stream bool) ([]byte, error) {
	if len(req.Messages) == 0 {
		return nil, errors.New("messages cannot be empty")
	}
	if req.Model == "" {
		return nil, errors.New("model cannot be empty")
	}
	opts := map[string]any{}
	if req.Temperature > 0 {
		opts["temperature"] = req.Temperature
	}
	if req.MaxTokens > 0 {
		opts["num_predict"] = req.MaxTokens
	}
	b, err := json.Marshal(ollamaChatRequest{Model: req.Model, Messages: req.Messages, Stream: stream, Options: opts})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	return b, nil
}

// post sends body and returns a 2xx response, or a typed error. Transport
// failures become *UnreachableError.
func (c *OllamaClient) post(ctx context.Context, body []byte) (*http.Response, error) {
	r, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	r.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(r)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &UnreachableError{Host: c.host, Err: err}
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()
	apiErr := readAPIError(resp)
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, &ModelNotFoundError{APIError: apiErr}
	case resp.StatusCode == http.StatusBadRequest:
		return nil, &BadRequestError{APIError: apiErr}
	case resp.StatusCode >= 500:
		return nil, &ServerError{APIError: apiErr}
	}
	return nil, apiErr
}

// Generate asks for one non-streamed reply. Server errors and timeouts are
// retried within the policy.
func (c *OllamaClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	body, err := ollamaBody(req, false)
	if err != nil {
		return nil, err
	}
	for attempt := 1; ; attempt++ {
		resp, err := c.post(ctx, body)
		if err == nil {
			return decodeOllama(resp)
		}
		if attempt >= c.retry.Attempts || !ollamaRetryable(err) {
			return nil, err
		}
		if err := sleepCtx(ctx, c.retry.delay(attempt)); err != nil {
			return nil, err
		}
	}
}

func ollamaRetryable(err error) bool {
	var (
		srv *ServerError
		un  *UnreachableError
	)
	if errors.As(err, &srv) {
		return true
	}
	return errors.As(err, &un) && isRetryableNetErr(un.Err)
}

func decodeOllama(resp *http.Response) (*GenerateResponse, error) {
	defer resp.Body.Close()
	var chunk ollamaChatChunk
	if err := json.NewDecoder(resp.Body).Decode(&chunk); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &GenerateResponse{
		Choices: []Choice{{Message: Message{Role: "assistant", Content: chunk.Message.Content}}},
		// Ollama sends no request id.
		RequestID: fmt.Sprintf("ollama_%d", time.Now().UnixNano()),
	}, nil
}

// GenerateStream decodes Ollama's NDJSON stream until a done line or EOF.
func (c *OllamaClient) GenerateStream(ctx context.Context, req GenerateRequest, onDelta func(string)) error {
	body, err := ollamaBody(req, true)
	if err != nil {
		return err
	}
	resp, err := c.post(ctx, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	dec := json.NewDecoder(resp.Body)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		var chunk ollamaChatChunk
		if err := dec.Decode(&chunk); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("decode stream: %w", err)
		}
		if chunk.Message.Content != "" {
			onDelta(chunk.Message.Content)
		}
		if chunk.Done {
			return nil
		}
	}
}
