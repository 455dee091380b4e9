package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const openRouterURL = "https://openrouter.ai/api/v1"

// OpenRouterClient calls the OpenRouter chat completions API.
type OpenRouterClient struct {
	http    *http.Client
	apiKey  string
	baseURL string
	retry   RetryPolicy
}

// NewOpenRouterClient builds a client. Zero options mean a 60s timeout and
// three attempts backing off from 500ms up to 4s.
func NewOpenRouterClient(apiKey string, opts HTTPOptions) *OpenRouterClient {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = openRouterURL
	}
	return &OpenRouterClient{
		http:    opts.client(60 * time.Second),
		apiKey:  apiKey,
		baseURL: base,
		retry:   opts.Retry.orDefault(3, 500*time.Millisecond, 4*time.Second),
	}
}

func (c *OpenRouterClient) check(req GenerateRequest) error {
	if c.apiKey == "" {
		return errors.New("OpenRouter API key is missing (set api_key or SHIPSIGHT_API_KEY)")
	}
	if req.Model == "" {
		return errors.New("model cannot be empty")
	}
	return nil
}

func (c *OpenRouterClient) post(ctx context.Context, body []byte) (*http.Response, error) {
	r, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	r.Header.Set("Authorization", "Bearer "+c.apiKey)
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("HTTP-Referer", "https://github.com/KaramelBytes/shipsight")
	r.Header.Set("X-Title", "ShipSight")
	return c.http.Do(r)
}

// Generate posts one completion. 429s, 5xx and network timeouts are retried
// within the policy; a Retry-After header replaces the backoff delay.
func (c *OpenRouterClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if err := c.check(req); err != nil {
		return nil, err
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	for attempt := 1; ; attempt++ {
		final := attempt >= c.retry.Attempts
		resp, err := c.post(ctx, body)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if final || !isRetryableNetErr(err) {
				return nil, fmt.Errorf("http request: %w", err)
			}
			if err := sleepCtx(ctx, c.retry.delay(attempt)); err != nil {
				return nil, err
			}
			continue
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return decodeCompletion(resp)
		}
		apiErr := readAPIError(resp)
		wait := retryAfter(resp)
		resp.Body.Close()
		if final || !retryableStatus(apiErr.StatusCode) {
			return nil, classifyOpenRouterError(apiErr, wait)
		}
		if wait <= 0 {
			wait = c.retry.delay(attempt)
		}
		if err := sleepCtx(ctx, wait); err != nil {
			return nil, err
		}
	}
}

func decodeCompletion(resp *http.Response) (*GenerateResponse, error) {
	defer resp.Body.Close()
	var out GenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	out.RequestID = requestID(resp)
	return &out, nil
}

// classifyOpenRouterError turns a status and body into one of the typed
// errors in errors.go. Unrecognised failures stay as *APIError.
func classifyOpenRouterError(apiErr *APIError, wait time.Duration) error {
	sc, msg := apiErr.StatusCode, apiErr.Message
	switch {
	case sc == http.StatusUnauthorized || sc == http.StatusForbidden:
		return &AuthError{APIError: apiErr}
	case sc == http.StatusTooManyRequests:
		return &RateLimitError{APIError: apiErr, RetryAfter: wait}
	case sc == http.StatusNotFound:
		if apiErr.Code == "model_not_found" || (containsFold(msg, "model") && containsFold(msg, "not found")) {
			return &ModelNotFoundError{APIError: apiErr}
		}
	case sc == http.StatusBadRequest:
		return &BadRequestError{APIError: apiErr}
	case apiErr.Code == "quota_exceeded" || containsAnyFold(msg, "quota", "billing", "limit exceeded"):
		return &QuotaExceededError{APIError: apiErr}
	case sc >= 500:
		return &ServerError{APIError: apiErr}
	}
	return apiErr
}

type openRouterDelta struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// GenerateStream reads OpenRouter's server-sent events and hands each
// content delta to onDelta. Streams are not retried.
func (c *OpenRouterClient) GenerateStream(ctx context.Context, req GenerateRequest, onDelta func(string)) error {
	if err := c.check(req); err != nil {
		return err
	}
	body, err := json.Marshal(struct {
		GenerateRequest
		Stream bool `json:"stream"`
	}{req, true})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	resp, err := c.post(ctx, body)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return classifyOpenRouterError(readAPIError(resp), retryAfter(resp))
	}
	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64<<10), 1<<20)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, ok := strings.CutPrefix(sc.Text(), "data:")
		if !ok {
			continue
		}
		data = strings.TrimSpace(data)
		if data == "[DONE]" {
			return nil
		}
		var d openRouterDelta
		if json.Unmarshal([]byte(data), &d) == nil && len(d.Choices) > 0 && d.Choices[0].Delta.Content != "" {
			onDelta(d.Choices[0].Delta.Content)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("stream read: %w", err)
	}
	return nil
}
