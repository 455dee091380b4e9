package ai

import (
	"context"
	"errors"
	"strings"
)

// Runtime is implemented by completion backends: hosted HTTP APIs
// (OpenRouter, Gemini), a local Ollama and the warehouse's own LLM
// functions (Cortex).
type Runtime interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

// Message is one chat turn; Role is system, user or assistant.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerateRequest is the provider-neutral completion request. Its JSON form
// is the OpenAI-style body OpenRouter accepts as is.
type GenerateRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type Choice struct {
	Message Message `json:"message"`
}

type GenerateResponse struct {
	ID      string   `json:"id"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
	// RequestID comes from response headers, for log correlation.
	RequestID string `json:"-"`
}

// Provider identifiers used in config and on the command line.
const (
	ProviderCortex     = "cortex"
	ProviderOpenRouter = "openrouter"
	ProviderGemini     = "gemini"
	ProviderOllama     = "ollama"
)

// StreamRuntime is an optional extension that supports streaming output.
// Implementors should invoke onDelta with each partial content chunk.
type StreamRuntime interface {
	GenerateStream(ctx context.Context, req GenerateRequest, onDelta func(string)) error
}

// Completer turns a single prompt into a single answer.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// StreamCompleter is a Completer that can hand the answer over in pieces.
type StreamCompleter interface {
	Completer
	CompleteStream(ctx context.Context, prompt string, onDelta func(string)) error
}

var _ StreamCompleter = (*RuntimeCompleter)(nil)

// RuntimeCompleter adapts a Runtime to Completer with fixed generation
// settings.
type RuntimeCompleter struct {
	Runtime     Runtime
	Model       string
	MaxTokens   int
	Temperature float64
}

// Complete sends prompt as one user message and returns the first choice.
func (c *RuntimeCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	if c.Runtime == nil {
		return "", errors.New("no completion runtime configured")
	}
	resp, err := c.Runtime.Generate(ctx, GenerateRequest{
		Model:       c.Model,
		Messages:    []Message{{Role: "user", Content: prompt}},
		MaxTokens:   c.MaxTokens,
		Temperature: c.Temperature,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("completion returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// CompleteStream streams the answer when the runtime supports it and falls
// back to a single delta otherwise.
func (c *RuntimeCompleter) CompleteStream(ctx context.Context, prompt string, onDelta func(string)) error {
	if c.Runtime == nil {
		return errors.New("no completion runtime configured")
	}
	if sr, ok := c.Runtime.(StreamRuntime); ok {
		return sr.GenerateStream(ctx, GenerateRequest{
			Model:       c.Model,
			Messages:    []Message{{Role: "user", Content: prompt}},
			MaxTokens:   c.MaxTokens,
			Temperature: c.Temperature,
		}, onDelta)
	}
	out, err := c.Complete(ctx, prompt)
	if err != nil {
		return err
	}
	onDelta(out)
	return nil
}
