package ai

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// GeminiOptions tweaks the Gemini client. BaseURL points tests at a local
// server.
type GeminiOptions struct {
	BaseURL string
}

// GeminiClient generates completions through the Gemini API.
type GeminiClient struct {
	client *genai.Client
}

// NewGeminiClient creates a Gemini runtime authenticated with apiKey.
func NewGeminiClient(apiKey string, opts GeminiOptions) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, errors.New("Gemini API key is missing (set gemini_api_key or SHIPSIGHT_GEMINI_API_KEY)")
	}
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}
	client, err := genai.NewClient(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiClient{client: client}, nil
}

// geminiContents splits system messages into the system instruction and
// maps the remaining turns onto Gemini roles.
func geminiContents(msgs []Message) (*genai.Content, []*genai.Content) {
	var system *genai.Content
	contents := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case "system":
			if system == nil {
				system = genai.NewContentFromText(m.Content, genai.RoleUser)
			} else {
				system.Parts = append(system.Parts, genai.NewPartFromText(m.Content))
			}
		case "assistant":
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	return system, contents
}

func geminiConfig(req GenerateRequest, system *genai.Content) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{SystemInstruction: system}
	if req.Temperature > 0 {
		cfg.Temperature = genai.Ptr(float32(req.Temperature))
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	return cfg
}

// Generate sends the conversation to Gemini and returns the first candidate.
func (c *GeminiClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if req.Model == "" {
		return nil, errors.New("model cannot be empty")
	}
	system, contents := geminiContents(req.Messages)
	if len(contents) == 0 {
		return nil, errors.New("messages cannot be empty")
	}
	resp, err := c.client.Models.GenerateContent(ctx, req.Model, contents, geminiConfig(req, system))
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}
	out := &GenerateResponse{
		ID:      resp.ResponseID,
		Choices: []Choice{{Message: Message{Role: "assistant", Content: resp.Text()}}},
	}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = Usage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}
	return out, nil
}

// GenerateStream streams Gemini's partial responses.
func (c *GeminiClient) GenerateStream(ctx context.Context, req GenerateRequest, onDelta func(string)) error {
	if req.Model == "" {
		return errors.New("model cannot be empty")
	}
	system, contents := geminiContents(req.Messages)
	if len(contents) == 0 {
		return errors.New("messages cannot be empty")
	}
	for resp, err := range c.client.Models.GenerateContentStream(ctx, req.Model, contents, geminiConfig(req, system)) {
		if err != nil {
			return fmt.Errorf("gemini stream: %w", err)
		}
		if t := resp.Text(); t != "" {
			onDelta(t)
		}
	}
	return nil
}
