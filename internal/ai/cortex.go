package ai

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// cortexQuery calls the warehouse LLM function. Model and prompt are bound
// parameters, never spliced into the SQL text.
const cortexQuery = `SELECT SNOWFLAKE.CORTEX.COMPLETE(?, ?) AS response`

// CortexClient runs completions inside the warehouse through
// SNOWFLAKE.CORTEX.COMPLETE, so the prompt never leaves it.
type CortexClient struct {
	db *sql.DB
}

// NewCortexClient returns a Cortex runtime on an open warehouse connection.
func NewCortexClient(db *sql.DB) *CortexClient { return &CortexClient{db: db} }

// cortexPrompt flattens a conversation into the single prompt string the
// function's simple form accepts.
func cortexPrompt(msgs []Message) string {
	if len(msgs) == 1 {
		return msgs[0].Content
	}
	var b strings.Builder
	for i, m := range msgs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		switch m.Role {
		case "system":
			b.WriteString(m.Content)
		case "assistant":
			b.WriteString("Assistant: " + m.Content)
		default:
			b.WriteString("User: " + m.Content)
		}
	}
	return b.String()
}

// Generate runs one completion. Cortex takes no generation options in its
// simple form so MaxTokens and Temperature are ignored.
func (c *CortexClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if req.Model == "" {
		return nil, errors.New("model cannot be empty")
	}
	if len(req.Messages) == 0 {
		return nil, errors.New("messages cannot be empty")
	}
	var out sql.NullString
	if err := c.db.QueryRowContext(ctx, cortexQuery, req.Model, cortexPrompt(req.Messages)).Scan(&out); err != nil {
		return nil, fmt.Errorf("cortex complete: %w", err)
	}
	if !out.Valid {
		return nil, errors.New("cortex complete returned no response")
	}
	return &GenerateResponse{
		Choices: []Choice{{Message: Message{Role: "assistant", Content: strings.TrimSpace(out.String)}}},
	}, nil
}
