// Package openai provides a DraftGenerator implementation using OpenAI-compatible chat APIs.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/sashabaranov/go-openai"

	"github.com/ersonp/pagewatch/internal/domain/entities"
	"github.com/ersonp/pagewatch/internal/domain/ports"
	"github.com/ersonp/pagewatch/internal/infrastructure/config"
)

const defaultModel = "gpt-4o-mini"

// Client implements the DraftGenerator interface using OpenAI.
type Client struct {
	client   *openai.Client
	model    string
	sanitize *bluemonday.Policy
}

// NewClient creates a new OpenAI draft client.
func NewClient(cfg config.LLMConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	model := defaultModel
	if cfg.Model != "" {
		model = cfg.Model
	}

	return &Client{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    model,
		sanitize: bluemonday.StrictPolicy(),
	}, nil
}

// GenerateDraft asks the model for a summary of the payload. The answer is
// returned as plain text with any markup removed.
func (c *Client) GenerateDraft(ctx context.Context, systemPrompt string, payload entities.DraftPayload) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", &ports.GenerationError{Err: fmt.Errorf("marshaling payload: %w", err)}
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: string(data),
			},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return "", &ports.GenerationError{Err: fmt.Errorf("calling OpenAI: %w", err)}
	}

	if len(resp.Choices) == 0 {
		return "", &ports.GenerationError{Err: errors.New("no response from OpenAI")}
	}

	draft := c.plainText(resp.Choices[0].Message.Content)
	if draft == "" {
		return "", &ports.GenerationError{Err: errors.New("empty response from OpenAI")}
	}
	return draft, nil
}

// plainText strips code fences and HTML from a model answer.
func (c *Client) plainText(content string) string {
	content = stripCodeFence(content)
	content = html.UnescapeString(c.sanitize.Sanitize(content))
	return strings.TrimSpace(content)
}

// stripCodeFence removes a surrounding markdown code block if present.
func stripCodeFence(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}

	content = strings.TrimPrefix(content, "```")
	// Drop an info string such as "markdown" on the opening fence.
	if nl := strings.IndexByte(content, '\n'); nl >= 0 && !strings.ContainsAny(content[:nl], " -*") {
		content = content[nl+1:]
	}
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")

	return strings.TrimSpace(content)
}
