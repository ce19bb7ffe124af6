// Package llm wraps the hosted Gemini API behind a small text generation
// interface used by the chat service.
package llm

import (
	"chatopia-backend/internal/models"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"go.uber.org/zap"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.0-flash"

// ErrEmptyResponse is returned when the model produced no candidates.
var ErrEmptyResponse = errors.New("model returned no content")

// Turn is one prior exchange passed to the model as context.
type Turn struct {
	Role models.Role
	Text string
}

// GeminiClient generates text with a Gemini model.
type GeminiClient struct {
	model  llms.Model
	logger *zap.Logger
}

// NewGeminiClient builds a client for the given API key and model name.
func NewGeminiClient(ctx context.Context, apiKey, model string, logger *zap.Logger) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	if model == "" {
		model = DefaultModel
	}
	m, err := googleai.New(ctx,
		googleai.WithAPIKey(apiKey),
		googleai.WithDefaultModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	logger.Info("gemini client initialized", zap.String("model", model))
	return NewClient(m, logger), nil
}

// NewClient wraps any langchaingo model. Tests use it with a fake model.
func NewClient(model llms.Model, logger *zap.Logger) *GeminiClient {
	return &GeminiClient{model: model, logger: logger.Named("gemini")}
}

// Generate sends prompt to the model. When history is non-empty the call is a
// multi-turn chat whose final user turn is prompt; otherwise it is a single
// prompt completion.
func (c *GeminiClient) Generate(ctx context.Context, prompt string, history []Turn) (string, error) {
	if len(history) == 0 {
		text, err := llms.GenerateFromSinglePrompt(ctx, c.model, prompt)
		if err != nil {
			return "", fmt.Errorf("generate content: %w", err)
		}
		return text, nil
	}

	resp, err := c.model.GenerateContent(ctx, BuildMessages(prompt, history))
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	c.logger.Debug("generation finished",
		zap.Int("history_turns", len(history)),
		zap.String("stop_reason", resp.Choices[0].StopReason),
	)
	return resp.Choices[0].Content, nil
}

// BuildMessages converts stored turns into model messages. Assistant turns
// become the model's own turns, user turns the human side. prompt is appended
// as a final human turn unless history already ends with it.
func BuildMessages(prompt string, history []Turn) []llms.MessageContent {
	messages := make([]llms.MessageContent, 0, len(history)+1)
	for _, t := range history {
		messages = append(messages, llms.TextParts(messageType(t.Role), t.Text))
	}

	if n := len(history); n == 0 || history[n-1].Role != models.RoleUser || history[n-1].Text != prompt {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, prompt))
	}
	return messages
}

func messageType(role models.Role) llms.ChatMessageType {
	if role == models.RoleAssistant {
		return llms.ChatMessageTypeAI
	}
	return llms.ChatMessageTypeHuman
}

// TurnsFromMessages maps stored messages to generation turns, skipping blanks.
func TurnsFromMessages(msgs []models.Message) []Turn {
	turns := make([]Turn, 0, len(msgs))
	for _, m := range msgs {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		turns = append(turns, Turn{Role: m.Role, Text: m.Content})
	}
	return turns
}
