// Package llm talks to the hosted model backend through its OpenAI-compatible API.
package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/kakapo-ai/kakapo/pkg/config"
	"github.com/kakapo-ai/kakapo/pkg/metrics"
	"github.com/kakapo-ai/kakapo/pkg/models"
	openai "github.com/sashabaranov/go-openai"
)

// ErrNoAPIKey is returned by every call when no API key is configured.
var ErrNoAPIKey = errors.New("GEMINI_API_KEY not configured")

// Completion is a single generated answer.
type Completion struct {
	Text  string
	Model string
	Usage *models.Usage
}

// Client wraps an OpenAI-compatible client with a fixed per-call timeout.
type Client struct {
	api     *openai.Client
	apiKey  string
	timeout time.Duration
}

// New creates a Client from the LLM configuration.
func New(cfg config.LLMConfig) *Client {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &Client{
		api:     openai.NewClientWithConfig(oc),
		apiKey:  cfg.APIKey,
		timeout: cfg.Timeout,
	}
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// Probe checks that model exists and is reachable with the configured key.
func (c *Client) Probe(ctx context.Context, model string) error {
	if !c.Configured() {
		return ErrNoAPIKey
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	if _, err := c.api.GetModel(ctx, model); err != nil {
		return fmt.Errorf("get model %s: %w", model, err)
	}
	return nil
}

// Generate answers question with model, prefixing the system prompt the way
// the chatbot always has: one user turn holding both.
func (c *Client) Generate(ctx context.Context, model, systemPrompt, question string) (*Completion, error) {
	prompt := systemPrompt + "\n\nUser question: " + question
	return c.complete(ctx, model, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})
}

// GenerateWithImage answers a question about an image. mimeType defaults to image/jpeg.
func (c *Client) GenerateWithImage(ctx context.Context, model, systemPrompt, question string, image []byte, mimeType string) (*Completion, error) {
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	dataURL := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(image)

	return c.complete(ctx, model, openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser,
		MultiContent: []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: systemPrompt + "\n\n" + question},
			{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
				URL:    dataURL,
				Detail: openai.ImageURLDetailAuto,
			}},
		},
	})
}

func (c *Client) complete(ctx context.Context, model string, msg openai.ChatCompletionMessage) (*Completion, error) {
	if !c.Configured() {
		return nil, ErrNoAPIKey
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    model,
		Messages: []openai.ChatCompletionMessage{msg},
	})
	metrics.InferenceLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("generate with %s: %w", model, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("generate with %s: empty response", model)
	}

	out := &Completion{
		Text:  resp.Choices[0].Message.Content,
		Model: model,
	}
	if resp.Model != "" {
		out.Model = resp.Model
	}
	if resp.Usage.TotalTokens > 0 {
		out.Usage = &models.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}
	return out, nil
}

// ListModels returns the generation models visible to the configured key,
// sorted by name. Embedding models are skipped.
func (c *Client) ListModels(ctx context.Context) ([]models.ModelInfo, error) {
	if !c.Configured() {
		return nil, ErrNoAPIKey
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	list, err := c.api.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}

	out := make([]models.ModelInfo, 0, len(list.Models))
	for _, m := range list.Models {
		if strings.Contains(m.ID, "embedding") {
			continue
		}
		out = append(out, models.ModelInfo{
			Name:        m.ID,
			DisplayName: strings.TrimPrefix(m.ID, "models/"),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
