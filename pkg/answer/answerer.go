// Package answer chooses a backend for each question and produces the reply.
package answer

import (
	"context"
	"fmt"
	"strings"

	"github.com/kakapo-ai/kakapo/pkg/config"
	"github.com/kakapo-ai/kakapo/pkg/encyclopedia"
	"github.com/kakapo-ai/kakapo/pkg/llm"
	"github.com/kakapo-ai/kakapo/pkg/models"
	"github.com/kakapo-ai/kakapo/pkg/vision"
)

// DefaultImageQuestion is asked when an image arrives without a question.
const DefaultImageQuestion = "Is this a kakapo?"

// SmokeQuestion is the fixed question used by the self test.
const SmokeQuestion = "What is a kakapo?"

// Generator produces model completions.
type Generator interface {
	Configured() bool
	Generate(ctx context.Context, model, systemPrompt, question string) (*llm.Completion, error)
	GenerateWithImage(ctx context.Context, model, systemPrompt, question string, image []byte, mimeType string) (*llm.Completion, error)
}

// ModelResolver returns the model to use for a call.
type ModelResolver interface {
	Resolve(ctx context.Context, preferVision bool) (string, error)
}

// Encyclopedia answers from the public encyclopedia. It never fails.
type Encyclopedia interface {
	Answer(ctx context.Context, raw string) encyclopedia.Result
}

// Budget refuses model calls once the token cap is spent.
type Budget interface {
	Check(ctx context.Context) error
}

// Answerer routes questions to the model or the encyclopedia.
type Answerer struct {
	mode     string
	prompt   string
	keywords []string

	gen      Generator
	resolver ModelResolver
	enc      Encyclopedia
	budget   Budget
}

// New creates an Answerer. enc may be nil when mode is llm; budget may be nil.
func New(cfg *config.Config, gen Generator, resolver ModelResolver, enc Encyclopedia, budget Budget) *Answerer {
	prompt := cfg.LLM.SystemPrompt
	if prompt == "" {
		prompt = config.DefaultSystemPrompt
	}
	return &Answerer{
		mode:     cfg.EffectiveMode(),
		prompt:   prompt,
		keywords: cfg.Topic.Keywords,
		gen:      gen,
		resolver: resolver,
		enc:      enc,
		budget:   budget,
	}
}

// Mode returns the effective backend, llm or encyclopedia.
func (a *Answerer) Mode() string { return a.mode }

// Ask answers a text question with the configured backend.
func (a *Answerer) Ask(ctx context.Context, question string) (*models.Answer, error) {
	onTopic := OnTopic(question, a.keywords)

	if a.mode == config.ModeEncyclopedia {
		if a.enc == nil {
			return nil, fmt.Errorf("encyclopedia backend not configured")
		}
		r := a.enc.Answer(ctx, question)
		return &models.Answer{
			Text:    r.Text,
			Source:  models.SourceEncyclopedia,
			Title:   r.Title,
			OnTopic: onTopic,
			Cached:  r.Cached,
		}, nil
	}

	model, err := a.prepare(ctx, false)
	if err != nil {
		return nil, err
	}
	c, err := a.gen.Generate(ctx, model, a.prompt, question)
	if err != nil {
		return nil, err
	}
	return &models.Answer{
		Text:    c.Text,
		Source:  models.SourceLLM,
		Model:   c.Model,
		OnTopic: onTopic,
		Usage:   c.Usage,
	}, nil
}

// Vision answers a question about an image. It always uses the model backend.
func (a *Answerer) Vision(ctx context.Context, image []byte, question string) (*models.Answer, error) {
	if strings.TrimSpace(question) == "" {
		question = DefaultImageQuestion
	}
	model, err := a.prepare(ctx, true)
	if err != nil {
		return nil, err
	}
	c, err := a.gen.GenerateWithImage(ctx, model, a.prompt, question, image, vision.MIMEType(image))
	if err != nil {
		return nil, err
	}
	return &models.Answer{
		Text:    c.Text,
		Source:  models.SourceLLM,
		Model:   c.Model,
		OnTopic: OnTopic(question, a.keywords),
		Usage:   c.Usage,
	}, nil
}

// prepare runs the checks every model call needs and returns the model to use.
func (a *Answerer) prepare(ctx context.Context, preferVision bool) (string, error) {
	if a.gen == nil || !a.gen.Configured() {
		return "", llm.ErrNoAPIKey
	}
	if a.budget != nil {
		if err := a.budget.Check(ctx); err != nil {
			return "", err
		}
	}
	return a.resolver.Resolve(ctx, preferVision)
}

// OnTopic reports whether question mentions any of keywords, case-insensitively.
func OnTopic(question string, keywords []string) bool {
	q := strings.ToLower(question)
	for _, k := range keywords {
		if k != "" && strings.Contains(q, strings.ToLower(k)) {
			return true
		}
	}
	return false
}
