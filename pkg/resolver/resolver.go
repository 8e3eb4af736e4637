package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/kakapo-ai/kakapo/pkg/config"
	"github.com/kakapo-ai/kakapo/pkg/metrics"
	"github.com/rs/zerolog/log"
)

// ErrNoModelAvailable is returned when every candidate model failed its probe.
var ErrNoModelAvailable = errors.New("no available models found, check the API key and quota")

// Prober checks whether a model can be used.
type Prober interface {
	Probe(ctx context.Context, model string) error
}

// Resolver picks the first usable model from an ordered candidate list.
type Resolver struct {
	prober Prober
	text   []string
	vision []string
	once   bool

	mu     sync.Mutex
	cached map[bool]string
}

// New creates a Resolver from the LLM configuration.
func New(cfg config.LLMConfig, p Prober) *Resolver {
	return &Resolver{
		prober: p,
		text:   cfg.TextModels,
		vision: cfg.VisionModels,
		once:   cfg.ResolveOnce,
		cached: make(map[bool]string, 2),
	}
}

// Candidates returns the ordered candidate list for the given preference.
func (r *Resolver) Candidates(preferVision bool) []string {
	if preferVision {
		return r.vision
	}
	return r.text
}

// Resolve returns the first candidate that answers a probe. It makes a single pass
// over the list; when every probe fails the returned error wraps ErrNoModelAvailable
// and lists each failure.
func (r *Resolver) Resolve(ctx context.Context, preferVision bool) (string, error) {
	if r.once {
		r.mu.Lock()
		defer r.mu.Unlock()
		if m, ok := r.cached[preferVision]; ok {
			return m, nil
		}
	}

	candidates := r.Candidates(preferVision)
	if len(candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates configured", ErrNoModelAvailable)
	}

	var failures []string
	for _, model := range candidates {
		if err := r.prober.Probe(ctx, model); err != nil {
			log.Warn().Err(err).Str("model", model).Msg("model not available")
			metrics.ModelAttempts.WithLabelValues(model, "unavailable").Inc()
			failures = append(failures, fmt.Sprintf("%s: %v", model, err))
			if ctx.Err() != nil {
				break
			}
			continue
		}
		log.Info().Str("model", model).Bool("vision", preferVision).Msg("using model")
		metrics.ModelAttempts.WithLabelValues(model, "ok").Inc()
		if r.once {
			r.cached[preferVision] = model
		}
		return model, nil
	}

	return "", fmt.Errorf("%w (%s)", ErrNoModelAvailable, strings.Join(failures, "; "))
}

// Forget drops any memoized choice so the next Resolve probes again.
func (r *Resolver) Forget() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.cached)
}
