package encyclopedia

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/kakapo-ai/kakapo/pkg/metrics"
	"github.com/kakapo-ai/kakapo/pkg/querynorm"
	"github.com/rs/zerolog/log"
)

// Canned replies. Lookup never surfaces an error to its caller.
const (
	NotFoundReply    = "Sorry, I couldn't find any information about that."
	UnavailableReply = "Sorry, I'm having trouble reaching the encyclopedia right now. Please try again later."
)

// Searcher is the two-step search-then-extract backend.
type Searcher interface {
	Search(ctx context.Context, query string) (*SearchResult, error)
	Extract(ctx context.Context, title string) (string, error)
}

// AnswerCache memoizes answers by raw query string.
type AnswerCache interface {
	Get(ctx context.Context, query string) (string, bool)
	Put(ctx context.Context, query, answer string) error
}

// Result is the outcome of one lookup.
type Result struct {
	Text   string
	Title  string
	Query  string // the query actually searched
	Found  bool
	Cached bool
}

// Lookup runs normalize → search → extract → truncate, in front of a memo cache.
// With spelling enabled, a search that finds nothing is retried once with the
// engine's suggestion.
type Lookup struct {
	searcher  Searcher
	cache     AnswerCache
	sentences int
	spelling  bool
}

// NewLookup creates a Lookup. cache may be nil.
func NewLookup(s Searcher, cache AnswerCache, sentences int, spelling bool) *Lookup {
	if sentences <= 0 {
		sentences = 3
	}
	return &Lookup{searcher: s, cache: cache, sentences: sentences, spelling: spelling}
}

// cacheEntry is the memoized form of a found Result.
type cacheEntry struct {
	Title string `json:"title"`
	Query string `json:"query"`
	Text  string `json:"text"`
}

func encodeEntry(r Result) (string, error) {
	b, err := json.Marshal(cacheEntry{Title: r.Title, Query: r.Query, Text: r.Text})
	return string(b), err
}

// decodeEntry reads a cached value. Values that are not entries are answer text.
func decodeEntry(v string) Result {
	var e cacheEntry
	if strings.HasPrefix(v, "{") && json.Unmarshal([]byte(v), &e) == nil && e.Text != "" {
		return Result{Text: e.Text, Title: e.Title, Query: e.Query, Found: true, Cached: true}
	}
	return Result{Text: v, Found: true, Cached: true}
}

// Answer returns the extract answering raw. Failures produce a canned reply with
// Found false; only found answers are cached.
func (l *Lookup) Answer(ctx context.Context, raw string) Result {
	if l.cache != nil {
		if v, ok := l.cache.Get(ctx, raw); ok {
			metrics.CacheLookups.WithLabelValues("hit").Inc()
			metrics.EncyclopediaLookups.WithLabelValues("cached").Inc()
			return decodeEntry(v)
		}
		metrics.CacheLookups.WithLabelValues("miss").Inc()
	}

	query := querynorm.Fallback(raw)
	logger := log.With().Str("raw", raw).Logger()

	hit, err := l.searcher.Search(ctx, query)
	if err == nil && hit.Title == "" && l.spelling && hit.Suggestion != "" && hit.Suggestion != query {
		logger.Debug().Str("query", query).Str("suggestion", hit.Suggestion).Msg("retrying with spelling suggestion")
		query = hit.Suggestion
		hit, err = l.searcher.Search(ctx, query)
	}
	logger = logger.With().Str("query", query).Logger()
	if err != nil {
		logger.Error().Err(err).Msg("encyclopedia search failed")
		metrics.EncyclopediaLookups.WithLabelValues("error").Inc()
		return Result{Text: UnavailableReply, Query: query}
	}
	if hit.Title == "" {
		logger.Info().Msg("encyclopedia search found nothing")
		metrics.EncyclopediaLookups.WithLabelValues("not_found").Inc()
		return Result{Text: NotFoundReply, Query: query}
	}

	extract, err := l.searcher.Extract(ctx, hit.Title)
	if err != nil {
		logger.Error().Err(err).Str("title", hit.Title).Msg("encyclopedia extract failed")
		metrics.EncyclopediaLookups.WithLabelValues("error").Inc()
		return Result{Text: UnavailableReply, Title: hit.Title, Query: query}
	}
	if extract == "" {
		metrics.EncyclopediaLookups.WithLabelValues("not_found").Inc()
		return Result{Text: NotFoundReply, Title: hit.Title, Query: query}
	}

	res := Result{
		Text:  strings.Join(strings.Fields(FirstSentences(extract, l.sentences)), " "),
		Title: hit.Title,
		Query: query,
		Found: true,
	}
	if l.cache != nil {
		if v, err := encodeEntry(res); err != nil {
			logger.Warn().Err(err).Msg("encode cache entry")
		} else if err := l.cache.Put(ctx, raw, v); err != nil {
			logger.Warn().Err(err).Msg("cache put failed")
		}
	}
	metrics.EncyclopediaLookups.WithLabelValues("found").Inc()
	logger.Debug().Str("title", hit.Title).Msg("encyclopedia answer")
	return res
}
