package encyclopedia

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kakapo-ai/kakapo/pkg/cache/memory"
	"github.com/kakapo-ai/kakapo/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const kakapoExtract = "The kākāpō (Strigops habroptilus) is a species of large, flightless, nocturnal parrot. " +
	"It is endemic to New Zealand.\nKākāpō can live for up to 90 years! " +
	"They are critically endangered. As of 2024 there are 244 known living individuals."

// fakeWiki emulates the MediaWiki action API for search and extracts.
type fakeWiki struct {
	calls       atomic.Int64
	suggestions map[string]string
	titles      map[string]string
	extracts    map[string]string
	lastSearch  atomic.Value
}

func newFakeWiki() *fakeWiki {
	return &fakeWiki{
		suggestions: map[string]string{"kakapoo": "kakapo"},
		titles:      map[string]string{"kakapo": "Kākāpō", "kakapo diet": "Kākāpō"},
		extracts:    map[string]string{"Kākāpō": kakapoExtract},
	}
}

func (f *fakeWiki) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.calls.Add(1)
	q := r.URL.Query()
	if q.Get("format") != "json" || q.Get("action") != "query" {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	switch {
	case q.Get("list") == "search":
		term := q.Get("srsearch")
		f.lastSearch.Store(term)
		resp := map[string]any{"query": map[string]any{
			"searchinfo": map[string]any{"suggestion": f.suggestions[term]},
			"search":     []map[string]any{},
		}}
		if title, ok := f.titles[term]; ok {
			resp["query"].(map[string]any)["search"] = []map[string]any{{"ns": 0, "title": title}}
		}
		_ = json.NewEncoder(w).Encode(resp)
	case q.Get("prop") == "extracts":
		title := q.Get("titles")
		page := map[string]any{"title": title}
		if ex, ok := f.extracts[title]; ok {
			page["extract"] = ex
		} else {
			page["missing"] = true
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"query": map[string]any{"pages": []any{page}}})
	default:
		http.Error(w, "unsupported", http.StatusBadRequest)
	}
}

func newTestLookup(t *testing.T, fake http.Handler, spelling bool) *Lookup {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client := NewClient(config.EncyclopediaConfig{BaseURL: srv.URL + "/w/api.php", Timeout: 5 * time.Second})
	c, err := memory.New(128)
	require.NoError(t, err)

	return NewLookup(client, c, 3, spelling)
}

func TestAnswerTruncatesToThreeSentences(t *testing.T) {
	l := newTestLookup(t, newFakeWiki(), false)

	res := l.Answer(context.Background(), "What is a kakapo?")
	require.True(t, res.Found)
	assert.Equal(t, "Kākāpō", res.Title)
	assert.Equal(t, "kakapo", res.Query)
	assert.Equal(t,
		"The kākāpō (Strigops habroptilus) is a species of large, flightless, nocturnal parrot. It is endemic to New Zealand. Kākāpō can live for up to 90 years!",
		res.Text)
}

func TestAnswerCachedWithoutNetwork(t *testing.T) {
	fake := newFakeWiki()
	l := newTestLookup(t, fake, false)
	ctx := context.Background()

	first := l.Answer(ctx, "Tell me about the kakapo diet")
	require.True(t, first.Found)
	callsAfterFirst := fake.calls.Load()
	assert.EqualValues(t, 2, callsAfterFirst, "search + extract")

	second := l.Answer(ctx, "Tell me about the kakapo diet")
	assert.True(t, second.Cached)
	assert.Equal(t, first.Text, second.Text)
	assert.Equal(t, "Kākāpō", second.Title)
	assert.Equal(t, first.Query, second.Query)
	assert.Equal(t, callsAfterFirst, fake.calls.Load(), "cached answer must not touch the network")
}

func TestAnswerReadsPlainCachedText(t *testing.T) {
	c, err := memory.New(8)
	require.NoError(t, err)
	require.NoError(t, c.Put(context.Background(), "kakapo", "A parrot."))

	l := NewLookup(nil, c, 3, false)
	res := l.Answer(context.Background(), "kakapo")
	assert.True(t, res.Cached)
	assert.Equal(t, "A parrot.", res.Text)
	assert.Empty(t, res.Title)
}

func TestAnswerSpellingCorrection(t *testing.T) {
	fake := newFakeWiki()
	l := newTestLookup(t, fake, true)

	res := l.Answer(context.Background(), "What is a kakapoo?")
	require.True(t, res.Found)
	assert.Equal(t, "kakapo", res.Query)
	assert.Equal(t, "kakapo", fake.lastSearch.Load())
	assert.EqualValues(t, 3, fake.calls.Load(), "search, search with suggestion, extract")
}

func TestAnswerSpellingSkipsRetryOnHit(t *testing.T) {
	fake := newFakeWiki()
	fake.suggestions["kakapo diet"] = "kakapo diets"
	l := newTestLookup(t, fake, true)

	res := l.Answer(context.Background(), "Tell me about the kakapo diet")
	require.True(t, res.Found)
	assert.Equal(t, "kakapo diet", res.Query)
	assert.EqualValues(t, 2, fake.calls.Load(), "search + extract")
}

func TestAnswerSpellingDisabledKeepsQuery(t *testing.T) {
	fake := newFakeWiki()
	l := newTestLookup(t, fake, false)

	res := l.Answer(context.Background(), "What is a kakapoo?")
	assert.False(t, res.Found)
	assert.Equal(t, NotFoundReply, res.Text)
	assert.EqualValues(t, 1, fake.calls.Load())
}

func TestAnswerNotFound(t *testing.T) {
	l := newTestLookup(t, newFakeWiki(), false)

	res := l.Answer(context.Background(), "quantum chromodynamics")
	assert.False(t, res.Found)
	assert.Equal(t, NotFoundReply, res.Text)

	// apologies are not cached
	again := l.Answer(context.Background(), "quantum chromodynamics")
	assert.False(t, again.Cached)
}

func TestAnswerMissingExtract(t *testing.T) {
	fake := newFakeWiki()
	fake.titles["takahe"] = "Takahē"
	l := newTestLookup(t, fake, false)

	res := l.Answer(context.Background(), "takahe")
	assert.False(t, res.Found)
	assert.Equal(t, NotFoundReply, res.Text)
	assert.Equal(t, "Takahē", res.Title)
}

func TestAnswerUpstreamFailure(t *testing.T) {
	down := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	})
	l := newTestLookup(t, down, true)

	res := l.Answer(context.Background(), "What is a kakapo?")
	assert.False(t, res.Found)
	assert.Equal(t, UnavailableReply, res.Text)
}

func TestAnswerUnreachable(t *testing.T) {
	client := NewClient(config.EncyclopediaConfig{BaseURL: "http://127.0.0.1:1/w/api.php", Timeout: time.Second})
	l := NewLookup(client, nil, 3, false)

	res := l.Answer(context.Background(), "kakapo")
	assert.Equal(t, UnavailableReply, res.Text)
}

func TestAnswerOnlyFillerSearchesRaw(t *testing.T) {
	fake := newFakeWiki()
	l := newTestLookup(t, fake, false)

	l.Answer(context.Background(), "what is it?")
	assert.Equal(t, "what is it?", fake.lastSearch.Load())
}

func TestFirstSentences(t *testing.T) {
	tests := []struct {
		text string
		n    int
		want string
	}{
		{"One. Two. Three. Four.", 3, "One. Two. Three."},
		{"One. Two.", 3, "One. Two."},
		{"Version 1.5 is out. It works! Really? Yes.", 3, "Version 1.5 is out. It works! Really?"},
		{"No terminator", 3, "No terminator"},
		{"", 3, ""},
		{"One. Two.", 0, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FirstSentences(tt.text, tt.n), "%q", tt.text)
	}
}
