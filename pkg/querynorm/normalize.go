// Package querynorm turns a conversational question into a short search query.
package querynorm

import (
	"regexp"
	"strings"
)

// fillerPhrases are removed as plain substrings, longest first.
var fillerPhrases = []string{
	"can you tell me about",
	"could you tell me about",
	"can you tell me",
	"could you tell me",
	"would you tell me",
	"i would like to know about",
	"i would like to know",
	"i want to know about",
	"i want to know",
	"what do you know about",
	"do you know anything about",
	"give me information about",
	"give me information on",
	"tell me something about",
	"tell me about",
	"tell me",
	"explain to me",
	"show me",
	"in your opinion",
	"please",
}

var stopwords = toSet(
	"a", "an", "the", "and", "or", "but", "if", "then", "so", "as", "of", "on", "in", "to",
	"for", "by", "with", "at", "from", "into", "about", "over", "under",
	"is", "are", "was", "were", "be", "been", "being", "am",
	"do", "does", "did", "have", "has", "had",
	"can", "could", "should", "would", "may", "might", "will", "shall",
	"it", "its", "this", "that", "these", "those",
	"i", "me", "my", "we", "our", "you", "your", "they", "them", "their", "he", "she",
	"what", "which", "who", "whom", "whose", "when", "where", "why", "how",
	"there", "here", "some", "any", "much", "many", "very", "really", "just", "also",
)

var (
	possessiveRe = regexp.MustCompile(`['’]s([^\p{L}\p{N}]|$)`)
	apostrophes  = strings.NewReplacer("'", "", "’", "")
	punctRe      = regexp.MustCompile(`[^\p{L}\p{M}\p{N}\s]+`)
)

func toSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// maxPasses bounds the fixpoint loop in Normalize.
const maxPasses = 4

// Normalize lower-cases q, strips filler phrases, stopwords and punctuation, and
// collapses whitespace. Passes repeat until the output is stable, so
// Normalize(Normalize(q)) == Normalize(q).
func Normalize(q string) string {
	out := q
	for i := 0; i < maxPasses; i++ {
		next := pass(out)
		if next == out {
			break
		}
		out = next
	}
	return out
}

func pass(q string) string {
	q = strings.ToLower(q)
	for _, phrase := range fillerPhrases {
		q = strings.ReplaceAll(q, phrase, " ")
	}
	q = possessiveRe.ReplaceAllString(q, "$1")
	q = apostrophes.Replace(q)
	q = punctRe.ReplaceAllString(q, " ")

	// stopwords are whole whitespace-separated tokens
	words := strings.Fields(q)
	kept := words[:0]
	for _, w := range words {
		if _, stop := stopwords[w]; !stop {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}

// Fallback returns the cleaned query, or the trimmed raw query when cleaning
// removed everything.
func Fallback(raw string) string {
	if n := Normalize(raw); n != "" {
		return n
	}
	return strings.TrimSpace(raw)
}
