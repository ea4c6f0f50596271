// Package tokenizer splits text into searchable terms. It lower-cases input,
// splits on whitespace only (punctuation stays attached to its word), and
// removes stop-words. The same pipeline runs on field values at index time
// and on query strings at search time, so a term produced by one is always
// matchable by the other.
package tokenizer

import (
	"sort"
	"strings"
)

// baseStopWords is the baseline list of common function words.
var baseStopWords = []string{
	"a", "an", "and", "are", "as", "at", "be", "by", "can", "for",
	"from", "have", "if", "in", "is", "it", "may", "not", "of", "on",
	"or", "tbd", "that", "the", "this", "to", "us", "we", "when",
	"will", "with", "yet", "you", "your",
}

// extraStopWords are forum-specific additions to the baseline list.
var extraStopWords = []string{"there", "where", "who"}

var stopWords = buildStopSet()

func buildStopSet() map[string]struct{} {
	set := make(map[string]struct{}, len(baseStopWords)+len(extraStopWords))
	for _, w := range baseStopWords {
		set[w] = struct{}{}
	}
	for _, w := range extraStopWords {
		set[w] = struct{}{}
	}
	return set
}

// StopWords returns the full stop-word set in sorted order. The schema uses
// it to register the engine-side stop filter from the same list.
func StopWords() []string {
	words := make([]string, 0, len(stopWords))
	for w := range stopWords {
		words = append(words, w)
	}
	sort.Strings(words)
	return words
}

// IsStopWord reports whether the term is removed by the pipeline.
func IsStopWord(term string) bool {
	_, ok := stopWords[strings.ToLower(term)]
	return ok
}

// Tokenize breaks text into lowercased terms with stop-words removed.
// Empty or whitespace-only input yields an empty slice.
func Tokenize(text string) []string {
	words := strings.Fields(strings.ToLower(text))
	terms := make([]string, 0, len(words))
	for _, word := range words {
		if _, isStop := stopWords[word]; isStop {
			continue
		}
		terms = append(terms, word)
	}
	return terms
}
