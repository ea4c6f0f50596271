// Package highlight computes excerpt fragments from stored field text and
// engine match locations. Presentation parameters are fixed: an excerpt is
// at most 300 characters, with up to 50 characters of surrounding context
// on each side of the matched spans it covers.
package highlight

import (
	"sort"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2/search"
)

const (
	// MaxChars is the maximum length of a single excerpt.
	MaxChars = 300
	// Surround is the context kept before the first and after the last
	// match span of an excerpt.
	Surround = 50
)

// Span is a half-open [Start, End) byte range inside a Fragment's text
// marking one matched term.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Fragment is one highlighted excerpt of a stored field value.
type Fragment struct {
	Text  string `json:"text"`
	Spans []Span `json:"spans"`
}

// Build converts the engine's term locations for one field into excerpt
// fragments over the stored field value. Matches close enough to share a
// MaxChars window are merged into one fragment; each additional match is
// admitted only while the window, context included, stays within MaxChars.
func Build(value string, termLocs search.TermLocationMap) []Fragment {
	matches := collect(value, termLocs)
	if len(matches) == 0 {
		return nil
	}

	var fragments []Fragment
	for i := 0; i < len(matches); {
		group := []Span{matches[i]}
		begin := clipLeft(value, matches[i].Start-Surround)
		end := clipRight(value, matches[i].End+Surround)
		j := i + 1
		for j < len(matches) {
			next := clipRight(value, matches[j].End+Surround)
			if next-begin > MaxChars {
				break
			}
			group = append(group, matches[j])
			end = next
			j++
		}
		if end-begin > MaxChars {
			end = clipRight(value, begin+MaxChars)
		}
		fragments = append(fragments, makeFragment(value, begin, end, group))
		i = j
	}
	return fragments
}

// collect flattens a term location map into spans sorted by start offset,
// dropping locations that fall outside the stored value.
func collect(value string, termLocs search.TermLocationMap) []Span {
	var spans []Span
	for _, locs := range termLocs {
		for _, loc := range locs {
			start, end := int(loc.Start), int(loc.End)
			if start < 0 || end > len(value) || start >= end {
				continue
			}
			spans = append(spans, Span{Start: start, End: end})
		}
	}
	sort.Slice(spans, func(i, j int) bool {
		if spans[i].Start != spans[j].Start {
			return spans[i].Start < spans[j].Start
		}
		return spans[i].End < spans[j].End
	})
	return spans
}

func makeFragment(value string, begin, end int, matches []Span) Fragment {
	spans := make([]Span, 0, len(matches))
	for _, m := range matches {
		if m.Start < begin || m.End > end {
			continue
		}
		spans = append(spans, Span{Start: m.Start - begin, End: m.End - begin})
	}
	return Fragment{
		Text:  value[begin:end],
		Spans: spans,
	}
}

// clipLeft clamps off to [0, len(value)] and moves it forward onto a rune
// boundary.
func clipLeft(value string, off int) int {
	if off < 0 {
		return 0
	}
	if off > len(value) {
		return len(value)
	}
	for off < len(value) && !utf8.RuneStart(value[off]) {
		off++
	}
	return off
}

// clipRight clamps off to [0, len(value)] and moves it backward onto a rune
// boundary.
func clipRight(value string, off int) int {
	if off < 0 {
		return 0
	}
	if off > len(value) {
		return len(value)
	}
	for off > 0 && off < len(value) && !utf8.RuneStart(value[off]) {
		off--
	}
	return off
}
