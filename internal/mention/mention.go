// Package mention extracts candidate participant references from message
// text. Extraction is a pure function: same text in, same candidates out,
// in left-to-right order, duplicates preserved.
package mention

import (
	"regexp"
	"sort"
)

// Kind classifies a candidate reference.
type Kind int

const (
	// KindHandle is a marker-prefixed token such as @some_user.
	KindHandle Kind = iota
	// KindName is a bare capitalized word taken as a first-name reference.
	KindName
)

func (k Kind) String() string {
	if k == KindHandle {
		return "handle"
	}
	return "name"
}

// Candidate is one suspected reference. Value carries the token without the
// marker prefix.
type Candidate struct {
	Kind  Kind
	Value string
}

var (
	handlePattern = regexp.MustCompile(`@([A-Za-z0-9_]+)`)
	namePattern   = regexp.MustCompile(`[A-Z][a-z]+`)
)

// Extractor scans text for handle and plain-name candidates. The stoplist
// filters capitalized greeting/gratitude words out of the name candidates.
type Extractor struct {
	stoplist map[string]struct{}
}

// NewExtractor builds an extractor with the given stoplist words.
func NewExtractor(stoplist []string) *Extractor {
	stop := make(map[string]struct{}, len(stoplist))
	for _, w := range stoplist {
		stop[w] = struct{}{}
	}
	return &Extractor{stoplist: stop}
}

type span struct {
	start, end int
	cand       Candidate
}

// Extract returns all candidates in text order. A capitalized word inside a
// handle token (e.g. the "Alice" in "@Alice") belongs to the handle candidate
// only. Malformed or empty text yields nil.
func (e *Extractor) Extract(text string) []Candidate {
	if text == "" {
		return nil
	}

	var spans []span
	for _, m := range handlePattern.FindAllStringSubmatchIndex(text, -1) {
		spans = append(spans, span{
			start: m[0],
			end:   m[1],
			cand:  Candidate{Kind: KindHandle, Value: text[m[2]:m[3]]},
		})
	}
	handles := spans
	for _, m := range namePattern.FindAllStringIndex(text, -1) {
		if overlapsAny(handles, m[0], m[1]) {
			continue
		}
		word := text[m[0]:m[1]]
		if _, stopped := e.stoplist[word]; stopped {
			continue
		}
		spans = append(spans, span{
			start: m[0],
			end:   m[1],
			cand:  Candidate{Kind: KindName, Value: word},
		})
	}

	sort.SliceStable(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	out := make([]Candidate, 0, len(spans))
	for _, s := range spans {
		out = append(out, s.cand)
	}
	return out
}

func overlapsAny(spans []span, start, end int) bool {
	for _, s := range spans {
		if start < s.end && end > s.start {
			return true
		}
	}
	return false
}
