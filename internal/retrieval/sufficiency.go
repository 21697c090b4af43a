package retrieval

import "strings"

const (
	// MinContextChars is the minimum trimmed context length considered
	// usable for answering.
	MinContextChars = 100

	// KeywordOverlapRatio is the fraction of query keywords that must
	// appear in the context for it to count as topically relevant.
	KeywordOverlapRatio = 0.3
)

// negativeIndicators are phrases whose presence marks the context as an
// explicit admission of missing information. The scan runs over the
// retrieved content itself, so a document that merely discusses absent
// data ("the trial reported insufficient evidence") also trips the gate
// and escalates to web search.
var negativeIndicators = []string{
	"no information",
	"not available",
	"cannot find",
	"no data",
	"insufficient",
}

// Insufficient reports whether the assembled context is inadequate to
// answer the query, triggering web search escalation.
//
// The decision is a pure function of its inputs. Context is insufficient
// when any of these hold:
//   - the trimmed context is shorter than MinContextChars
//   - the context contains a negative indicator phrase (case-insensitive)
//   - fewer than KeywordOverlapRatio of the query's unique keywords
//     appear in the context
//
// An empty query has no keywords, so the overlap rule passes trivially
// and only the length and phrase rules apply.
func Insufficient(contextText, query string) bool {
	if len(strings.TrimSpace(contextText)) < MinContextChars {
		return true
	}

	lowerContext := strings.ToLower(contextText)
	for _, phrase := range negativeIndicators {
		if strings.Contains(lowerContext, phrase) {
			return true
		}
	}

	queryWords := keywordSet(query)
	contextWords := keywordSet(contextText)

	overlap := 0
	for word := range queryWords {
		if contextWords[word] {
			overlap++
		}
	}
	return float64(overlap) < float64(len(queryWords))*KeywordOverlapRatio
}

// keywordSet lowercases and splits text on whitespace into a set of
// unique tokens. Punctuation is left attached, matching token-for-token
// only when surface forms agree.
func keywordSet(text string) map[string]bool {
	words := strings.Fields(strings.ToLower(text))
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}
