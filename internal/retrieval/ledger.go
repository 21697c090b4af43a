package retrieval

import (
	"fmt"
	"strings"

	"github.com/oakhealth/aftercare/internal/knowledge"
	"github.com/oakhealth/aftercare/internal/websearch"
)

// PreviewLength is the maximum length of a snippet's display preview.
// Longer content is truncated with a trailing ellipsis; the full content
// is retained separately for prompt assembly.
const PreviewLength = 200

// snippetSeparator joins formatted snippets in the assembled context.
const snippetSeparator = "\n\n---\n\n"

// Ledger assigns stable, monotonically increasing citation ids to snippets.
// Knowledge-base snippets are registered first (1..K), web snippets continue
// at K+1, preserving relative order within each pool.
//
// One Ledger instance serves exactly one query; it is never shared across
// concurrent requests and needs no locking.
type Ledger struct {
	next int
}

// NewLedger creates an empty ledger for one request.
func NewLedger() *Ledger {
	return &Ledger{}
}

// RegisterKnowledgeBase assigns citation ids to knowledge-base search
// results in input order. Distance is converted to a relevance score via
// 1 - distance; this assumes a normalized metric (cosine distance), so the
// score is not guaranteed to lie in [0,1] for arbitrary metrics.
func (l *Ledger) RegisterKnowledgeBase(results []knowledge.Result) []Snippet {
	snippets := make([]Snippet, 0, len(results))
	for _, r := range results {
		l.next++
		snippets = append(snippets, Snippet{
			CitationID:   l.next,
			Content:      r.Document.Content,
			Preview:      truncate(r.Document.Content, PreviewLength),
			Source:       SourceKnowledgeBase,
			Metadata:     r.Document.Metadata,
			Relevance:    1 - float64(r.Distance),
			HasRelevance: true,
		})
	}
	return snippets
}

// RegisterWeb assigns citation ids to web search results, continuing the
// sequence from the snippets already registered for this request.
func (l *Ledger) RegisterWeb(results []websearch.Result) []Snippet {
	snippets := make([]Snippet, 0, len(results))
	for _, r := range results {
		l.next++
		snippets = append(snippets, Snippet{
			CitationID: l.next,
			Content:    r.Title + "\n" + r.Snippet,
			Preview:    truncate(r.Snippet, PreviewLength),
			Source:     SourceWeb,
			Metadata: map[string]string{
				"title": r.Title,
				"url":   r.URL,
			},
		})
	}
	return snippets
}

// Format renders snippets as "[id] content" blocks joined by a fixed
// separator. Empty input yields empty text.
func (l *Ledger) Format(snippets []Snippet) string {
	if len(snippets) == 0 {
		return ""
	}

	parts := make([]string, len(snippets))
	for i, s := range snippets {
		parts[i] = fmt.Sprintf("[%d] %s", s.CitationID, s.Content)
	}
	return strings.Join(parts, snippetSeparator)
}

// truncate shortens s to max bytes with a trailing ellipsis.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
