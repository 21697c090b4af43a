package cmd

import (
	"strings"
	"testing"

	"github.com/oakhealth/aftercare/internal/retrieval"
)

func TestFormatCitation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		snippet retrieval.Snippet
		want    string
	}{
		{
			name: "knowledge base with relevance",
			snippet: retrieval.Snippet{
				CitationID:   1,
				Preview:      "Weigh yourself every morning",
				Source:       retrieval.SourceKnowledgeBase,
				Relevance:    0.87,
				HasRelevance: true,
			},
			want: "[1] Weigh yourself every morning (relevance 0.87)",
		},
		{
			name: "web result with url",
			snippet: retrieval.Snippet{
				CitationID: 3,
				Preview:    "CHF diet guidance",
				Source:     retrieval.SourceWeb,
				Metadata:   map[string]string{"url": "https://example.org/chf"},
			},
			want: "[3] CHF diet guidance (https://example.org/chf)",
		},
		{
			name: "web result without url",
			snippet: retrieval.Snippet{
				CitationID: 4,
				Preview:    "General advice",
				Source:     retrieval.SourceWeb,
			},
			want: "[4] General advice",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := formatCitation(tt.snippet); got != tt.want {
				t.Errorf("formatCitation() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderMarkdown_FallbackKeepsText(t *testing.T) {
	const text = "**Clinical Information:**\n\nElevate your legs."

	out := renderMarkdown(text)
	if !strings.Contains(out, "Clinical Information") {
		t.Errorf("rendered output lost content: %q", out)
	}
}
