package retrieval

// Provenance identifies where a snippet came from.
type Provenance string

const (
	// SourceKnowledgeBase marks snippets retrieved from the local vector store.
	SourceKnowledgeBase Provenance = "knowledge_base"

	// SourceWeb marks snippets obtained from web search.
	SourceWeb Provenance = "web"
)

// Snippet is one retrieved unit of text with its provenance and citation id.
// Snippets are immutable once registered with the ledger.
type Snippet struct {
	// CitationID is the number referenced inline by the answer as [n].
	// Unique and contiguous within one query's lifetime.
	CitationID int

	// Content is the full text used for prompt assembly.
	Content string

	// Preview is a display copy of the content, truncated to PreviewLength.
	Preview string

	// Source records the provenance pool the snippet was drawn from.
	Source Provenance

	// Metadata carries source details (document source, web title/url).
	Metadata map[string]string

	// Relevance is 1 - cosine distance for knowledge-base snippets.
	// Only meaningful when HasRelevance is true; web results carry no score.
	Relevance    float64
	HasRelevance bool
}

// Answer is the final result of one answered query.
// Ownership transfers entirely to the caller.
type Answer struct {
	// Text is the generated answer with inline [n] citation markers.
	Text string

	// Citations lists every registered snippet in ledger order:
	// knowledge-base snippets first, then web snippets.
	Citations []Snippet

	// UsedWebSearch is true iff the web search stage ran, even when it
	// returned zero results.
	UsedWebSearch bool

	// KnowledgeBaseHits is the number of passages the index returned.
	KnowledgeBaseHits int
}

// SufficiencyDecision is the outcome of the sufficiency gate.
type SufficiencyDecision int

const (
	// DecisionNotEvaluated is the initial state before the gate runs.
	DecisionNotEvaluated SufficiencyDecision = iota

	// DecisionSufficient means local retrieval alone justifies answering.
	DecisionSufficient

	// DecisionInsufficient means web search must be consulted.
	DecisionInsufficient
)

// queryContext is the working state of one AnswerQuery call.
// It is created at the start of the call, mutated only by the orchestrator
// as each stage completes, and discarded when the call returns.
type queryContext struct {
	originalQuery    string
	kbSnippets       []Snippet
	webSnippets      []Snippet // non-empty only when decision == DecisionInsufficient
	decision         SufficiencyDecision
	assembledContext string
}
