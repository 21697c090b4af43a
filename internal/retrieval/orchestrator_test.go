package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/oakhealth/aftercare/internal/knowledge"
	"github.com/oakhealth/aftercare/internal/log"
	"github.com/oakhealth/aftercare/internal/websearch"
)

type stubIndex struct {
	results   []knowledge.Result
	err       error
	calls     int
	lastQuery string
	lastLimit int
}

func (s *stubIndex) Search(_ context.Context, query string, limit int) ([]knowledge.Result, error) {
	s.calls++
	s.lastQuery = query
	s.lastLimit = limit
	if s.err != nil {
		return nil, s.err
	}
	return s.results, nil
}

type stubWeb struct {
	results []websearch.Result
	calls   int
}

func (s *stubWeb) Search(_ context.Context, _ string, _ int) []websearch.Result {
	s.calls++
	return s.results
}

type stubGenerator struct {
	text       string
	err        error
	calls      int
	lastSystem string
	lastPrompt string
}

func (s *stubGenerator) Generate(_ context.Context, system, prompt string) (string, error) {
	s.calls++
	s.lastSystem = system
	s.lastPrompt = prompt
	if s.err != nil {
		return "", s.err
	}
	return s.text, nil
}

// cancelAfterSearchIndex cancels the surrounding context once search
// completes, exercising the between-stage cancellation checks.
type cancelAfterSearchIndex struct {
	stubIndex
	cancel context.CancelFunc
}

func (s *cancelAfterSearchIndex) Search(ctx context.Context, query string, limit int) ([]knowledge.Result, error) {
	results, err := s.stubIndex.Search(ctx, query, limit)
	s.cancel()
	return results, err
}

const woundQuery = "how should I care for the wound after surgery"

// sufficientResults share vocabulary with woundQuery and clear the
// length floor, so no web escalation happens.
func sufficientResults() []knowledge.Result {
	return []knowledge.Result{
		{
			Document: knowledge.Document{
				ID:      "doc-a",
				Content: "After surgery, keep the wound clean and dry for the first 48 hours and change the dressing every day as instructed.",
			},
			Distance: 0.1,
		},
		{
			Document: knowledge.Document{
				ID:      "doc-b",
				Content: "Watch the wound for spreading redness, warmth, or discharge after surgery and contact the clinic if any of these appear.",
			},
			Distance: 0.2,
		},
	}
}

func newTestOrchestrator(t *testing.T, cfg Config) *Orchestrator {
	t.Helper()
	if cfg.Logger == nil {
		cfg.Logger = log.NewNop()
	}
	o, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return o
}

func TestNew_Validation(t *testing.T) {
	gen := &stubGenerator{text: "ok"}
	idx := &stubIndex{}

	if _, err := New(Config{Generator: gen}); err == nil {
		t.Error("expected error when index missing")
	}
	if _, err := New(Config{Index: idx}); err == nil {
		t.Error("expected error when generator missing")
	}
	if _, err := New(Config{Index: idx, Generator: gen}); err != nil {
		t.Errorf("minimal config rejected: %v", err)
	}
}

func TestAnswerQuery_SufficientContext(t *testing.T) {
	idx := &stubIndex{results: sufficientResults()}
	web := &stubWeb{results: []websearch.Result{{Title: "should not be used"}}}
	gen := &stubGenerator{text: "Keep the wound clean and dry [1]. Watch for redness [2]."}

	o := newTestOrchestrator(t, Config{Index: idx, Web: web, Generator: gen})

	answer, err := o.AnswerQuery(context.Background(), woundQuery)
	if err != nil {
		t.Fatalf("AnswerQuery() error = %v", err)
	}

	if web.calls != 0 {
		t.Errorf("web searched %d times despite sufficient context", web.calls)
	}
	if answer.UsedWebSearch {
		t.Error("UsedWebSearch = true, want false")
	}
	if answer.KnowledgeBaseHits != 2 {
		t.Errorf("KnowledgeBaseHits = %d, want 2", answer.KnowledgeBaseHits)
	}
	if len(answer.Citations) != 2 {
		t.Fatalf("len(Citations) = %d, want 2", len(answer.Citations))
	}
	for i, c := range answer.Citations {
		if c.CitationID != i+1 {
			t.Errorf("citation %d: id = %d, want %d", i, c.CitationID, i+1)
		}
	}
	if strings.Contains(answer.Text, "web search results") {
		t.Error("disclosure note present without web results")
	}
	if strings.Contains(gen.lastPrompt, webResultsDelimiter) {
		t.Error("prompt contains web delimiter without web escalation")
	}
	if gen.lastSystem != systemPrompt {
		t.Error("generator did not receive the system prompt")
	}
	if idx.lastLimit != DefaultTopK {
		t.Errorf("search limit = %d, want %d", idx.lastLimit, DefaultTopK)
	}
}

func TestAnswerQuery_EscalatesToWeb(t *testing.T) {
	idx := &stubIndex{results: []knowledge.Result{
		{Document: knowledge.Document{ID: "doc-a", Content: "Wound care: see nurse."}, Distance: 0.4},
	}}
	web := &stubWeb{results: []websearch.Result{
		{Title: "Wound care guide", Snippet: "Clean daily.", URL: "https://a.example"},
		{Title: "Recovery FAQ", Snippet: "Rest and hydrate.", URL: "https://b.example"},
		{Title: "Dressing changes", Snippet: "Use sterile gauze.", URL: "https://c.example"},
	}}
	gen := &stubGenerator{text: "Clean the wound daily [2]."}

	o := newTestOrchestrator(t, Config{Index: idx, Web: web, Generator: gen})

	answer, err := o.AnswerQuery(context.Background(), woundQuery)
	if err != nil {
		t.Fatalf("AnswerQuery() error = %v", err)
	}

	if web.calls != 1 {
		t.Fatalf("web.calls = %d, want 1", web.calls)
	}
	if !answer.UsedWebSearch {
		t.Error("UsedWebSearch = false, want true")
	}
	if answer.KnowledgeBaseHits != 1 {
		t.Errorf("KnowledgeBaseHits = %d, want 1", answer.KnowledgeBaseHits)
	}

	if len(answer.Citations) != 4 {
		t.Fatalf("len(Citations) = %d, want 4", len(answer.Citations))
	}
	for i, c := range answer.Citations {
		if c.CitationID != i+1 {
			t.Errorf("citation %d: id = %d, want %d", i, c.CitationID, i+1)
		}
	}
	if answer.Citations[0].Source != SourceKnowledgeBase {
		t.Error("first citation should come from the knowledge base")
	}
	for _, c := range answer.Citations[1:] {
		if c.Source != SourceWeb {
			t.Errorf("citation %d: Source = %q, want web", c.CitationID, c.Source)
		}
	}

	if !strings.Contains(gen.lastPrompt, webResultsDelimiter) {
		t.Error("prompt missing web results delimiter")
	}
	if !strings.Contains(gen.lastPrompt, "[4] Dressing changes") {
		t.Errorf("prompt missing numbered web snippet:\n%s", gen.lastPrompt)
	}
	if !strings.HasSuffix(answer.Text, webDisclosureNote) {
		t.Errorf("answer missing disclosure note: %q", answer.Text)
	}
}

func TestAnswerQuery_WebReturnsNothing(t *testing.T) {
	idx := &stubIndex{results: []knowledge.Result{
		{Document: knowledge.Document{ID: "doc-a", Content: "Wound care: see nurse."}, Distance: 0.4},
	}}
	web := &stubWeb{} // provider down or no hits
	gen := &stubGenerator{text: "The documents only say to see a nurse [1]."}

	o := newTestOrchestrator(t, Config{Index: idx, Web: web, Generator: gen})

	answer, err := o.AnswerQuery(context.Background(), woundQuery)
	if err != nil {
		t.Fatalf("AnswerQuery() error = %v", err)
	}

	if web.calls != 1 {
		t.Fatalf("web.calls = %d, want 1", web.calls)
	}
	// The attempt is reported even though it yielded nothing.
	if !answer.UsedWebSearch {
		t.Error("UsedWebSearch = false, want true")
	}
	if len(answer.Citations) != 1 {
		t.Errorf("len(Citations) = %d, want 1 (knowledge base only)", len(answer.Citations))
	}
	if strings.Contains(gen.lastPrompt, webResultsDelimiter) {
		t.Error("empty web results must not add a delimiter to the prompt")
	}
	if strings.Contains(answer.Text, "web search results") {
		t.Error("disclosure note present though web returned nothing")
	}
}

func TestAnswerQuery_NoWebSearcherConfigured(t *testing.T) {
	idx := &stubIndex{results: []knowledge.Result{
		{Document: knowledge.Document{ID: "doc-a", Content: "Too short."}, Distance: 0.4},
	}}
	gen := &stubGenerator{text: "Not enough information in the documents."}

	o := newTestOrchestrator(t, Config{Index: idx, Generator: gen})

	answer, err := o.AnswerQuery(context.Background(), woundQuery)
	if err != nil {
		t.Fatalf("AnswerQuery() error = %v", err)
	}
	if answer.UsedWebSearch {
		t.Error("UsedWebSearch = true with no web searcher configured")
	}
}

func TestAnswerQuery_RetrievalFailure(t *testing.T) {
	idx := &stubIndex{err: errors.New("connection refused")}
	web := &stubWeb{}
	gen := &stubGenerator{text: "never produced"}

	o := newTestOrchestrator(t, Config{Index: idx, Web: web, Generator: gen})

	answer, err := o.AnswerQuery(context.Background(), woundQuery)
	if answer != nil {
		t.Errorf("answer = %+v, want nil", answer)
	}
	if !errors.Is(err, ErrRetrieval) {
		t.Fatalf("error = %v, want ErrRetrieval", err)
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("wrapped error lost cause: %v", err)
	}
	if web.calls != 0 {
		t.Error("web searched after retrieval failure")
	}
	if gen.calls != 0 {
		t.Error("generator called after retrieval failure")
	}
}

func TestAnswerQuery_GenerationFailure(t *testing.T) {
	idx := &stubIndex{results: sufficientResults()}
	gen := &stubGenerator{err: errors.New("model overloaded")}

	o := newTestOrchestrator(t, Config{Index: idx, Generator: gen})

	answer, err := o.AnswerQuery(context.Background(), woundQuery)
	if err != nil {
		t.Fatalf("generation failure must not fail the request: %v", err)
	}
	want := "Error generating response: model overloaded"
	if answer.Text != want {
		t.Errorf("Text = %q, want %q", answer.Text, want)
	}
	// Citations survive so the caller can still show what was retrieved.
	if len(answer.Citations) != 2 {
		t.Errorf("len(Citations) = %d, want 2", len(answer.Citations))
	}
}

func TestAnswerQuery_CancelledBetweenStages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	idx := &cancelAfterSearchIndex{
		stubIndex: stubIndex{results: sufficientResults()},
		cancel:    cancel,
	}
	gen := &stubGenerator{text: "never produced"}

	o := newTestOrchestrator(t, Config{Index: idx, Generator: gen})

	answer, err := o.AnswerQuery(ctx, woundQuery)
	if answer != nil {
		t.Errorf("answer = %+v, want nil on cancellation", answer)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if gen.calls != 0 {
		t.Error("generator called after cancellation")
	}
}

func TestAnswerQuery_Idempotent(t *testing.T) {
	idx := &stubIndex{results: sufficientResults()}
	gen := &stubGenerator{text: "Keep the wound clean [1]."}

	o := newTestOrchestrator(t, Config{Index: idx, Generator: gen})

	first, err := o.AnswerQuery(context.Background(), woundQuery)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	second, err := o.AnswerQuery(context.Background(), woundQuery)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}

	if first.Text != second.Text {
		t.Errorf("texts differ: %q vs %q", first.Text, second.Text)
	}
	if fmt.Sprint(first.Citations) != fmt.Sprint(second.Citations) {
		t.Error("citation sets differ between identical calls")
	}
	if first.UsedWebSearch != second.UsedWebSearch {
		t.Error("web usage differs between identical calls")
	}
}

func TestAnswerQuery_TopKOverride(t *testing.T) {
	idx := &stubIndex{results: sufficientResults()}
	gen := &stubGenerator{text: "ok"}

	o := newTestOrchestrator(t, Config{Index: idx, Generator: gen, TopK: 3})

	if _, err := o.AnswerQuery(context.Background(), woundQuery); err != nil {
		t.Fatalf("AnswerQuery() error = %v", err)
	}
	if idx.lastLimit != 3 {
		t.Errorf("search limit = %d, want 3", idx.lastLimit)
	}
}
