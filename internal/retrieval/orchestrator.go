package retrieval

import (
	"context"
	"errors"
	"fmt"

	"github.com/oakhealth/aftercare/internal/knowledge"
	"github.com/oakhealth/aftercare/internal/log"
	"github.com/oakhealth/aftercare/internal/websearch"
)

// ErrRetrieval wraps knowledge-base search failures. Retrieval errors are
// fatal to the request; no later stage runs after one.
var ErrRetrieval = errors.New("knowledge base retrieval failed")

// DefaultTopK is the number of passages requested per pool when the
// orchestrator is not configured otherwise.
const DefaultTopK = 5

// webResultsDelimiter separates knowledge-base context from web context
// in the assembled prompt.
const webResultsDelimiter = "=== WEB SEARCH RESULTS ==="

// webDisclosureNote is appended to answers that drew on web results.
const webDisclosureNote = "\n\n*Note: This answer includes information from both your documents and web search results.*"

// systemPrompt instructs the model to ground every claim in the numbered
// context snippets.
const systemPrompt = `You are a helpful clinical information assistant. Answer the question using ONLY the provided context.

Rules:
1. Base your answer strictly on the numbered context snippets below.
2. Cite sources inline using their numbers, e.g. [1] or [2][3], immediately after each claim they support.
3. If the context does not contain the answer, say so plainly instead of guessing.
4. Keep the answer clear and suitable for a patient audience.
5. Never invent citation numbers that do not appear in the context.`

// Index searches the local knowledge base.
// *knowledge.Store satisfies this through a thin adapter.
type Index interface {
	Search(ctx context.Context, query string, limit int) ([]knowledge.Result, error)
}

// WebSearcher looks up supplementary results on the public web.
// Implementations never fail: an unreachable provider returns no results.
type WebSearcher interface {
	Search(ctx context.Context, query string, limit int) []websearch.Result
}

// Generator produces the final answer text from the assembled prompt.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// Config carries the orchestrator's collaborators.
type Config struct {
	Index     Index
	Generator Generator

	// Web is optional. When nil the pipeline never escalates and answers
	// from the knowledge base alone.
	Web WebSearcher

	Logger log.Logger

	// TopK is the passage count requested from each pool.
	// Defaults to DefaultTopK.
	TopK int
}

func (cfg Config) validate() error {
	if cfg.Index == nil {
		return errors.New("retrieval: index is required")
	}
	if cfg.Generator == nil {
		return errors.New("retrieval: generator is required")
	}
	return nil
}

// Orchestrator answers queries by retrieving context, judging its
// sufficiency, optionally escalating to web search, and generating a
// cited answer. Safe for concurrent use; all per-request state lives in
// the AnswerQuery call.
type Orchestrator struct {
	index     Index
	web       WebSearcher
	generator Generator
	logger    log.Logger
	topK      int
}

// New creates an Orchestrator from cfg.
func New(cfg Config) (*Orchestrator, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	topK := cfg.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	return &Orchestrator{
		index:     cfg.Index,
		web:       cfg.Web,
		generator: cfg.Generator,
		logger:    logger,
		topK:      topK,
	}, nil
}

// AnswerQuery runs the full pipeline for one query.
//
// Stages run in order: knowledge-base search, citation registration,
// sufficiency evaluation, conditional web search, generation. A search
// failure returns an error wrapping ErrRetrieval and nothing else runs.
// A generation failure does not fail the request: the error is folded
// into the answer text so the caller still receives the citations that
// were assembled. Context cancellation between stages aborts with ctx's
// error and no partial Answer.
func (o *Orchestrator) AnswerQuery(ctx context.Context, query string) (*Answer, error) {
	state := &queryContext{
		originalQuery: query,
		decision:      DecisionNotEvaluated,
	}
	ledger := NewLedger()

	results, err := o.index.Search(ctx, query, o.topK)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRetrieval, err)
	}

	state.kbSnippets = ledger.RegisterKnowledgeBase(results)
	state.assembledContext = ledger.Format(state.kbSnippets)
	o.logger.Debug("knowledge base searched",
		"query", query,
		"hits", len(state.kbSnippets))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if Insufficient(state.assembledContext, query) {
		state.decision = DecisionInsufficient
	} else {
		state.decision = DecisionSufficient
	}

	usedWeb := false
	if state.decision == DecisionInsufficient && o.web != nil {
		o.logger.Info("context insufficient, escalating to web search", "query", query)
		usedWeb = true

		webResults := o.web.Search(ctx, query, o.topK)
		state.webSnippets = ledger.RegisterWeb(webResults)
		if len(state.webSnippets) > 0 {
			state.assembledContext += "\n\n" + webResultsDelimiter + "\n\n" + ledger.Format(state.webSnippets)
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	citations := make([]Snippet, 0, len(state.kbSnippets)+len(state.webSnippets))
	citations = append(citations, state.kbSnippets...)
	citations = append(citations, state.webSnippets...)

	text, genErr := o.generator.Generate(ctx, systemPrompt, userPrompt(state.assembledContext, query))
	switch {
	case genErr != nil && ctx.Err() != nil:
		return nil, ctx.Err()
	case genErr != nil:
		o.logger.Error("answer generation failed", "error", genErr)
		text = fmt.Sprintf("Error generating response: %v", genErr)
	case len(state.webSnippets) > 0:
		text += webDisclosureNote
	}

	return &Answer{
		Text:              text,
		Citations:         citations,
		UsedWebSearch:     usedWeb,
		KnowledgeBaseHits: len(state.kbSnippets),
	}, nil
}

// userPrompt assembles the final prompt from context and question.
func userPrompt(contextText, query string) string {
	return fmt.Sprintf(
		"Context:\n%s\n\n---\n\nQuestion: %s\n\nAnswer based on the context above, citing sources as [1], [2], etc.",
		contextText, query)
}
