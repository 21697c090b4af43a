// Package retrieval implements the retrieval-augmented answering pipeline
// at the heart of the clinical assistant.
//
// One call to Orchestrator.AnswerQuery runs a linear pipeline:
//
//	query
//	  |
//	  v
//	knowledge-base search (Index)
//	  |
//	  v
//	sufficiency gate (Insufficient)
//	  |               \
//	  | sufficient     \ insufficient
//	  |                 v
//	  |               web search (WebSearcher)
//	  |                 |
//	  v                 v
//	answer generation (Generator)
//	  |
//	  v
//	Answer with numbered citations
//
// # Citations
//
// A per-request Ledger assigns citation ids: knowledge-base snippets get
// 1..K in retrieval order, web snippets continue at K+1. Ids are contiguous,
// strictly increasing and never renumbered, even when web search returns
// nothing. The generated answer references them inline as [n].
//
// # Concurrency
//
// Each AnswerQuery call builds its own ledger and working state, so
// concurrent calls are independent. The pipeline itself is sequential:
// each collaborator call gates the next stage.
package retrieval
