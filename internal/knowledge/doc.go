// Package knowledge manages the clinical knowledge base backing the
// retrieval pipeline.
//
// Documents (chunks of discharge guidelines, care instructions, clinical
// references) are embedded via a Genkit ai.Embedder and stored in
// PostgreSQL + pgvector. Search returns passages ordered by ascending
// cosine distance; the retrieval layer converts distance to a relevance
// score.
//
// # Architecture
//
//	ai.Embedder (Gemini)
//	     |
//	     v
//	Store (this package)
//	     |
//	     +-- sqlc.Querier (parameterized queries)
//	     |
//	     v
//	PostgreSQL + pgvector (documents table, cosine distance)
//
// # Thread Safety
//
// Store is safe for concurrent use by multiple goroutines.
package knowledge
