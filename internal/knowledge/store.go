package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/jackc/pgx/v5/pgtype"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/oakhealth/aftercare/internal/log"
	"github.com/oakhealth/aftercare/internal/sqlc"
)

// Querier defines the interface for database operations on knowledge documents.
// Following Go best practices: interfaces are defined by the consumer, not the
// provider. This allows Store to depend on abstraction rather than concrete
// implementation, improving testability.
type Querier interface {
	// UpsertDocument inserts or updates a document
	UpsertDocument(ctx context.Context, arg sqlc.UpsertDocumentParams) error

	// SearchDocuments performs filtered vector search
	SearchDocuments(ctx context.Context, arg sqlc.SearchDocumentsParams) ([]sqlc.SearchDocumentsRow, error)

	// SearchDocumentsAll performs unfiltered vector search
	SearchDocumentsAll(ctx context.Context, arg sqlc.SearchDocumentsAllParams) ([]sqlc.SearchDocumentsAllRow, error)

	// CountDocuments counts documents matching filter
	CountDocuments(ctx context.Context, filterMetadata []byte) (int64, error)

	// CountDocumentsAll counts all documents
	CountDocumentsAll(ctx context.Context) (int64, error)

	// DeleteDocument deletes a document by ID
	DeleteDocument(ctx context.Context, id string) error
}

// Store manages knowledge documents with vector search capabilities.
// It handles embedding generation and vector similarity search using
// PostgreSQL + pgvector.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	queries  Querier
	embedder ai.Embedder
	logger   log.Logger
}

// New creates a new Store instance.
//
// Example (production):
//
//	store := knowledge.New(sqlc.New(dbPool), embedder, logger)
//
// Example (testing with mocks):
//
//	store := knowledge.New(mockQuerier, mockEmbedder, log.NewNop())
func New(querier Querier, embedder ai.Embedder, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}

	return &Store{
		queries:  querier,
		embedder: embedder,
		logger:   logger,
	}
}

// Add adds a document to the knowledge store.
// The document's content is automatically embedded using the configured
// embedder. Uses UPSERT (ON CONFLICT DO UPDATE) to handle both inserts and
// updates.
func (s *Store) Add(ctx context.Context, doc Document) error {
	embeddingResp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{
		Input: []*ai.Document{
			{
				Content: []*ai.Part{ai.NewTextPart(doc.Content)},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to generate embedding: %w", err)
	}

	if len(embeddingResp.Embeddings) == 0 || len(embeddingResp.Embeddings[0].Embedding) == 0 {
		return fmt.Errorf("empty embedding returned for document %q", doc.ID)
	}

	embedding := pgvector.NewVector(embeddingResp.Embeddings[0].Embedding)

	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	createdAt := pgtype.Timestamptz{
		Time:  doc.CreateAt,
		Valid: !doc.CreateAt.IsZero(),
	}

	err = s.queries.UpsertDocument(ctx, sqlc.UpsertDocumentParams{
		ID:        doc.ID,
		Content:   doc.Content,
		Embedding: &embedding,
		Metadata:  metadataJSON,
		CreatedAt: createdAt,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert document %q: %w", doc.ID, err)
	}

	s.logger.Debug("added document", "id", doc.ID, "content_length", len(doc.Content))
	return nil
}

// Search performs semantic search on the knowledge store using functional
// options. It returns the most similar documents to the query, ordered by
// ascending cosine distance. A per-query timeout prevents long-running vector
// searches from blocking.
//
// Example usage:
//
//	results, err := store.Search(ctx, "leg swelling after discharge",
//	    knowledge.WithTopK(5))
func (s *Store) Search(ctx context.Context, query string, opts ...SearchOption) ([]Result, error) {
	cfg := buildSearchConfig(opts)

	queryCtx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	embeddingResp, err := s.embedder.Embed(queryCtx, &ai.EmbedRequest{
		Input: []*ai.Document{
			{
				Content: []*ai.Part{ai.NewTextPart(query)},
			},
		},
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("embedding generation timeout: %w", err)
		}
		return nil, fmt.Errorf("failed to generate query embedding: %w", err)
	}

	if len(embeddingResp.Embeddings) == 0 || len(embeddingResp.Embeddings[0].Embedding) == 0 {
		return nil, fmt.Errorf("empty embedding returned for query")
	}

	queryEmbedding := pgvector.NewVector(embeddingResp.Embeddings[0].Embedding)

	// filterJSON is always generated by json.Marshal and sqlc uses
	// parameterized queries, so the JSONB @> filter cannot be injected into.
	if len(cfg.filter) > 0 {
		filterJSON, marshalErr := json.Marshal(cfg.filter)
		if marshalErr != nil {
			return nil, fmt.Errorf("failed to marshal filter: %w", marshalErr)
		}
		rows, searchErr := s.queries.SearchDocuments(queryCtx, sqlc.SearchDocumentsParams{
			QueryEmbedding: &queryEmbedding,
			FilterMetadata: filterJSON,
			ResultLimit:    clampTopK(cfg.topK),
		})
		if searchErr != nil {
			if errors.Is(searchErr, context.DeadlineExceeded) {
				return nil, fmt.Errorf("search query timeout: %w", searchErr)
			}
			return nil, fmt.Errorf("search failed: %w", searchErr)
		}
		return s.rowsToResults(rows), nil
	}

	rows, err := s.queries.SearchDocumentsAll(queryCtx, sqlc.SearchDocumentsAllParams{
		QueryEmbedding: &queryEmbedding,
		ResultLimit:    clampTopK(cfg.topK),
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("search query timeout: %w", err)
		}
		return nil, fmt.Errorf("search failed: %w", err)
	}
	return s.rowsToResultsAll(rows), nil
}

// Count returns the number of documents matching the given filter.
// If filter is nil or empty, it returns the total count of all documents.
func (s *Store) Count(ctx context.Context, filter map[string]string) (int, error) {
	var count int64
	var err error

	if len(filter) > 0 {
		filterJSON, marshalErr := json.Marshal(filter)
		if marshalErr != nil {
			return 0, fmt.Errorf("failed to marshal filter: %w", marshalErr)
		}
		count, err = s.queries.CountDocuments(ctx, filterJSON)
	} else {
		count, err = s.queries.CountDocumentsAll(ctx)
	}

	if err != nil {
		return 0, fmt.Errorf("count failed: %w", err)
	}

	// Overflow protection for 32-bit systems
	if count > math.MaxInt {
		return 0, fmt.Errorf("document count %d exceeds platform int capacity", count)
	}

	return int(count), nil
}

// Delete removes a document from the knowledge store.
func (s *Store) Delete(ctx context.Context, docID string) error {
	if err := s.queries.DeleteDocument(ctx, docID); err != nil {
		return fmt.Errorf("failed to delete document %q: %w", docID, err)
	}

	s.logger.Debug("deleted document", "id", docID)
	return nil
}

// clampTopK bounds topK to [1, 100] for the int32 SQL limit parameter.
func clampTopK(k int) int32 {
	if k < 1 {
		return 1
	}
	if k > 100 {
		return 100
	}
	return int32(k) // #nosec G115 -- validated range 1-100
}

// rowsToResults converts sqlc filtered-search rows to business model Results.
func (s *Store) rowsToResults(rows []sqlc.SearchDocumentsRow) []Result {
	results := make([]Result, 0, len(rows))

	for _, row := range rows {
		var metadata map[string]string
		if err := json.Unmarshal(row.Metadata, &metadata); err != nil {
			s.logger.Warn("failed to parse metadata", "document_id", row.ID, "error", err)
			metadata = make(map[string]string)
		}

		var createAt time.Time
		if row.CreatedAt.Valid {
			createAt = row.CreatedAt.Time
		}

		results = append(results, Result{
			Document: Document{
				ID:       row.ID,
				Content:  row.Content,
				Metadata: metadata,
				CreateAt: createAt,
			},
			Distance: row.Distance,
		})
	}

	return results
}

// rowsToResultsAll converts sqlc unfiltered-search rows to business model Results.
func (s *Store) rowsToResultsAll(rows []sqlc.SearchDocumentsAllRow) []Result {
	results := make([]Result, 0, len(rows))

	for _, row := range rows {
		var metadata map[string]string
		if err := json.Unmarshal(row.Metadata, &metadata); err != nil {
			s.logger.Warn("failed to parse metadata", "document_id", row.ID, "error", err)
			metadata = make(map[string]string)
		}

		var createAt time.Time
		if row.CreatedAt.Valid {
			createAt = row.CreatedAt.Time
		}

		results = append(results, Result{
			Document: Document{
				ID:       row.ID,
				Content:  row.Content,
				Metadata: metadata,
				CreateAt: createAt,
			},
			Distance: row.Distance,
		})
	}

	return results
}
