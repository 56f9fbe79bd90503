package corpus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/pgvector/pgvector-go"
)

// searchTimeout bounds one embed-and-search round trip so a slow vector
// query never blocks a chat turn indefinitely.
const searchTimeout = 10 * time.Second

// chunkMetadata is the JSON shape of the documents.metadata column.
type chunkMetadata struct {
	Source string `json:"source"`
	Page   int    `json:"page"`
}

// Store manages embedded document chunks in PostgreSQL + pgvector.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	queries  Querier
	embedder ai.Embedder
	logger   *slog.Logger
}

// NewStore creates a Store.
//
// Example (production):
//
//	store := corpus.NewStore(corpus.NewQuerier(pool), embedder, logger)
//
// Example (testing with mocks):
//
//	store := corpus.NewStore(mockQuerier, mockEmbedder, log.NewNop())
func NewStore(querier Querier, embedder ai.Embedder, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{queries: querier, embedder: embedder, logger: logger}
}

// Chunk is one pre-split document fragment queued for indexing.
type Chunk struct {
	ID      string
	Content string
	Source  string
	Page    int
}

// Rebuild embeds every chunk and replaces the whole index in a single
// transaction. Embedding runs before any row is touched, so an embedder
// failure leaves the previous index as it was; an insert failure rolls
// the replacement back.
func (s *Store) Rebuild(ctx context.Context, chunks []Chunk) error {
	rows := make([]UpsertDocumentParams, 0, len(chunks))
	for _, chunk := range chunks {
		embedding, err := s.embed(ctx, chunk.Content)
		if err != nil {
			return fmt.Errorf("embedding chunk %q: %w", chunk.ID, err)
		}
		metadata, err := json.Marshal(chunkMetadata{Source: chunk.Source, Page: chunk.Page})
		if err != nil {
			return fmt.Errorf("marshaling metadata for %q: %w", chunk.ID, err)
		}
		rows = append(rows, UpsertDocumentParams{
			ID:        chunk.ID,
			Content:   chunk.Content,
			Embedding: embedding,
			Metadata:  metadata,
		})
	}

	if err := s.queries.ReplaceAllDocuments(ctx, rows); err != nil {
		return fmt.Errorf("replacing index: %w", err)
	}

	s.logger.Debug("index replaced", "chunks", len(rows))
	return nil
}

// SearchNearest embeds the query and returns the fetchK nearest chunks by
// cosine similarity, embeddings included. An empty index yields an empty
// slice, not an error.
func (s *Store) SearchNearest(ctx context.Context, query string, fetchK int) ([]Candidate, error) {
	if fetchK <= 0 {
		return nil, fmt.Errorf("fetchK must be positive, got %d", fetchK)
	}

	queryCtx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	embedding, err := s.embed(queryCtx, query)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("query embedding timeout: %w", err)
		}
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	rows, err := s.queries.SearchNearest(queryCtx, embedding, int32(fetchK))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("vector search timeout: %w", err)
		}
		return nil, fmt.Errorf("searching documents: %w", err)
	}

	candidates := make([]Candidate, 0, len(rows))
	for _, row := range rows {
		var meta chunkMetadata
		if len(row.Metadata) > 0 {
			if err := json.Unmarshal(row.Metadata, &meta); err != nil {
				s.logger.Warn("unparseable chunk metadata", "id", row.ID, "error", err)
			}
		}
		candidates = append(candidates, Candidate{
			ID:         row.ID,
			Content:    row.Content,
			Source:     meta.Source,
			Page:       meta.Page,
			Embedding:  row.Embedding.Slice(),
			Similarity: row.Similarity,
		})
	}

	s.logger.Debug("vector search completed", "query_length", len(query), "candidates", len(candidates))
	return candidates, nil
}

// Count returns the number of indexed chunks.
func (s *Store) Count(ctx context.Context) (int64, error) {
	count, err := s.queries.CountDocuments(ctx)
	if err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return count, nil
}

func (s *Store) embed(ctx context.Context, text string) (pgvector.Vector, error) {
	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{
		Input: []*ai.Document{
			{Content: []*ai.Part{ai.NewTextPart(text)}},
		},
	})
	if err != nil {
		return pgvector.Vector{}, err
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return pgvector.Vector{}, errors.New("embedder returned empty embedding")
	}
	return pgvector.NewVector(resp.Embeddings[0].Embedding), nil
}
