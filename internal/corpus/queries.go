package corpus

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// Querier defines the database operations Store depends on.
// Interfaces are defined by the consumer: tests supply a mock, production
// uses the pgx-backed implementation from NewQuerier.
type Querier interface {
	ReplaceAllDocuments(ctx context.Context, rows []UpsertDocumentParams) error
	SearchNearest(ctx context.Context, embedding pgvector.Vector, limit int32) ([]CandidateRow, error)
	CountDocuments(ctx context.Context) (int64, error)
}

// UpsertDocumentParams carries one chunk row for the documents table.
type UpsertDocumentParams struct {
	ID        string
	Content   string
	Embedding pgvector.Vector
	Metadata  []byte
}

// CandidateRow is one raw nearest-neighbor result. The embedding column
// is returned so callers can re-rank without a second round trip.
type CandidateRow struct {
	ID         string
	Content    string
	Metadata   []byte
	Embedding  pgvector.Vector
	Similarity float64
}

type pgQuerier struct {
	pool *pgxpool.Pool
}

// NewQuerier returns the production Querier backed by pool.
func NewQuerier(pool *pgxpool.Pool) Querier {
	return &pgQuerier{pool: pool}
}

const upsertDocumentSQL = `
INSERT INTO documents (id, content, embedding, metadata)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE
SET content = EXCLUDED.content,
    embedding = EXCLUDED.embedding,
    metadata = EXCLUDED.metadata,
    created_at = now()`

const deleteAllDocumentsSQL = `DELETE FROM documents`

// ReplaceAllDocuments swaps the whole index inside one transaction. A
// failed insert rolls the delete back, so readers either see the old
// index or the new one, never a partial rebuild.
func (q *pgQuerier) ReplaceAllDocuments(ctx context.Context, rows []UpsertDocumentParams) error {
	tx, err := q.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin index replace: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, deleteAllDocumentsSQL); err != nil {
		return fmt.Errorf("clear documents: %w", err)
	}
	for _, row := range rows {
		if _, err := tx.Exec(ctx, upsertDocumentSQL, row.ID, row.Content, row.Embedding, row.Metadata); err != nil {
			return fmt.Errorf("insert document %s: %w", row.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit index replace: %w", err)
	}
	return nil
}

// searchNearestSQL orders by cosine distance; similarity = 1 - distance.
const searchNearestSQL = `
SELECT id, content, metadata, embedding,
       1 - (embedding <=> $1) AS similarity
FROM documents
WHERE embedding IS NOT NULL
ORDER BY embedding <=> $1
LIMIT $2`

func (q *pgQuerier) SearchNearest(ctx context.Context, embedding pgvector.Vector, limit int32) ([]CandidateRow, error) {
	rows, err := q.pool.Query(ctx, searchNearestSQL, embedding, limit)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	var results []CandidateRow
	for rows.Next() {
		var row CandidateRow
		if err := rows.Scan(&row.ID, &row.Content, &row.Metadata, &row.Embedding, &row.Similarity); err != nil {
			return nil, fmt.Errorf("scan search row: %w", err)
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search rows: %w", err)
	}
	return results, nil
}

const countDocumentsSQL = `SELECT count(*) FROM documents`

func (q *pgQuerier) CountDocuments(ctx context.Context) (int64, error) {
	var count int64
	if err := q.pool.QueryRow(ctx, countDocumentsSQL).Scan(&count); err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return count, nil
}
