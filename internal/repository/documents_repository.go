package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/paperstack/invoicehub/internal/models"
)

// DocumentsRepository handles data access for the documents table.
type DocumentsRepository struct {
	db         *pgxpool.Pool
	dimensions int
}

// NewDocumentsRepository creates a new documents repository. dimensions is the
// width of the embedding column; vectors of any other length are rejected
// locally instead of surfacing as an opaque database error.
func NewDocumentsRepository(db *pgxpool.Pool, dimensions int) *DocumentsRepository {
	return &DocumentsRepository{db: db, dimensions: dimensions}
}

// EnsureSchema creates the vector extension, the documents table, and the
// cosine HNSW index when they do not exist yet.
func (r *DocumentsRepository) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS documents (
			id uuid PRIMARY KEY,
			title text NOT NULL,
			source text NOT NULL,
			raw_text text NOT NULL,
			contents jsonb NOT NULL,
			embedding vector(%d) NOT NULL,
			is_synced boolean NOT NULL DEFAULT false,
			created_at timestamptz NOT NULL
		)`, r.dimensions),
		`CREATE INDEX IF NOT EXISTS documents_embedding_idx
			ON documents USING hnsw (embedding vector_cosine_ops)`,
	}

	for _, stmt := range statements {
		if _, err := r.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}

	return nil
}

// Insert appends one document and returns its generated ID. Documents are
// append-only: no dedup, no upsert; re-ingesting the same source produces a
// second row.
func (r *DocumentsRepository) Insert(ctx context.Context, doc models.Document) (uuid.UUID, error) {
	if len(doc.Embedding) != r.dimensions {
		return uuid.Nil, fmt.Errorf("documents insert: embedding has %d dimensions, index expects %d",
			len(doc.Embedding), r.dimensions)
	}

	id := doc.ID
	if id == uuid.Nil {
		id = uuid.Must(uuid.NewV7())
	}

	createdAt := doc.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO documents (id, title, source, raw_text, contents, embedding, is_synced, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, doc.Title, doc.Source, doc.RawText, doc.Contents,
		pgvector.NewVector(doc.Embedding), doc.IsSynced, createdAt,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("documents insert: %w", err)
	}

	return id, nil
}

// NearestByEmbedding returns the k documents nearest to queryEmbedding, best
// match first. Uses cosine distance (<=>); score = 1 - distance. When exact is
// true, index scans are disabled inside the query's transaction so the search
// is exhaustive rather than approximate.
func (r *DocumentsRepository) NearestByEmbedding(
	ctx context.Context, queryEmbedding []float32, k int, exact bool,
) ([]models.DocumentWithScore, error) {
	if len(queryEmbedding) != r.dimensions {
		return nil, fmt.Errorf("nearest documents: query embedding has %d dimensions, index expects %d",
			len(queryEmbedding), r.dimensions)
	}

	queryVec := pgvector.NewVector(queryEmbedding)

	const query = `
		SELECT raw_text, (1 - (embedding <=> $1)) AS score
		FROM documents
		ORDER BY embedding <=> $1
		LIMIT $2`

	var (
		rows pgx.Rows
		err  error
	)

	if exact {
		var tx pgx.Tx

		tx, err = r.db.Begin(ctx)
		if err != nil {
			return nil, fmt.Errorf("nearest documents: begin: %w", err)
		}
		defer func() { _ = tx.Rollback(ctx) }()

		if _, err = tx.Exec(ctx, `SET LOCAL enable_indexscan = off`); err != nil {
			return nil, fmt.Errorf("nearest documents: disable index scan: %w", err)
		}

		rows, err = tx.Query(ctx, query, queryVec, k)
	} else {
		rows, err = r.db.Query(ctx, query, queryVec, k)
	}

	if err != nil {
		return nil, fmt.Errorf("nearest documents: %w", err)
	}

	defer rows.Close()

	var results []models.DocumentWithScore

	for rows.Next() {
		var row models.DocumentWithScore

		if err := rows.Scan(&row.RawText, &row.Score); err != nil {
			return nil, fmt.Errorf("scan document with score: %w", err)
		}

		results = append(results, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating nearest: %w", err)
	}

	return results, nil
}

// Count returns the number of ingested documents.
func (r *DocumentsRepository) Count(ctx context.Context) (int64, error) {
	var count int64

	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("documents count: %w", err)
	}

	return count, nil
}
