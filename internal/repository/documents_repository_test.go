package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvector "github.com/pgvector/pgvector-go/pgx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/paperstack/invoicehub/internal/models"
	"github.com/paperstack/invoicehub/pkg/database"
)

const testDimensions = 3

// startPostgres spins up a pgvector-enabled Postgres container and returns a
// pool connected to it. Requires Docker; gate with RUN_INTEGRATION_TESTS=true.
func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if os.Getenv("RUN_INTEGRATION_TESTS") != "true" {
		t.Skip("set RUN_INTEGRATION_TESTS=true to run integration tests")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx, "pgvector/pgvector:pg16",
		postgres.WithDatabase("invoicehub_test"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := database.NewPostgresPool(ctx, connStr,
		database.WithAfterConnect(pgxvector.RegisterTypes))
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return pool
}

func testDocument(title, rawText string, embedding []float32) models.Document {
	return models.Document{
		Title:   title,
		Source:  title + ".png",
		RawText: rawText,
		Contents: models.InvoiceRecord{
			InvoiceNumber: "123",
			InvoiceDate:   "2024-01-01",
			TotalAmount:   500.0,
			Vendor:        "Acme Corp",
		},
		Embedding: embedding,
	}
}

func TestDocumentsRepository_Integration(t *testing.T) {
	pool := startPostgres(t)
	ctx := context.Background()

	repo := NewDocumentsRepository(pool, testDimensions)
	require.NoError(t, repo.EnsureSchema(ctx))

	// EnsureSchema is idempotent.
	require.NoError(t, repo.EnsureSchema(ctx))

	t.Run("insert assigns an ID and counts", func(t *testing.T) {
		id, err := repo.Insert(ctx, testDocument("acme", "Invoice #123", []float32{1, 0, 0}))
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, id)

		count, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("insert rejects wrong dimensions", func(t *testing.T) {
		_, err := repo.Insert(ctx, testDocument("bad", "x", []float32{1, 0}))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "dimensions")
	})

	t.Run("nearest orders by cosine similarity", func(t *testing.T) {
		_, err := repo.Insert(ctx, testDocument("orthogonal", "unrelated doc", []float32{0, 1, 0}))
		require.NoError(t, err)
		_, err = repo.Insert(ctx, testDocument("close", "close doc", []float32{0.9, 0.1, 0}))
		require.NoError(t, err)

		results, err := repo.NearestByEmbedding(ctx, []float32{1, 0, 0}, 2, false)
		require.NoError(t, err)
		require.Len(t, results, 2)

		assert.Equal(t, "Invoice #123", results[0].RawText)
		assert.InDelta(t, 1.0, results[0].Score, 1e-6)
		assert.Equal(t, "close doc", results[1].RawText)
		assert.Greater(t, results[0].Score, results[1].Score)
	})

	t.Run("k limits the result set", func(t *testing.T) {
		results, err := repo.NearestByEmbedding(ctx, []float32{1, 0, 0}, 1, false)
		require.NoError(t, err)
		assert.Len(t, results, 1)
	})

	t.Run("exact search returns the same best match", func(t *testing.T) {
		results, err := repo.NearestByEmbedding(ctx, []float32{1, 0, 0}, 2, true)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "Invoice #123", results[0].RawText)
	})

	t.Run("nearest rejects wrong query dimensions", func(t *testing.T) {
		_, err := repo.NearestByEmbedding(ctx, []float32{1, 0}, 2, false)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "dimensions")
	})
}
