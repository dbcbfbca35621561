package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperstack/invoicehub/internal/models"
	"github.com/paperstack/invoicehub/pkg/cache"
)

type mockDocumentsRepo struct {
	nearestFunc func(ctx context.Context, queryEmbedding []float32, k int, exact bool) (
		[]models.DocumentWithScore, error)
}

func (m *mockDocumentsRepo) NearestByEmbedding(
	ctx context.Context, queryEmbedding []float32, k int, exact bool,
) ([]models.DocumentWithScore, error) {
	if m.nearestFunc != nil {
		return m.nearestFunc(ctx, queryEmbedding, k, exact)
	}

	return nil, nil
}

type mockAnswerClient struct {
	answerFunc func(ctx context.Context, prompt string) (string, error)
}

func (m *mockAnswerClient) Answer(ctx context.Context, prompt string) (string, error) {
	if m.answerFunc != nil {
		return m.answerFunc(ctx, prompt)
	}

	return "the answer", nil
}

func TestSearchService_Answer(t *testing.T) {
	t.Run("empty query returns ErrEmptyQuery", func(t *testing.T) {
		svc := NewSearchService(SearchServiceParams{
			EmbeddingClient: &mockEmbeddingClient{},
			DocumentsRepo:   &mockDocumentsRepo{},
			AnswerClient:    &mockAnswerClient{},
		})

		_, err := svc.Answer(context.Background(), "   ", 4, false)
		assert.ErrorIs(t, err, ErrEmptyQuery)
	})

	t.Run("topK defaults to 4 and exact is forwarded", func(t *testing.T) {
		var gotK int
		var gotExact bool
		repo := &mockDocumentsRepo{
			nearestFunc: func(_ context.Context, _ []float32, k int, exact bool) ([]models.DocumentWithScore, error) {
				gotK = k
				gotExact = exact

				return nil, nil
			},
		}
		svc := NewSearchService(SearchServiceParams{
			EmbeddingClient: &mockEmbeddingClient{},
			DocumentsRepo:   repo,
			AnswerClient:    &mockAnswerClient{},
		})

		_, err := svc.Answer(context.Background(), "total for acme?", 0, true)
		require.NoError(t, err)
		assert.Equal(t, DefaultTopK, gotK)
		assert.True(t, gotExact)
	})

	t.Run("prompt concatenates document text best match first", func(t *testing.T) {
		repo := &mockDocumentsRepo{
			nearestFunc: func(_ context.Context, _ []float32, _ int, _ bool) ([]models.DocumentWithScore, error) {
				return []models.DocumentWithScore{
					{RawText: "first doc", Score: 0.9},
					{RawText: "second doc", Score: 0.7},
				}, nil
			},
		}

		var gotPrompt string
		answer := &mockAnswerClient{
			answerFunc: func(_ context.Context, prompt string) (string, error) {
				gotPrompt = prompt

				return "acme owes 500", nil
			},
		}
		svc := NewSearchService(SearchServiceParams{
			EmbeddingClient: &mockEmbeddingClient{},
			DocumentsRepo:   repo,
			AnswerClient:    answer,
		})

		res, err := svc.Answer(context.Background(), "total for acme?", 4, false)
		require.NoError(t, err)
		assert.Equal(t, "Context: first doc\n\nsecond doc\n\nQuestion: total for acme?", gotPrompt)
		assert.Equal(t, "acme owes 500", res.Answer)
		require.Len(t, res.Documents, 2)
		assert.InDelta(t, 0.9, res.Documents[0].Score, 1e-9)
	})

	t.Run("query embedding is normalized", func(t *testing.T) {
		var gotEmbedding []float32
		repo := &mockDocumentsRepo{
			nearestFunc: func(_ context.Context, emb []float32, _ int, _ bool) ([]models.DocumentWithScore, error) {
				gotEmbedding = emb

				return nil, nil
			},
		}
		svc := NewSearchService(SearchServiceParams{
			EmbeddingClient: &mockEmbeddingClient{}, // returns {3, 4}
			DocumentsRepo:   repo,
			AnswerClient:    &mockAnswerClient{},
		})

		_, err := svc.Answer(context.Background(), "q", 4, false)
		require.NoError(t, err)
		require.Len(t, gotEmbedding, 2)
		assert.InDelta(t, 0.6, gotEmbedding[0], 1e-6)
		assert.InDelta(t, 0.8, gotEmbedding[1], 1e-6)
	})

	t.Run("repeated query hits the embedding cache", func(t *testing.T) {
		queryCache, err := cache.NewLoaderCache[[]float32](10)
		require.NoError(t, err)

		embedding := &mockEmbeddingClient{}
		svc := NewSearchService(SearchServiceParams{
			EmbeddingClient: embedding,
			DocumentsRepo:   &mockDocumentsRepo{},
			AnswerClient:    &mockAnswerClient{},
			QueryCache:      queryCache,
		})

		_, err = svc.Answer(context.Background(), "same question", 4, false)
		require.NoError(t, err)
		_, err = svc.Answer(context.Background(), "same question", 4, false)
		require.NoError(t, err)

		assert.Equal(t, 1, embedding.calls)
	})

	t.Run("embedding failure is propagated", func(t *testing.T) {
		embedding := &mockEmbeddingClient{
			createFunc: func(_ context.Context, _ string) ([]float32, error) {
				return nil, assert.AnError
			},
		}
		svc := NewSearchService(SearchServiceParams{
			EmbeddingClient: embedding,
			DocumentsRepo:   &mockDocumentsRepo{},
			AnswerClient:    &mockAnswerClient{},
		})

		_, err := svc.Answer(context.Background(), "q", 4, false)
		assert.ErrorIs(t, err, assert.AnError)
	})

	t.Run("answer failure is propagated", func(t *testing.T) {
		answer := &mockAnswerClient{
			answerFunc: func(_ context.Context, _ string) (string, error) {
				return "", assert.AnError
			},
		}
		svc := NewSearchService(SearchServiceParams{
			EmbeddingClient: &mockEmbeddingClient{},
			DocumentsRepo:   &mockDocumentsRepo{},
			AnswerClient:    answer,
		})

		_, err := svc.Answer(context.Background(), "q", 4, false)
		assert.ErrorIs(t, err, assert.AnError)
	})
}
