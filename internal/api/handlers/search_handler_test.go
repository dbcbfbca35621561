package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperstack/invoicehub/internal/models"
	"github.com/paperstack/invoicehub/internal/service"
)

type mockSearchService struct {
	answerFunc func(ctx context.Context, query string, topK int, exact bool) (models.QueryResult, error)
}

func (m *mockSearchService) Answer(ctx context.Context, query string, topK int, exact bool) (models.QueryResult, error) {
	if m.answerFunc != nil {
		return m.answerFunc(ctx, query, topK, exact)
	}

	return models.QueryResult{}, nil
}

func TestSearchHandler_Search(t *testing.T) {
	t.Run("invalid body returns 400", func(t *testing.T) {
		handler := NewSearchHandler(&mockSearchService{})

		req := httptest.NewRequest(http.MethodPost, "/v1/invoices/search", strings.NewReader("{not json"))
		rec := httptest.NewRecorder()
		handler.Search(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown fields are rejected", func(t *testing.T) {
		handler := NewSearchHandler(&mockSearchService{})

		req := httptest.NewRequest(http.MethodPost, "/v1/invoices/search",
			strings.NewReader(`{"query":"q","unknown":true}`))
		rec := httptest.NewRecorder()
		handler.Search(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("empty query rejected by validation", func(t *testing.T) {
		called := false
		svc := &mockSearchService{
			answerFunc: func(_ context.Context, _ string, _ int, _ bool) (models.QueryResult, error) {
				called = true

				return models.QueryResult{}, nil
			},
		}
		handler := NewSearchHandler(svc)

		req := httptest.NewRequest(http.MethodPost, "/v1/invoices/search", strings.NewReader(`{"query":""}`))
		rec := httptest.NewRecorder()
		handler.Search(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.False(t, called)
		assert.Contains(t, rec.Body.String(), "Query is required")
	})

	t.Run("whitespace query returns 400", func(t *testing.T) {
		svc := &mockSearchService{
			answerFunc: func(_ context.Context, _ string, _ int, _ bool) (models.QueryResult, error) {
				return models.QueryResult{}, service.ErrEmptyQuery
			},
		}
		handler := NewSearchHandler(svc)

		req := httptest.NewRequest(http.MethodPost, "/v1/invoices/search", strings.NewReader(`{"query":"   "}`))
		rec := httptest.NewRecorder()
		handler.Search(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("service failure returns 500", func(t *testing.T) {
		svc := &mockSearchService{
			answerFunc: func(_ context.Context, _ string, _ int, _ bool) (models.QueryResult, error) {
				return models.QueryResult{}, assert.AnError
			},
		}
		handler := NewSearchHandler(svc)

		req := httptest.NewRequest(http.MethodPost, "/v1/invoices/search", strings.NewReader(`{"query":"q"}`))
		rec := httptest.NewRecorder()
		handler.Search(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("success returns documents and answer", func(t *testing.T) {
		svc := &mockSearchService{
			answerFunc: func(_ context.Context, query string, topK int, exact bool) (models.QueryResult, error) {
				assert.Equal(t, "total for acme?", query)
				assert.Equal(t, 4, topK)
				assert.True(t, exact)

				return models.QueryResult{
					Documents: []models.DocumentWithScore{{RawText: "doc text", Score: 0.87}},
					Answer:    "acme owes 500",
				}, nil
			},
		}
		handler := NewSearchHandler(svc)

		req := httptest.NewRequest(http.MethodPost, "/v1/invoices/search",
			strings.NewReader(`{"query":"total for acme?","topK":4,"exact":true}`))
		rec := httptest.NewRecorder()
		handler.Search(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp SearchResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "acme owes 500", resp.Answer)
		require.Len(t, resp.Results, 1)
		assert.Equal(t, "doc text", resp.Results[0].RawText)
		assert.InDelta(t, 0.87, resp.Results[0].Score, 1e-9)
	})

	t.Run("topK above the cap rejected by validation", func(t *testing.T) {
		called := false
		svc := &mockSearchService{
			answerFunc: func(_ context.Context, _ string, _ int, _ bool) (models.QueryResult, error) {
				called = true

				return models.QueryResult{}, nil
			},
		}
		handler := NewSearchHandler(svc)

		req := httptest.NewRequest(http.MethodPost, "/v1/invoices/search",
			strings.NewReader(`{"query":"q","topK":500}`))
		rec := httptest.NewRecorder()
		handler.Search(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.False(t, called)
		assert.Contains(t, rec.Body.String(), "TopK must be less than or equal to 50")
	})

	t.Run("omitted exact defaults to exhaustive search", func(t *testing.T) {
		var gotExact bool
		svc := &mockSearchService{
			answerFunc: func(_ context.Context, _ string, _ int, exact bool) (models.QueryResult, error) {
				gotExact = exact

				return models.QueryResult{}, nil
			},
		}
		handler := NewSearchHandler(svc)

		req := httptest.NewRequest(http.MethodPost, "/v1/invoices/search", strings.NewReader(`{"query":"q"}`))
		rec := httptest.NewRecorder()
		handler.Search(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, gotExact)
	})

	t.Run("explicit exact false takes the approximate path", func(t *testing.T) {
		var gotExact bool
		svc := &mockSearchService{
			answerFunc: func(_ context.Context, _ string, _ int, exact bool) (models.QueryResult, error) {
				gotExact = exact

				return models.QueryResult{}, nil
			},
		}
		handler := NewSearchHandler(svc)

		req := httptest.NewRequest(http.MethodPost, "/v1/invoices/search",
			strings.NewReader(`{"query":"q","exact":false}`))
		rec := httptest.NewRecorder()
		handler.Search(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.False(t, gotExact)
	})
}
