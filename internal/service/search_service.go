package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/paperstack/invoicehub/internal/models"
	"github.com/paperstack/invoicehub/pkg/cache"
	pkgembeddings "github.com/paperstack/invoicehub/pkg/embeddings"
)

// DefaultTopK is the number of nearest documents retrieved when the caller
// does not specify one.
const DefaultTopK = 4

// ErrEmptyQuery is returned when the query is empty after trimming.
var ErrEmptyQuery = errors.New("query is required and must be non-empty")

// DocumentsRepoForSearch provides the vector search operation needed for retrieval.
type DocumentsRepoForSearch interface {
	NearestByEmbedding(ctx context.Context, queryEmbedding []float32, k int, exact bool) (
		[]models.DocumentWithScore, error)
}

// AnswerClient generates a free-text answer for a prompt.
type AnswerClient interface {
	Answer(ctx context.Context, prompt string) (string, error)
}

// SearchService answers natural-language questions over the ingested corpus:
// embed the query, fetch the nearest documents, and prompt the answer model
// with their text as context.
type SearchService struct {
	embeddingClient EmbeddingClient
	documentsRepo   DocumentsRepoForSearch
	answerClient    AnswerClient
	queryCache      *cache.LoaderCache[[]float32]
	logger          *slog.Logger
}

// SearchServiceParams configures SearchService. QueryCache may be nil (no caching).
type SearchServiceParams struct {
	EmbeddingClient EmbeddingClient
	DocumentsRepo   DocumentsRepoForSearch
	AnswerClient    AnswerClient
	QueryCache      *cache.LoaderCache[[]float32]
	Logger          *slog.Logger
}

// NewSearchService creates a SearchService.
func NewSearchService(p SearchServiceParams) *SearchService {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &SearchService{
		embeddingClient: p.EmbeddingClient,
		documentsRepo:   p.DocumentsRepo,
		answerClient:    p.AnswerClient,
		queryCache:      p.QueryCache,
		logger:          logger,
	}
}

// Answer returns the topK nearest documents (best match first) and the model's
// answer generated from their concatenated text. topK <= 0 uses DefaultTopK.
// exact requests exhaustive rather than approximate vector search. The
// documents are returned for display only; no citation linking is performed.
func (s *SearchService) Answer(ctx context.Context, query string, topK int, exact bool) (models.QueryResult, error) {
	out := models.QueryResult{}

	query = strings.TrimSpace(query)
	if query == "" {
		return out, ErrEmptyQuery
	}

	if topK <= 0 {
		topK = DefaultTopK
	}

	var (
		embedding []float32
		err       error
	)

	if s.queryCache != nil {
		embedding, err = s.queryCache.Get(ctx, query, s.createQueryEmbedding)
	} else {
		embedding, err = s.createQueryEmbedding(ctx, query)
	}

	if err != nil {
		s.logger.Error("search: create embedding failed", "error", err, "topK", topK)

		return out, fmt.Errorf("create embedding: %w", err)
	}

	documents, err := s.documentsRepo.NearestByEmbedding(ctx, embedding, topK, exact)
	if err != nil {
		s.logger.Error("search: nearest failed", "error", err)

		return out, fmt.Errorf("nearest documents: %w", err)
	}

	answer, err := s.answerClient.Answer(ctx, buildPrompt(documents, query))
	if err != nil {
		s.logger.Error("search: answer generation failed", "error", err)

		return out, fmt.Errorf("generate answer: %w", err)
	}

	out.Documents = documents
	out.Answer = answer

	return out, nil
}

// buildPrompt concatenates the matched documents' text with blank-line
// separators, in the order returned (best match first), and appends the question.
func buildPrompt(documents []models.DocumentWithScore, query string) string {
	texts := make([]string, len(documents))
	for i, doc := range documents {
		texts[i] = doc.RawText
	}

	return "Context: " + strings.Join(texts, "\n\n") + "\n\nQuestion: " + query
}

// createQueryEmbedding embeds the query and normalizes it for the cosine index.
func (s *SearchService) createQueryEmbedding(ctx context.Context, query string) ([]float32, error) {
	embedding, err := s.embeddingClient.CreateEmbedding(ctx, query)
	if err != nil {
		return nil, err
	}

	pkgembeddings.NormalizeL2(embedding)

	return embedding, nil
}
