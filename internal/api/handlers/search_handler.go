package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/paperstack/invoicehub/internal/api/response"
	"github.com/paperstack/invoicehub/internal/api/validation"
	"github.com/paperstack/invoicehub/internal/models"
	"github.com/paperstack/invoicehub/internal/service"
)

// SearchService defines the interface for retrieval-augmented question answering.
type SearchService interface {
	Answer(ctx context.Context, query string, topK int, exact bool) (models.QueryResult, error)
}

// SearchHandler handles HTTP requests for querying the ingested corpus.
type SearchHandler struct {
	service SearchService
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(service SearchService) *SearchHandler {
	return &SearchHandler{service: service}
}

// SearchRequest is the body for POST /v1/invoices/search.
// API contract uses camelCase (topK). Exact is a pointer so an omitted field
// defaults to exhaustive search rather than the approximate index path.
type SearchRequest struct {
	Query string `json:"query" validate:"required,no_null_bytes"`
	TopK  int    `json:"topK"  validate:"gte=0,lte=50"` //nolint:tagliatelle // API contract
	Exact *bool  `json:"exact"`
}

// SearchResultItem is one matched document with its similarity score.
type SearchResultItem struct {
	RawText string  `json:"rawText"` //nolint:tagliatelle // API contract
	Score   float64 `json:"score"`
}

// SearchResponse is the response for POST /v1/invoices/search.
type SearchResponse struct {
	Results []SearchResultItem `json:"results"`
	Answer  string             `json:"answer"`
}

// Search handles POST /v1/invoices/search.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(&req); err != nil {
		response.RespondBadRequest(w, "Invalid request body")

		return
	}

	if err := validation.ValidateStruct(&req); err != nil {
		validation.RespondValidationError(w, err)

		return
	}

	exact := true
	if req.Exact != nil {
		exact = *req.Exact
	}

	res, err := h.service.Answer(r.Context(), req.Query, req.TopK, exact)
	if err != nil {
		if errors.Is(err, service.ErrEmptyQuery) {
			response.RespondBadRequest(w, "query is required and must be non-empty")

			return
		}

		response.RespondInternalServerError(w, "Search failed")

		return
	}

	response.RespondJSON(w, http.StatusOK, SearchResponse{
		Results: toResultItems(res.Documents),
		Answer:  res.Answer,
	})
}

func toResultItems(documents []models.DocumentWithScore) []SearchResultItem {
	items := make([]SearchResultItem, 0, len(documents))
	for _, doc := range documents {
		items = append(items, SearchResultItem{RawText: doc.RawText, Score: doc.Score})
	}

	return items
}
