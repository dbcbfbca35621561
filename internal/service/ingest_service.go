package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/paperstack/invoicehub/internal/models"
	pkgembeddings "github.com/paperstack/invoicehub/pkg/embeddings"
)

// Extractor turns an invoice image into raw text plus a structured record.
type Extractor interface {
	Extract(ctx context.Context, image []byte) (string, models.InvoiceRecord, error)
}

// EmbeddingClient generates an embedding vector for a text.
type EmbeddingClient interface {
	CreateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// DocumentInserter appends one document to the store.
type DocumentInserter interface {
	Insert(ctx context.Context, doc models.Document) (uuid.UUID, error)
}

// ImageEnhancer preprocesses an image before OCR (optional).
type ImageEnhancer func(image []byte) ([]byte, error)

// IngestFile is one uploaded image in an ingestion batch.
type IngestFile struct {
	Name string
	Data []byte
}

// IngestItemResult is the outcome for one file in a batch. Err is nil on success.
type IngestItemResult struct {
	Source     string
	DocumentID uuid.UUID
	Err        error
}

// IngestResult aggregates per-file outcomes and the success count.
type IngestResult struct {
	Items         []IngestItemResult
	IngestedCount int
}

// IngestService drives the ingest pipeline: extract, embed, store. Files are
// processed strictly sequentially; one file's failure is recorded against that
// file and the batch continues.
type IngestService struct {
	extractor       Extractor
	embeddingClient EmbeddingClient
	documents       DocumentInserter
	enhance         ImageEnhancer
	limiter         *rate.Limiter
	logger          *slog.Logger
}

// IngestServiceParams configures IngestService. Enhance and Limiter may be nil
// (no preprocessing, no rate limiting).
type IngestServiceParams struct {
	Extractor       Extractor
	EmbeddingClient EmbeddingClient
	Documents       DocumentInserter
	Enhance         ImageEnhancer
	Limiter         *rate.Limiter
	Logger          *slog.Logger
}

// NewIngestService creates an IngestService.
func NewIngestService(p IngestServiceParams) *IngestService {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &IngestService{
		extractor:       p.Extractor,
		embeddingClient: p.EmbeddingClient,
		documents:       p.Documents,
		enhance:         p.Enhance,
		limiter:         p.Limiter,
		logger:          logger,
	}
}

// IngestBatch processes each file in order: optional image enhancement, the
// two-pass extraction, embedding of the combined title + raw text, and insert.
// title falls back to the filename when empty. Per-file failures do not abort
// the batch.
func (s *IngestService) IngestBatch(ctx context.Context, title string, files []IngestFile) IngestResult {
	result := IngestResult{Items: make([]IngestItemResult, 0, len(files))}

	for _, file := range files {
		id, err := s.ingestOne(ctx, title, file)
		if err != nil {
			s.logger.Error("ingest: file failed", "source", file.Name, "error", err)
			result.Items = append(result.Items, IngestItemResult{Source: file.Name, Err: err})

			continue
		}

		s.logger.Info("ingest: file stored", "source", file.Name, "document_id", id.String())
		result.Items = append(result.Items, IngestItemResult{Source: file.Name, DocumentID: id})
		result.IngestedCount++
	}

	return result
}

// ingestOne runs the pipeline for a single file.
func (s *IngestService) ingestOne(ctx context.Context, title string, file IngestFile) (uuid.UUID, error) {
	image := file.Data

	if s.enhance != nil {
		enhanced, err := s.enhance(image)
		if err != nil {
			// Enhancement is best effort; fall back to the original bytes.
			s.logger.Warn("ingest: image enhancement failed, using original", "source", file.Name, "error", err)
		} else {
			image = enhanced
		}
	}

	rawText, record, err := s.extractor.Extract(ctx, image)
	if err != nil {
		return uuid.Nil, fmt.Errorf("extract: %w", err)
	}

	docTitle := title
	if docTitle == "" {
		docTitle = file.Name
	}

	combinedText := "Document Title: " + docTitle + "\n\n" + rawText

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return uuid.Nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	embedding, err := s.embeddingClient.CreateEmbedding(ctx, combinedText)
	if err != nil {
		return uuid.Nil, fmt.Errorf("create embedding: %w", err)
	}

	pkgembeddings.NormalizeL2(embedding)

	id, err := s.documents.Insert(ctx, models.Document{
		Title:     docTitle,
		Source:    file.Name,
		RawText:   combinedText,
		Contents:  record,
		Embedding: embedding,
		IsSynced:  false,
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert document: %w", err)
	}

	return id, nil
}
