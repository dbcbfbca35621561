package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/paperstack/invoicehub/internal/api/response"
	"github.com/paperstack/invoicehub/internal/api/validation"
	"github.com/paperstack/invoicehub/internal/service"
)

// IngestService defines the interface for batch invoice ingestion.
type IngestService interface {
	IngestBatch(ctx context.Context, title string, files []service.IngestFile) service.IngestResult
}

// IngestHandler handles HTTP requests for invoice ingestion.
type IngestHandler struct {
	service IngestService
}

// NewIngestHandler creates a new ingest handler.
func NewIngestHandler(service IngestService) *IngestHandler {
	return &IngestHandler{service: service}
}

// maxMultipartMemory is how much of the upload is buffered in memory before
// spilling to temp files; the overall body size is capped by the MaxBody middleware.
const maxMultipartMemory = 16 << 20

// IngestForm holds the non-file fields of the ingest multipart form.
type IngestForm struct {
	Title string `form:"title" validate:"omitempty,max=255,no_null_bytes"`
}

// IngestItemResponse is the per-file outcome in the ingest response.
// API contract uses camelCase.
type IngestItemResponse struct {
	Source     string `json:"source"`
	Status     string `json:"status"` // "ingested" or "failed"
	DocumentID string `json:"documentId,omitempty"` //nolint:tagliatelle // API contract
	Error      string `json:"error,omitempty"`
}

// IngestResponse is the response for POST /v1/invoices/ingest.
type IngestResponse struct {
	Items         []IngestItemResponse `json:"items"`
	IngestedCount int                  `json:"ingestedCount"` //nolint:tagliatelle // API contract
}

// Ingest handles POST /v1/invoices/ingest. Accepts a multipart form with a
// "files" field (one or more images) and an optional "title" field. Each file
// is processed in order; one file's failure is reported inline and does not
// abort the batch.
func (h *IngestHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			response.RespondError(w, http.StatusRequestEntityTooLarge,
				"Request Entity Too Large", "upload exceeds maximum allowed size")

			return
		}

		response.RespondBadRequest(w, "Invalid multipart form")

		return
	}

	fileHeaders := r.MultipartForm.File["files"]
	if len(fileHeaders) == 0 {
		response.RespondBadRequest(w, "At least one file is required")

		return
	}

	var form IngestForm
	if err := validation.ValidateAndDecodeFormValues(r.MultipartForm.Value, &form); err != nil {
		validation.RespondValidationError(w, err)

		return
	}

	files := make([]service.IngestFile, 0, len(fileHeaders))

	for _, fh := range fileHeaders {
		data, err := readUpload(fh)
		if err != nil {
			response.RespondBadRequest(w, "Failed to read uploaded file: "+fh.Filename)

			return
		}

		files = append(files, service.IngestFile{Name: fh.Filename, Data: data})
	}

	result := h.service.IngestBatch(r.Context(), form.Title, files)

	items := make([]IngestItemResponse, 0, len(result.Items))

	for _, item := range result.Items {
		out := IngestItemResponse{Source: item.Source}
		if item.Err != nil {
			out.Status = "failed"
			out.Error = item.Err.Error()
		} else {
			out.Status = "ingested"
			out.DocumentID = item.DocumentID.String()
		}

		items = append(items, out)
	}

	response.RespondJSON(w, http.StatusOK, IngestResponse{
		Items:         items,
		IngestedCount: result.IngestedCount,
	})
}

// readUpload opens one multipart file and reads it fully.
func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	return data, nil
}
