package models

import (
	"time"

	"github.com/google/uuid"
)

// Default field values used when the structuring model omits or mangles a field.
const (
	DefaultInvoiceNumber = "N/A"
	DefaultInvoiceDate   = "N/A"
	DefaultVendor        = "Unknown"
)

// InvoiceRecord is the validated structured extraction result for one invoice.
// All four fields are always present: missing or unusable values resolve to
// the documented defaults, never to an error.
type InvoiceRecord struct {
	InvoiceNumber string  `json:"invoice_number"`
	InvoiceDate   string  `json:"invoice_date"`
	TotalAmount   float64 `json:"total_amount"`
	Vendor        string  `json:"vendor"`
}

// Document is one ingested invoice as persisted: the raw extracted text, the
// structured record, and the embedding of the combined title + raw text.
// Documents are append-only; there are no update or delete operations.
type Document struct {
	ID        uuid.UUID     `json:"id"`
	Title     string        `json:"title"`
	Source    string        `json:"source"` // original upload filename
	RawText   string        `json:"raw_text"`
	Contents  InvoiceRecord `json:"contents"`
	Embedding []float32     `json:"embedding"`
	IsSynced  bool          `json:"is_synced"`
	CreatedAt time.Time     `json:"created_at"`
}

// DocumentWithScore is one vector search hit: the document's raw text and its
// similarity score (0..1, higher is closer).
type DocumentWithScore struct {
	RawText string  `json:"raw_text"`
	Score   float64 `json:"score"`
}

// QueryResult is the outcome of one retrieval-augmented query: the matched
// documents (best first, for display) and the generated answer. Not persisted.
type QueryResult struct {
	Documents []DocumentWithScore `json:"documents"`
	Answer    string              `json:"answer"`
}
