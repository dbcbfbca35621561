package extract

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/paperstack/invoicehub/internal/models"
)

// MockVisionClient implements VisionClient for testing purposes.
// It returns canned OCR text and a well-formed JSON structuring response
// derived from the configured record.
type MockVisionClient struct {
	RawText string
	Record  models.InvoiceRecord
}

// NewMockVisionClient creates a mock vision client with plausible invoice content.
func NewMockVisionClient() *MockVisionClient {
	return &MockVisionClient{
		RawText: "Invoice #123, Date: 2024-01-01, Total: $500.00, Acme Corp",
		Record: models.InvoiceRecord{
			InvoiceNumber: "123",
			InvoiceDate:   "2024-01-01",
			TotalAmount:   500.0,
			Vendor:        "Acme Corp",
		},
	}
}

// ExtractText returns the configured raw text.
func (m *MockVisionClient) ExtractText(_ context.Context, image []byte) (string, error) {
	if len(image) == 0 {
		return "", fmt.Errorf("image is empty")
	}

	return m.RawText, nil
}

// StructureJSON returns the configured record marshalled as JSON.
func (m *MockVisionClient) StructureJSON(_ context.Context, _ string) (string, error) {
	out, err := json.Marshal(m.Record)
	if err != nil {
		return "", fmt.Errorf("marshal record: %w", err)
	}

	return string(out), nil
}

// Ensure MockVisionClient implements VisionClient
var _ VisionClient = (*MockVisionClient)(nil)
