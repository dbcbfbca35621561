package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperstack/invoicehub/internal/huberrors"
	"github.com/paperstack/invoicehub/internal/models"
)

type stubVisionClient struct {
	extractTextFunc   func(ctx context.Context, image []byte) (string, error)
	structureJSONFunc func(ctx context.Context, rawText string) (string, error)
}

func (s *stubVisionClient) ExtractText(ctx context.Context, image []byte) (string, error) {
	if s.extractTextFunc != nil {
		return s.extractTextFunc(ctx, image)
	}

	return "some invoice text", nil
}

func (s *stubVisionClient) StructureJSON(ctx context.Context, rawText string) (string, error) {
	if s.structureJSONFunc != nil {
		return s.structureJSONFunc(ctx, rawText)
	}

	return `{"invoice_number":"1","invoice_date":"2024-01-01","total_amount":1,"vendor":"V"}`, nil
}

func TestCleanAmount(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  float64
	}{
		{
			name:  "currency symbol and thousands separators",
			value: "$1,234.50",
			want:  1234.50,
		},
		{
			name:  "plain numeric string",
			value: "500.00",
			want:  500.0,
		},
		{
			name:  "text only yields zero",
			value: "N/A",
			want:  0.0,
		},
		{
			name:  "empty string yields zero",
			value: "",
			want:  0.0,
		},
		{
			name:  "surrounding words are stripped",
			value: "USD 2,000 total",
			want:  2000.0,
		},
		{
			name:  "multiple dots fail parsing and yield zero",
			value: "1.2.3",
			want:  0.0,
		},
		{
			name:  "already numeric",
			value: 99.5,
			want:  99.5,
		},
		{
			name:  "null yields zero",
			value: nil,
			want:  0.0,
		},
		{
			name:  "boolean yields zero",
			value: true,
			want:  0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CleanAmount(tt.value), 1e-9)
		})
	}
}

func TestParseStructured(t *testing.T) {
	t.Run("valid object parses all four fields", func(t *testing.T) {
		record, err := ParseStructured(
			`{"invoice_number":"123","invoice_date":"2024-01-01","total_amount":"$500.00","vendor":"Acme Corp"}`)
		require.NoError(t, err)
		assert.Equal(t, models.InvoiceRecord{
			InvoiceNumber: "123",
			InvoiceDate:   "2024-01-01",
			TotalAmount:   500.0,
			Vendor:        "Acme Corp",
		}, record)
	})

	t.Run("JSON wrapped in prose is repaired", func(t *testing.T) {
		record, err := ParseStructured(
			"Here is the extraction you asked for:\n" +
				`{"invoice_number":"77","invoice_date":"2023-05-05","total_amount":12.5,"vendor":"Globex"}` +
				"\nLet me know if you need anything else.")
		require.NoError(t, err)
		assert.Equal(t, "77", record.InvoiceNumber)
		assert.InDelta(t, 12.5, record.TotalAmount, 1e-9)
		assert.Equal(t, "Globex", record.Vendor)
	})

	t.Run("missing keys resolve to defaults", func(t *testing.T) {
		record, err := ParseStructured(`{"total_amount":"1,000"}`)
		require.NoError(t, err)
		assert.Equal(t, models.InvoiceRecord{
			InvoiceNumber: "N/A",
			InvoiceDate:   "N/A",
			TotalAmount:   1000.0,
			Vendor:        "Unknown",
		}, record)
	})

	t.Run("numeric invoice number is coerced to string", func(t *testing.T) {
		record, err := ParseStructured(`{"invoice_number":123}`)
		require.NoError(t, err)
		assert.Equal(t, "123", record.InvoiceNumber)
	})

	t.Run("integer amount decodes as float64", func(t *testing.T) {
		record, err := ParseStructured(`{"total_amount": 1234}`)
		require.NoError(t, err)
		assert.Equal(t, 1234.0, record.TotalAmount)
	})

	t.Run("null fields resolve to defaults", func(t *testing.T) {
		record, err := ParseStructured(`{"invoice_number":null,"vendor":null,"total_amount":null}`)
		require.NoError(t, err)
		assert.Equal(t, "N/A", record.InvoiceNumber)
		assert.Equal(t, "Unknown", record.Vendor)
		assert.Zero(t, record.TotalAmount)
	})

	t.Run("empty content fails before any parse attempt", func(t *testing.T) {
		_, err := ParseStructured("   ")
		assert.ErrorIs(t, err, huberrors.ErrMalformedResponse)
	})

	t.Run("no brace block fails with raw content", func(t *testing.T) {
		_, err := ParseStructured("I could not find any invoice data.")
		require.ErrorIs(t, err, huberrors.ErrMalformedResponse)

		var malformed *huberrors.MalformedResponseError
		require.ErrorAs(t, err, &malformed)
		assert.Equal(t, "I could not find any invoice data.", malformed.Content)
	})

	t.Run("unparseable brace block fails", func(t *testing.T) {
		_, err := ParseStructured(`prefix {"invoice_number": } suffix`)
		assert.ErrorIs(t, err, huberrors.ErrMalformedResponse)
	})
}

func TestExtractor_Extract(t *testing.T) {
	image := []byte("fake-image-bytes")

	t.Run("end-to-end with structured response", func(t *testing.T) {
		vision := &stubVisionClient{
			extractTextFunc: func(_ context.Context, _ []byte) (string, error) {
				return "Invoice #123, Date: 2024-01-01, Total: $500.00, Acme Corp", nil
			},
			structureJSONFunc: func(_ context.Context, rawText string) (string, error) {
				assert.Contains(t, rawText, "Acme Corp")

				return `{"invoice_number":"123","invoice_date":"2024-01-01","total_amount":"$500.00","vendor":"Acme Corp"}`, nil
			},
		}

		rawText, record, err := NewExtractor(vision).Extract(context.Background(), image)
		require.NoError(t, err)
		assert.Equal(t, "Invoice #123, Date: 2024-01-01, Total: $500.00, Acme Corp", rawText)
		assert.Equal(t, models.InvoiceRecord{
			InvoiceNumber: "123",
			InvoiceDate:   "2024-01-01",
			TotalAmount:   500.0,
			Vendor:        "Acme Corp",
		}, record)
	})

	t.Run("vision call failure is an extraction error", func(t *testing.T) {
		vision := &stubVisionClient{
			extractTextFunc: func(_ context.Context, _ []byte) (string, error) {
				return "", errors.New("provider unavailable")
			},
		}

		_, _, err := NewExtractor(vision).Extract(context.Background(), image)
		assert.ErrorIs(t, err, huberrors.ErrExtraction)
	})

	t.Run("empty OCR text is an extraction error", func(t *testing.T) {
		vision := &stubVisionClient{
			extractTextFunc: func(_ context.Context, _ []byte) (string, error) {
				return "   \n ", nil
			},
		}

		_, _, err := NewExtractor(vision).Extract(context.Background(), image)
		assert.ErrorIs(t, err, huberrors.ErrExtraction)
	})

	t.Run("structuring call failure is an extraction error", func(t *testing.T) {
		vision := &stubVisionClient{
			structureJSONFunc: func(_ context.Context, _ string) (string, error) {
				return "", errors.New("provider unavailable")
			},
		}

		_, _, err := NewExtractor(vision).Extract(context.Background(), image)
		assert.ErrorIs(t, err, huberrors.ErrExtraction)
	})

	t.Run("empty structuring response is a malformed response error", func(t *testing.T) {
		vision := &stubVisionClient{
			structureJSONFunc: func(_ context.Context, _ string) (string, error) {
				return "", nil
			},
		}

		_, _, err := NewExtractor(vision).Extract(context.Background(), image)
		assert.ErrorIs(t, err, huberrors.ErrMalformedResponse)
	})

	t.Run("mock vision client round trip", func(t *testing.T) {
		mock := NewMockVisionClient()

		rawText, record, err := NewExtractor(mock).Extract(context.Background(), image)
		require.NoError(t, err)
		assert.Equal(t, mock.RawText, rawText)
		assert.Equal(t, mock.Record, record)
	})
}
