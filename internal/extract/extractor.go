// Package extract turns an invoice image into raw text and a validated
// structured record via two vision-model passes plus JSON repair.
package extract

import (
	"context"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/paperstack/invoicehub/internal/huberrors"
	"github.com/paperstack/invoicehub/internal/models"
)

// VisionClient defines the two model capabilities the extractor needs:
// free-form OCR over an image, and schema-constrained structuring of text.
type VisionClient interface {
	// ExtractText returns the text content of the image, trimmed.
	ExtractText(ctx context.Context, image []byte) (string, error)
	// StructureJSON returns the model's JSON rendition of the four invoice
	// fields for the given raw text. The content is not guaranteed to parse.
	StructureJSON(ctx context.Context, rawText string) (string, error)
}

// Extractor runs the OCR and structuring passes and repairs the result into a
// complete InvoiceRecord. Field coercion is total: it never fails, it defaults.
type Extractor struct {
	vision VisionClient
}

// NewExtractor creates an Extractor over the given vision client.
func NewExtractor(vision VisionClient) *Extractor {
	return &Extractor{vision: vision}
}

// jsonBlockRegex matches the first brace-delimited block, greedy, spanning
// newlines. Used to recover JSON the model wrapped in prose.
var jsonBlockRegex = regexp.MustCompile(`(?s)\{.*\}`)

// Extract returns the raw OCR text and the validated structured record for one
// invoice image. Provider failures surface as ExtractionError; structuring
// output that cannot be parsed even after repair surfaces as
// MalformedResponseError carrying the raw content.
func (e *Extractor) Extract(ctx context.Context, image []byte) (string, models.InvoiceRecord, error) {
	rawText, err := e.vision.ExtractText(ctx, image)
	if err != nil {
		return "", models.InvoiceRecord{}, huberrors.NewExtractionError("", "vision call failed: "+err.Error())
	}

	rawText = strings.TrimSpace(rawText)
	if rawText == "" {
		return "", models.InvoiceRecord{}, huberrors.NewExtractionError("", "vision call returned no text")
	}

	content, err := e.vision.StructureJSON(ctx, rawText)
	if err != nil {
		return "", models.InvoiceRecord{}, huberrors.NewExtractionError("", "structuring call failed: "+err.Error())
	}

	record, err := ParseStructured(content)
	if err != nil {
		return "", models.InvoiceRecord{}, err
	}

	return rawText, record, nil
}

// ParseStructured parses the structuring model's output into an InvoiceRecord.
// An empty content string is rejected before any parse attempt. When the
// content fails to parse as JSON, the first {...} block is extracted and parsed
// instead; if that also fails the raw content is returned inside a
// MalformedResponseError for diagnostics.
func ParseStructured(content string) (models.InvoiceRecord, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return models.InvoiceRecord{}, huberrors.NewMalformedResponseError("")
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(content), &fields); err != nil {
		block := jsonBlockRegex.FindString(content)
		if block == "" {
			return models.InvoiceRecord{}, huberrors.NewMalformedResponseError(content)
		}

		if err := json.Unmarshal([]byte(block), &fields); err != nil {
			return models.InvoiceRecord{}, huberrors.NewMalformedResponseError(content)
		}
	}

	return models.InvoiceRecord{
		InvoiceNumber: stringField(fields, "invoice_number", models.DefaultInvoiceNumber),
		InvoiceDate:   stringField(fields, "invoice_date", models.DefaultInvoiceDate),
		TotalAmount:   CleanAmount(fields["total_amount"]),
		Vendor:        stringField(fields, "vendor", models.DefaultVendor),
	}, nil
}

// nonAmountChars matches everything that is not a digit or a decimal point.
var nonAmountChars = regexp.MustCompile(`[^\d.]`)

// CleanAmount coerces a parsed total_amount value to a non-negative-cleaned
// float. Textual values are stripped of currency symbols, thousands separators
// and any other non-numeric characters before parsing. Never fails: anything
// unusable resolves to 0.0.
func CleanAmount(value any) float64 {
	switch v := value.(type) {
	case string:
		cleaned := nonAmountChars.ReplaceAllString(v, "")
		if cleaned == "" {
			return 0.0
		}

		amount, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return 0.0
		}

		return amount
	case float64:
		return v
	default:
		// null, booleans, arrays, objects
		return 0.0
	}
}

// stringField coerces the named field to a string, using def when the key is
// absent or the value is null.
func stringField(fields map[string]any, key, def string) string {
	value, ok := fields[key]
	if !ok || value == nil {
		return def
	}

	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return def
	}
}
