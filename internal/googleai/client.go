// Package googleai provides a thin wrapper around the Google Gen AI SDK (Gemini API)
// for vision OCR, schema-constrained structuring, and answer generation.
package googleai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

var (
	// ErrEmptyImage is returned when ExtractText is called with no image data.
	ErrEmptyImage = errors.New("googleai: image is empty")
	// ErrEmptyResponse is returned when the model response contains no text.
	ErrEmptyResponse = errors.New("googleai: model returned an empty response")
)

const (
	defaultVisionModel = "gemini-2.0-flash"
	defaultTextModel   = "gemini-2.0-flash"
)

// ocrInstruction is the fixed prompt for the vision pass.
const ocrInstruction = "Extract all text from this image accurately."

// structuringSystemPrompt constrains the second pass to emit only the four
// invoice fields as raw JSON with a bare numeric total.
const structuringSystemPrompt = "You are a JSON extractor. Output ONLY raw JSON matching the schema. " +
	"For 'total_amount', provide a numeric value ONLY. Remove currency symbols ($) " +
	"and thousands separators (commas) from the number. No conversational text."

// Client calls the Gemini API via the Google Gen AI SDK.
type Client struct {
	client      *genai.Client
	visionModel string
	textModel   string
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithVisionModel sets the model used for OCR. Empty uses the default.
func WithVisionModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.visionModel = model
		}
	}
}

// WithTextModel sets the model used for structuring and answering. Empty uses the default.
func WithTextModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.textModel = model
		}
	}
}

// NewClient creates a Gemini client.
func NewClient(ctx context.Context, apiKey string, opts ...ClientOption) (*Client, error) {
	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("googleai client: %w", err)
	}

	client := &Client{
		client:      genaiClient,
		visionModel: defaultVisionModel,
		textModel:   defaultTextModel,
	}
	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// ExtractText runs the OCR pass: one vision call with the fixed extraction
// instruction and temperature 0 for reproducibility. Returns the model text
// trimmed of surrounding whitespace.
func (c *Client) ExtractText(ctx context.Context, image []byte) (string, error) {
	if len(image) == 0 {
		return "", ErrEmptyImage
	}

	contents := []*genai.Content{genai.NewContentFromParts([]*genai.Part{
		genai.NewPartFromText(ocrInstruction),
		genai.NewPartFromBytes(image, http.DetectContentType(image)),
	}, genai.RoleUser)}

	resp, err := c.client.Models.GenerateContent(ctx, c.visionModel, contents, &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0),
	})
	if err != nil {
		return "", fmt.Errorf("gemini vision: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyResponse
	}

	return text, nil
}

// StructureJSON runs the structuring pass: given the raw OCR text, the model is
// instructed to emit only a JSON object with the four invoice fields. Uses
// temperature 0 and the provider's JSON response mode. The returned content is
// trimmed but otherwise verbatim; parsing and repair happen in the extractor.
func (c *Client) StructureJSON(ctx context.Context, rawText string) (string, error) {
	prompt := "Extract invoice_number, invoice_date, total_amount, and vendor into JSON from:\n" + rawText

	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	resp, err := c.client.Models.GenerateContent(ctx, c.textModel, contents, &genai.GenerateContentConfig{
		Temperature:       genai.Ptr[float32](0),
		ResponseMIMEType:  "application/json",
		SystemInstruction: genai.NewContentFromText(structuringSystemPrompt, genai.RoleUser),
	})
	if err != nil {
		return "", fmt.Errorf("gemini structuring: %w", err)
	}

	return strings.TrimSpace(resp.Text()), nil
}

// Answer runs one free-text generation call with the given prompt.
func (c *Client) Answer(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	resp, err := c.client.Models.GenerateContent(ctx, c.textModel, contents, nil)
	if err != nil {
		return "", fmt.Errorf("gemini answer: %w", err)
	}

	answer := strings.TrimSpace(resp.Text())
	if answer == "" {
		return "", ErrEmptyResponse
	}

	return answer, nil
}
