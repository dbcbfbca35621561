// Package huggingface provides an embeddings client for the Hugging Face
// Inference feature-extraction endpoint.
package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/paperstack/invoicehub/internal/huberrors"
)

var (
	// ErrMissingAPIKey is returned when the client is used without a configured API key.
	ErrMissingAPIKey = huberrors.NewEmbeddingError("huggingface: API key is not configured")
	// ErrEmptyInput is returned when CreateEmbedding is called with empty input.
	ErrEmptyInput = huberrors.NewEmbeddingError("huggingface: input text is empty")
)

const (
	defaultModel   = "BAAI/bge-large-en-v1.5"
	defaultBaseURL = "https://router.huggingface.co/hf-inference/models"

	requestTimeout = 60 * time.Second
)

// Client calls the feature-extraction pipeline of a hosted embedding model.
type Client struct {
	httpClient *http.Client
	apiKey     string
	model      string
	baseURL    string
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithModel sets the embedding model name. Empty uses BAAI/bge-large-en-v1.5.
func WithModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithBaseURL overrides the inference endpoint base URL (used in tests).
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a Hugging Face embeddings client.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	client := &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
		apiKey:     apiKey,
		model:      defaultModel,
		baseURL:    defaultBaseURL,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// featureExtractionRequest is the body for the feature-extraction pipeline.
type featureExtractionRequest struct {
	Inputs string `json:"inputs"`
}

// CreateEmbedding returns the embedding vector for the given text.
// The endpoint returns either a flat vector or a singleton batch containing
// one vector; the batch case is unwrapped so callers always get a flat slice.
func (c *Client) CreateEmbedding(ctx context.Context, input string) ([]float32, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	input = strings.TrimSpace(input)
	if input == "" {
		return nil, ErrEmptyInput
	}

	body, err := json.Marshal(featureExtractionRequest{Inputs: input})
	if err != nil {
		return nil, fmt.Errorf("huggingface: marshal request: %w", err)
	}

	url := c.baseURL + "/" + c.model + "/pipeline/feature-extraction"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("huggingface: build request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("huggingface embedding: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("huggingface: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, huberrors.NewEmbeddingError(
			fmt.Sprintf("huggingface: status %d: %s", resp.StatusCode, truncate(string(respBody), 200)))
	}

	return parseVector(respBody)
}

// parseVector decodes the endpoint response into a flat float32 vector,
// unwrapping a singleton batch when present.
func parseVector(body []byte) ([]float32, error) {
	var flat []float64
	if err := json.Unmarshal(body, &flat); err == nil {
		return toFloat32(flat), nil
	}

	var batch [][]float64
	if err := json.Unmarshal(body, &batch); err == nil && len(batch) > 0 {
		return toFloat32(batch[0]), nil
	}

	return nil, huberrors.NewEmbeddingError(
		"huggingface: response is not a numeric vector: " + truncate(string(body), 200))
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
