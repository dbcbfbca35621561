package embeddings

import "context"

// Client defines the interface for generating text embeddings.
type Client interface {
	// CreateEmbedding generates an embedding vector for the given text.
	// The returned slice has the provider's fixed output dimension.
	CreateEmbedding(ctx context.Context, text string) ([]float32, error)
}
