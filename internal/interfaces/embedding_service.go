package interfaces

import "context"

// EmbeddingProvider performs a single text-to-vector call against an external API
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Name() string
	Dimension() int
}

// EmbeddingService generates vector embeddings with bounded retry
type EmbeddingService interface {
	// GenerateEmbedding returns the vector for non-empty text, or an error once all attempts fail
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)

	// ModelName returns the provider/model identifier
	ModelName() string

	// Dimension returns the embedding dimension
	Dimension() int
}
