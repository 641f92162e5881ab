package embeddings

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// GeminiProvider generates embeddings with the Gemini embedding model, truncated to the index dimension
type GeminiProvider struct {
	client *genai.Client
	model  string
	dims   int
}

// NewGeminiProvider creates a Gemini embedding provider
func NewGeminiProvider(ctx context.Context, apiKey, model string, dims int) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	if model == "" {
		model = "gemini-embedding-001"
	}
	if dims <= 0 {
		dims = 1536
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiProvider{
		client: client,
		model:  model,
		dims:   dims,
	}, nil
}

// Embed generates an embedding for a single text
func (g *GeminiProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	outputDim := int32(g.dims)
	config := &genai.EmbedContentConfig{
		OutputDimensionality: &outputDim,
	}

	result, err := g.client.Models.EmbedContent(ctx, g.model, []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}, config)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return nil, &APIError{Provider: "Gemini", StatusCode: apiErr.Code, Message: apiErr.Message}
		}
		return nil, fmt.Errorf("embedding generation failed: %w", err)
	}
	if result == nil || len(result.Embeddings) == 0 || len(result.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("no embedding returned from API")
	}

	return result.Embeddings[0].Values, nil
}

// Dimension returns the embedding dimension size
func (g *GeminiProvider) Dimension() int {
	return g.dims
}

// Name returns the model name
func (g *GeminiProvider) Name() string {
	return fmt.Sprintf("gemini/%s", g.model)
}
