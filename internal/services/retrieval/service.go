package retrieval

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/placefinder/internal/interfaces"
	"github.com/ternarybob/placefinder/internal/models"
)

// Service ranks one category's catalog records against a free-text query
type Service struct {
	embedder interfaces.EmbeddingService
	store    interfaces.IndexStore
	logger   arbor.ILogger
}

// NewService creates a new retrieval service
func NewService(embedder interfaces.EmbeddingService, store interfaces.IndexStore, logger arbor.ILogger) interfaces.RetrievalService {
	return &Service{
		embedder: embedder,
		store:    store,
		logger:   logger,
	}
}

// Search embeds the query and returns up to topK results ordered by ascending distance.
// Embedding failures and empty or unknown categories yield an empty slice, never an error.
// Similarity is 1 - squared distance: an ordering signal that may be negative.
func (s *Service) Search(ctx context.Context, query string, category models.Category, topK int) []models.RetrievalResult {
	start := time.Now()
	results := []models.RetrievalResult{}

	s.logger.Debug().
		Str("query", query).
		Str("category", category.String()).
		Int("top_k", topK).
		Msg("Retrieval search started")

	// One snapshot per search keeps positions and metadata from the same generation
	snapshot := s.store.Snapshot()
	if snapshot.Size(category) == 0 {
		s.logger.Info().Str("category", category.String()).Msg("No index for category")
		return results
	}

	vector, err := s.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		s.logger.Warn().Err(err).Str("query", query).Msg("Query embedding failed, returning no results")
		return results
	}

	metadata := snapshot.Metadata(category)
	for _, neighbor := range snapshot.Query(category, vector, topK) {
		if neighbor.Position < 0 || neighbor.Position >= len(metadata) {
			continue
		}
		results = append(results, models.RetrievalResult{
			Rank:       len(results) + 1,
			Similarity: 1 - float64(neighbor.Distance),
			Record:     metadata[neighbor.Position],
		})
	}

	names := make([]string, 0, len(results))
	for _, r := range results {
		names = append(names, r.Record.Name)
	}
	s.logger.Info().
		Str("category", category.String()).
		Int("results", len(results)).
		Strs("names", names).
		Dur("duration", time.Since(start)).
		Msg("Retrieval search completed")

	return results
}
