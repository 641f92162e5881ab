package interfaces

import (
	"context"

	"github.com/ternarybob/placefinder/internal/models"
)

// RetrievalService ranks catalog records of one category against a free-text query
type RetrievalService interface {
	// Search never fails: embedding errors and empty indices yield an empty slice
	Search(ctx context.Context, query string, category models.Category, topK int) []models.RetrievalResult
}
