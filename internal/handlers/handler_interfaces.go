package handlers

import (
	"context"

	"github.com/ternarybob/placefinder/internal/models"
)

// Assistant answers free-text location queries
type Assistant interface {
	Handle(ctx context.Context, query, userLocation string) (*models.Answer, error)
	StrictSearch(ctx context.Context, query string) (*models.Answer, error)
}
