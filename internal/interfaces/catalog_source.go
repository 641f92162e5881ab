package interfaces

import (
	"context"

	"github.com/ternarybob/placefinder/internal/models"
)

// CatalogSource reads catalog records from the external relational store
type CatalogSource interface {
	// FetchCategory returns every record whose type column equals category, in store order
	FetchCategory(ctx context.Context, category models.Category) ([]models.CatalogRecord, error)

	// Ping verifies the store is reachable
	Ping(ctx context.Context) error

	Close() error
}
