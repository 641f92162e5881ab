package interfaces

import (
	"context"

	"github.com/ternarybob/placefinder/internal/models"
)

// IndexSnapshot is an immutable view of one index generation
type IndexSnapshot interface {
	// Query returns up to k nearest neighbors by ascending squared L2 distance.
	// Unknown or empty categories yield an empty slice.
	Query(category models.Category, vector []float32, k int) []models.Neighbor

	// Metadata returns the records of a category in index order
	Metadata(category models.Category) []models.CatalogRecord

	// Size returns the vector count of a category
	Size(category models.Category) int
}

// IndexStore owns the per-category indices for the lifetime of the process
type IndexStore interface {
	// Snapshot returns the generation currently being served
	Snapshot() IndexSnapshot

	// Reload rebuilds every category into fresh state and swaps it in
	Reload(ctx context.Context) (*models.IndexManifest, error)

	// Manifest describes the generation currently being served
	Manifest() *models.IndexManifest
}

// IndexManifestStorage persists index generation manifests
type IndexManifestStorage interface {
	SaveManifest(ctx context.Context, manifest *models.IndexManifest) error
	LatestManifest(ctx context.Context) (*models.IndexManifest, error)
	ListManifests(ctx context.Context, limit int) ([]models.IndexManifest, error)
}
