package vectorindex

import (
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/placefinder/internal/models"
)

// Snapshot is one immutable index generation
type Snapshot struct {
	indices  map[models.Category]*CategoryIndex
	manifest *models.IndexManifest
	logger   arbor.ILogger
}

func newSnapshot(indices map[models.Category]*CategoryIndex, manifest *models.IndexManifest, logger arbor.ILogger) *Snapshot {
	return &Snapshot{indices: indices, manifest: manifest, logger: logger}
}

// Query returns up to k neighbors; unknown or empty categories yield an empty slice
func (s *Snapshot) Query(category models.Category, vector []float32, k int) []models.Neighbor {
	index, ok := s.indices[category]
	if !ok || index.Size() == 0 {
		return []models.Neighbor{}
	}

	neighbors, err := index.Query(vector, k)
	if err != nil {
		s.logger.Warn().Str("category", category.String()).Err(err).Msg("Index query rejected")
		return []models.Neighbor{}
	}
	return neighbors
}

// Metadata returns the records of a category in index order
func (s *Snapshot) Metadata(category models.Category) []models.CatalogRecord {
	if index, ok := s.indices[category]; ok {
		return index.Metadata
	}
	return nil
}

// Size returns the vector count of a category, 0 when it has no index
func (s *Snapshot) Size(category models.Category) int {
	if index, ok := s.indices[category]; ok {
		return index.Size()
	}
	return 0
}
