package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/placefinder/internal/interfaces"
	"github.com/ternarybob/placefinder/internal/models"
)

// ManifestStorage persists index generation manifests keyed by generation ID
type ManifestStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewManifestStorage creates a new ManifestStorage instance
func NewManifestStorage(db *BadgerDB, logger arbor.ILogger) interfaces.IndexManifestStorage {
	return &ManifestStorage{
		db:     db,
		logger: logger,
	}
}

// SaveManifest inserts or replaces a manifest
func (s *ManifestStorage) SaveManifest(ctx context.Context, manifest *models.IndexManifest) error {
	if manifest == nil || manifest.Generation == "" {
		return fmt.Errorf("manifest generation is required")
	}
	if err := s.db.Store().Upsert(manifest.Generation, manifest); err != nil {
		return fmt.Errorf("failed to save manifest: %w", err)
	}

	s.logger.Debug().
		Str("generation", manifest.Generation).
		Str("source", manifest.Source).
		Int("total", manifest.Total()).
		Msg("Index manifest saved")
	return nil
}

// LatestManifest returns the most recently built manifest, or ErrKeyNotFound when none exist
func (s *ManifestStorage) LatestManifest(ctx context.Context) (*models.IndexManifest, error) {
	manifests, err := s.ListManifests(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(manifests) == 0 {
		return nil, interfaces.ErrKeyNotFound
	}
	return &manifests[0], nil
}

// ListManifests returns manifests newest first. limit <= 0 returns all.
func (s *ManifestStorage) ListManifests(ctx context.Context, limit int) ([]models.IndexManifest, error) {
	query := badgerhold.Where("Generation").Ne("").SortBy("BuiltAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	var manifests []models.IndexManifest
	if err := s.db.Store().Find(&manifests, query); err != nil {
		return nil, fmt.Errorf("failed to list manifests: %w", err)
	}
	return manifests, nil
}
