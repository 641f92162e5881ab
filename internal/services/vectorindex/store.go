package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/placefinder/internal/interfaces"
	"github.com/ternarybob/placefinder/internal/models"
)

// Store owns one CategoryIndex per enumerated category.
// Readers take an immutable Snapshot; rebuilds happen into fresh state that is swapped in under mu.
type Store struct {
	dir       string
	dimension int
	source    interfaces.CatalogSource
	embedder  interfaces.EmbeddingService
	manifests interfaces.IndexManifestStorage
	logger    arbor.ILogger

	mu       sync.RWMutex
	current  *Snapshot
	reloadMu sync.Mutex
}

// NewStore creates a store serving empty indices until Initialize or Reload runs.
// manifests may be nil.
func NewStore(
	dir string,
	dimension int,
	source interfaces.CatalogSource,
	embedder interfaces.EmbeddingService,
	manifests interfaces.IndexManifestStorage,
	logger arbor.ILogger,
) *Store {
	return &Store{
		dir:       dir,
		dimension: dimension,
		source:    source,
		embedder:  embedder,
		manifests: manifests,
		logger:    logger,
		current:   newSnapshot(map[models.Category]*CategoryIndex{}, nil, logger),
	}
}

// Initialize applies the startup policy: load every category from disk, and if any category
// fails to load, discard everything and rebuild all categories from the catalog source.
// A rebuild error (e.g. unreachable catalog) is returned and should abort startup.
func (s *Store) Initialize(ctx context.Context, forceRebuild bool) (*models.IndexManifest, error) {
	if !forceRebuild {
		snapshot, err := s.loadAll(ctx)
		if err == nil {
			s.swap(snapshot)
			s.persistManifest(ctx, snapshot.manifest)
			return snapshot.manifest, nil
		}
		s.logger.Warn().Err(err).Str("dir", s.dir).Msg("Persisted indices unavailable, rebuilding all categories")
	} else {
		s.logger.Info().Str("dir", s.dir).Msg("Forced rebuild of all category indices")
	}

	snapshot, err := s.buildAll(ctx)
	if err != nil {
		return nil, err
	}
	s.swap(snapshot)
	s.persistManifest(ctx, snapshot.manifest)
	return snapshot.manifest, nil
}

// LoadPersisted serves the indices on disk without ever rebuilding. It fails if any
// category is missing or corrupt. Used by read-only processes such as the MCP server.
func (s *Store) LoadPersisted(ctx context.Context) (*models.IndexManifest, error) {
	snapshot, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	s.swap(snapshot)
	return snapshot.manifest, nil
}

// Reload rebuilds every category into fresh state and swaps it in.
// The previous generation keeps serving until the swap; on error it stays in place.
func (s *Store) Reload(ctx context.Context) (*models.IndexManifest, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	s.logger.Info().Msg("Reloading category indices")

	snapshot, err := s.buildAll(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Index reload failed, keeping current generation")
		return nil, err
	}
	s.swap(snapshot)
	s.persistManifest(ctx, snapshot.manifest)
	return snapshot.manifest, nil
}

// Build fetches a category's records, embeds each one and writes the result to disk.
// Records whose embedding fails are skipped. An index with zero vectors is valid and
// reported through the stats warning.
func (s *Store) Build(ctx context.Context, category models.Category) (*CategoryIndex, models.CategoryBuildStats, error) {
	index, stats, err := s.buildIndex(ctx, category)
	if err != nil {
		return nil, stats, err
	}
	if err := index.Save(s.dir); err != nil {
		return nil, stats, fmt.Errorf("failed to save %s index: %w", category, err)
	}

	s.logger.Info().
		Str("category", category.String()).
		Int("indexed", stats.Indexed).
		Int("skipped", stats.Skipped).
		Msg("Category index saved")

	return index, stats, nil
}

// buildIndex embeds one category in memory without touching the index directory
func (s *Store) buildIndex(ctx context.Context, category models.Category) (*CategoryIndex, models.CategoryBuildStats, error) {
	stats := models.CategoryBuildStats{Category: category}
	if !category.IsKnown() {
		return nil, stats, fmt.Errorf("unknown category %q", category)
	}
	if s.source == nil {
		return nil, stats, ErrReadOnly
	}

	records, err := s.source.FetchCategory(ctx, category)
	if err != nil {
		return nil, stats, fmt.Errorf("failed to fetch %s records: %w", category, err)
	}
	stats.Fetched = len(records)

	s.logger.Info().
		Str("category", category.String()).
		Int("records", len(records)).
		Msg("Building category index")

	index := NewCategoryIndex(category, s.dimension)
	for i := range records {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}

		document := records[i].EmbeddingText()
		vector, err := s.embedder.GenerateEmbedding(ctx, document)
		if err == nil {
			err = index.Append(vector, document, records[i])
		}
		if err != nil {
			stats.Skipped++
			s.logger.Warn().
				Str("category", category.String()).
				Str("name", records[i].Name).
				Err(err).
				Msg("Skipping record")
			continue
		}
	}
	stats.Indexed = index.Size()

	switch {
	case stats.Fetched == 0:
		stats.Warning = "no catalog records for category"
	case stats.Indexed == 0:
		stats.Warning = "no embeddings succeeded"
	}
	if stats.Warning != "" {
		s.logger.Warn().Str("category", category.String()).Msg("Category index is empty: " + stats.Warning)
	}

	return index, stats, nil
}

// Load reads one category from disk and checks it against the configured dimension
func (s *Store) Load(category models.Category) (*CategoryIndex, error) {
	index, err := LoadCategoryIndex(s.dir, category)
	if err != nil {
		return nil, err
	}
	if index.Size() > 0 && index.Dimension() != s.dimension {
		return nil, fmt.Errorf("%w: %s stored with %d dimensions, configured %d (%v)",
			ErrIndexCorrupt, category.Slug(), index.Dimension(), s.dimension, ErrDimensionMismatch)
	}
	return index, nil
}

// Save writes the served in-memory index of a category to disk
func (s *Store) Save(category models.Category) error {
	index := s.snapshot().indices[category]
	if index == nil {
		return fmt.Errorf("%w: no in-memory index for %s", ErrIndexNotFound, category)
	}
	return index.Save(s.dir)
}

// Query searches the served generation
func (s *Store) Query(category models.Category, vector []float32, k int) []models.Neighbor {
	return s.snapshot().Query(category, vector, k)
}

// Snapshot returns the generation currently being served
func (s *Store) Snapshot() interfaces.IndexSnapshot {
	return s.snapshot()
}

// Manifest describes the generation currently being served, or nil before initialization
func (s *Store) Manifest() *models.IndexManifest {
	return s.snapshot().manifest
}

// Close releases the in-memory indices
func (s *Store) Close() error {
	s.swap(newSnapshot(map[models.Category]*CategoryIndex{}, nil, s.logger))
	return nil
}

func (s *Store) snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Store) swap(next *Snapshot) {
	s.mu.Lock()
	s.current = next
	s.mu.Unlock()
}

func (s *Store) loadAll(ctx context.Context) (*Snapshot, error) {
	indices := make(map[models.Category]*CategoryIndex, len(models.Categories))
	stats := make([]models.CategoryBuildStats, 0, len(models.Categories))

	for _, category := range models.Categories {
		index, err := s.Load(category)
		if err != nil {
			return nil, err
		}
		indices[category] = index
		stats = append(stats, models.CategoryBuildStats{Category: category, Indexed: index.Size()})

		s.logger.Info().
			Str("category", category.String()).
			Int("size", index.Size()).
			Msg("Category index loaded")
	}

	manifest := s.newManifest("load", stats)
	if previous := s.latestManifest(ctx); previous != nil && sameCounts(previous, manifest) {
		manifest.Generation = previous.Generation
		manifest.BuiltAt = previous.BuiltAt
		manifest.Categories = previous.Categories
	}

	return newSnapshot(indices, manifest, s.logger), nil
}

// buildAll embeds every category in memory and writes the generation to disk only once
// all of them succeeded. A failure leaves the index directory as it was.
func (s *Store) buildAll(ctx context.Context) (*Snapshot, error) {
	if s.source == nil {
		return nil, ErrReadOnly
	}

	indices := make(map[models.Category]*CategoryIndex, len(models.Categories))
	built := make([]*CategoryIndex, 0, len(models.Categories))
	stats := make([]models.CategoryBuildStats, 0, len(models.Categories))

	for _, category := range models.Categories {
		index, categoryStats, err := s.buildIndex(ctx, category)
		if err != nil {
			return nil, err
		}
		indices[category] = index
		built = append(built, index)
		stats = append(stats, categoryStats)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := SaveAll(s.dir, built); err != nil {
		return nil, fmt.Errorf("failed to save index generation: %w", err)
	}

	manifest := s.newManifest("build", stats)
	s.logger.Info().
		Str("generation", manifest.Generation).
		Int("total", manifest.Total()).
		Str("dir", s.dir).
		Msg("All category indices built and saved")

	return newSnapshot(indices, manifest, s.logger), nil
}

func (s *Store) newManifest(source string, stats []models.CategoryBuildStats) *models.IndexManifest {
	return &models.IndexManifest{
		Generation:     uuid.New().String(),
		Source:         source,
		BuiltAt:        time.Now(),
		EmbeddingModel: s.embedder.ModelName(),
		Dimension:      s.dimension,
		Categories:     stats,
	}
}

func (s *Store) latestManifest(ctx context.Context) *models.IndexManifest {
	if s.manifests == nil {
		return nil
	}
	manifest, err := s.manifests.LatestManifest(ctx)
	if err != nil {
		if !errors.Is(err, interfaces.ErrKeyNotFound) {
			s.logger.Warn().Err(err).Msg("Failed to read latest index manifest")
		}
		return nil
	}
	return manifest
}

func (s *Store) persistManifest(ctx context.Context, manifest *models.IndexManifest) {
	if s.manifests == nil || manifest == nil {
		return
	}
	if err := s.manifests.SaveManifest(ctx, manifest); err != nil {
		s.logger.Warn().Err(err).Str("generation", manifest.Generation).Msg("Failed to persist index manifest")
	}
}

func sameCounts(a, b *models.IndexManifest) bool {
	if a.Dimension != b.Dimension || len(a.Categories) != len(b.Categories) {
		return false
	}
	for i := range a.Categories {
		if a.Categories[i].Category != b.Categories[i].Category || a.Categories[i].Indexed != b.Categories[i].Indexed {
			return false
		}
	}
	return true
}
