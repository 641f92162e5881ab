package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/placefinder/internal/interfaces"
	"github.com/ternarybob/placefinder/internal/models"
)

type stubEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (s *stubEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	s.calls++
	return s.vector, s.err
}
func (s *stubEmbedder) ModelName() string { return "stub" }
func (s *stubEmbedder) Dimension() int    { return len(s.vector) }

type stubSnapshot struct {
	neighbors map[models.Category][]models.Neighbor
	metadata  map[models.Category][]models.CatalogRecord
	lastK     int
}

func (s *stubSnapshot) Query(category models.Category, vector []float32, k int) []models.Neighbor {
	s.lastK = k
	out := s.neighbors[category]
	if len(out) > k {
		out = out[:k]
	}
	return out
}

func (s *stubSnapshot) Metadata(category models.Category) []models.CatalogRecord {
	return s.metadata[category]
}

func (s *stubSnapshot) Size(category models.Category) int {
	return len(s.metadata[category])
}

type stubStore struct {
	snapshot *stubSnapshot
}

func (s *stubStore) Snapshot() interfaces.IndexSnapshot { return s.snapshot }
func (s *stubStore) Reload(ctx context.Context) (*models.IndexManifest, error) {
	return nil, nil
}
func (s *stubStore) Manifest() *models.IndexManifest { return nil }

func hospitalSnapshot() *stubSnapshot {
	return &stubSnapshot{
		neighbors: map[models.Category][]models.Neighbor{
			models.CategoryHospital: {
				{Distance: 0.25, Position: 2},
				{Distance: 0.5, Position: 0},
				{Distance: 1.75, Position: 1},
			},
		},
		metadata: map[models.Category][]models.CatalogRecord{
			models.CategoryHospital: {
				{Name: "A 내과"},
				{Name: "B 이비인후과"},
				{Name: "C 병원"},
			},
		},
	}
}

func TestSearch_RanksAndSimilarity(t *testing.T) {
	embedder := &stubEmbedder{vector: []float32{1, 2, 3}}
	snapshot := hospitalSnapshot()
	service := NewService(embedder, &stubStore{snapshot: snapshot}, arbor.NewLogger())

	results := service.Search(context.Background(), "근처 병원", models.CategoryHospital, 3)
	require.Len(t, results, 3)

	assert.Equal(t, 1, results[0].Rank)
	assert.Equal(t, "C 병원", results[0].Record.Name)
	assert.InDelta(t, 0.75, results[0].Similarity, 1e-9)

	assert.Equal(t, 2, results[1].Rank)
	assert.Equal(t, "A 내과", results[1].Record.Name)

	// Distances above 1 give negative similarity; the value is only an ordering signal
	assert.Equal(t, 3, results[2].Rank)
	assert.InDelta(t, -0.75, results[2].Similarity, 1e-9)

	assert.Equal(t, 3, snapshot.lastK)
}

func TestSearch_TopKLimits(t *testing.T) {
	service := NewService(&stubEmbedder{vector: []float32{1}}, &stubStore{snapshot: hospitalSnapshot()}, arbor.NewLogger())

	results := service.Search(context.Background(), "병원", models.CategoryHospital, 1)
	require.Len(t, results, 1)
	assert.Equal(t, "C 병원", results[0].Record.Name)
}

func TestSearch_EmbeddingFailureReturnsEmpty(t *testing.T) {
	embedder := &stubEmbedder{err: errors.New("embedding failed after 3 attempts")}
	service := NewService(embedder, &stubStore{snapshot: hospitalSnapshot()}, arbor.NewLogger())

	results := service.Search(context.Background(), "병원", models.CategoryHospital, 3)
	assert.NotNil(t, results)
	assert.Empty(t, results)
	assert.Equal(t, 1, embedder.calls)
}

func TestSearch_UnknownOrEmptyCategory(t *testing.T) {
	embedder := &stubEmbedder{vector: []float32{1}}
	service := NewService(embedder, &stubStore{snapshot: hospitalSnapshot()}, arbor.NewLogger())

	assert.Empty(t, service.Search(context.Background(), "커피", models.CategoryCafe, 3))
	assert.Empty(t, service.Search(context.Background(), "주유소", models.Category("주유소"), 3))
	assert.Equal(t, 0, embedder.calls, "no embedding call for a category without an index")
}

func TestSearch_SkipsStalePositions(t *testing.T) {
	snapshot := hospitalSnapshot()
	snapshot.neighbors[models.CategoryHospital] = []models.Neighbor{
		{Distance: 0.1, Position: 7},
		{Distance: 0.2, Position: -1},
		{Distance: 0.3, Position: 1},
	}
	service := NewService(&stubEmbedder{vector: []float32{1}}, &stubStore{snapshot: snapshot}, arbor.NewLogger())

	results := service.Search(context.Background(), "병원", models.CategoryHospital, 3)
	require.Len(t, results, 1)
	assert.Equal(t, 1, results[0].Rank)
	assert.Equal(t, "B 이비인후과", results[0].Record.Name)
}
