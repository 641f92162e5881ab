package vectorindex

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/placefinder/internal/interfaces"
	"github.com/ternarybob/placefinder/internal/models"
)

const testDim = 4

// MockCatalogSource is a mock implementation of CatalogSource
type MockCatalogSource struct {
	mock.Mock
}

func (m *MockCatalogSource) FetchCategory(ctx context.Context, category models.Category) ([]models.CatalogRecord, error) {
	args := m.Called(ctx, category)
	if records, ok := args.Get(0).([]models.CatalogRecord); ok {
		return records, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCatalogSource) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockCatalogSource) Close() error {
	return nil
}

// fakeEmbedder derives a deterministic vector from the text and fails on texts containing "FAIL"
type fakeEmbedder struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if strings.Contains(text, "FAIL") {
		return nil, errors.New("provider unavailable")
	}
	return textVector(text), nil
}

func (f *fakeEmbedder) ModelName() string { return "fake/deterministic" }
func (f *fakeEmbedder) Dimension() int    { return testDim }

func (f *fakeEmbedder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func textVector(text string) []float32 {
	v := make([]float32, testDim)
	for i, r := range []rune(text) {
		v[i%testDim] += float32(r % 17)
	}
	return v
}

// memoryManifests is an in-memory IndexManifestStorage
type memoryManifests struct {
	saved []models.IndexManifest
}

func (m *memoryManifests) SaveManifest(ctx context.Context, manifest *models.IndexManifest) error {
	m.saved = append(m.saved, *manifest)
	return nil
}

func (m *memoryManifests) LatestManifest(ctx context.Context) (*models.IndexManifest, error) {
	if len(m.saved) == 0 {
		return nil, interfaces.ErrKeyNotFound
	}
	latest := m.saved[len(m.saved)-1]
	return &latest, nil
}

func (m *memoryManifests) ListManifests(ctx context.Context, limit int) ([]models.IndexManifest, error) {
	return m.saved, nil
}

func catalogFixture() map[models.Category][]models.CatalogRecord {
	return map[models.Category][]models.CatalogRecord{
		models.CategoryHospital: {
			{Name: "세브란스병원", Category: "종합병원", Address: "서울 서대문구 연세로 50-1", Type: "병원"},
			{Name: "FAIL 내과", Category: "내과", Address: "서울 강남구", Type: "병원"},
			{Name: "강남성모이비인후과", Category: "이비인후과", Address: "서울 강남구 강남대로 390", Type: "병원"},
		},
		models.CategoryRestaurant: {
			{Name: "을지면옥", Category: "냉면", Address: "서울 중구", Menu: "평양냉면", Type: "음식점"},
		},
		models.CategoryCafe: {
			{Name: "FAIL 커피", Category: "카페", Address: "서울 강남구", Type: "카페"},
		},
		models.CategoryPharmacy: {},
	}
}

func newTestStore(t *testing.T, dir string, source interfaces.CatalogSource, embedder interfaces.EmbeddingService, manifests interfaces.IndexManifestStorage) *Store {
	t.Helper()
	return NewStore(dir, testDim, source, embedder, manifests, arbor.NewLogger())
}

func fixtureSource() *MockCatalogSource {
	source := &MockCatalogSource{}
	for category, records := range catalogFixture() {
		source.On("FetchCategory", mock.Anything, category).Return(records, nil)
	}
	return source
}

func TestStore_BuildSkipsFailedEmbeddings(t *testing.T) {
	dir := t.TempDir()
	store := newTestStore(t, dir, fixtureSource(), &fakeEmbedder{}, nil)

	index, stats, err := store.Build(context.Background(), models.CategoryHospital)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Fetched)
	assert.Equal(t, 2, stats.Indexed)
	assert.Equal(t, 1, stats.Skipped)
	assert.Empty(t, stats.Warning)

	assert.Equal(t, 2, index.Size())
	assert.Len(t, index.Documents, index.Size())
	assert.Len(t, index.Metadata, index.Size())
	assert.Equal(t, "세브란스병원", index.Metadata[0].Name)
	assert.Equal(t, "강남성모이비인후과", index.Metadata[1].Name)
	assert.Equal(t, "세브란스병원 종합병원 서울 서대문구 연세로 50-1 ", index.Documents[0])

	assert.FileExists(t, IndexPath(dir, models.CategoryHospital))
	assert.FileExists(t, SidecarPath(dir, models.CategoryHospital))
}

func TestStore_BuildWithNoSuccessfulEmbeddings(t *testing.T) {
	dir := t.TempDir()
	store := newTestStore(t, dir, fixtureSource(), &fakeEmbedder{}, nil)

	index, stats, err := store.Build(context.Background(), models.CategoryCafe)
	require.NoError(t, err, "an empty category is a valid state")
	assert.Equal(t, 0, index.Size())
	assert.Equal(t, "no embeddings succeeded", stats.Warning)

	_, stats, err = store.Build(context.Background(), models.CategoryPharmacy)
	require.NoError(t, err)
	assert.Equal(t, "no catalog records for category", stats.Warning)
}

func TestStore_BuildSourceFailure(t *testing.T) {
	source := &MockCatalogSource{}
	source.On("FetchCategory", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))
	store := newTestStore(t, t.TempDir(), source, &fakeEmbedder{}, nil)

	_, err := store.Initialize(context.Background(), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := newTestStore(t, dir, fixtureSource(), &fakeEmbedder{}, nil)

	built, _, err := store.Build(context.Background(), models.CategoryHospital)
	require.NoError(t, err)

	loaded, err := store.Load(models.CategoryHospital)
	require.NoError(t, err)
	assert.Equal(t, built.Documents, loaded.Documents)
	assert.Equal(t, built.Metadata, loaded.Metadata)
	assert.Equal(t, built.Size(), loaded.Size())
	assert.Equal(t, built.index.Vector(1), loaded.index.Vector(1))
}

func TestStore_LoadErrors(t *testing.T) {
	dir := t.TempDir()
	store := newTestStore(t, dir, fixtureSource(), &fakeEmbedder{}, nil)

	_, err := store.Load(models.CategoryHospital)
	assert.ErrorIs(t, err, ErrIndexNotFound)

	_, _, err = store.Build(context.Background(), models.CategoryHospital)
	require.NoError(t, err)

	t.Run("missing sidecar", func(t *testing.T) {
		data, err := os.ReadFile(SidecarPath(dir, models.CategoryHospital))
		require.NoError(t, err)
		require.NoError(t, os.Remove(SidecarPath(dir, models.CategoryHospital)))
		defer os.WriteFile(SidecarPath(dir, models.CategoryHospital), data, 0644)

		_, err = store.Load(models.CategoryHospital)
		assert.ErrorIs(t, err, ErrIndexNotFound)
	})

	t.Run("length mismatch", func(t *testing.T) {
		require.NoError(t, os.WriteFile(SidecarPath(dir, models.CategoryHospital),
			[]byte(`{"documents":["one"],"metadata_list":[{"name":"one"}]}`), 0644))

		_, err := store.Load(models.CategoryHospital)
		assert.ErrorIs(t, err, ErrIndexCorrupt)
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		other := NewStore(dir, 8, fixtureSource(), &fakeEmbedder{}, nil, arbor.NewLogger())
		_, _, err := store.Build(context.Background(), models.CategoryHospital)
		require.NoError(t, err)

		_, err = other.Load(models.CategoryHospital)
		assert.ErrorIs(t, err, ErrIndexCorrupt)
	})
}

func TestStore_InitializeBuildsThenLoads(t *testing.T) {
	dir := t.TempDir()
	embedder := &fakeEmbedder{}
	manifests := &memoryManifests{}
	store := newTestStore(t, dir, fixtureSource(), embedder, manifests)

	manifest, err := store.Initialize(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, "build", manifest.Source)
	assert.Equal(t, 3, manifest.Total())
	assert.Len(t, manifest.Categories, len(models.Categories))
	assert.Equal(t, 2, store.Snapshot().Size(models.CategoryHospital))
	require.Len(t, manifests.saved, 1)

	buildCalls := embedder.callCount()

	// A second process finds every file and never touches the embedder
	second := newTestStore(t, dir, &MockCatalogSource{}, embedder, manifests)
	manifest2, err := second.Initialize(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, "load", manifest2.Source)
	assert.Equal(t, manifest.Generation, manifest2.Generation, "matching counts reuse the persisted generation")
	assert.Equal(t, buildCalls, embedder.callCount())
	assert.Equal(t, 2, second.Snapshot().Size(models.CategoryHospital))
	assert.Equal(t, 1, second.Snapshot().Size(models.CategoryRestaurant))
}

func TestStore_InitializeRebuildsAllWhenOneCategoryMissing(t *testing.T) {
	dir := t.TempDir()
	source := fixtureSource()
	store := newTestStore(t, dir, source, &fakeEmbedder{}, nil)
	_, err := store.Initialize(context.Background(), false)
	require.NoError(t, err)

	require.NoError(t, os.Remove(IndexPath(dir, models.CategoryCafe)))

	source2 := fixtureSource()
	second := newTestStore(t, dir, source2, &fakeEmbedder{}, nil)
	manifest, err := second.Initialize(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, "build", manifest.Source)

	for _, category := range models.Categories {
		source2.AssertCalled(t, "FetchCategory", mock.Anything, category)
	}
	assert.FileExists(t, IndexPath(dir, models.CategoryCafe))
}

func TestStore_QueryUnknownOrEmptyCategory(t *testing.T) {
	store := newTestStore(t, t.TempDir(), fixtureSource(), &fakeEmbedder{}, nil)

	assert.Empty(t, store.Query(models.CategoryHospital, textVector("x"), 3), "nothing served before initialization")

	_, err := store.Initialize(context.Background(), false)
	require.NoError(t, err)

	assert.Empty(t, store.Query(models.Category("주유소"), textVector("x"), 3))
	assert.Empty(t, store.Query(models.CategoryCafe, textVector("x"), 3))
	assert.Empty(t, store.Query(models.CategoryHospital, []float32{1}, 3), "wrong query dimension")

	neighbors := store.Query(models.CategoryHospital, textVector("세브란스병원 종합병원 서울 서대문구 연세로 50-1 "), 5)
	require.Len(t, neighbors, 2)
	assert.Equal(t, 0, neighbors[0].Position)
	assert.Equal(t, float32(0), neighbors[0].Distance)
}

func TestStore_BuildIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	store := newTestStore(t, dir, fixtureSource(), &fakeEmbedder{}, nil)

	_, _, err := store.Build(context.Background(), models.CategoryHospital)
	require.NoError(t, err)
	first, err := os.ReadFile(SidecarPath(dir, models.CategoryHospital))
	require.NoError(t, err)

	_, _, err = store.Build(context.Background(), models.CategoryHospital)
	require.NoError(t, err)
	second, err := os.ReadFile(SidecarPath(dir, models.CategoryHospital))
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
}

func TestStore_ReloadSwapsGeneration(t *testing.T) {
	dir := t.TempDir()
	manifests := &memoryManifests{}
	store := newTestStore(t, dir, fixtureSource(), &fakeEmbedder{}, manifests)

	first, err := store.Initialize(context.Background(), true)
	require.NoError(t, err)
	before := store.Snapshot()

	second, err := store.Reload(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, first.Generation, second.Generation)
	assert.Equal(t, second.Generation, store.Manifest().Generation)
	assert.Len(t, manifests.saved, 2)

	// The old snapshot stays usable for readers that still hold it
	assert.Equal(t, 2, before.Size(models.CategoryHospital))
}

func TestStore_ReloadFailureKeepsCurrent(t *testing.T) {
	dir := t.TempDir()
	source := &MockCatalogSource{}
	for category, records := range catalogFixture() {
		source.On("FetchCategory", mock.Anything, category).Return(records, nil).Once()
	}
	source.On("FetchCategory", mock.Anything, mock.Anything).Return(nil, errors.New("db down"))

	store := newTestStore(t, dir, source, &fakeEmbedder{}, nil)
	manifest, err := store.Initialize(context.Background(), true)
	require.NoError(t, err)

	_, err = store.Reload(context.Background())
	require.Error(t, err)
	assert.Equal(t, manifest.Generation, store.Manifest().Generation)
	assert.Equal(t, 2, store.Snapshot().Size(models.CategoryHospital))
}

func TestStore_Save(t *testing.T) {
	dir := t.TempDir()
	store := newTestStore(t, dir, fixtureSource(), &fakeEmbedder{}, nil)

	assert.ErrorIs(t, store.Save(models.CategoryHospital), ErrIndexNotFound)

	_, err := store.Initialize(context.Background(), true)
	require.NoError(t, err)
	require.NoError(t, os.Remove(SidecarPath(dir, models.CategoryHospital)))

	require.NoError(t, store.Save(models.CategoryHospital))
	loaded, err := store.Load(models.CategoryHospital)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Size())
}

func TestStore_LoadPersistedNeverRebuilds(t *testing.T) {
	dir := t.TempDir()
	embedder := &fakeEmbedder{}

	readOnly := newTestStore(t, dir, nil, embedder, nil)
	_, err := readOnly.LoadPersisted(context.Background())
	assert.ErrorIs(t, err, ErrIndexNotFound)
	assert.Equal(t, 0, embedder.callCount())

	_, err = readOnly.Reload(context.Background())
	assert.ErrorIs(t, err, ErrReadOnly)

	writer := newTestStore(t, dir, fixtureSource(), embedder, nil)
	_, err = writer.Initialize(context.Background(), false)
	require.NoError(t, err)
	buildCalls := embedder.callCount()

	manifest, err := readOnly.LoadPersisted(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "load", manifest.Source)
	assert.Equal(t, 2, readOnly.Snapshot().Size(models.CategoryHospital))
	assert.Equal(t, buildCalls, embedder.callCount())
}

func indexDirContents(t *testing.T, dir string) map[string]string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	contents := make(map[string]string, len(entries))
	for _, entry := range entries {
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		require.NoError(t, err)
		contents[entry.Name()] = string(data)
	}
	return contents
}

func TestStore_FailedReloadLeavesDiskUntouched(t *testing.T) {
	dir := t.TempDir()
	fixture := catalogFixture()
	changedHospitals := []models.CatalogRecord{
		{Name: "신촌연세병원", Category: "종합병원", Address: "서울 마포구 서강로 1", Type: "병원"},
	}

	source := &MockCatalogSource{}
	source.On("FetchCategory", mock.Anything, models.CategoryHospital).Return(fixture[models.CategoryHospital], nil).Once()
	source.On("FetchCategory", mock.Anything, models.CategoryHospital).Return(changedHospitals, nil)
	source.On("FetchCategory", mock.Anything, models.CategoryRestaurant).Return(fixture[models.CategoryRestaurant], nil).Once()
	source.On("FetchCategory", mock.Anything, models.CategoryRestaurant).Return(nil, errors.New("db down"))
	source.On("FetchCategory", mock.Anything, models.CategoryCafe).Return(fixture[models.CategoryCafe], nil)
	source.On("FetchCategory", mock.Anything, models.CategoryPharmacy).Return(fixture[models.CategoryPharmacy], nil)

	store := newTestStore(t, dir, source, &fakeEmbedder{}, nil)
	_, err := store.Initialize(context.Background(), true)
	require.NoError(t, err)
	before := indexDirContents(t, dir)

	_, err = store.Reload(context.Background())
	require.Error(t, err)

	assert.Equal(t, before, indexDirContents(t, dir))
	assert.Equal(t, 2, store.Snapshot().Size(models.CategoryHospital))

	restarted := newTestStore(t, dir, nil, &fakeEmbedder{}, nil)
	_, err = restarted.LoadPersisted(context.Background())
	require.NoError(t, err)
	hospitals := restarted.Snapshot().Metadata(models.CategoryHospital)
	require.Len(t, hospitals, 2)
	assert.Equal(t, "세브란스병원", hospitals[0].Name)
}

func TestStore_CancelledReloadLeavesDiskUntouched(t *testing.T) {
	dir := t.TempDir()
	store := newTestStore(t, dir, fixtureSource(), &fakeEmbedder{}, nil)
	_, err := store.Initialize(context.Background(), true)
	require.NoError(t, err)
	before := indexDirContents(t, dir)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = store.Reload(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, before, indexDirContents(t, dir))
}

func TestSaveAll_StagingFailureWritesNothing(t *testing.T) {
	dir := t.TempDir()

	good := NewCategoryIndex(models.CategoryHospital, testDim)
	require.NoError(t, good.Append(textVector("세브란스병원"), "세브란스병원", models.CatalogRecord{Name: "세브란스병원"}))
	bad := NewCategoryIndex(models.Category("주유소"), testDim)

	err := SaveAll(dir, []*CategoryIndex{good, bad})
	require.Error(t, err)
	assert.Empty(t, indexDirContents(t, dir))

	require.NoError(t, SaveAll(dir, []*CategoryIndex{good}))
	assert.Len(t, indexDirContents(t, dir), 2)
}
