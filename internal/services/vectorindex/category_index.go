package vectorindex

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ternarybob/placefinder/internal/models"
)

var (
	// ErrIndexNotFound is returned when the index file or its sidecar is missing
	ErrIndexNotFound = errors.New("index not found")

	// ErrIndexCorrupt is returned when persisted files cannot be decoded or disagree in length
	ErrIndexCorrupt = errors.New("index corrupt")

	// ErrDimensionMismatch is returned when a vector does not match the index dimension
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrReadOnly is returned when a store without a catalog source is asked to rebuild
	ErrReadOnly = errors.New("index store is read-only")
)

// CategoryIndex holds one category's vectors with the parallel documents and metadata.
// len(Documents) == len(Metadata) == index.Len() at all times.
type CategoryIndex struct {
	Category  models.Category
	Documents []string
	Metadata  []models.CatalogRecord
	index     *FlatIndex
}

// sidecar is the JSON document stored next to the binary index
type sidecar struct {
	Documents    []string               `json:"documents"`
	MetadataList []models.CatalogRecord `json:"metadata_list"`
}

// NewCategoryIndex creates an empty index for a category
func NewCategoryIndex(category models.Category, dim int) *CategoryIndex {
	return &CategoryIndex{
		Category:  category,
		Documents: []string{},
		Metadata:  []models.CatalogRecord{},
		index:     NewFlatIndex(dim),
	}
}

// Append adds one embedded record. Nothing is appended when the vector is rejected.
func (c *CategoryIndex) Append(vector []float32, document string, record models.CatalogRecord) error {
	if err := c.index.Add(vector); err != nil {
		return err
	}
	c.Documents = append(c.Documents, document)
	c.Metadata = append(c.Metadata, record)
	return nil
}

// Size returns the vector count
func (c *CategoryIndex) Size() int {
	return c.index.Len()
}

// Dimension returns the vector dimension
func (c *CategoryIndex) Dimension() int {
	return c.index.Dimension()
}

// Query returns up to k nearest neighbors. A nil index or k <= 0 yields an empty slice.
func (c *CategoryIndex) Query(vector []float32, k int) ([]models.Neighbor, error) {
	if c == nil {
		return []models.Neighbor{}, nil
	}
	return c.index.Search(vector, k)
}

// IndexPath returns <dir>/<slug>.index
func IndexPath(dir string, category models.Category) string {
	return filepath.Join(dir, category.Slug()+".index")
}

// SidecarPath returns <dir>/<slug>_metadata.json
func SidecarPath(dir string, category models.Category) string {
	return filepath.Join(dir, category.Slug()+"_metadata.json")
}

// Save writes the binary index first and the sidecar second, each via temp file and rename
func (c *CategoryIndex) Save(dir string) error {
	return SaveAll(dir, []*CategoryIndex{c})
}

// SaveAll writes a whole generation to dir. Every file is staged as a temp file first and
// the renames start only after all of them are written, so a failed encode or write leaves
// dir untouched. Within a category the index is renamed before its sidecar.
func SaveAll(dir string, indices []*CategoryIndex) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}

	var staged []stagedFile
	discard := func() {
		for _, f := range staged {
			os.Remove(f.tmp)
		}
	}

	for _, c := range indices {
		if !c.Category.IsKnown() {
			discard()
			return fmt.Errorf("cannot save index for unknown category %q", c.Category)
		}
		indexData, sidecarData, err := c.encode()
		if err != nil {
			discard()
			return err
		}
		for _, file := range []struct {
			path string
			data []byte
		}{
			{IndexPath(dir, c.Category), indexData},
			{SidecarPath(dir, c.Category), sidecarData},
		} {
			tmp, err := stageFile(file.path, file.data)
			if err != nil {
				discard()
				return fmt.Errorf("failed to stage %s: %w", filepath.Base(file.path), err)
			}
			staged = append(staged, stagedFile{tmp: tmp, path: file.path})
		}
	}

	for i, f := range staged {
		if err := os.Rename(f.tmp, f.path); err != nil {
			for _, rest := range staged[i:] {
				os.Remove(rest.tmp)
			}
			return fmt.Errorf("failed to write %s: %w", filepath.Base(f.path), err)
		}
	}
	return nil
}

func (c *CategoryIndex) encode() ([]byte, []byte, error) {
	indexData, err := c.index.MarshalBinary()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode %s index: %w", c.Category.Slug(), err)
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(sidecar{Documents: c.Documents, MetadataList: c.Metadata}); err != nil {
		return nil, nil, fmt.Errorf("failed to encode %s sidecar: %w", c.Category.Slug(), err)
	}
	return indexData, buf.Bytes(), nil
}

// LoadCategoryIndex reads a category's index and sidecar from dir
func LoadCategoryIndex(dir string, category models.Category) (*CategoryIndex, error) {
	indexData, err := os.ReadFile(IndexPath(dir, category))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, IndexPath(dir, category))
		}
		return nil, fmt.Errorf("failed to read index file: %w", err)
	}
	sidecarData, err := os.ReadFile(SidecarPath(dir, category))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, SidecarPath(dir, category))
		}
		return nil, fmt.Errorf("failed to read sidecar file: %w", err)
	}

	index := &FlatIndex{}
	if err := index.UnmarshalBinary(indexData); err != nil {
		return nil, fmt.Errorf("%s: %w", category.Slug(), err)
	}

	var meta sidecar
	if err := json.Unmarshal(sidecarData, &meta); err != nil {
		return nil, fmt.Errorf("%w: %s sidecar: %v", ErrIndexCorrupt, category.Slug(), err)
	}
	if len(meta.MetadataList) != index.Len() || len(meta.Documents) != index.Len() {
		return nil, fmt.Errorf("%w: %s has %d vectors, %d documents and %d metadata entries",
			ErrIndexCorrupt, category.Slug(), index.Len(), len(meta.Documents), len(meta.MetadataList))
	}

	if meta.Documents == nil {
		meta.Documents = []string{}
	}
	if meta.MetadataList == nil {
		meta.MetadataList = []models.CatalogRecord{}
	}

	return &CategoryIndex{
		Category:  category,
		Documents: meta.Documents,
		Metadata:  meta.MetadataList,
		index:     index,
	}, nil
}

type stagedFile struct {
	tmp  string
	path string
}

// stageFile writes data to a temp file next to path and returns the temp file name
func stageFile(path string, data []byte) (string, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return "", err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", err
	}
	return tmpName, nil
}
