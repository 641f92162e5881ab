package vectorindex

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/ternarybob/placefinder/internal/models"
)

// Binary layout of a persisted FlatIndex (little-endian):
// magic "PFL2", version u32, dim u32, n u32, then n*dim float32 values.
const (
	flatMagic   = "PFL2"
	flatVersion = 1
	headerSize  = 16
)

// FlatIndex is an exact nearest-neighbor index over squared Euclidean distance.
// Vectors are stored contiguously in insertion order; position i is the i-th added vector.
type FlatIndex struct {
	dim  int
	data []float32
}

// NewFlatIndex creates an empty index for vectors of the given dimension
func NewFlatIndex(dim int) *FlatIndex {
	return &FlatIndex{dim: dim}
}

// Dimension returns the vector dimension
func (f *FlatIndex) Dimension() int {
	return f.dim
}

// Len returns the number of stored vectors
func (f *FlatIndex) Len() int {
	if f.dim == 0 {
		return 0
	}
	return len(f.data) / f.dim
}

// Add appends vectors in order. Either all vectors are added or none.
func (f *FlatIndex) Add(vectors ...[]float32) error {
	for i, v := range vectors {
		if len(v) != f.dim {
			return fmt.Errorf("%w: vector %d has %d dimensions, index has %d", ErrDimensionMismatch, i, len(v), f.dim)
		}
	}
	for _, v := range vectors {
		f.data = append(f.data, v...)
	}
	return nil
}

// Vector returns a copy of the vector at position i
func (f *FlatIndex) Vector(i int) []float32 {
	out := make([]float32, f.dim)
	copy(out, f.data[i*f.dim:(i+1)*f.dim])
	return out
}

// Search returns the min(k, Len()) nearest vectors by ascending squared L2 distance.
// Equal distances keep insertion order.
func (f *FlatIndex) Search(query []float32, k int) ([]models.Neighbor, error) {
	n := f.Len()
	if k <= 0 || n == 0 {
		return []models.Neighbor{}, nil
	}
	if len(query) != f.dim {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d", ErrDimensionMismatch, len(query), f.dim)
	}
	if k > n {
		k = n
	}

	neighbors := make([]models.Neighbor, n)
	for i := 0; i < n; i++ {
		neighbors[i] = models.Neighbor{
			Distance: squaredL2(query, f.data[i*f.dim:(i+1)*f.dim]),
			Position: i,
		}
	}
	sort.SliceStable(neighbors, func(a, b int) bool {
		return neighbors[a].Distance < neighbors[b].Distance
	})

	return neighbors[:k], nil
}

// MarshalBinary encodes the index in the PFL2 format
func (f *FlatIndex) MarshalBinary() ([]byte, error) {
	out := make([]byte, headerSize+4*len(f.data))
	copy(out[0:4], flatMagic)
	binary.LittleEndian.PutUint32(out[4:8], flatVersion)
	binary.LittleEndian.PutUint32(out[8:12], uint32(f.dim))
	binary.LittleEndian.PutUint32(out[12:16], uint32(f.Len()))

	off := headerSize
	for _, v := range f.data {
		binary.LittleEndian.PutUint32(out[off:off+4], math.Float32bits(v))
		off += 4
	}
	return out, nil
}

// UnmarshalBinary restores an index written by MarshalBinary
func (f *FlatIndex) UnmarshalBinary(data []byte) error {
	if len(data) < headerSize {
		return fmt.Errorf("%w: index header truncated (%d bytes)", ErrIndexCorrupt, len(data))
	}
	if string(data[0:4]) != flatMagic {
		return fmt.Errorf("%w: bad magic %q", ErrIndexCorrupt, string(data[0:4]))
	}
	if version := binary.LittleEndian.Uint32(data[4:8]); version != flatVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrIndexCorrupt, version)
	}

	dim := int(binary.LittleEndian.Uint32(data[8:12]))
	n := int(binary.LittleEndian.Uint32(data[12:16]))
	if want := headerSize + 4*dim*n; len(data) != want {
		return fmt.Errorf("%w: expected %d bytes for %d vectors of %d dimensions, got %d", ErrIndexCorrupt, want, n, dim, len(data))
	}

	values := make([]float32, dim*n)
	off := headerSize
	for i := range values {
		values[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[off : off+4]))
		off += 4
	}

	f.dim = dim
	f.data = values
	return nil
}

func squaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
