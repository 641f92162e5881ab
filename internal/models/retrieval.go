package models

// RetrievalResult is one ranked hit from a category index.
// Similarity is 1 - distance: an ordering signal only. It can be negative and is not a probability.
type RetrievalResult struct {
	Rank       int           `json:"rank"`
	Similarity float64       `json:"similarity"`
	Record     CatalogRecord `json:"record"`
}

// Neighbor is a raw nearest-neighbor hit: squared L2 distance and index position
type Neighbor struct {
	Distance float32
	Position int
}
