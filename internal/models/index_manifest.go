package models

import "time"

// CategoryBuildStats records the outcome of building one category index
type CategoryBuildStats struct {
	Category Category `json:"category"`
	Fetched  int      `json:"fetched"`
	Indexed  int      `json:"indexed"`
	Skipped  int      `json:"skipped"`
	Warning  string   `json:"warning,omitempty"`
}

// IndexManifest describes one index generation. The on-disk files stay authoritative;
// the manifest is reporting metadata only.
type IndexManifest struct {
	Generation     string               `json:"generation" badgerhold:"key"`
	Source         string               `json:"source"` // "build" or "load"
	BuiltAt        time.Time            `json:"built_at" badgerhold:"index"`
	EmbeddingModel string               `json:"embedding_model"`
	Dimension      int                  `json:"dimension"`
	Categories     []CategoryBuildStats `json:"categories"`
}

// Total returns the number of indexed records across categories
func (m *IndexManifest) Total() int {
	total := 0
	for _, c := range m.Categories {
		total += c.Indexed
	}
	return total
}
