package models

import "strings"

// CatalogRecord is one physical place loaded from the catalog source.
// JSON keys match the metadata_list entries of the persisted sidecar files.
type CatalogRecord struct {
	Name           string `json:"name"`
	Category       string `json:"category"`
	Menu           string `json:"menu"`
	AverageCost    string `json:"average_cost"`
	ReviewNo       string `json:"review_no"`
	Rate           string `json:"rate"`
	Address        string `json:"address"`
	CloseTransport string `json:"close_transport"`
	OpenHour       string `json:"open_hour"`
	BreakTime      string `json:"break_time"`
	DayOff         string `json:"dayoff"`
	Contact        string `json:"contact"`
	Convenience    string `json:"convenience"`
	Website        string `json:"website"`
	Type           string `json:"type"`
}

// EmbeddingText builds the text embedded for a record: name, category, address and menu
// joined by single spaces. An empty menu still leaves the trailing separator.
func (r *CatalogRecord) EmbeddingText() string {
	return strings.Join([]string{r.Name, r.Category, r.Address, r.Menu}, " ")
}
