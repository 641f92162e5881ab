package models

// IntentKind is the routing decision made for a query
type IntentKind string

const (
	IntentDirections     IntentKind = "directions"
	IntentFacilitySearch IntentKind = "facility_search"
	IntentLocationLookup IntentKind = "location_lookup"
	IntentUnknown        IntentKind = "unknown"
)

// ModifierNearest is the proximity modifier attached when the query asks for the closest place
const ModifierNearest = "가까운"

// QueryIntent is the transient classification of one query
type QueryIntent struct {
	Kind       IntentKind `json:"query_type"`
	Category   *Category  `json:"place_type,omitempty"`
	TargetName string     `json:"target_location,omitempty"`
	Modifiers  []string   `json:"modifiers,omitempty"`

	// Location is the explicit "위치(...)" prefix, when the query carried one
	Location string `json:"location,omitempty"`
	// Query is the text that was classified, with any location prefix removed
	Query string `json:"query"`
}

// HasModifier reports whether the intent carries the given modifier
func (q *QueryIntent) HasModifier(m string) bool {
	for _, existing := range q.Modifiers {
		if existing == m {
			return true
		}
	}
	return false
}

// CategoryMatch is the outcome of category classification, exposed for diagnostics
type CategoryMatch struct {
	Category    Category `json:"category"`
	Score       float64  `json:"score"`
	MatchedTerm string   `json:"matched_term,omitempty"`
}
