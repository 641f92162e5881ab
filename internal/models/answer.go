package models

// AnswerType tags the shape of an assistant answer
type AnswerType string

const (
	AnswerChat       AnswerType = "chat"
	AnswerDirections AnswerType = "directions"
	AnswerPlaces     AnswerType = "places"
	AnswerLocation   AnswerType = "location"
)

// RouteEndpoint is one end of a directions answer
type RouteEndpoint struct {
	Name    string `json:"name,omitempty"`
	Address string `json:"address,omitempty"`
	X       string `json:"x"`
	Y       string `json:"y"`
}

// DirectionsSummary is the headline of a directions answer
type DirectionsSummary struct {
	Distance        int `json:"distance"` // meters
	DurationMinutes int `json:"duration_minutes"`
}

// LocationAnswer is a geocode result enriched with the query analysis
type LocationAnswer struct {
	Status         string           `json:"status"`
	OriginalQuery  string           `json:"original_query"`
	Addresses      []GeocodeAddress `json:"addresses"`
	Analysis       *QueryIntent     `json:"analysis,omitempty"`
	AdditionalInfo string           `json:"additional_info,omitempty"`
}

// Answer is the response to one assistant query. Only the fields of its Type are set;
// location answers flatten LocationAnswer into the top level.
type Answer struct {
	Type         AnswerType `json:"type"`
	Response     string     `json:"response,omitempty"`
	ResponseHTML string     `json:"response_html,omitempty"`

	Places             []RetrievalResult `json:"places,omitempty"`
	DistanceConstraint string            `json:"distance_constraint,omitempty"`

	Route   map[string][]RoutePath `json:"route,omitempty"`
	Summary *DirectionsSummary     `json:"summary,omitempty"`
	Start   *RouteEndpoint         `json:"start,omitempty"`
	End     *RouteEndpoint         `json:"end,omitempty"`

	*LocationAnswer
}
