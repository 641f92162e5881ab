package models

// Coordinate is a longitude/latitude pair as the Naver APIs return them (strings)
type Coordinate struct {
	X string `json:"x"`
	Y string `json:"y"`
}

// GeocodeAddress is one address entry of a geocode response
type GeocodeAddress struct {
	RoadAddress    string  `json:"roadAddress"`
	JibunAddress   string  `json:"jibunAddress"`
	EnglishAddress string  `json:"englishAddress"`
	X              string  `json:"x"`
	Y              string  `json:"y"`
	Distance       float64 `json:"distance"`
}

// GeocodeResult is the decoded geocode payload
type GeocodeResult struct {
	Status       string           `json:"status"`
	ErrorMessage string           `json:"errorMessage,omitempty"`
	Addresses    []GeocodeAddress `json:"addresses"`
}

// RouteSummary holds the headline numbers of a driving route
type RouteSummary struct {
	Distance int   `json:"distance"` // meters
	Duration int64 `json:"duration"` // milliseconds
}

// RoutePath is one option's route as returned by the directions API
type RoutePath struct {
	Summary RouteSummary `json:"summary"`
	Path    [][]float64  `json:"path"`
}

// RouteResult is the decoded directions payload. Route is keyed by option name (e.g. "trafast").
type RouteResult struct {
	Code    int                    `json:"code"`
	Message string                 `json:"message"`
	Route   map[string][]RoutePath `json:"route,omitempty"`
}

// Primary returns the first path of the given option, or nil
func (r *RouteResult) Primary(option string) *RoutePath {
	paths := r.Route[option]
	if len(paths) == 0 {
		return nil
	}
	return &paths[0]
}

// DurationMinutes converts the route duration to whole minutes (truncating)
func (s RouteSummary) DurationMinutes() int {
	return int(s.Duration / (1000 * 60))
}
