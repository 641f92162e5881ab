package interfaces

import (
	"context"

	"github.com/ternarybob/placefinder/internal/models"
)

// MapsService wraps the geocoding and driving directions APIs
type MapsService interface {
	// Geocode resolves free text or an address to candidate coordinates
	Geocode(ctx context.Context, query string) (*models.GeocodeResult, error)

	// Route computes a driving route. start and goal are "lng,lat" strings.
	Route(ctx context.Context, start, goal, option, waypoints string) (*models.RouteResult, error)
}
