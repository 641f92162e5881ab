package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/placefinder/internal/models"
	"github.com/ternarybob/placefinder/internal/services/maps"
)

type mockMaps struct {
	geocode *models.GeocodeResult
	route   *models.RouteResult
	err     error

	routeArgs []string
}

func (m *mockMaps) Geocode(ctx context.Context, query string) (*models.GeocodeResult, error) {
	return m.geocode, m.err
}

func (m *mockMaps) Route(ctx context.Context, start, goal, option, waypoints string) (*models.RouteResult, error) {
	m.routeArgs = []string{start, goal, option, waypoints}
	return m.route, m.err
}

func TestGeocodeHandler(t *testing.T) {
	tests := []struct {
		name   string
		target string
		maps   *mockMaps
		status int
		want   string
	}{
		{
			name:   "coordinates",
			target: "/api/geocode?address=%EA%B0%95%EB%82%A8%EC%97%AD",
			maps: &mockMaps{geocode: &models.GeocodeResult{Status: "OK", Addresses: []models.GeocodeAddress{
				{X: "127.0276", Y: "37.4979"},
			}}},
			status: http.StatusOK,
			want:   `{"coordinates":[127.0276,37.4979]}`,
		},
		{
			name:   "not found",
			target: "/api/geocode?address=nowhere",
			maps:   &mockMaps{geocode: &models.GeocodeResult{Status: "OK"}},
			status: http.StatusNotFound,
			want:   `{"type":"error","error":"주소를 찾을 수 없습니다"}`,
		},
		{
			name:   "missing address",
			target: "/api/geocode",
			maps:   &mockMaps{},
			status: http.StatusBadRequest,
			want:   `{"type":"error","error":"주소가 필요합니다"}`,
		},
		{
			name:   "upstream failure",
			target: "/api/geocode?address=x",
			maps:   &mockMaps{err: fmt.Errorf("boom")},
			status: http.StatusInternalServerError,
			want:   `{"type":"error","error":"boom"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewMapsHandler(tt.maps, arbor.NewLogger())
			rec := httptest.NewRecorder()
			handler.GeocodeHandler(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))

			assert.Equal(t, tt.status, rec.Code)
			assert.JSONEq(t, tt.want, rec.Body.String())
		})
	}
}

func TestDirectionsHandler_Passthrough(t *testing.T) {
	m := &mockMaps{route: &models.RouteResult{
		Code:    0,
		Message: "길찾기를 성공하였습니다.",
		Route: map[string][]models.RoutePath{
			"trafast": {{Summary: models.RouteSummary{Distance: 2345, Duration: 421000}}},
		},
	}}
	handler := NewMapsHandler(m, arbor.NewLogger())

	rec := httptest.NewRecorder()
	handler.DirectionsHandler(rec, httptest.NewRequest(http.MethodGet, "/api/directions?start=127.03,37.49&goal=127.02,37.49", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"127.03,37.49", "127.02,37.49", "", ""}, m.routeArgs)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(0), body["code"])
	assert.Contains(t, body, "route")
}

func TestDirectionsHandler_NonZeroCodeIsPassedThrough(t *testing.T) {
	m := &mockMaps{
		route: &models.RouteResult{Code: 1, Message: "출발지와 도착지가 동일합니다."},
		err:   fmt.Errorf("%w: code 1", maps.ErrRouteFailed),
	}
	handler := NewMapsHandler(m, arbor.NewLogger())

	rec := httptest.NewRecorder()
	handler.DirectionsHandler(rec, httptest.NewRequest(http.MethodGet, "/api/directions?start=1,2&goal=1,2&option=tracomfort", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "tracomfort", m.routeArgs[2])
	assert.JSONEq(t, `{"code":1,"message":"출발지와 도착지가 동일합니다."}`, rec.Body.String())
}

func TestDirectionsHandler_MissingCoordinates(t *testing.T) {
	handler := NewMapsHandler(&mockMaps{}, arbor.NewLogger())

	rec := httptest.NewRecorder()
	handler.DirectionsHandler(rec, httptest.NewRequest(http.MethodGet, "/api/directions?start=127.03,37.49", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "출발지와 도착지 좌표가 필요합니다", decodeBody(t, rec)["error"])
}
