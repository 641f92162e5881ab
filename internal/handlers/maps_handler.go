package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/placefinder/internal/interfaces"
	"github.com/ternarybob/placefinder/internal/services/maps"
)

// MapsHandler exposes the geocode and directions APIs to the web client
type MapsHandler struct {
	maps   interfaces.MapsService
	logger arbor.ILogger
}

// NewMapsHandler creates a new maps handler
func NewMapsHandler(mapsService interfaces.MapsService, logger arbor.ILogger) *MapsHandler {
	return &MapsHandler{
		maps:   mapsService,
		logger: logger,
	}
}

// DirectionsHandler handles GET /api/directions?start=&goal=&option=&waypoints=
// and returns the driving API payload as-is, including non-zero result codes.
func (h *MapsHandler) DirectionsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	q := r.URL.Query()
	start, goal := q.Get("start"), q.Get("goal")
	if start == "" || goal == "" {
		WriteError(w, http.StatusBadRequest, "출발지와 도착지 좌표가 필요합니다")
		return
	}

	result, err := h.maps.Route(r.Context(), start, goal, q.Get("option"), q.Get("waypoints"))
	if err != nil && !(errors.Is(err, maps.ErrRouteFailed) && result != nil) {
		h.logger.Error().Err(err).Str("start", start).Str("goal", goal).Msg("Directions request failed")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

// GeocodeHandler handles GET /api/geocode?address= and answers {coordinates: [x, y]}
func (h *MapsHandler) GeocodeHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	address := r.URL.Query().Get("address")
	if address == "" {
		WriteError(w, http.StatusBadRequest, "주소가 필요합니다")
		return
	}

	result, err := h.maps.Geocode(r.Context(), address)
	if err != nil {
		h.logger.Error().Err(err).Str("address", address).Msg("Geocode request failed")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	first, err := maps.FirstAddress(result)
	if err != nil {
		WriteError(w, http.StatusNotFound, "주소를 찾을 수 없습니다")
		return
	}

	x, errX := strconv.ParseFloat(first.X, 64)
	y, errY := strconv.ParseFloat(first.Y, 64)
	if errX != nil || errY != nil {
		WriteError(w, http.StatusInternalServerError, "좌표 형식이 올바르지 않습니다")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"coordinates": []float64{x, y},
	})
}
