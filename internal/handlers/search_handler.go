package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/placefinder/internal/services/assistant"
)

// SearchRequest is the JSON body of POST /api/search and POST /search
type SearchRequest struct {
	Query        string `json:"query" validate:"required"`
	UserLocation string `json:"user_location"`
}

// SearchHandler handles assistant query requests
type SearchHandler struct {
	assistant Assistant
	logger    arbor.ILogger
}

// NewSearchHandler creates a new search handler with dependencies
func NewSearchHandler(assistant Assistant, logger arbor.ILogger) *SearchHandler {
	return &SearchHandler{
		assistant: assistant,
		logger:    logger,
	}
}

// SearchHandler handles GET /api/search?query= and POST /api/search {query, user_location}
func (h *SearchHandler) SearchHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodPost) {
		return
	}

	var req SearchRequest
	if r.Method == http.MethodGet {
		req.Query = r.URL.Query().Get("query")
		req.UserLocation = r.URL.Query().Get("user_location")
	} else if err := DecodeJSON(r, &req); err != nil && !isMissingQuery(err) {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if strings.TrimSpace(req.Query) == "" {
		WriteError(w, http.StatusBadRequest, "Query parameter is required")
		return
	}

	h.logger.Info().
		Str("query", req.Query).
		Str("user_location", req.UserLocation).
		Msg("Search request received")

	answer, err := h.assistant.Handle(r.Context(), req.Query, req.UserLocation)
	if err != nil {
		h.writeAssistantError(w, err, req.Query)
		return
	}

	WriteJSON(w, http.StatusOK, answer)
}

// StrictSearchHandler handles POST /search {query}: facility search that rejects
// unknown or ambiguous categories instead of routing them
func (h *SearchHandler) StrictSearchHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req SearchRequest
	if err := DecodeJSON(r, &req); err != nil {
		if isMissingQuery(err) {
			WriteError(w, http.StatusBadRequest, "검색어를 입력해주세요.")
			return
		}
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	answer, err := h.assistant.StrictSearch(r.Context(), req.Query)
	if err != nil {
		h.writeAssistantError(w, err, req.Query)
		return
	}

	WriteJSON(w, http.StatusOK, answer)
}

func (h *SearchHandler) writeAssistantError(w http.ResponseWriter, err error, query string) {
	var userErr *assistant.Error
	if !errors.As(err, &userErr) {
		h.logger.Error().Err(err).Str("query", query).Msg("Search failed")
		WriteError(w, http.StatusInternalServerError, "시설 검색 중 오류가 발생했습니다.")
		return
	}

	status := http.StatusBadRequest
	switch {
	case errors.Is(err, assistant.ErrUnsupportedCategory), errors.Is(err, assistant.ErrNoCandidates):
		status = http.StatusNotFound
	}

	h.logger.Warn().
		Str("query", query).
		Int("status", status).
		Str("reason", userErr.Kind.Error()).
		Msg("Search rejected")

	WriteError(w, status, userErr.Message)
}

// isMissingQuery reports whether a decode error is only the required-field check on query
func isMissingQuery(err error) bool {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return false
	}
	for _, fe := range verrs {
		if fe.Field() != "Query" {
			return false
		}
	}
	return true
}
