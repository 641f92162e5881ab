package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/placefinder/internal/interfaces"
)

// KVRequest is the body of PUT /api/kv/{key}
type KVRequest struct {
	Value       string `json:"value" validate:"required"`
	Description string `json:"description"`
}

// KVEntry is one listed key with its value masked
type KVEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// KVHandler manages the stored secrets read by API key resolution
// (openai_api_key, gemini_api_key, anthropic_api_key, naver_client_id, naver_client_secret)
type KVHandler struct {
	kv     interfaces.KeyValueStorage
	logger arbor.ILogger
}

// NewKVHandler creates a new KV handler
func NewKVHandler(kv interfaces.KeyValueStorage, logger arbor.ILogger) *KVHandler {
	return &KVHandler{
		kv:     kv,
		logger: logger,
	}
}

// ListKVHandler handles GET /api/kv - lists keys with masked values
func (h *KVHandler) ListKVHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	pairs, err := h.kv.GetAll(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list key/value pairs")
		WriteError(w, http.StatusInternalServerError, "Failed to list key/value pairs")
		return
	}

	entries := make([]KVEntry, 0, len(pairs))
	for key, value := range pairs {
		entries = append(entries, KVEntry{Key: key, Value: maskValue(value)})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })

	WriteJSON(w, http.StatusOK, entries)
}

// KeyHandler handles PUT and DELETE /api/kv/{key}
func (h *KVHandler) KeyHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPut, http.MethodDelete) {
		return
	}

	key, err := url.PathUnescape(strings.TrimPrefix(r.URL.EscapedPath(), "/api/kv/"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid key encoding")
		return
	}
	if strings.TrimSpace(key) == "" || strings.Contains(key, "/") {
		WriteError(w, http.StatusBadRequest, "Missing key parameter")
		return
	}

	if r.Method == http.MethodDelete {
		h.deleteKey(w, r, key)
		return
	}

	var req KVRequest
	if err := DecodeJSON(r, &req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			WriteError(w, http.StatusBadRequest, "Value is required")
			return
		}
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.kv.Set(r.Context(), key, req.Value, req.Description); err != nil {
		h.logger.Error().Err(err).Str("key", key).Msg("Failed to store key/value pair")
		WriteError(w, http.StatusInternalServerError, "Failed to store key/value pair")
		return
	}

	h.logger.Info().Str("key", key).Msg("Stored key/value pair")
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"key":    key,
	})
}

func (h *KVHandler) deleteKey(w http.ResponseWriter, r *http.Request, key string) {
	if err := h.kv.Delete(r.Context(), key); err != nil {
		if errors.Is(err, interfaces.ErrKeyNotFound) {
			WriteError(w, http.StatusNotFound, "Key not found")
			return
		}
		h.logger.Error().Err(err).Str("key", key).Msg("Failed to delete key/value pair")
		WriteError(w, http.StatusInternalServerError, "Failed to delete key/value pair")
		return
	}

	h.logger.Info().Str("key", key).Msg("Deleted key/value pair")
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"key":    key,
	})
}

// maskValue keeps the first four characters of values longer than eight
func maskValue(value string) string {
	runes := []rune(value)
	if len(runes) <= 8 {
		return "********"
	}
	return string(runes[:4]) + "..." + strings.Repeat("*", 4)
}
