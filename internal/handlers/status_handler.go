package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/placefinder/internal/interfaces"
	"github.com/ternarybob/placefinder/internal/models"
)

// CategoryStatus is the served size of one category index
type CategoryStatus struct {
	Category models.Category `json:"category"`
	Slug     string          `json:"slug"`
	Size     int             `json:"size"`
}

// ScheduleStatus is the outcome of the last scheduled reload
type ScheduleStatus struct {
	LastRun   *time.Time `json:"last_run,omitempty"`
	LastError string     `json:"last_error,omitempty"`
}

// StatusResponse is the body of GET /api/status
type StatusResponse struct {
	Status     string                 `json:"status"`
	Categories []CategoryStatus       `json:"categories"`
	Manifest   *models.IndexManifest  `json:"manifest"`
	Schedule   *ScheduleStatus        `json:"schedule,omitempty"`
	History    []models.IndexManifest `json:"history,omitempty"`
}

// ReloadSchedule reports on scheduled reloads
type ReloadSchedule interface {
	LastRun() (*time.Time, string)
}

// StatusOptions configures the optional parts of the status handler
type StatusOptions struct {
	Manifests     interfaces.IndexManifestStorage // history for ?history=n
	Schedule      ReloadSchedule                  // last scheduled reload
	ReloadTimeout time.Duration                   // bounds an admin reload (0 = none)
}

// StatusHandler reports and manages the served index generation
type StatusHandler struct {
	store   interfaces.IndexStore
	options StatusOptions
	logger  arbor.ILogger
}

// NewStatusHandler creates a new StatusHandler
func NewStatusHandler(store interfaces.IndexStore, options StatusOptions, logger arbor.ILogger) *StatusHandler {
	return &StatusHandler{
		store:   store,
		options: options,
		logger:  logger,
	}
}

// GetStatusHandler handles GET /api/status[?history=n]
func (h *StatusHandler) GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	snapshot := h.store.Snapshot()
	resp := StatusResponse{
		Status:     "ok",
		Categories: make([]CategoryStatus, 0, len(models.Categories)),
		Manifest:   h.store.Manifest(),
	}
	for _, c := range models.Categories {
		resp.Categories = append(resp.Categories, CategoryStatus{
			Category: c,
			Slug:     c.Slug(),
			Size:     snapshot.Size(c),
		})
	}

	if h.options.Schedule != nil {
		lastRun, lastError := h.options.Schedule.LastRun()
		resp.Schedule = &ScheduleStatus{LastRun: lastRun, LastError: lastError}
	}

	if n, err := strconv.Atoi(r.URL.Query().Get("history")); err == nil && n > 0 && h.options.Manifests != nil {
		history, err := h.options.Manifests.ListManifests(r.Context(), n)
		if err != nil {
			h.logger.Warn().Err(err).Msg("Failed to list index manifests")
		} else {
			resp.History = history
		}
	}

	WriteJSON(w, http.StatusOK, resp)
}

type reloadResult struct {
	manifest *models.IndexManifest
	err      error
}

// ReloadHandler handles POST /api/admin/reload[?wait=false]: rebuilds every category and
// swaps the new generation in. The rebuild runs detached from the request, so a dropped
// client does not abort it. With wait=false it answers 202 right away.
// The current generation keeps serving if the rebuild fails.
func (h *StatusHandler) ReloadHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	done := h.startReload(r.Context())

	if r.URL.Query().Get("wait") == "false" {
		WriteJSON(w, http.StatusAccepted, map[string]interface{}{
			"status": "reloading",
		})
		return
	}

	select {
	case res := <-done:
		if res.err != nil {
			WriteError(w, http.StatusInternalServerError, "인덱스 재구축에 실패했습니다: "+res.err.Error())
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"status":   "reloaded",
			"manifest": res.manifest,
		})
	case <-r.Context().Done():
		h.logger.Warn().Msg("Client left during admin reload, rebuild continues")
	}
}

// startReload runs Reload on a context that outlives the request
func (h *StatusHandler) startReload(parent context.Context) <-chan reloadResult {
	ctx := context.WithoutCancel(parent)
	cancel := context.CancelFunc(func() {})
	if h.options.ReloadTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, h.options.ReloadTimeout)
	}

	done := make(chan reloadResult, 1)
	go func() {
		defer cancel()
		start := time.Now()
		manifest, err := h.store.Reload(ctx)
		if err != nil {
			h.logger.Error().Err(err).Dur("duration", time.Since(start)).Msg("Admin reload failed")
		} else {
			h.logger.Info().
				Str("generation", manifest.Generation).
				Int("records", manifest.Total()).
				Dur("duration", time.Since(start)).
				Msg("Admin reload completed")
		}
		done <- reloadResult{manifest: manifest, err: err}
	}()
	return done
}
