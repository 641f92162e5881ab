package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.app.APIHandler.RootHandler)
	mux.HandleFunc("/favicon.ico", s.app.APIHandler.FaviconHandler)
	mux.HandleFunc("/health", s.app.APIHandler.HealthHandler)
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)

	// Assistant queries
	mux.HandleFunc("/api/search", s.app.SearchHandler.SearchHandler)   // GET ?query= / POST {query, user_location}
	mux.HandleFunc("/search", s.app.SearchHandler.StrictSearchHandler) // POST {query}, facility categories only

	// Naver maps passthrough
	mux.HandleFunc("/api/directions", s.app.MapsHandler.DirectionsHandler)
	mux.HandleFunc("/api/geocode", s.app.MapsHandler.GeocodeHandler)

	// Index status and admin
	mux.HandleFunc("/api/status", s.app.StatusHandler.GetStatusHandler)
	mux.HandleFunc("/api/admin/reload", s.requireAdmin(s.app.StatusHandler.ReloadHandler)) // POST, ?wait=false returns 202

	// Stored API keys
	mux.HandleFunc("/api/kv", s.requireAdmin(s.app.KVHandler.ListKVHandler))
	mux.HandleFunc("/api/kv/", s.requireAdmin(s.app.KVHandler.KeyHandler)) // PUT {value, description} / DELETE

	return mux
}
