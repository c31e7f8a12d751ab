package httpserver

import (
	"net/http"
)

// HealthResponse is the JSON response for the health check endpoint
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version,omitempty"`
	DemoMode bool   `json:"demoMode"`
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:   "ok",
		Version:  s.version,
		DemoMode: s.cfg.App.DemoMode,
	})
}
