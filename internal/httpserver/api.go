package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/al-bashkir/stable-portal/internal/gateway"
	"github.com/al-bashkir/stable-portal/internal/session"
	"github.com/al-bashkir/stable-portal/internal/upstream"
)

// maxBodyBytes caps request bodies forwarded upstream.
const maxBodyBytes = 1 << 20

// MeResponse describes the signed-in user and the portal settings the
// browser needs.
type MeResponse struct {
	User       *session.Identity  `json:"user"`
	AppName    string             `json:"appName"`
	DemoMode   bool               `json:"demoMode"`
	RiskLabels gateway.RiskLabels `json:"riskLabels"`
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, MeResponse{
		User:       sessionFrom(r.Context()).User,
		AppName:    s.cfg.App.Name,
		DemoMode:   s.cfg.App.DemoMode,
		RiskLabels: s.labels,
	})
}

func (s *Server) handleStables(w http.ResponseWriter, r *http.Request) {
	out, err := s.gateway.Stables(r.Context(), accessToken(r))
	s.respond(w, r, out, err)
}

func (s *Server) handleHorses(w http.ResponseWriter, r *http.Request) {
	out, err := s.gateway.Horses(r.Context(), accessToken(r), r.PathValue("stableId"))
	s.respond(w, r, out, err)
}

func (s *Server) handleUpdateHorse(w http.ResponseWriter, r *http.Request) {
	var body gateway.Record
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		s.respond(w, r, nil, upstream.BadRequest("Request body must be a JSON object"))
		return
	}

	out, err := s.gateway.UpdateHorse(r.Context(), accessToken(r), r.PathValue("horseId"), body)
	s.respond(w, r, out, err)
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	out, err := s.gateway.Sessions(r.Context(), accessToken(r), r.PathValue("stableId"), r.PathValue("days"))
	s.respond(w, r, out, err)
}

func (s *Server) handleUnassignedSessions(w http.ResponseWriter, r *http.Request) {
	out, err := s.gateway.UnassignedSessions(r.Context(), accessToken(r), r.PathValue("stableId"))
	s.respond(w, r, out, err)
}

func (s *Server) handleAssignSession(w http.ResponseWriter, r *http.Request) {
	out, err := s.gateway.AssignSession(r.Context(), accessToken(r),
		r.PathValue("stableId"),
		r.PathValue("recordingId"),
		r.PathValue("horseId"),
	)
	s.respond(w, r, out, err)
}

func (s *Server) handlePerformance(w http.ResponseWriter, r *http.Request) {
	out, err := s.gateway.Performance(r.Context(), accessToken(r), r.PathValue("recordingId"))
	s.respond(w, r, out, err)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	out, err := s.gateway.Session(r.Context(), accessToken(r), r.PathValue("recordingId"))
	s.respond(w, r, out, err)
}

func (s *Server) handleStableDashboard(w http.ResponseWriter, r *http.Request) {
	out, err := s.gateway.Dashboard(r.Context(), accessToken(r), r.PathValue("stableId"))
	s.respond(w, r, out, err)
}

func (s *Server) handleStatusOptions(w http.ResponseWriter, r *http.Request) {
	out, err := s.gateway.StatusOptions(r.Context(), accessToken(r))
	s.respond(w, r, out, err)
}

func (s *Server) handlePassthrough(w http.ResponseWriter, r *http.Request) {
	out, err := s.gateway.Passthrough(r.Context(), accessToken(r), r.PathValue("path"), r.URL.Query())
	s.respond(w, r, out, err)
}

// respond writes out as JSON, or the error envelope for err.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, out any, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, out)
		return
	}

	status, env := gateway.Envelope(err)
	slog.Warn("api request failed", // #nosec G706 -- values sanitized via sanitizeLog
		"request_id", requestIDFrom(r.Context()),
		"path", sanitizeLog(r.URL.Path),
		"status", status,
		"error", err,
	)
	writeJSON(w, status, env)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Best-effort: headers/status may already be written.
		slog.Error("failed to encode JSON response", "error", err)
	}
}
