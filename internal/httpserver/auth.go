package httpserver

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/al-bashkir/stable-portal/internal/auth"
)

// handleLogin starts the login flow and redirects to the identity provider,
// or straight to the dashboard in demo mode.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	id, err := s.ensureSession(w, r)
	if err != nil {
		slog.Error("failed to create session",
			"request_id", requestIDFrom(r.Context()),
			"error", err,
		)
		s.renderServerError(w, r)
		return
	}

	target, err := s.flow.Begin(r.Context(), id)
	if err != nil {
		s.renderFlowError(w, r, err)
		return
	}

	http.Redirect(w, r, target, http.StatusFound)
}

// handleCallback completes the login flow from the provider redirect.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := auth.CallbackParams{
		Code:             q.Get("code"),
		State:            q.Get("state"),
		Error:            q.Get("error"),
		ErrorDescription: q.Get("error_description"),
	}

	slog.Info("callback received", // #nosec G706 -- only boolean values logged, no injection risk
		"request_id", requestIDFrom(r.Context()),
		"code_present", params.Code != "",
		"state_present", params.State != "",
		"error_present", params.Error != "",
	)

	var id string
	if sess := sessionFrom(r.Context()); sess != nil {
		id = sess.ID
	}

	if err := s.flow.Complete(r.Context(), id, params); err != nil {
		s.renderFlowError(w, r, err)
		return
	}

	http.Redirect(w, r, auth.DashboardURL, http.StatusFound)
}

// handleLogout destroys the session and redirects to the provider's
// end-session endpoint or home.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var id string
	if sess := sessionFrom(r.Context()); sess != nil {
		id = sess.ID
	}

	target := s.flow.Logout(r.Context(), id)
	s.cookies.Clear(w)

	http.Redirect(w, r, target, http.StatusFound)
}

// renderFlowError shows a failed login attempt.
func (s *Server) renderFlowError(w http.ResponseWriter, r *http.Request, err error) {
	var flowErr *auth.FlowError
	if !errors.As(err, &flowErr) {
		slog.Error("login flow failed",
			"request_id", requestIDFrom(r.Context()),
			"error", err,
		)
		s.renderServerError(w, r)
		return
	}

	status := http.StatusBadRequest
	if errors.Is(err, auth.ErrConfiguration) {
		status = http.StatusServiceUnavailable
	}

	slog.Warn("login attempt failed", // #nosec G706 -- FlowError messages are fixed strings or provider text sanitized below
		"request_id", requestIDFrom(r.Context()),
		"category", flowErr.Category,
		"error", sanitizeLog(err.Error()),
	)

	s.renderError(w, status, flowErr.Category, flowErr.Message)
}
