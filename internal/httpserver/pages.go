package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/al-bashkir/stable-portal/internal/session"
)

// pageData is the data available to every page template.
type pageData struct {
	AppName  string
	DemoMode bool
	User     *session.Identity
	Error    string
	Message  string
}

func (s *Server) page(r *http.Request) pageData {
	data := pageData{
		AppName:  s.cfg.App.Name,
		DemoMode: s.cfg.App.DemoMode,
	}
	if sess := sessionFrom(r.Context()); sess != nil && sess.Authenticated() {
		data.User = sess.User
	}
	return data
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "index.html", s.page(r))
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "dashboard.html", s.page(r))
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	data := s.page(r)
	data.Error = "404 - Not Found"
	data.Message = "The page you are looking for does not exist."
	s.render(w, http.StatusNotFound, "error.html", data)
}

// renderError renders the error page
func (s *Server) renderError(w http.ResponseWriter, status int, category, message string) {
	s.render(w, status, "error.html", pageData{
		AppName:  s.cfg.App.Name,
		DemoMode: s.cfg.App.DemoMode,
		Error:    category,
		Message:  message,
	})
}

// renderServerError renders the 500 page without any detail of the failure
func (s *Server) renderServerError(w http.ResponseWriter, r *http.Request) {
	s.renderError(w, http.StatusInternalServerError,
		"Server Error",
		"Something went wrong on our side. Please try again later.",
	)
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)

	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		slog.Error("failed to render template", "template", name, "error", err)
	}
}
