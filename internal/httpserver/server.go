package httpserver

import (
	"context"
	"crypto/tls"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/al-bashkir/stable-portal/internal/auth"
	"github.com/al-bashkir/stable-portal/internal/config"
	"github.com/al-bashkir/stable-portal/internal/gateway"
	"github.com/al-bashkir/stable-portal/internal/session"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Deps are the collaborators the server routes requests to.
type Deps struct {
	Store   session.Store
	Cookies *session.CookieCodec
	Flow    auth.Flow
	Gateway gateway.Gateway
	Version string
}

// Server is the portal's HTTP front end: login flow, pages and data API.
type Server struct {
	cfg        *config.Config
	httpServer *http.Server
	mux        *http.ServeMux
	templates  *template.Template
	limiter    *IPRateLimiter

	store   session.Store
	cookies *session.CookieCodec
	flow    auth.Flow
	gateway gateway.Gateway
	labels  gateway.RiskLabels
	version string
}

// NewServer creates a new HTTP server
func NewServer(cfg *config.Config, deps Deps) (*Server, error) {
	if deps.Store == nil || deps.Cookies == nil || deps.Flow == nil || deps.Gateway == nil {
		return nil, errors.New("store, cookies, flow and gateway are required")
	}

	// Parse templates
	templates, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	version := deps.Version
	if version == "" {
		version = "dev"
	}

	s := &Server{
		cfg:       cfg,
		mux:       http.NewServeMux(),
		templates: templates,
		limiter:   newIPRateLimiter(10, 50),
		store:     deps.Store,
		cookies:   deps.Cookies,
		flow:      deps.Flow,
		gateway:   deps.Gateway,
		labels:    gateway.RiskLabelsFromConfig(cfg.Gateway.RiskLabels),
		version:   version,
	}

	s.routes()

	// Wrap with middleware
	handler := s.sessionMiddleware(s.mux)
	handler = loggingMiddleware(handler)
	handler = s.recoveryMiddleware(handler)
	handler = s.rateLimitMiddleware(handler)
	handler = securityHeadersMiddleware(handler)

	// Create HTTP server
	s.httpServer = &http.Server{
		Addr:         cfg.Listen.HTTP,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 2 * time.Duration(cfg.API.Timeout) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Configure TLS if enabled
	if cfg.TLS.Enabled {
		s.httpServer.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
			CipherSuites: []uint16{
				tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
				tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
				tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
				tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
			},
		}
	}

	return s, nil
}

func (s *Server) routes() {
	// Pages
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /dashboard", s.requireAuth(s.handleDashboard))
	s.mux.HandleFunc("GET /health", s.handleHealth)

	// Login flow
	s.mux.HandleFunc("GET /login", s.handleLogin)
	s.mux.HandleFunc("GET /auth/login", s.handleLogin)
	s.mux.HandleFunc("GET /auth-callback", s.handleCallback)
	s.mux.HandleFunc("GET /logout", s.handleLogout)

	// Data API
	s.mux.HandleFunc("GET /api/user/me", s.requireAuth(s.handleMe))
	s.mux.HandleFunc("GET /api/user/stables", s.requireAuth(s.handleStables))
	s.mux.HandleFunc("GET /api/user/horses/{stableId}", s.requireAuth(s.handleHorses))
	s.mux.HandleFunc("PUT /api/user/horses/{horseId}", s.requireAuth(s.handleUpdateHorse))
	s.mux.HandleFunc("GET /api/user/sessions/{stableId}/{days}", s.requireAuth(s.handleSessions))
	s.mux.HandleFunc("GET /api/user/sessions/unassigned/{stableId}", s.requireAuth(s.handleUnassignedSessions))
	s.mux.HandleFunc("POST /api/user/sessions/assign/{stableId}/{recordingId}/{horseId}", s.requireAuth(s.handleAssignSession))
	s.mux.HandleFunc("GET /api/user/performance/{recordingId}", s.requireAuth(s.handlePerformance))
	s.mux.HandleFunc("GET /api/user/session/{recordingId}", s.requireAuth(s.handleSession))
	s.mux.HandleFunc("GET /api/user/dashboard/{stableId}", s.requireAuth(s.handleStableDashboard))
	s.mux.HandleFunc("GET /api/user/dropdowns/status", s.requireAuth(s.handleStatusOptions))
	s.mux.HandleFunc("GET /api/{path...}", s.requireAuth(s.handlePassthrough))

	s.mux.HandleFunc("/", s.handleNotFound)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	slog.Info("starting HTTP server",
		"addr", s.cfg.Listen.HTTP,
		"tls", s.cfg.TLS.Enabled,
	)

	if s.cfg.TLS.Enabled {
		return s.httpServer.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
	}

	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("shutting down HTTP server")
	s.limiter.Stop()
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the server's full middleware chain.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
