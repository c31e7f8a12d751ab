// Package daemon wires the portal's components together and runs them until shutdown.
package daemon

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/al-bashkir/stable-portal/internal/auth"
	"github.com/al-bashkir/stable-portal/internal/config"
	"github.com/al-bashkir/stable-portal/internal/gateway"
	"github.com/al-bashkir/stable-portal/internal/httpserver"
	"github.com/al-bashkir/stable-portal/internal/oidc"
	"github.com/al-bashkir/stable-portal/internal/session"
	"github.com/al-bashkir/stable-portal/internal/upstream"
)

const (
	discoveryTimeout = 30 * time.Second
	shutdownTimeout  = 30 * time.Second

	// apiIdleConnsPerHost covers the dashboard fan-out to the single API host.
	apiIdleConnsPerHost = 16
)

// Daemon represents the portal process and the components it coordinates.
type Daemon struct {
	cfg        *config.Config
	ready      *oidc.Ready
	store      *session.MemoryStore
	httpServer *httpserver.Server
}

// New creates a new daemon with all components initialized.
// In live mode identity provider discovery must succeed; in demo mode a
// failed discovery is logged and the provider is never used.
func New(cfg *config.Config, version string) (*Daemon, error) {
	ready := &oidc.Ready{}
	if err := discover(cfg, ready); err != nil {
		return nil, err
	}

	secret, err := sessionSecret(cfg)
	if err != nil {
		return nil, err
	}

	store := session.NewMemoryStore(session.DefaultTTL)

	logger := slog.Default()
	client := upstream.NewClient(cfg.API.BaseURL,
		upstream.WithHTTPClient(apiHTTPClient(cfg)),
		upstream.WithLogger(logger),
	)

	httpServer, err := httpserver.NewServer(cfg, httpserver.Deps{
		Store:   store,
		Cookies: session.NewCookieCodec(secret, cfg.Session.CookieSecure),
		Flow:    auth.New(store, auth.ReadyProvider(ready), cfg.App.DemoMode, logger),
		Gateway: gateway.New(cfg, client, logger),
		Version: version,
	})
	if err != nil {
		store.Stop()
		return nil, fmt.Errorf("failed to initialize HTTP server: %w", err)
	}

	slog.Info("HTTP server initialized",
		"listen", cfg.Listen.HTTP,
		"tls", cfg.TLS.Enabled,
	)

	return &Daemon{
		cfg:        cfg,
		ready:      ready,
		store:      store,
		httpServer: httpServer,
	}, nil
}

// discover runs identity provider discovery and publishes the result to ready.
func discover(cfg *config.Config, ready *oidc.Ready) error {
	if cfg.App.DemoMode && cfg.OIDC.Issuer == "" {
		slog.Info("demo mode: identity provider not configured")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), discoveryTimeout)
	defer cancel()

	provider, err := oidc.Discover(ctx, &cfg.OIDC)
	if err != nil {
		if cfg.App.DemoMode {
			slog.Warn("demo mode: identity provider discovery failed, continuing without it",
				"issuer", cfg.OIDC.Issuer,
				"error", err,
			)
			return nil
		}
		return fmt.Errorf("failed to initialize OIDC provider: %w", err)
	}
	ready.Set(provider)

	md := provider.Metadata()
	slog.Info("OIDC provider initialized",
		"issuer", md.Issuer,
		"client_id", cfg.OIDC.ClientID,
		"end_session", md.EndSessionEndpoint != "",
	)

	return nil
}

// sessionSecret returns the cookie signing key. Demo mode without a
// configured secret gets a random one that lives as long as the process.
func sessionSecret(cfg *config.Config) ([]byte, error) {
	if cfg.Session.Secret != "" {
		return []byte(cfg.Session.Secret), nil
	}
	if !cfg.App.DemoMode {
		return nil, errors.New("session.secret is required")
	}

	b := make([]byte, config.MinSessionSecretLen)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to generate session secret: %w", err)
	}

	slog.Warn("session.secret not set, using a random per-process secret; sessions will not survive a restart")
	return []byte(hex.EncodeToString(b)), nil
}

// Run starts the HTTP server and blocks until a shutdown signal is received.
func (d *Daemon) Run() error {
	slog.Info("stable portal started",
		"app", d.cfg.App.Name,
		"addr", d.cfg.Listen.HTTP,
		"demo_mode", d.cfg.App.DemoMode,
	)

	// Start HTTP server in a goroutine (it blocks on ListenAndServe)
	httpErrCh := make(chan error, 1)
	go func() {
		if err := d.httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpErrCh <- err
		}
		close(httpErrCh)
	}()

	// Wait for shutdown signal or startup error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", "signal", sig.String())
	case err := <-httpErrCh:
		if err != nil {
			slog.Error("HTTP server failed to start", "error", err)
			d.store.Stop()
			return fmt.Errorf("HTTP server failed: %w", err)
		}
	}

	// Shutdown gracefully
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := d.httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("error stopping HTTP server", "error", err)
	}

	d.store.Stop()

	slog.Info("daemon shutdown complete")
	return nil
}

// apiHTTPClient returns the HTTP client used for Data API calls.
func apiHTTPClient(cfg *config.Config) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = apiIdleConnsPerHost

	return &http.Client{
		Timeout:   time.Duration(cfg.API.Timeout) * time.Second,
		Transport: transport,
	}
}
