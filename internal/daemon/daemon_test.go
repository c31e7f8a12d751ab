package daemon

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/al-bashkir/stable-portal/internal/config"
	"github.com/al-bashkir/stable-portal/internal/oidc"
)

func newTestOIDCIssuer(t *testing.T) string {
	t.Helper()

	var baseURL string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		issuer := baseURL + "/realms/test"

		switch r.URL.Path {
		case "/realms/test/.well-known/openid-configuration":
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]string{
				"issuer":                 issuer,
				"authorization_endpoint": issuer + "/auth",
				"token_endpoint":         issuer + "/token",
				"jwks_uri":               issuer + "/keys",
				"end_session_endpoint":   issuer + "/logout",
			})
		default:
			http.NotFound(w, r)
		}
	}))
	baseURL = ts.URL
	t.Cleanup(ts.Close)

	return baseURL + "/realms/test"
}

// deadIssuer returns an issuer URL nothing listens on.
func deadIssuer(t *testing.T) string {
	t.Helper()
	ts := httptest.NewServer(http.NotFoundHandler())
	ts.Close()
	return ts.URL + "/realms/test"
}

func testConfig(issuer string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Listen.HTTP = "127.0.0.1:0"
	cfg.OIDC = config.OIDCConfig{
		Issuer:      issuer,
		ClientID:    "test-client",
		RedirectURI: "http://127.0.0.1:3000/auth-callback",
		Scopes:      []string{"openid"},
	}
	cfg.API.BaseURL = "http://127.0.0.1:1"
	cfg.Session.Secret = "0123456789abcdef0123456789abcdef"
	return cfg
}

func stop(t *testing.T, d *Daemon) {
	t.Helper()
	t.Cleanup(d.store.Stop)
}

func TestNew_Live(t *testing.T) {
	cfg := testConfig(newTestOIDCIssuer(t))

	d, err := New(cfg, "1.2.3")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	stop(t, d)

	p, err := d.ready.Provider()
	if err != nil {
		t.Fatalf("provider should be ready: %v", err)
	}
	if p.Metadata().EndSessionEndpoint == "" {
		t.Error("expected end-session endpoint from discovery")
	}
}

func TestNew_LiveDiscoveryFailure(t *testing.T) {
	cfg := testConfig(deadIssuer(t))

	if _, err := New(cfg, "test"); err == nil {
		t.Fatal("expected discovery failure to be fatal in live mode")
	}
}

func TestNew_Demo(t *testing.T) {
	tests := []struct {
		name   string
		issuer string
	}{
		{name: "no issuer configured", issuer: ""},
		{name: "unreachable issuer", issuer: deadIssuer(t)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(tt.issuer)
			cfg.App.DemoMode = true
			cfg.Session.Secret = ""

			d, err := New(cfg, "test")
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			stop(t, d)

			if _, err := d.ready.Provider(); !errors.Is(err, oidc.ErrNotReady) {
				t.Errorf("provider error = %v, want ErrNotReady", err)
			}
		})
	}
}

func TestSessionSecret(t *testing.T) {
	t.Run("configured", func(t *testing.T) {
		cfg := testConfig("")
		got, err := sessionSecret(cfg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(got) != cfg.Session.Secret {
			t.Errorf("secret = %q, want configured value", got)
		}
	})

	t.Run("demo generates", func(t *testing.T) {
		cfg := testConfig("")
		cfg.App.DemoMode = true
		cfg.Session.Secret = ""

		a, err := sessionSecret(cfg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		b, _ := sessionSecret(cfg)

		if len(a) < config.MinSessionSecretLen {
			t.Errorf("generated secret too short: %d", len(a))
		}
		if string(a) == string(b) {
			t.Error("generated secrets should differ")
		}
	})

	t.Run("live requires", func(t *testing.T) {
		cfg := testConfig("")
		cfg.Session.Secret = ""
		if _, err := sessionSecret(cfg); err == nil {
			t.Fatal("expected error without a secret in live mode")
		}
	})
}

func TestAPIHTTPClient(t *testing.T) {
	cfg := testConfig("")
	cfg.API.Timeout = 7

	c := apiHTTPClient(cfg)
	if c.Timeout != 7*time.Second {
		t.Errorf("Timeout = %v, want 7s", c.Timeout)
	}

	transport, ok := c.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("Transport = %T, want *http.Transport", c.Transport)
	}
	if transport == http.DefaultTransport {
		t.Error("default transport must not be modified")
	}
	if transport.MaxIdleConnsPerHost != apiIdleConnsPerHost {
		t.Errorf("MaxIdleConnsPerHost = %d, want %d", transport.MaxIdleConnsPerHost, apiIdleConnsPerHost)
	}
}

func TestDemoDaemonServesRequests(t *testing.T) {
	cfg := testConfig("")
	cfg.App.DemoMode = true

	d, err := New(cfg, "test")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	stop(t, d)

	ts := httptest.NewServer(d.httpServer.Handler())
	t.Cleanup(ts.Close)

	client := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
	}

	resp, err := client.Get(ts.URL + "/api/user/stables")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var stables []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&stables); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if len(stables) == 0 {
		t.Error("expected demo stables")
	}
}

func TestRun_HTTPServerStartFailureStopsAndReturnsError(t *testing.T) {
	cfg := testConfig(newTestOIDCIssuer(t))
	cfg.Listen.HTTP = "127.0.0.1:-1" // invalid port -> ListenAndServe fails immediately

	d, err := New(cfg, "test")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- d.Run()
	}()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected Run to fail, got nil")
		}
		if !strings.Contains(err.Error(), "HTTP server failed") {
			t.Errorf("unexpected error: %v", err)
		}
	case <-time.After(5 * time.Second):
		d.store.Stop()
		t.Fatal("timeout waiting for Run to return")
	}
}
