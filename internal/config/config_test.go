package config

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"testing"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Listen.HTTP != ":3000" {
		t.Errorf("expected HTTP listen :3000, got %s", cfg.Listen.HTTP)
	}

	if cfg.API.Timeout != 30 {
		t.Errorf("expected API timeout 30, got %d", cfg.API.Timeout)
	}

	if cfg.Gateway.ActiveStatus != "Active" {
		t.Errorf("expected active status Active, got %s", cfg.Gateway.ActiveStatus)
	}

	if cfg.Gateway.RiskLabels.Green != "Low Risk" {
		t.Errorf("expected green label 'Low Risk', got %s", cfg.Gateway.RiskLabels.Green)
	}

	if cfg.Log.Level != "info" {
		t.Errorf("expected log level info, got %s", cfg.Log.Level)
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	tmpfile, err := os.CreateTemp(t.TempDir(), "config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tmpfile.Write([]byte(body)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}
	return tmpfile.Name()
}

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name        string
		configYAML  string
		wantErr     bool
		errContains string
	}{
		{
			name: "valid config",
			configYAML: `
listen:
  http: ":3000"
oidc:
  issuer: "https://id.example.com"
  client_id: "stable-portal"
  redirect_uri: "http://localhost:3000/auth-callback"
  scopes:
    - openid
    - profile
api:
  base_url: "https://api.example.com"
session:
  secret: "` + testSecret + `"
log:
  level: "info"
  format: "json"
`,
			wantErr: false,
		},
		{
			name: "demo mode needs no provider",
			configYAML: `
app:
  demo_mode: true
`,
			wantErr: false,
		},
		{
			name: "missing issuer",
			configYAML: `
oidc:
  client_id: "stable-portal"
  redirect_uri: "http://localhost:3000/auth-callback"
  scopes:
    - openid
`,
			wantErr:     true,
			errContains: "issuer is required",
		},
		{
			name: "missing client_id",
			configYAML: `
oidc:
  issuer: "https://id.example.com"
  redirect_uri: "http://localhost:3000/auth-callback"
  scopes:
    - openid
`,
			wantErr:     true,
			errContains: "client_id is required",
		},
		{
			name: "scopes missing openid",
			configYAML: `
oidc:
  issuer: "https://id.example.com"
  client_id: "stable-portal"
  redirect_uri: "http://localhost:3000/auth-callback"
  scopes:
    - profile
`,
			wantErr:     true,
			errContains: "must include 'openid'",
		},
		{
			name: "missing api base url",
			configYAML: `
oidc:
  issuer: "https://id.example.com"
  client_id: "stable-portal"
  redirect_uri: "http://localhost:3000/auth-callback"
`,
			wantErr:     true,
			errContains: "api.base_url is required",
		},
		{
			name: "missing session secret",
			configYAML: `
oidc:
  issuer: "https://id.example.com"
  client_id: "stable-portal"
  redirect_uri: "http://localhost:3000/auth-callback"
api:
  base_url: "https://api.example.com"
`,
			wantErr:     true,
			errContains: "session.secret is required",
		},
		{
			name: "short session secret",
			configYAML: `
app:
  demo_mode: true
session:
  secret: "short"
`,
			wantErr:     true,
			errContains: "at least 32 characters",
		},
		{
			name: "invalid log level",
			configYAML: `
app:
  demo_mode: true
log:
  level: "verbose"
`,
			wantErr:     true,
			errContains: "log.level must be one of",
		},
		{
			name: "invalid yaml",
			configYAML: `
this is not: valid: yaml:
  bad: [syntax
`,
			wantErr:     true,
			errContains: "failed to parse",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, tt.configYAML))

			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error containing '%s', got nil", tt.errContains)
				} else if tt.errContains != "" && !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("error = %v, want error containing %v", err, tt.errContains)
				}
			} else {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				if cfg == nil {
					t.Error("expected config, got nil")
				}
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "failed to read config file") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadFromEnvironmentOnly(t *testing.T) {
	t.Setenv("OAUTH_AUTHORITY", "https://id.example.com")
	t.Setenv("OAUTH_CLIENT_ID", "stable-portal")
	t.Setenv("OAUTH_REDIRECT_URI", "http://localhost:3000/auth-callback")
	t.Setenv("OAUTH_POST_LOGOUT_REDIRECT_URI", "http://localhost:3000/")
	t.Setenv("OAUTH_SCOPE", "openid profile email offline_access")
	t.Setenv("API_BASE_URL", "https://api.example.com")
	t.Setenv("SESSION_SECRET", testSecret)
	t.Setenv("COOKIE_SECURE", "true")
	t.Setenv("PORT", "8080")
	t.Setenv("APP_NAME", "Paddock")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Listen.HTTP != ":8080" {
		t.Errorf("expected listen :8080, got %s", cfg.Listen.HTTP)
	}
	if len(cfg.OIDC.Scopes) != 4 || cfg.OIDC.Scopes[3] != "offline_access" {
		t.Errorf("unexpected scopes: %v", cfg.OIDC.Scopes)
	}
	if !cfg.Session.CookieSecure {
		t.Error("expected cookie_secure to be true")
	}
	if cfg.App.Name != "Paddock" {
		t.Errorf("expected app name Paddock, got %s", cfg.App.Name)
	}
	if cfg.App.DemoMode {
		t.Error("expected demo mode to be off")
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("OAUTH_CLIENT_SECRET", "env-secret")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("RISK_LABEL_RED", "Stop")
	t.Setenv("ACTIVE_HORSE_STATUS", "In Training")

	configYAML := `
oidc:
  issuer: "https://id.example.com"
  client_id: "stable-portal"
  client_secret: "yaml-secret"
  redirect_uri: "http://localhost:3000/auth-callback"
  scopes:
    - openid
api:
  base_url: "https://api.example.com"
session:
  secret: "` + testSecret + `"
log:
  level: "info"
`

	cfg, err := Load(writeConfig(t, configYAML))
	if err != nil {
		t.Fatal(err)
	}

	if cfg.OIDC.ClientSecret != "env-secret" {
		t.Errorf("expected client_secret='env-secret', got '%s'", cfg.OIDC.ClientSecret)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("expected log level 'debug', got '%s'", cfg.Log.Level)
	}

	if cfg.Gateway.RiskLabels.Red != "Stop" {
		t.Errorf("expected red label 'Stop', got '%s'", cfg.Gateway.RiskLabels.Red)
	}

	if cfg.Gateway.RiskLabels.Yellow != "Medium Risk" {
		t.Errorf("yellow label should keep its default, got '%s'", cfg.Gateway.RiskLabels.Yellow)
	}

	if cfg.Gateway.ActiveStatus != "In Training" {
		t.Errorf("expected active status 'In Training', got '%s'", cfg.Gateway.ActiveStatus)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name: "issuer not a URL",
			modify: func(c *Config) {
				c.OIDC.Issuer = "id.example.com"
			},
			wantErr: true,
			errMsg:  "valid HTTP(S) URL",
		},
		{
			name: "empty active status",
			modify: func(c *Config) {
				c.Gateway.ActiveStatus = ""
			},
			wantErr: true,
			errMsg:  "active_status is required",
		},
		{
			name: "non-positive api timeout",
			modify: func(c *Config) {
				c.API.Timeout = 0
			},
			wantErr: true,
			errMsg:  "api.timeout must be positive",
		},
		{
			name: "TLS enabled without cert",
			modify: func(c *Config) {
				c.TLS.Enabled = true
				c.TLS.CertFile = ""
			},
			wantErr: true,
			errMsg:  "are required when TLS is enabled",
		},
		{
			name: "demo mode skips provider checks",
			modify: func(c *Config) {
				c.App.DemoMode = true
				c.OIDC = OIDCConfig{}
				c.API.BaseURL = ""
				c.Session.Secret = ""
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.OIDC = OIDCConfig{
				Issuer:      "https://id.example.com",
				ClientID:    "stable-portal",
				RedirectURI: "http://localhost:3000/auth-callback",
				Scopes:      []string{"openid"},
			}
			cfg.API.BaseURL = "https://api.example.com"
			cfg.Session.Secret = testSecret

			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error containing '%s', got nil", tt.errMsg)
				} else if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("error = %v, want error containing %v", err, tt.errMsg)
				}
			} else {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
			}
		})
	}
}

func TestRedact(t *testing.T) {
	cfg := &Config{
		OIDC: OIDCConfig{
			ClientSecret: "super-secret",
			Scopes:       []string{"openid"},
		},
		Session: SessionConfig{
			Secret: testSecret,
		},
	}

	redacted := cfg.Redact()

	if redacted.OIDC.ClientSecret != "[REDACTED]" {
		t.Errorf("expected [REDACTED], got %s", redacted.OIDC.ClientSecret)
	}
	if redacted.Session.Secret != "[REDACTED]" {
		t.Errorf("expected [REDACTED], got %s", redacted.Session.Secret)
	}

	// Original should be unchanged
	if cfg.OIDC.ClientSecret != "super-secret" {
		t.Errorf("original was modified")
	}

	redacted.OIDC.Scopes[0] = "changed"
	if cfg.OIDC.Scopes[0] != "openid" {
		t.Errorf("redacted copy shares scopes with original")
	}
}

func TestSetupLogging(t *testing.T) {
	old := slog.Default()
	t.Cleanup(func() {
		slog.SetDefault(old)
	})

	SetupLogging(&LogConfig{Level: "debug", Format: "json"})
	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("expected debug logs to be enabled")
	}

	SetupLogging(&LogConfig{Level: "error", Format: "text"})
	if slog.Default().Enabled(context.Background(), slog.LevelInfo) {
		t.Error("expected info logs to be disabled at error level")
	}
	if !slog.Default().Enabled(context.Background(), slog.LevelError) {
		t.Error("expected error logs to be enabled")
	}
}
