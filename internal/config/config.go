package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the complete application configuration
type Config struct {
	App     AppConfig     `yaml:"app"`
	Listen  ListenConfig  `yaml:"listen"`
	OIDC    OIDCConfig    `yaml:"oidc"`
	API     APIConfig     `yaml:"api"`
	Session SessionConfig `yaml:"session"`
	Gateway GatewayConfig `yaml:"gateway"`
	TLS     TLSConfig     `yaml:"tls"`
	Log     LogConfig     `yaml:"log"`
}

// AppConfig holds process-wide application settings
type AppConfig struct {
	Name     string `yaml:"name"`      // Display name shown on pages
	DemoMode bool   `yaml:"demo_mode"` // Serve synthetic data, bypass the identity provider and upstream API
}

// ListenConfig defines where the server listens for requests
type ListenConfig struct {
	HTTP string `yaml:"http"` // HTTP server address (e.g., ":3000")
}

// OIDCConfig defines OpenID Connect client settings
type OIDCConfig struct {
	Issuer                string   `yaml:"issuer"`                   // Provider authority URL
	ClientID              string   `yaml:"client_id"`                // OIDC client ID
	ClientSecret          string   `yaml:"client_secret"`            // OIDC client secret (empty for public clients)
	RedirectURI           string   `yaml:"redirect_uri"`             // Callback URL
	PostLogoutRedirectURI string   `yaml:"post_logout_redirect_uri"` // Where the provider sends the browser after end-session
	Scopes                []string `yaml:"scopes"`                   // OIDC scopes
}

// APIConfig defines the upstream Data API
type APIConfig struct {
	BaseURL string `yaml:"base_url"` // Upstream API base URL, without the /api suffix
	Timeout int    `yaml:"timeout"`  // Per-call timeout in seconds
}

// SessionConfig defines the session cookie
type SessionConfig struct {
	Secret       string `yaml:"secret"`        // HMAC key for signing session cookies
	CookieSecure bool   `yaml:"cookie_secure"` // Set the Secure attribute (requires HTTPS)
}

// GatewayConfig defines aggregation behavior
type GatewayConfig struct {
	ActiveStatus string           `yaml:"active_status"` // Horse status counted as active (exact match)
	RiskLabels   RiskLabelsConfig `yaml:"risk_labels"`
}

// RiskLabelsConfig maps traffic-light tokens to display labels
type RiskLabelsConfig struct {
	Green   string `yaml:"green"`
	Yellow  string `yaml:"yellow"`
	Red     string `yaml:"red"`
	Default string `yaml:"default"`
}

// TLSConfig defines TLS settings for the HTTP server
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// LogConfig defines logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// MinSessionSecretLen is the minimum accepted length of session.secret.
const MinSessionSecretLen = 32

// Load reads and parses the configuration file.
// An empty path skips the file and builds the configuration from defaults
// and environment variables only.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		// Read file
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		// Parse YAML
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Apply environment variable overrides
	cfg.applyEnvOverrides()

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name: "Stable Portal",
		},
		Listen: ListenConfig{
			HTTP: ":3000",
		},
		OIDC: OIDCConfig{
			Scopes: []string{"openid", "profile", "email"},
		},
		API: APIConfig{
			Timeout: 30,
		},
		Gateway: GatewayConfig{
			ActiveStatus: "Active",
			RiskLabels: RiskLabelsConfig{
				Green:   "Low Risk",
				Yellow:  "Medium Risk",
				Red:     "High Risk",
				Default: "Unknown Risk",
			},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// applyEnvOverrides applies environment variable overrides
func (c *Config) applyEnvOverrides() {
	// App overrides
	if v := os.Getenv("APP_NAME"); v != "" {
		c.App.Name = v
	}
	if v := os.Getenv("DEMO_MODE"); v != "" {
		c.App.DemoMode = v == "true"
	}

	// OIDC overrides
	if v := os.Getenv("OAUTH_AUTHORITY"); v != "" {
		c.OIDC.Issuer = v
	}
	if v := os.Getenv("OAUTH_CLIENT_ID"); v != "" {
		c.OIDC.ClientID = v
	}
	if v := os.Getenv("OAUTH_CLIENT_SECRET"); v != "" {
		c.OIDC.ClientSecret = v
	}
	if v := os.Getenv("OAUTH_REDIRECT_URI"); v != "" {
		c.OIDC.RedirectURI = v
	}
	if v := os.Getenv("OAUTH_POST_LOGOUT_REDIRECT_URI"); v != "" {
		c.OIDC.PostLogoutRedirectURI = v
	}
	if v := os.Getenv("OAUTH_SCOPE"); v != "" {
		c.OIDC.Scopes = strings.Fields(v)
	}

	// API overrides
	if v := os.Getenv("API_BASE_URL"); v != "" {
		c.API.BaseURL = v
	}

	// Session overrides
	if v := os.Getenv("SESSION_SECRET"); v != "" {
		c.Session.Secret = v
	}
	if v := os.Getenv("COOKIE_SECURE"); v != "" {
		c.Session.CookieSecure = v == "true"
	}

	// Gateway overrides
	if v := os.Getenv("ACTIVE_HORSE_STATUS"); v != "" {
		c.Gateway.ActiveStatus = v
	}
	if v := os.Getenv("RISK_LABEL_GREEN"); v != "" {
		c.Gateway.RiskLabels.Green = v
	}
	if v := os.Getenv("RISK_LABEL_YELLOW"); v != "" {
		c.Gateway.RiskLabels.Yellow = v
	}
	if v := os.Getenv("RISK_LABEL_RED"); v != "" {
		c.Gateway.RiskLabels.Red = v
	}
	if v := os.Getenv("RISK_LABEL_DEFAULT"); v != "" {
		c.Gateway.RiskLabels.Default = v
	}

	// Log overrides
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}

	// Listen overrides
	if v := os.Getenv("PORT"); v != "" {
		c.Listen.HTTP = ":" + v
	}
}

// Validate checks that the configuration is valid.
// Identity provider and upstream API settings are only required when demo
// mode is off, since demo mode never contacts either.
func (c *Config) Validate() error {
	if !c.App.DemoMode {
		if err := c.validateLive(); err != nil {
			return err
		}
	}

	// Validate session config
	if c.Session.Secret == "" && !c.App.DemoMode {
		return fmt.Errorf("session.secret is required")
	}
	if c.Session.Secret != "" && len(c.Session.Secret) < MinSessionSecretLen {
		return fmt.Errorf("session.secret must be at least %d characters", MinSessionSecretLen)
	}

	// Validate gateway config
	if c.Gateway.ActiveStatus == "" {
		return fmt.Errorf("gateway.active_status is required")
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive")
	}

	// Validate TLS config
	if c.TLS.Enabled {
		if c.TLS.CertFile == "" || c.TLS.KeyFile == "" {
			return fmt.Errorf("tls.cert_file and tls.key_file are required when TLS is enabled")
		}

		// Check if files exist
		if _, err := os.Stat(c.TLS.CertFile); err != nil {
			return fmt.Errorf("tls.cert_file not found: %w", err)
		}
		if _, err := os.Stat(c.TLS.KeyFile); err != nil {
			return fmt.Errorf("tls.key_file not found: %w", err)
		}
	}

	// Validate log config
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.Log.Level] {
		return fmt.Errorf("log.level must be one of: debug, info, warn, error")
	}

	validFormats := map[string]bool{
		"json": true,
		"text": true,
	}
	if !validFormats[c.Log.Format] {
		return fmt.Errorf("log.format must be one of: json, text")
	}

	// Validate listen config
	if c.Listen.HTTP == "" {
		return fmt.Errorf("listen.http is required")
	}

	return nil
}

func (c *Config) validateLive() error {
	if c.OIDC.Issuer == "" {
		return fmt.Errorf("oidc.issuer is required")
	}
	if !isHTTPURL(c.OIDC.Issuer) {
		return fmt.Errorf("oidc.issuer must be a valid HTTP(S) URL")
	}
	if c.OIDC.ClientID == "" {
		return fmt.Errorf("oidc.client_id is required")
	}
	if c.OIDC.RedirectURI == "" {
		return fmt.Errorf("oidc.redirect_uri is required")
	}
	if !isHTTPURL(c.OIDC.RedirectURI) {
		return fmt.Errorf("oidc.redirect_uri must be a valid HTTP(S) URL")
	}
	if c.OIDC.PostLogoutRedirectURI != "" && !isHTTPURL(c.OIDC.PostLogoutRedirectURI) {
		return fmt.Errorf("oidc.post_logout_redirect_uri must be a valid HTTP(S) URL")
	}
	if len(c.OIDC.Scopes) == 0 {
		return fmt.Errorf("oidc.scopes must contain at least 'openid'")
	}

	hasOpenID := false
	for _, scope := range c.OIDC.Scopes {
		if scope == "openid" {
			hasOpenID = true
			break
		}
	}
	if !hasOpenID {
		return fmt.Errorf("oidc.scopes must include 'openid'")
	}

	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if !isHTTPURL(c.API.BaseURL) {
		return fmt.Errorf("api.base_url must be a valid HTTP(S) URL")
	}

	return nil
}

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// SetupLogging configures the global slog logger based on the LogConfig.
func SetupLogging(cfg *LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch cfg.Format {
	case "text":
		handler = slog.NewTextHandler(os.Stderr, opts)
	default:
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}

// Redact returns a deep-enough copy of the config with secrets redacted for safe logging
func (c *Config) Redact() *Config {
	redacted := *c

	// Deep copy slices to avoid sharing underlying arrays with the original
	if c.OIDC.Scopes != nil {
		redacted.OIDC.Scopes = make([]string, len(c.OIDC.Scopes))
		copy(redacted.OIDC.Scopes, c.OIDC.Scopes)
	}

	if redacted.OIDC.ClientSecret != "" {
		redacted.OIDC.ClientSecret = "[REDACTED]"
	}
	if redacted.Session.Secret != "" {
		redacted.Session.Secret = "[REDACTED]"
	}

	return &redacted
}
