package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/al-bashkir/stable-portal/internal/config"
	"github.com/al-bashkir/stable-portal/internal/daemon"
)

// Version information (set via ldflags at build time)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// Global flags
var (
	configFile string
	logLevel   string
	logFormat  string
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitConfig  = 3
)

var rootCmd = &cobra.Command{
	Use:   "stable-portal",
	Short: "Stable management web portal",
	Long: `Web portal for stable managers and horse owners.

Users sign in through an OpenID Connect provider. The portal keeps their
tokens in a server-side session and serves stable, horse and training
session data from the upstream Data API, adding dashboard aggregates,
horse names and risk labels on the way.

With demo mode enabled the portal runs without an identity provider or
upstream API and serves a fixed synthetic dataset.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the portal HTTP server",
	Long: `Start the portal.

The server:
  - Discovers the OpenID Connect provider (skipped or tolerated in demo mode)
  - Serves the login flow, pages and the /api/user data routes
  - Keeps sessions in memory for 24 hours

Configuration comes from the file given by --config, overridden by
environment variables. Without --config only environment variables are used.`,
	RunE: runServe,
}

// overrideExitCode is set by subcommands (check-config) so main() can
// call os.Exit() after cobra finishes.  This avoids calling os.Exit() inside
// RunE which would bypass deferred functions.  -1 means "use default".
var overrideExitCode = -1

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display version information",
	Long:  `Display version, commit hash, and build date.`,
	Run:   runVersion,
}

var checkConfigCmd = &cobra.Command{
	Use:   "check-config",
	Short: "Validate configuration",
	Long: `Load and validate the configuration without starting the server.

Checks for:
  - Valid YAML syntax
  - Required fields present (relaxed in demo mode)
  - Valid URLs and paths
  - Session secret length

Exit codes:
  0 = Configuration is valid
  3 = Configuration error`,
	RunE: runCheckConfig,
}

func init() {
	// Global flags (available to all commands)
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"Path to configuration file (optional, environment variables are always applied)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Log level (debug, info, warn, error) - overrides config")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "",
		"Log format (json, text) - overrides config")

	// Add subcommands
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(checkConfigCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitError)
	}

	// If a subcommand set a specific exit code, use it.
	// This is done outside RunE so deferred functions run properly.
	if overrideExitCode >= 0 {
		os.Exit(overrideExitCode)
	}
}

// runServe starts the portal
func runServe(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.Load(configFile)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Override log settings from flags if provided
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}

	// Initialize structured logging based on config
	config.SetupLogging(&cfg.Log)

	slog.Info("starting stable portal",
		"version", version,
		"commit", commit,
		"build_date", buildDate,
		"config", configFile,
	)
	slog.Debug("effective configuration", "config", cfg.Redact())

	d, err := daemon.New(cfg, version)
	if err != nil {
		slog.Error("failed to create daemon", "error", err)
		return fmt.Errorf("failed to create daemon: %w", err)
	}

	return d.Run()
}

// runVersion displays version information
func runVersion(cmd *cobra.Command, args []string) {
	fmt.Printf("stable-portal version %s\n", version)
	fmt.Printf("  Commit:     %s\n", commit)
	fmt.Printf("  Build date: %s\n", buildDate)
	fmt.Printf("  Go version: %s\n", runtime.Version())
}

// runCheckConfig validates the configuration
func runCheckConfig(cmd *cobra.Command, args []string) error {
	source := configFile
	if source == "" {
		source = "(environment only)"
	}
	fmt.Printf("Checking configuration: %s\n\n", source)

	cfg, err := config.Load(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration validation failed:\n")
		fmt.Fprintf(os.Stderr, "   %v\n", err)
		overrideExitCode = ExitConfig
		return nil // exit code handled via overrideExitCode
	}

	// Print configuration summary (with secrets redacted)
	fmt.Println("Configuration is valid")
	fmt.Println()
	fmt.Println("Configuration summary:")
	fmt.Printf("  App Name:        %s\n", cfg.App.Name)
	fmt.Printf("  Demo Mode:       %v\n", cfg.App.DemoMode)
	fmt.Printf("  HTTP Listen:     %s\n", cfg.Listen.HTTP)
	fmt.Printf("  OIDC Issuer:     %s\n", cfg.OIDC.Issuer)
	fmt.Printf("  Client ID:       %s\n", cfg.OIDC.ClientID)
	fmt.Printf("  Redirect URI:    %s\n", cfg.OIDC.RedirectURI)
	fmt.Printf("  Scopes:          %v\n", cfg.OIDC.Scopes)
	fmt.Printf("  API Base URL:    %s\n", cfg.API.BaseURL)
	fmt.Printf("  API Timeout:     %d seconds\n", cfg.API.Timeout)
	fmt.Printf("  Active Status:   %s\n", cfg.Gateway.ActiveStatus)
	fmt.Printf("  Log Level:       %s\n", cfg.Log.Level)
	fmt.Printf("  Log Format:      %s\n", cfg.Log.Format)
	fmt.Printf("  TLS Enabled:     %v\n", cfg.TLS.Enabled)

	if cfg.OIDC.ClientSecret != "" {
		fmt.Println("\n  Client Secret:   [SET]")
	} else {
		fmt.Println("\n  Client Secret:   [NOT SET] (using public client with PKCE)")
	}
	if cfg.Session.Secret != "" {
		fmt.Println("  Session Secret:  [SET]")
	} else {
		fmt.Println("  Session Secret:  [NOT SET] (random per process, demo mode only)")
	}

	fmt.Println("\nReady to start")

	return nil
}
