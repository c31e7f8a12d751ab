// Package gateway serves the portal's data API on behalf of a signed-in user.
//
// Live forwards calls to the upstream Data API and joins or aggregates the
// results. Demo serves a fixed dataset built with the same aggregation
// functions, so both produce the same response shapes.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/al-bashkir/stable-portal/internal/config"
	"github.com/al-bashkir/stable-portal/internal/upstream"
)

// Record is one upstream JSON object. Fields the gateway does not know
// about are passed through untouched.
type Record = map[string]any

// Gateway is one implementation of the data API. token is the caller's
// access token and is only ever sent upstream as a bearer credential.
type Gateway interface {
	Stables(ctx context.Context, token string) (any, error)
	Horses(ctx context.Context, token, stableID string) ([]Record, error)
	UpdateHorse(ctx context.Context, token, horseID string, body Record) (any, error)
	Sessions(ctx context.Context, token, stableID, days string) ([]Record, error)
	UnassignedSessions(ctx context.Context, token, stableID string) (any, error)
	AssignSession(ctx context.Context, token, stableID, recordingID, horseID string) (any, error)
	Performance(ctx context.Context, token, recordingID string) (Record, error)
	Session(ctx context.Context, token, recordingID string) (Record, error)
	Dashboard(ctx context.Context, token, stableID string) (*Dashboard, error)
	StatusOptions(ctx context.Context, token string) (any, error)
	Passthrough(ctx context.Context, token, path string, query url.Values) (any, error)
}

// Options are the aggregation settings shared by both implementations.
type Options struct {
	ActiveStatus string
	RiskLabels   RiskLabels
}

// OptionsFromConfig reads the gateway settings from cfg.
func OptionsFromConfig(cfg *config.GatewayConfig) Options {
	return Options{
		ActiveStatus: cfg.ActiveStatus,
		RiskLabels:   RiskLabelsFromConfig(cfg.RiskLabels),
	}
}

// New selects the implementation once for the process lifetime.
func New(cfg *config.Config, client *upstream.Client, logger *slog.Logger) Gateway {
	opts := OptionsFromConfig(&cfg.Gateway)
	if cfg.App.DemoMode {
		return NewDemo(opts)
	}
	return NewLive(client, opts, logger)
}

// ErrorEnvelope is the JSON body of a failed API call.
type ErrorEnvelope struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// Envelope maps err to a response status and body. Upstream failures keep
// their status; anything else is a 500 with a generic message.
func Envelope(err error) (int, ErrorEnvelope) {
	var apiErr *upstream.APIError
	if errors.As(err, &apiErr) {
		status := apiErr.StatusCode()
		return status, ErrorEnvelope{
			Error:   "API request failed",
			Message: apiErr.Message,
			Status:  status,
		}
	}

	return http.StatusInternalServerError, ErrorEnvelope{
		Error:   "API request failed",
		Message: "Unexpected error while processing the request",
		Status:  http.StatusInternalServerError,
	}
}
