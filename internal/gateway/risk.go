package gateway

import (
	"strings"

	"github.com/al-bashkir/stable-portal/internal/config"
)

// RiskLabels maps traffic-light tokens to display labels.
type RiskLabels struct {
	Green   string `json:"green"`
	Yellow  string `json:"yellow"`
	Red     string `json:"red"`
	Default string `json:"default"`
}

// RiskLabelsFromConfig copies the configured labels.
func RiskLabelsFromConfig(cfg config.RiskLabelsConfig) RiskLabels {
	return RiskLabels{
		Green:   cfg.Green,
		Yellow:  cfg.Yellow,
		Red:     cfg.Red,
		Default: cfg.Default,
	}
}

// Label returns the label for token, matched case-insensitively, or the
// default label for anything unrecognized.
func (r RiskLabels) Label(token string) string {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "green":
		return r.Green
	case "yellow":
		return r.Yellow
	case "red":
		return r.Red
	default:
		return r.Default
	}
}
