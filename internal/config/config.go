// Package config loads engine configuration from the environment.
package config

import (
	"fmt"
	"os"
	"time"
)

// Config holds everything the engine needs to run.
type Config struct {
	// ServerURL is the base URL of the plan service's HTTP API.
	ServerURL string
	// ChannelURL is the websocket endpoint for realtime delivery.
	ChannelURL string
	// DBPath is the local SQLite file holding the persisted projection.
	DBPath string
	// Token is the access token issued by the auth service, if signed in.
	Token string
	// PlanID selects the active plan at startup, if any.
	PlanID string
	// LogLevel is debug, info, warn, or error.
	LogLevel string
	// LogFormat is "text" or "json".
	LogFormat string
	// MinHidden is how long the client must be hidden before a foreground
	// transition triggers a reconciliation sweep.
	MinHidden time.Duration
}

// NewFromEnv builds a Config from LARDER_* environment variables.
func NewFromEnv() (*Config, error) {
	cfg := &Config{
		ServerURL:  os.Getenv("LARDER_SERVER_URL"),
		ChannelURL: os.Getenv("LARDER_CHANNEL_URL"),
		DBPath:     os.Getenv("LARDER_DB_PATH"),
		Token:      os.Getenv("LARDER_TOKEN"),
		PlanID:     os.Getenv("LARDER_PLAN_ID"),
		LogLevel:   os.Getenv("LARDER_LOG_LEVEL"),
		LogFormat:  os.Getenv("LARDER_LOG_FORMAT"),
	}

	if cfg.ServerURL == "" {
		return nil, fmt.Errorf("LARDER_SERVER_URL environment variable not set")
	}
	if cfg.ChannelURL == "" {
		return nil, fmt.Errorf("LARDER_CHANNEL_URL environment variable not set")
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "larder.db"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	if v := os.Getenv("LARDER_MIN_HIDDEN"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("parse LARDER_MIN_HIDDEN: %w", err)
		}
		cfg.MinHidden = d
	}

	return cfg, nil
}
