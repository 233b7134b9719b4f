// Package config defines the service configuration and how it is loaded.
//
// Conventions:
//   - New() returns a Config populated with defaults.
//   - Load layers a YAML file and TEAMER_* environment variables on top.
//   - Validation failures wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is "text" or "json".
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`
	// CORSAllowedOrigins lists browser origins allowed to call the API.
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`

	// DataDir holds the state directory and the commit journal.
	DataDir string `koanf:"data_dir"`
	// BackupDir holds snapshots. Empty means <data_dir>/backup.
	BackupDir string `koanf:"backup_dir"`
	// SnapshotRetention is how many snapshots survive a prune. 0 keeps all.
	SnapshotRetention int `koanf:"snapshot_retention"`

	// MaxRosterSize caps the roster handed to the team generator.
	MaxRosterSize int `koanf:"max_roster_size"`
	// TopMatchups is how many ranked candidates are returned.
	TopMatchups int `koanf:"top_matchups"`
	// RecordQueueSize bounds pending match recordings.
	RecordQueueSize int `koanf:"record_queue_size"`

	// Meetup roster source.
	MeetupBaseURL           string `koanf:"meetup_base_url"`
	MeetupGroup             string `koanf:"meetup_group"`
	MeetupAPIKey            string `koanf:"meetup_api_key"`
	MeetupRequestsPerMinute int    `koanf:"meetup_requests_per_minute"`
	MeetupTimeoutMS         int    `koanf:"meetup_timeout_ms"`

	// RosterFile, when set, replaces Meetup with a static YAML/JSON roster.
	RosterFile string `koanf:"roster_file"`

	// Rating prior and dynamics.
	RatingMu    float64 `koanf:"rating_mu"`
	RatingSigma float64 `koanf:"rating_sigma"`
	RatingTau   float64 `koanf:"rating_tau"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:                "info",
		LogFormat:               "text",
		Addr:                    ":8080",
		CORSAllowedOrigins:      []string{"*"},
		DataDir:                 "data",
		SnapshotRetention:       30,
		MaxRosterSize:           16,
		TopMatchups:             5,
		RecordQueueSize:         64,
		MeetupBaseURL:           "https://api.meetup.com",
		MeetupRequestsPerMinute: 30,
		MeetupTimeoutMS:         10_000,
		RatingMu:                25,
		RatingSigma:             25.0 / 3.0,
	}
}

// MeetupTimeout returns the roster HTTP timeout.
func (c *Config) MeetupTimeout() time.Duration {
	return time.Duration(c.MeetupTimeoutMS) * time.Millisecond
}

// Validate checks values that would make the service misbehave.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.DataDir) == "":
		return fmt.Errorf("%w: data_dir must not be empty", ErrInvalidConfig)
	case c.MaxRosterSize < 2:
		return fmt.Errorf("%w: max_roster_size must be at least 2", ErrInvalidConfig)
	case c.TopMatchups < 1:
		return fmt.Errorf("%w: top_matchups must be positive", ErrInvalidConfig)
	case c.RecordQueueSize < 1:
		return fmt.Errorf("%w: record_queue_size must be positive", ErrInvalidConfig)
	case c.SnapshotRetention < 0:
		return fmt.Errorf("%w: snapshot_retention must not be negative", ErrInvalidConfig)
	case c.RatingSigma <= 0:
		return fmt.Errorf("%w: rating_sigma must be positive", ErrInvalidConfig)
	case c.RatingTau < 0:
		return fmt.Errorf("%w: rating_tau must not be negative", ErrInvalidConfig)
	case c.MeetupRequestsPerMinute < 1:
		return fmt.Errorf("%w: meetup_requests_per_minute must be positive", ErrInvalidConfig)
	case c.MeetupTimeoutMS < 1:
		return fmt.Errorf("%w: meetup_timeout_ms must be positive", ErrInvalidConfig)
	}
	return nil
}
