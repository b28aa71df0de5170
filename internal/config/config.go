// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers defaults, an optional YAML file and DEVPULSE_ environment variables.
package config

import (
	"runtime"
	"time"
)

// Config contains process configuration shared by the server and the CLI.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// WorkerCount sets the number of fan-out workers calling upstream services.
	WorkerCount int `koanf:"worker_count"`

	// QueueSize bounds the fan-out task queue.
	QueueSize int `koanf:"queue_size"`

	// UpstreamTimeoutMS is the per-call deadline for each upstream fetch.
	UpstreamTimeoutMS int `koanf:"upstream_timeout_ms"`

	// CacheTTLSeconds is the epoch length of the aggregate cache.
	CacheTTLSeconds int `koanf:"cache_ttl_seconds"`

	// DefaultWindowDays is used when a request does not name a window.
	DefaultWindowDays int `koanf:"default_window_days"`

	// MaxWindowDays caps the accepted window.
	MaxWindowDays int `koanf:"max_window_days"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// DirectoryPath points at the people/platforms YAML file.
	DirectoryPath string `koanf:"directory_path"`

	// SnapshotPath points at the tracker/source-control snapshot file.
	SnapshotPath string `koanf:"snapshot_path"`

	// Team restricts the leaderboard to one team label; empty keeps everyone.
	Team string `koanf:"team"`

	// CycleInitiative names the initiative whose projects occupy people.
	CycleInitiative string `koanf:"cycle_initiative"`

	// OnboardingInitiative names the initiative whose open work occupies assignees.
	OnboardingInitiative string `koanf:"onboarding_initiative"`

	// PriorityPoints maps tier names (urgent, high, medium, low) to points.
	PriorityPoints map[string]int `koanf:"priority_points"`

	// CycleLeadPointsPerWeek and CycleMemberPointsPerWeek weight project credit.
	CycleLeadPointsPerWeek   int `koanf:"cycle_lead_points_per_week"`
	CycleMemberPointsPerWeek int `koanf:"cycle_member_points_per_week"`

	// WorkLabels are queried for completed and created items.
	WorkLabels []string `koanf:"work_labels"`

	// OpenLabel and OpenMaxPriority select the open priority queue.
	OpenLabel       string `koanf:"open_label"`
	OpenMaxPriority int    `koanf:"open_max_priority"`

	// CompletedMaxPriority bounds the priorities fetched for completed items.
	CompletedMaxPriority int `koanf:"completed_max_priority"`

	// StaleDays is how long an open item may go without an update before it
	// is reported as stale.
	StaleDays int `koanf:"stale_days"`

	// ExcludeProjectItems drops completed items attached to a project from scoring.
	ExcludeProjectItems bool `koanf:"exclude_project_items"`

	// SupportOverdueGraceDays frees members of projects overdue by more than
	// this many days. Zero keeps overdue projects occupied indefinitely.
	SupportOverdueGraceDays int `koanf:"support_overdue_grace_days"`

	// Timezone is used to derive "today" for the support roster and notification dedupe.
	Timezone string `koanf:"timezone"`

	// SlackWebhookURL receives chat notifications.
	SlackWebhookURL string `koanf:"slack_webhook_url"`

	// AppURL is linked from the leaderboard notification.
	AppURL string `koanf:"app_url"`

	// NotifyMaxAttempts and NotifyRetryDelayMS shape webhook delivery retries.
	NotifyMaxAttempts  int `koanf:"notify_max_attempts"`
	NotifyRetryDelayMS int `koanf:"notify_retry_delay_ms"`

	// LeaderboardNotifyDays is the window of the posted leaderboard.
	LeaderboardNotifyDays int `koanf:"leaderboard_notify_days"`

	// DedupeSize bounds the notification dedupe set.
	DedupeSize int `koanf:"dedupe_size"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		LogFormat:            "text",
		Addr:                 ":9080",
		WorkerCount:          runtime.NumCPU() * 2,
		QueueSize:            256,
		UpstreamTimeoutMS:    10_000,
		CacheTTLSeconds:      300,
		DefaultWindowDays:    30,
		MaxWindowDays:        365,
		MaxLeaderboardLimit:  100,
		DirectoryPath:        "directory.yaml",
		SnapshotPath:         "snapshot.yaml",
		CycleInitiative:      "Cycle",
		OnboardingInitiative: "Onboarding Churches",
		PriorityPoints: map[string]int{
			"urgent": 20,
			"high":   10,
			"medium": 5,
			"low":    1,
		},
		CycleLeadPointsPerWeek:   30,
		CycleMemberPointsPerWeek: 15,
		WorkLabels:               []string{"Bug", "New Feature", "Technical Change"},
		OpenLabel:                "Bug",
		OpenMaxPriority:          2,
		CompletedMaxPriority:     5,
		StaleDays:                30,
		Timezone:                 "UTC",
		NotifyMaxAttempts:        3,
		NotifyRetryDelayMS:       5_000,
		LeaderboardNotifyDays:    7,
		DedupeSize:               1_024,
	}
}

// UpstreamTimeout returns the per-call upstream deadline.
func (c *Config) UpstreamTimeout() time.Duration {
	return time.Duration(c.UpstreamTimeoutMS) * time.Millisecond
}

// CacheTTL returns the aggregate cache epoch length.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// NotifyRetryDelay returns the fixed delay between webhook attempts.
func (c *Config) NotifyRetryDelay() time.Duration {
	return time.Duration(c.NotifyRetryDelayMS) * time.Millisecond
}

// Location resolves Timezone, falling back to UTC for unknown names.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
