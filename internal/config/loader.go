package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment override, e.g. DEVPULSE_ADDR.
const EnvPrefix = "DEVPULSE_"

// EnvConfigFile names the variable holding an optional YAML config path.
const EnvConfigFile = EnvPrefix + "CONFIG"

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if DEVPULSE_CONFIG is set
//  3. env (prefix DEVPULSE_)
func Load(_ context.Context) (*Config, error) {
	return LoadFile(os.Getenv(EnvConfigFile))
}

// LoadFile is Load with an explicit YAML path; an empty path skips the file layer.
func LoadFile(path string) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// DEVPULSE_QUEUE_SIZE -> queue_size. Underscores are kept to match the flat koanf tags.
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, strings.ToLower(EnvPrefix))
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}
	// The config file path itself is not a field.
	k.Delete("config")

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.WorkerCount <= 0:
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	case c.QueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.UpstreamTimeoutMS <= 0:
		return fmt.Errorf("%w: upstream_timeout_ms must be positive", ErrInvalidConfig)
	case c.CacheTTLSeconds <= 0:
		return fmt.Errorf("%w: cache_ttl_seconds must be positive", ErrInvalidConfig)
	case c.MaxWindowDays <= 0:
		return fmt.Errorf("%w: max_window_days must be positive", ErrInvalidConfig)
	case c.DefaultWindowDays <= 0 || c.DefaultWindowDays > c.MaxWindowDays:
		return fmt.Errorf("%w: default_window_days must be within 1..max_window_days", ErrInvalidConfig)
	case c.MaxLeaderboardLimit <= 0:
		return fmt.Errorf("%w: max_leaderboard_limit must be positive", ErrInvalidConfig)
	case c.NotifyMaxAttempts <= 0:
		return fmt.Errorf("%w: notify_max_attempts must be positive", ErrInvalidConfig)
	case c.NotifyRetryDelayMS < 0:
		return fmt.Errorf("%w: notify_retry_delay_ms must not be negative", ErrInvalidConfig)
	case c.StaleDays <= 0:
		return fmt.Errorf("%w: stale_days must be positive", ErrInvalidConfig)
	case c.SupportOverdueGraceDays < 0:
		return fmt.Errorf("%w: support_overdue_grace_days must not be negative", ErrInvalidConfig)
	}
	for tier := range c.PriorityPoints {
		switch tier {
		case "urgent", "high", "medium", "low":
		default:
			return fmt.Errorf("%w: unknown priority tier %q", ErrInvalidConfig, tier)
		}
	}
	return nil
}
