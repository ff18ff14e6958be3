// Package config loads the optional YAML settings file for ParcelPipe.
//
// The file tunes the dialogue and the validator. Deployment settings such as
// the listen address and database DSN come from the environment and flags.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/BTreeMap/ParcelPipe/internal/scheduler"
)

// Config is the root of the settings file.
type Config struct {
	Dialogue    DialogueConfig    `yaml:"dialogue"`
	Validator   ValidatorConfig   `yaml:"validator"`
	Sessions    SessionsConfig    `yaml:"sessions"`
	Signals     SignalsConfig     `yaml:"signals"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
}

// DialogueConfig tunes the conversation engine.
type DialogueConfig struct {
	MaxRetries      int    `yaml:"max_retries"`
	DefaultCurrency string `yaml:"default_currency"`
}

// ValidatorConfig holds the field validator limits.
type ValidatorConfig struct {
	MaxDimension       float64 `yaml:"max_dimension"`
	MaxWeight          float64 `yaml:"max_weight"`
	MaxValue           float64 `yaml:"max_value"`
	MaxInstructionsLen int     `yaml:"max_instructions_len"`
}

// SessionsConfig bounds the in-memory session registry.
type SessionsConfig struct {
	TTL         string `yaml:"ttl"`
	MaxSessions int    `yaml:"max_sessions"`
}

// SignalsConfig configures signal delivery.
type SignalsConfig struct {
	PollInterval string `yaml:"poll_interval"`
	// OutputDir receives dispatched signal files. Relative paths are
	// resolved against the state directory.
	OutputDir string `yaml:"output_dir"`
}

// MaintenanceConfig schedules the periodic housekeeping job.
type MaintenanceConfig struct {
	// Schedule is a cron expression or descriptor such as "@every 1m".
	Schedule string `yaml:"schedule"`
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() *Config {
	return &Config{
		Dialogue: DialogueConfig{
			MaxRetries:      3,
			DefaultCurrency: "USD",
		},
		Validator: ValidatorConfig{
			MaxDimension:       10000,
			MaxWeight:          100000,
			MaxValue:           1000000,
			MaxInstructionsLen: 500,
		},
		Sessions: SessionsConfig{
			TTL:         "24h",
			MaxSessions: 4096,
		},
		Signals: SignalsConfig{
			PollInterval: "5s",
			OutputDir:    "signals",
		},
		Maintenance: MaintenanceConfig{
			Schedule: "@every 1m",
		},
	}
}

// Load reads the YAML file at path over the defaults. A missing file yields
// the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that every value is usable.
func (c *Config) Validate() error {
	var problems []string
	if c.Dialogue.MaxRetries < 1 {
		problems = append(problems, "dialogue.max_retries must be at least 1")
	}
	if len(c.Dialogue.DefaultCurrency) != 3 {
		problems = append(problems, "dialogue.default_currency must be a 3-letter code")
	}
	if c.Validator.MaxDimension <= 0 || c.Validator.MaxWeight <= 0 || c.Validator.MaxValue <= 0 {
		problems = append(problems, "validator limits must be positive")
	}
	if c.Validator.MaxInstructionsLen <= 0 {
		problems = append(problems, "validator.max_instructions_len must be positive")
	}
	if _, err := parsePositiveDuration(c.Sessions.TTL); err != nil {
		problems = append(problems, "sessions.ttl: "+err.Error())
	}
	if c.Sessions.MaxSessions < 1 {
		problems = append(problems, "sessions.max_sessions must be at least 1")
	}
	if _, err := parsePositiveDuration(c.Signals.PollInterval); err != nil {
		problems = append(problems, "signals.poll_interval: "+err.Error())
	}
	if err := scheduler.ValidateSchedule(c.Maintenance.Schedule); err != nil {
		problems = append(problems, "maintenance.schedule: "+err.Error())
	}
	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return nil
}

// SessionTTL returns the parsed session idle TTL.
func (c *Config) SessionTTL() time.Duration {
	d, err := parsePositiveDuration(c.Sessions.TTL)
	if err != nil {
		return 24 * time.Hour
	}
	return d
}

// SignalPollInterval returns the parsed dispatcher poll interval.
func (c *Config) SignalPollInterval() time.Duration {
	d, err := parsePositiveDuration(c.Signals.PollInterval)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

// Currency returns the default currency upper-cased.
func (c *Config) Currency() string {
	return strings.ToUpper(c.Dialogue.DefaultCurrency)
}

func parsePositiveDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", s)
	}
	return d, nil
}
