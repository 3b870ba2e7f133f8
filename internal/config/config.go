package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	appLog "worksched/internal/log"
)

// BackendConfig points at the entity/association backend.
type BackendConfig struct {
	// URL is the API base, e.g. "https://graph.example.org/api/v1". When
	// empty the service runs against an in-memory store.
	URL string `yaml:"url" json:"url"`
	// Token is sent as a bearer token.
	Token string `yaml:"token" json:"-"`
	// TimeoutSeconds bounds every backend call.
	TimeoutSeconds int `yaml:"timeout_seconds" json:"timeout_seconds"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone schedule dates and times are entered in.
	Timezone string `yaml:"timezone" json:"timezone"`

	// WeekStart controls which weekday begins a week for hour totals and
	// every-N-weeks schedules. Supported values:
	//   - "monday" (default)
	//   - "sunday"
	WeekStart string `yaml:"week_start" json:"week_start"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// MaxRecurrenceWeeks rejects (and caps) schedules longer than this.
	MaxRecurrenceWeeks int `yaml:"max_recurrence_weeks" json:"max_recurrence_weeks"`

	// RequiredWeeklyHours is the default weekly target for compliance reports.
	RequiredWeeklyHours float64 `yaml:"required_weekly_hours" json:"required_weekly_hours"`

	// ReportCron is a cron-style schedule string (e.g. "0 6 * * 1") for the
	// compliance sweep.
	ReportCron string `yaml:"report_cron" json:"report_cron"`

	// ProgramID is the program entity whose participants the sweep covers.
	// The sweep is disabled when empty.
	ProgramID string `yaml:"program_id" json:"program_id"`

	Backend BackendConfig `yaml:"backend" json:"backend"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

const (
	defaultListen        = "127.0.0.1:8080"
	defaultWeekStart     = "monday"
	defaultLogLevel      = "info"
	defaultMaxWeeks      = 520
	defaultRequiredHours = 8
	defaultReportCron    = "0 6 * * 1"
	defaultTimeoutSec    = 15
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:              defaultListen,
		Timezone:            "Local",
		WeekStart:           defaultWeekStart,
		LogLevel:            defaultLogLevel,
		MaxRecurrenceWeeks:  defaultMaxWeeks,
		RequiredWeeklyHours: defaultRequiredHours,
		ReportCron:          defaultReportCron,
		Backend: BackendConfig{
			TimeoutSeconds: defaultTimeoutSec,
		},
	}
}

// Normalize fills in missing/zero values with defaults so that partially
// filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = "Local"
	}
	switch c.WeekStart {
	case "monday", "sunday":
	default:
		// Unknown value; fall back to monday.
		c.WeekStart = defaultWeekStart
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.MaxRecurrenceWeeks <= 0 {
		c.MaxRecurrenceWeeks = defaultMaxWeeks
	}
	if c.RequiredWeeklyHours < 0 {
		c.RequiredWeeklyHours = 0
	}
	if c.ReportCron == "" {
		c.ReportCron = defaultReportCron
	}
	if c.Backend.TimeoutSeconds <= 0 {
		c.Backend.TimeoutSeconds = defaultTimeoutSec
	}
}

// Location resolves Timezone, falling back to time.Local when it is empty
// or unknown.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", c.Timezone)
		return time.Local
	}
	return loc
}

// WeekStartDay maps WeekStart onto a time.Weekday.
func (c *Config) WeekStartDay() time.Weekday {
	if c.WeekStart == "sunday" {
		return time.Sunday
	}
	return time.Monday
}

// BackendTimeout is Backend.TimeoutSeconds as a duration.
func (c *Config) BackendTimeout() time.Duration {
	return time.Duration(c.Backend.TimeoutSeconds) * time.Second
}

// Load loads configuration from the given YAML path.
//
// If the file does not exist, a default config is written there with 0600
// permissions and returned. Otherwise the YAML is read and normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes cfg to path atomically (temp file in the same directory,
// then rename) with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".worksched-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
