package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration of the dashboard gateway.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Poll    PollConfig    `yaml:"poll"`
	Chart   ChartConfig   `yaml:"chart"`
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
	Alerts  AlertsConfig  `yaml:"alerts"`
	GeoIP   GeoIPConfig   `yaml:"geoip"`
	Redis   RedisConfig   `yaml:"redis"`
}

// APIConfig locates the CWatch dashboard API.
type APIConfig struct {
	BaseURL string        `yaml:"base_url" default:"http://localhost:5000/api/dashboard"`
	Timeout time.Duration `yaml:"timeout" default:"10s"`
}

type PollConfig struct {
	Interval time.Duration `yaml:"interval" default:"30s"`
}

// ChartConfig controls hourly bucketing. Timezone is "UTC", "Local" or an
// IANA zone name. The CWatch API labels hours in UTC, so any other zone
// only lines up with its counts when the offset is zero.
type ChartConfig struct {
	Timezone string `yaml:"timezone" default:"UTC"`
}

type ServerConfig struct {
	Addr string `yaml:"addr" default:":8080"`
}

type StorageConfig struct {
	Database    string `yaml:"database" default:"cwatch-dashboard.db"`
	HistoryDays int    `yaml:"history_days" default:"7"`
}

type LoggingConfig struct {
	Dir   string `yaml:"dir" default:"./logs"`
	Level string `yaml:"level" default:"info"`
}

type AlertsConfig struct {
	DiscordWebhookURL string `yaml:"discord_webhook_url"`
	StaleAlertAfter   int    `yaml:"stale_alert_after" default:"3"`
	DailyReport       bool   `yaml:"daily_report" default:"true"`
}

// GeoIPConfig points at an optional MaxMind country or city database.
type GeoIPConfig struct {
	Database string `yaml:"database"`
}

// RedisConfig enables the state mirror when Addr is set.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Default returns a Config populated from the struct defaults.
func Default() Config {
	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		// Struct tags are static, so this only fires on a programming error.
		panic(fmt.Sprintf("config: invalid default tags: %v", err))
	}
	return cfg
}

// Validate checks that the config is usable.
func (c Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api.base_url must be an absolute URL, got %q", c.API.BaseURL)
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive, got %s", c.API.Timeout)
	}
	if c.Poll.Interval < time.Second {
		return fmt.Errorf("poll.interval must be at least 1s, got %s", c.Poll.Interval)
	}
	if _, err := c.Chart.Location(); err != nil {
		return fmt.Errorf("chart.timezone: %w", err)
	}
	if c.Storage.HistoryDays < 0 {
		return fmt.Errorf("storage.history_days must not be negative, got %d", c.Storage.HistoryDays)
	}
	if c.Alerts.StaleAlertAfter < 1 {
		return fmt.Errorf("alerts.stale_alert_after must be at least 1, got %d", c.Alerts.StaleAlertAfter)
	}
	return nil
}

// Location resolves the configured chart timezone.
func (c ChartConfig) Location() (*time.Location, error) {
	switch c.Timezone {
	case "", "UTC", "utc":
		return time.UTC, nil
	case "Local", "local":
		return time.Local, nil
	default:
		return time.LoadLocation(c.Timezone)
	}
}

// LoadFile reads a YAML config file over the defaults. Keys missing from the
// file keep their default values.
func LoadFile(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// Load reads path when non-empty, then applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = LoadFile(path); err != nil {
			return cfg, err
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// ApplyEnv overrides fields from CWATCH_* environment variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("CWATCH_API_BASE"); ok && v != "" {
		c.API.BaseURL = strings.TrimRight(v, "/")
	}
	if v, ok := lookup("CWATCH_POLL_INTERVAL"); ok && v != "" {
		d, err := parseInterval(v)
		if err != nil {
			return fmt.Errorf("CWATCH_POLL_INTERVAL: %w", err)
		}
		c.Poll.Interval = d
	}
	if v, ok := lookup("CWATCH_DATA_DIR"); ok && v != "" {
		if !filepath.IsAbs(c.Storage.Database) {
			c.Storage.Database = filepath.Join(v, c.Storage.Database)
		}
		c.Logging.Dir = filepath.Join(v, "logs")
	}
	if v, ok := lookup("CWATCH_LOG_LEVEL"); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := lookup("CWATCH_DISCORD_WEBHOOK"); ok {
		c.Alerts.DiscordWebhookURL = v
	}
	if v, ok := lookup("CWATCH_REDIS_ADDR"); ok {
		c.Redis.Addr = v
	}
	return nil
}

// parseInterval accepts a Go duration or a bare number of milliseconds.
func parseInterval(v string) (time.Duration, error) {
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return time.ParseDuration(v)
}

// WriteExample writes an example config file to path.
func WriteExample(path string) error {
	example := `api:
  base_url: http://localhost:5000/api/dashboard
  timeout: 10s
poll:
  interval: 30s
chart:
  timezone: UTC
server:
  addr: ":8080"
storage:
  database: cwatch-dashboard.db
  history_days: 7
logging:
  dir: ./logs
  level: info
alerts:
  discord_webhook_url: ""
  stale_alert_after: 3
  daily_report: true
geoip:
  database: ""
redis:
  addr: ""
  password: ""
  db: 0
`
	return os.WriteFile(path, []byte(example), 0o644)
}
