package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port              int `yaml:"port"`
		ReadHeaderTimeout int `yaml:"read_header_timeout_seconds"`
	} `yaml:"server"`

	API struct {
		BaseURL         string  `yaml:"base_url"`
		TimeoutSeconds  int     `yaml:"timeout_seconds"`
		CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
		RatePerSecond   float64 `yaml:"rate_per_second"`
		Burst           int     `yaml:"burst"`
	} `yaml:"api"`

	Session struct {
		Backend         string `yaml:"backend"` // sqlite | redis | memory
		IdleHours       int    `yaml:"idle_hours"`
		PreviewMaxBytes int    `yaml:"preview_max_bytes"`
	} `yaml:"session"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Backup BackupConfig `yaml:"backup"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // console | json
	} `yaml:"log"`

	Booking BookingRules `yaml:"booking"`

	path string
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	IntervalHours int    `yaml:"interval_hours"`
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"`
}

func (b BackupConfig) Interval() time.Duration {
	if b.IntervalHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(b.IntervalHours) * time.Hour
}

func (b BackupConfig) StoragePath() string {
	if b.Path == "" {
		return "backups"
	}
	return b.Path
}

// BookingRules constrain what the booking screen offers.
type BookingRules struct {
	MinAdvanceMinutes int   `yaml:"min_advance_minutes"`
	MaxAdvanceDays    int   `yaml:"max_advance_days"`
	DurationChoices   []int `yaml:"duration_choices"`
}

func (r BookingRules) MinAdvance() time.Duration {
	if r.MinAdvanceMinutes < 0 {
		return 0
	}
	return time.Duration(r.MinAdvanceMinutes) * time.Minute
}

func (r BookingRules) MaxAdvance() time.Duration {
	if r.MaxAdvanceDays <= 0 {
		return 60 * 24 * time.Hour
	}
	return time.Duration(r.MaxAdvanceDays) * 24 * time.Hour
}

// Load reads the YAML config at path. Values from a .env file next to the
// process are exported first so ${ENV_VAR} placeholders can reference them.
func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	cfg.path = path

	if cfg.Session.Backend == "sqlite" {
		if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// Parse decodes YAML config bytes, expanding ${ENV_VAR} placeholders and
// applying defaults.
func Parse(data []byte) (*Config, error) {
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadHeaderTimeout <= 0 {
		c.Server.ReadHeaderTimeout = 10
	}
	if c.API.TimeoutSeconds <= 0 {
		c.API.TimeoutSeconds = 10
	}
	if c.API.RatePerSecond <= 0 {
		c.API.RatePerSecond = 20
	}
	if c.API.Burst <= 0 {
		c.API.Burst = 40
	}
	if c.Session.Backend == "" {
		c.Session.Backend = "sqlite"
	}
	if c.Session.IdleHours <= 0 {
		c.Session.IdleHours = 24 * 14
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/portal.db"
	}
	if c.Monitoring.HealthCheckPort == 0 {
		c.Monitoring.HealthCheckPort = 8090
	}
	if c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
}

// Path returns the file the config was loaded from.
func (c *Config) Path() string {
	return c.path
}

func (c *Config) APITimeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.API.CacheTTLSeconds) * time.Second
}

func (c *Config) SessionIdle() time.Duration {
	return time.Duration(c.Session.IdleHours) * time.Hour
}
