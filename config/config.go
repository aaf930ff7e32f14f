package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalid marks a configuration that cannot be used to start the tracker.
var ErrInvalid = errors.New("invalid configuration")

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Tracking   TrackingConfig   `yaml:"tracking"`
	Site       SiteConfig       `yaml:"site"`
	Location   LocationConfig   `yaml:"location"`
	Background BackgroundConfig `yaml:"background"`
	Database   DatabaseConfig   `yaml:"database"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// PushConfig holds the VAPID keys for web push notifications.
// Push alerts are disabled when either key is empty.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// Enabled reports whether both VAPID keys are configured.
func (p PushConfig) Enabled() bool {
	return p.PublicKey != "" && p.PrivateKey != ""
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RequestIPHeader string  `yaml:"request_ip_header"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// TrackingConfig controls the capture cadence and the location request.
type TrackingConfig struct {
	PeriodMinutes    int            `yaml:"period_minutes"`
	Period           time.Duration  `yaml:"-"` // Ignored by YAML parser
	Timezone         string         `yaml:"timezone"`
	Location         *time.Location `yaml:"-"`
	HighAccuracy     *bool          `yaml:"high_accuracy"`
	CaptureTimeoutMs int            `yaml:"capture_timeout_ms"`
	MaxAgeMs         int            `yaml:"max_age_ms"`
}

// SiteConfig is the permitted work-site geofence.
type SiteConfig struct {
	Name         string  `yaml:"name"`
	Latitude     float64 `yaml:"latitude"`
	Longitude    float64 `yaml:"longitude"`
	RadiusMeters float64 `yaml:"radius_meters"`
}

// LocationConfig selects and configures the device position provider.
type LocationConfig struct {
	Provider        string            `yaml:"provider"` // "http" or "static"
	URL             string            `yaml:"url"`
	PermissionURL   string            `yaml:"permission_url"`
	HTTPProxy       string            `yaml:"http_proxy"`
	Headers         map[string]string `yaml:"headers"`
	StaticLatitude  float64           `yaml:"static_latitude"`
	StaticLongitude float64           `yaml:"static_longitude"`
}

// BackgroundConfig configures the periodic background wake-ups.
type BackgroundConfig struct {
	Enabled              bool `yaml:"enabled"`
	PeriodMinutes        int  `yaml:"period_minutes"`
	PersistAcrossRestart bool `yaml:"persist_across_restart"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"` // "sqlite" or "postgres"
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills zero values and validates the result. It is also used by
// tests that build a Config in code.
func (cfg *Config) applyDefaults() error {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 300
	}

	if cfg.Tracking.PeriodMinutes <= 0 {
		cfg.Tracking.PeriodMinutes = 15
	}
	cfg.Tracking.Period = time.Duration(cfg.Tracking.PeriodMinutes) * time.Minute
	if cfg.Tracking.HighAccuracy == nil {
		highAccuracy := true
		cfg.Tracking.HighAccuracy = &highAccuracy
	}
	if cfg.Tracking.CaptureTimeoutMs <= 0 {
		cfg.Tracking.CaptureTimeoutMs = 15000
	}
	if cfg.Tracking.MaxAgeMs <= 0 {
		cfg.Tracking.MaxAgeMs = 10000
	}
	loc, err := time.LoadLocation(cfg.Tracking.Timezone)
	if err != nil {
		return fmt.Errorf("%w: tracking.timezone %q: %v", ErrInvalid, cfg.Tracking.Timezone, err)
	}
	cfg.Tracking.Location = loc

	if cfg.Site.RadiusMeters <= 0 {
		return fmt.Errorf("%w: site.radius_meters must be positive", ErrInvalid)
	}
	if cfg.Site.Latitude < -90 || cfg.Site.Latitude > 90 || cfg.Site.Longitude < -180 || cfg.Site.Longitude > 180 {
		return fmt.Errorf("%w: site coordinates out of range", ErrInvalid)
	}

	switch cfg.Location.Provider {
	case "":
		cfg.Location.Provider = "http"
		fallthrough
	case "http":
		if cfg.Location.URL == "" {
			return fmt.Errorf("%w: location.url is required for the http provider", ErrInvalid)
		}
	case "static":
	default:
		return fmt.Errorf("%w: unknown location.provider %q", ErrInvalid, cfg.Location.Provider)
	}

	if cfg.Background.PeriodMinutes <= 0 {
		cfg.Background.PeriodMinutes = cfg.Tracking.PeriodMinutes
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.Driver != "sqlite" && cfg.Database.Driver != "postgres" {
		return fmt.Errorf("%w: unknown database.driver %q", ErrInvalid, cfg.Database.Driver)
	}
	if cfg.Database.DSN == "" {
		if cfg.Database.Driver == "postgres" {
			return fmt.Errorf("%w: database.dsn is required for postgres", ErrInvalid)
		}
		cfg.Database.DSN = "tracker.db"
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}
	return nil
}
