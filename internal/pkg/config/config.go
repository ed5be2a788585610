package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/samirrijal/motolog/internal/core/domain"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Storage   StorageConfig   `mapstructure:"storage"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
	Tracking  TrackingConfig  `mapstructure:"tracking"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// StorageConfig selects the repository backend.
type StorageConfig struct {
	Driver   string         `mapstructure:"driver"` // sqlite | postgres
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Enabled bool   `mapstructure:"enabled"`
}

type ValkeyConfig struct {
	Addr    string `mapstructure:"addr"`
	Enabled bool   `mapstructure:"enabled"`
}

type TelemetryConfig struct {
	ServiceName  string `mapstructure:"service_name"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	Enabled      bool   `mapstructure:"enabled"`
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

// TrackingConfig holds the default filter thresholds and where samples come from.
type TrackingConfig struct {
	Source string               `mapstructure:"source"` // push | nats
	Filter domain.FilterConfig    `mapstructure:"filter"`
	Stats  domain.AggregateConfig `mapstructure:"stats"`
	Device domain.SourceOptions   `mapstructure:"device"`

	// LiveTickMs is the cadence of the live stats broadcast.
	LiveTickMs int `mapstructure:"live_tick_ms"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()
	setDefaults(v, service)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: MOTOLOG_STORAGE_DRIVER → storage.driver
	v.SetEnvPrefix("MOTOLOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, service string) {
	filter := domain.DefaultFilterConfig()
	device := domain.DefaultSourceOptions()
	stats := domain.DefaultAggregateConfig()

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.sqlite.path", "motolog.db")
	v.SetDefault("storage.postgres.host", "localhost")
	v.SetDefault("storage.postgres.port", 5432)
	v.SetDefault("storage.postgres.user", "motolog")
	v.SetDefault("storage.postgres.password", "")
	v.SetDefault("storage.postgres.dbname", "motolog")
	v.SetDefault("storage.postgres.sslmode", "disable")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.enabled", false)
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("valkey.enabled", false)
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.otlp_endpoint", "localhost:4317")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "motolog-recompute")
	v.SetDefault("tracking.source", "push")
	v.SetDefault("tracking.filter.max_accuracy_m", filter.MaxAccuracyM)
	v.SetDefault("tracking.filter.min_interval_ms", filter.MinIntervalMs)
	v.SetDefault("tracking.filter.min_distance_m", filter.MinDistanceM)
	v.SetDefault("tracking.filter.max_speed_kmh", filter.MaxSpeedKmh)
	v.SetDefault("tracking.stats.stop_speed_mps", stats.StopSpeedMps)
	v.SetDefault("tracking.stats.stop_window_sec", stats.StopWindowSec)
	v.SetDefault("tracking.device.high_accuracy", device.HighAccuracy)
	v.SetDefault("tracking.device.timeout_ms", device.TimeoutMs)
	v.SetDefault("tracking.device.max_age_ms", device.MaxAgeMs)
	v.SetDefault("tracking.live_tick_ms", 1000)
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}

	switch c.Storage.Driver {
	case "sqlite":
		if c.Storage.SQLite.Path == "" {
			errs = append(errs, "storage.sqlite.path is required")
		}
	case "postgres":
		pg := c.Storage.Postgres
		if pg.Host == "" {
			errs = append(errs, "storage.postgres.host is required")
		}
		if pg.Port <= 0 || pg.Port > 65535 {
			errs = append(errs, fmt.Sprintf("storage.postgres.port must be 1-65535, got %d", pg.Port))
		}
		if pg.User == "" {
			errs = append(errs, "storage.postgres.user is required")
		}
		if pg.DBName == "" {
			errs = append(errs, "storage.postgres.dbname is required")
		}
	default:
		errs = append(errs, fmt.Sprintf("storage.driver must be sqlite or postgres, got %q", c.Storage.Driver))
	}

	if c.NATS.Enabled && c.NATS.URL == "" {
		errs = append(errs, "nats.url is required when nats is enabled")
	}
	if c.Valkey.Enabled && c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required when valkey is enabled")
	}

	switch c.Tracking.Source {
	case "push":
	case "nats":
		if !c.NATS.Enabled {
			errs = append(errs, "tracking.source nats requires nats.enabled")
		}
	default:
		errs = append(errs, fmt.Sprintf("tracking.source must be push or nats, got %q", c.Tracking.Source))
	}
	if c.Tracking.LiveTickMs <= 0 {
		errs = append(errs, "tracking.live_tick_ms must be positive")
	}

	f := c.Tracking.Filter
	if f.MaxAccuracyM < 5 || f.MaxAccuracyM > 500 {
		errs = append(errs, fmt.Sprintf("tracking.filter.max_accuracy_m must be 5-500, got %g", f.MaxAccuracyM))
	}
	if f.MinIntervalMs < 1000 || f.MinIntervalMs > 60000 {
		errs = append(errs, fmt.Sprintf("tracking.filter.min_interval_ms must be 1000-60000, got %d", f.MinIntervalMs))
	}
	if f.MinDistanceM < 1 || f.MinDistanceM > 200 {
		errs = append(errs, fmt.Sprintf("tracking.filter.min_distance_m must be 1-200, got %g", f.MinDistanceM))
	}
	if f.MaxSpeedKmh < 20 || f.MaxSpeedKmh > 300 {
		errs = append(errs, fmt.Sprintf("tracking.filter.max_speed_kmh must be 20-300, got %g", f.MaxSpeedKmh))
	}

	st := c.Tracking.Stats
	if st.StopSpeedMps <= 0 || st.StopSpeedMps > 5 {
		errs = append(errs, fmt.Sprintf("tracking.stats.stop_speed_mps must be in (0, 5], got %g", st.StopSpeedMps))
	}
	if st.StopWindowSec < 2 || st.StopWindowSec > 600 {
		errs = append(errs, fmt.Sprintf("tracking.stats.stop_window_sec must be 2-600, got %g", st.StopWindowSec))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
