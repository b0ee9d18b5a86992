// Package config loads planner settings from an optional YAML file and
// TERRITORY_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"territory-planner/internal/logging"
	"territory-planner/internal/models"
)

const envPrefix = "TERRITORY"

// Storage drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverJSON     = "json"
)

// Config is the full application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       logging.Config  `mapstructure:"log"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Optimizer OptimizerConfig `mapstructure:"optimizer"`
	Broker    BrokerConfig    `mapstructure:"broker"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Window    WindowConfig    `mapstructure:"window"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StorageConfig selects the scenario and dataset store. Empty paths resolve
// to files under the application directory.
type StorageConfig struct {
	Driver      string `mapstructure:"driver"`
	SQLitePath  string `mapstructure:"sqlite_path"`
	JSONPath    string `mapstructure:"json_path"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
}

// OptimizerConfig holds the defaults for optimization runs. Seed 0 means a
// time-based seed.
type OptimizerConfig struct {
	Iterations       int            `mapstructure:"iterations"`
	ProgressEvery    int            `mapstructure:"progress_every"`
	Seed             int64          `mapstructure:"seed"`
	LockTopCustomers bool           `mapstructure:"lock_top_customers"`
	Weights          models.Weights `mapstructure:"weights"`
}

// BrokerConfig selects the progress broker. An empty RedisURL keeps
// progress events in process.
type BrokerConfig struct {
	RedisURL string `mapstructure:"redis_url"`
}

type HTTPConfig struct {
	OptimizeRate  float64 `mapstructure:"optimize_rate"`
	OptimizeBurst int     `mapstructure:"optimize_burst"`
}

// WindowConfig sizes the desktop window
type WindowConfig struct {
	Title     string `mapstructure:"title"`
	Width     int    `mapstructure:"width"`
	Height    int    `mapstructure:"height"`
	MinWidth  int    `mapstructure:"min_width"`
	MinHeight int    `mapstructure:"min_height"`
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// every key needs a default so AutomaticEnv can see it during Unmarshal
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", "127.0.0.1:8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output_paths", []string{"stderr"})

	v.SetDefault("storage.driver", DriverSQLite)
	v.SetDefault("storage.sqlite_path", "")
	v.SetDefault("storage.json_path", "")
	v.SetDefault("storage.postgres_dsn", "")

	v.SetDefault("optimizer.iterations", 5000)
	v.SetDefault("optimizer.progress_every", 100)
	v.SetDefault("optimizer.seed", 0)
	v.SetDefault("optimizer.lock_top_customers", false)
	v.SetDefault("optimizer.weights.workload", 0.5)
	v.SetDefault("optimizer.weights.potential", 0.5)
	v.SetDefault("optimizer.weights.efficiency", 0.0)

	v.SetDefault("broker.redis_url", "")

	v.SetDefault("http.optimize_rate", 1.0)
	v.SetDefault("http.optimize_burst", 2)

	v.SetDefault("window.title", "Territory Planner")
	v.SetDefault("window.width", 1280)
	v.SetDefault("window.height", 800)
	v.SetDefault("window.min_width", 800)
	v.SetDefault("window.min_height", 600)
}

// Load reads configPath if given, applies TERRITORY_* overrides and
// validates the result.
func Load(configPath string) (*Config, error) {
	v := newViper()
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: failed to read %q: %w", configPath, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Default returns the configuration with no file and no environment
func Default() *Config {
	cfg := &Config{}
	v := viper.New()
	setDefaults(v)
	_ = v.Unmarshal(cfg)
	return cfg
}

// Validate checks cross-field constraints
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}

	switch c.Storage.Driver {
	case DriverSQLite, DriverJSON:
	case DriverPostgres:
		if c.Storage.PostgresDSN == "" {
			errs = append(errs, errors.New("storage.postgres_dsn is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.driver %q is not one of sqlite, postgres, json", c.Storage.Driver))
	}

	if c.Optimizer.Iterations < 0 {
		errs = append(errs, errors.New("optimizer.iterations must not be negative"))
	}
	if c.Optimizer.ProgressEvery <= 0 {
		errs = append(errs, errors.New("optimizer.progress_every must be positive"))
	}
	w := c.Optimizer.Weights
	if w.Workload < 0 || w.Potential < 0 || w.Efficiency < 0 {
		errs = append(errs, errors.New("optimizer.weights must not be negative"))
	}

	if c.HTTP.OptimizeRate <= 0 {
		errs = append(errs, errors.New("http.optimize_rate must be positive"))
	}
	if c.HTTP.OptimizeBurst <= 0 {
		errs = append(errs, errors.New("http.optimize_burst must be positive"))
	}

	win := c.Window
	if win.MinWidth <= 0 || win.MinHeight <= 0 {
		errs = append(errs, errors.New("window.min_width and window.min_height must be positive"))
	}
	if win.Width < win.MinWidth || win.Height < win.MinHeight {
		errs = append(errs, errors.New("window size must not be below its minimum"))
	}

	return errors.Join(errs...)
}
