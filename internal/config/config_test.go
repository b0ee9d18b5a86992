package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, 5000, cfg.Optimizer.Iterations)
	assert.Equal(t, 100, cfg.Optimizer.ProgressEvery)
	assert.Equal(t, 0.5, cfg.Optimizer.Weights.Workload)
	assert.Equal(t, 0.5, cfg.Optimizer.Weights.Potential)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.Broker.RedisURL)
	assert.Equal(t, WindowConfig{Title: "Territory Planner", Width: 1280, Height: 800, MinWidth: 800, MinHeight: 600}, cfg.Window)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "planner.yaml")
	content := `
server:
  addr: "0.0.0.0:9090"
log:
  level: debug
  format: console
storage:
  driver: json
  json_path: /tmp/planner.json
optimizer:
  iterations: 1200
  seed: 42
  lock_top_customers: true
  weights:
    workload: 1
    potential: 0
window:
  title: Gebietsplanung
  width: 1600
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9090", cfg.Server.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, DriverJSON, cfg.Storage.Driver)
	assert.Equal(t, "/tmp/planner.json", cfg.Storage.JSONPath)
	assert.Equal(t, 1200, cfg.Optimizer.Iterations)
	assert.Equal(t, int64(42), cfg.Optimizer.Seed)
	assert.True(t, cfg.Optimizer.LockTopCustomers)
	assert.Equal(t, 1.0, cfg.Optimizer.Weights.Workload)
	assert.Equal(t, 0.0, cfg.Optimizer.Weights.Potential)
	assert.Equal(t, "Gebietsplanung", cfg.Window.Title)
	assert.Equal(t, 1600, cfg.Window.Width)
	// untouched keys keep their defaults
	assert.Equal(t, 100, cfg.Optimizer.ProgressEvery)
	assert.Equal(t, 800, cfg.Window.Height)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TERRITORY_SERVER_ADDR", "127.0.0.1:7000")
	t.Setenv("TERRITORY_OPTIMIZER_ITERATIONS", "300")
	t.Setenv("TERRITORY_STORAGE_DRIVER", "postgres")
	t.Setenv("TERRITORY_STORAGE_POSTGRES_DSN", "postgres://planner@localhost/planner")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:7000", cfg.Server.Addr)
	assert.Equal(t, 300, cfg.Optimizer.Iterations)
	assert.Equal(t, DriverPostgres, cfg.Storage.Driver)
	assert.Equal(t, "postgres://planner@localhost/planner", cfg.Storage.PostgresDSN)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.Storage.Driver = "mongo" }},
		{"postgres without dsn", func(c *Config) { c.Storage.Driver = DriverPostgres }},
		{"negative iterations", func(c *Config) { c.Optimizer.Iterations = -1 }},
		{"zero progress interval", func(c *Config) { c.Optimizer.ProgressEvery = 0 }},
		{"negative weight", func(c *Config) { c.Optimizer.Weights.Potential = -0.1 }},
		{"empty addr", func(c *Config) { c.Server.Addr = "" }},
		{"zero rate", func(c *Config) { c.HTTP.OptimizeRate = 0 }},
		{"window below minimum", func(c *Config) { c.Window.Width = 640 }},
		{"zero window minimum", func(c *Config) { c.Window.MinHeight = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			require.NoError(t, cfg.Validate())
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
