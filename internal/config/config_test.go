package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.HTTP.Address)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, 10, cfg.Game.KingdomSize)
	assert.Equal(t, 10, cfg.Game.KingdomPileSize)
	assert.Equal(t, 10*time.Second, cfg.Spark.Timeout)
	assert.Equal(t, "https://webexapis.com/v1", cfg.Spark.APIBase)
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := []byte(`
logging:
  level: debug
  format: json
database:
  driver: sqlite
  sqlite_path: /tmp/test.db
game:
  kingdom_size: 4
spark:
  timeout: 3s
`)
	require.NoError(t, os.WriteFile(path, body, 0o600))

	t.Setenv("DOMINION_SPARK_TOKEN", "secret-token")
	t.Setenv("DOMINION_GAME_KINGDOM_PILE_SIZE", "8")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/tmp/test.db", cfg.Database.SQLitePath)
	assert.Equal(t, 4, cfg.Game.KingdomSize)
	assert.Equal(t, 8, cfg.Game.KingdomPileSize)
	assert.Equal(t, 3*time.Second, cfg.Spark.Timeout)
	assert.Equal(t, "secret-token", cfg.Spark.Token)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.Database.Driver = "mongo" }},
		{"postgres without url", func(c *Config) { c.Database.Driver = "postgres" }},
		{"zero kingdom", func(c *Config) { c.Game.KingdomSize = 0 }},
		{"too many players", func(c *Config) { c.Game.MaxPlayers = 12 }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Load("")
			require.NoError(t, err)
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
