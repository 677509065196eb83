package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "supersecret")

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Equal(t, ":8080", cfg.ServerAddress)
	assert.Equal(t, "pl-1", cfg.DefaultPlaylistID)
	assert.Equal(t, 2*time.Minute, cfg.HeartbeatTimeout)
	assert.False(t, cfg.AuthRequired)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("JWT_SECRET", "supersecret")
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://signage@localhost/signage?sslmode=disable")
	t.Setenv("HEARTBEAT_TIMEOUT", "90s")
	t.Setenv("AUTH_REQUIRED", "true")
	t.Setenv("USE_SPACES", "true")

	cfg, err := Load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.DatabaseDriver)
	assert.Equal(t, 90*time.Second, cfg.HeartbeatTimeout)
	assert.True(t, cfg.AuthRequired)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required when use-spaces is set")
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			DatabaseDriver:   "sqlite",
			DatabaseURL:      ":memory:",
			ServerAddress:    ":8080",
			JWTSecret:        "s",
			UploadDir:        "./uploads",
			HeartbeatTimeout: time.Minute,
			SweepInterval:    time.Second,
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"valid", func(*Config) {}, ""},
		{"unknown driver", func(c *Config) { c.DatabaseDriver = "mysql" }, "database-driver"},
		{"postgres without url", func(c *Config) { c.DatabaseDriver = "postgres"; c.DatabaseURL = "" }, "database-url"},
		{"missing secret", func(c *Config) { c.JWTSecret = "" }, "jwt-secret"},
		{"zero sweep", func(c *Config) { c.SweepInterval = 0 }, "sweep-interval"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoadPlayer(t *testing.T) {
	t.Setenv("UNIT", "FTI-SIGNAGE-01")
	t.Setenv("POLL_INTERVAL", "15s")

	cfg, err := LoadPlayer(viper.New())
	require.NoError(t, err)
	assert.Equal(t, "FTI-SIGNAGE-01", cfg.Unit)
	assert.Equal(t, 15*time.Second, cfg.PollInterval)
	assert.Equal(t, "http://localhost:8080", cfg.ServerURL)
	assert.NoError(t, cfg.Validate())
}
