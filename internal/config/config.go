package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config holds all server configuration. Keys map to upper-case environment
// variables, e.g. "database-url" is DATABASE_URL.
type Config struct {
	Environment   string `mapstructure:"app-env"`
	ServerAddress string `mapstructure:"server-address"`

	DatabaseDriver string `mapstructure:"database-driver"`
	DatabaseURL    string `mapstructure:"database-url"`

	JWTSecret     string `mapstructure:"jwt-secret"`
	AuthRequired  bool   `mapstructure:"auth-required"`
	AdminUsername string `mapstructure:"admin-username"`
	AdminPassword string `mapstructure:"admin-password"`

	RedisAddress  string `mapstructure:"redis-address"`
	RedisUsername string `mapstructure:"redis-username"`
	RedisPassword string `mapstructure:"redis-password"`

	MQTTBrokerURL string `mapstructure:"mqtt-broker-url"`

	UseSpaces       bool   `mapstructure:"use-spaces"`
	SpacesEndpoint  string `mapstructure:"spaces-endpoint"`
	SpacesRegion    string `mapstructure:"spaces-region"`
	SpacesBucket    string `mapstructure:"spaces-bucket"`
	SpacesCDNURL    string `mapstructure:"spaces-cdn-url"`
	SpacesAccessKey string `mapstructure:"spaces-access-key"`
	SpacesSecretKey string `mapstructure:"spaces-secret-key"`
	UploadDir       string `mapstructure:"upload-dir"`

	DefaultPlaylistID string        `mapstructure:"default-playlist-id"`
	HeartbeatTimeout  time.Duration `mapstructure:"heartbeat-timeout"`
	SweepInterval     time.Duration `mapstructure:"sweep-interval"`
	Seed              bool          `mapstructure:"seed"`

	LogLevel string `mapstructure:"log-level"`
	LogFile  string `mapstructure:"log-file"`
}

// PlayerConfig configures the standalone player.
type PlayerConfig struct {
	ServerURL         string        `mapstructure:"server-url"`
	Unit              string        `mapstructure:"unit"`
	PollInterval      time.Duration `mapstructure:"poll-interval"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat-interval"`
	MQTTBrokerURL     string        `mapstructure:"mqtt-broker-url"`
	LogLevel          string        `mapstructure:"log-level"`
	LogFile           string        `mapstructure:"log-file"`
	Environment       string        `mapstructure:"app-env"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app-env", "development")
	v.SetDefault("server-address", ":8080")
	v.SetDefault("database-driver", "sqlite")
	v.SetDefault("database-url", "signage.db")
	v.SetDefault("jwt-secret", "")
	v.SetDefault("auth-required", false)
	v.SetDefault("admin-username", "admin")
	v.SetDefault("admin-password", "")
	v.SetDefault("redis-address", "")
	v.SetDefault("redis-username", "")
	v.SetDefault("redis-password", "")
	v.SetDefault("mqtt-broker-url", "")
	v.SetDefault("use-spaces", false)
	v.SetDefault("spaces-endpoint", "")
	v.SetDefault("spaces-region", "")
	v.SetDefault("spaces-bucket", "")
	v.SetDefault("spaces-cdn-url", "")
	v.SetDefault("spaces-access-key", "")
	v.SetDefault("spaces-secret-key", "")
	v.SetDefault("upload-dir", "./uploads")
	v.SetDefault("default-playlist-id", "pl-1")
	v.SetDefault("heartbeat-timeout", 2*time.Minute)
	v.SetDefault("sweep-interval", 30*time.Second)
	v.SetDefault("seed", false)
	v.SetDefault("log-level", "info")
	v.SetDefault("log-file", "")

	v.SetDefault("server-url", "http://localhost:8080")
	v.SetDefault("unit", "")
	v.SetDefault("poll-interval", 60*time.Second)
	v.SetDefault("heartbeat-interval", 30*time.Second)
}

// loadEnv reads a .env file if one exists. Variables already set in the
// environment take precedence.
func loadEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("could not read .env file")
	}
}

func prepare(v *viper.Viper) {
	loadEnv()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
}

// Load reads configuration from .env, environment and any flags already
// bound to v.
func Load(v *viper.Viper) (*Config, error) {
	prepare(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

func LoadPlayer(v *viper.Viper) (*PlayerConfig, error) {
	prepare(v)

	var cfg PlayerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal player config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Validate checks configuration for errors
func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("database-driver must be postgres or sqlite, got %q", c.DatabaseDriver)
	}
	if c.DatabaseDriver == "postgres" && c.DatabaseURL == "" {
		return fmt.Errorf("database-url is required for postgres")
	}
	if c.ServerAddress == "" {
		return fmt.Errorf("server-address cannot be empty")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("jwt-secret is required")
	}
	if c.UseSpaces {
		for name, val := range map[string]string{
			"spaces-endpoint":   c.SpacesEndpoint,
			"spaces-bucket":     c.SpacesBucket,
			"spaces-cdn-url":    c.SpacesCDNURL,
			"spaces-access-key": c.SpacesAccessKey,
			"spaces-secret-key": c.SpacesSecretKey,
		} {
			if val == "" {
				return fmt.Errorf("%s is required when use-spaces is set", name)
			}
		}
	} else if c.UploadDir == "" {
		return fmt.Errorf("upload-dir cannot be empty")
	}
	if c.HeartbeatTimeout <= 0 {
		return fmt.Errorf("heartbeat-timeout must be positive")
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("sweep-interval must be positive")
	}
	return nil
}

func (c *PlayerConfig) Validate() error {
	if c.Unit == "" {
		return fmt.Errorf("unit is required")
	}
	if c.ServerURL == "" {
		return fmt.Errorf("server-url cannot be empty")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll-interval must be positive")
	}
	return nil
}
