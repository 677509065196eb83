package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/Nixie-Tech-LLC/signage/internal/config"
	"github.com/Nixie-Tech-LLC/signage/internal/db"
	"github.com/Nixie-Tech-LLC/signage/internal/http/middleware"
	"github.com/Nixie-Tech-LLC/signage/internal/logger"
)

// LoadEnvironment reads configuration and installs the global logger. The
// closer flushes the log file.
func LoadEnvironment() (*config.Config, io.Closer, error) {
	env, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, nil, err
	}

	closer, err := logger.Setup(logger.Options{
		Level:       env.LogLevel,
		Environment: env.Environment,
		File:        env.LogFile,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logging: %w", err)
	}
	return env, closer, nil
}

// EnsureAdmin creates the bootstrap account when ADMIN_PASSWORD is set and
// the username is still free. An existing account is never overwritten.
func EnsureAdmin(ctx context.Context, store db.Store, env *config.Config) error {
	if env.AdminPassword == "" {
		return nil
	}
	if _, err := store.GetUserByUsername(ctx, env.AdminUsername); err == nil {
		return nil
	} else if !errors.Is(err, db.ErrNotFound) {
		return err
	}

	hashed, err := middleware.HashPassword(env.AdminPassword)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	if _, err := store.CreateUser(ctx, env.AdminUsername, hashed); err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}
	log.Info().Str("username", env.AdminUsername).Msg("admin user created")
	return nil
}
