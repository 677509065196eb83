package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/signage/internal/cache"
	"github.com/Nixie-Tech-LLC/signage/internal/config"
	"github.com/Nixie-Tech-LLC/signage/internal/heartbeat"
	"github.com/Nixie-Tech-LLC/signage/internal/mqtt"
	"github.com/Nixie-Tech-LLC/signage/internal/storage"
)

const localCacheSize = 256

// InitStorage selects and returns the configured storage backend
func InitStorage(env *config.Config) (storage.Storage, error) {
	if env.UseSpaces {
		spacesStorage, err := storage.NewSpacesStorage(
			env.SpacesEndpoint,
			env.SpacesRegion,
			env.SpacesBucket,
			env.SpacesCDNURL,
			env.SpacesAccessKey,
			env.SpacesSecretKey,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Spaces storage: %w", err)
		}
		log.Info().Str("cdn", env.SpacesCDNURL).Msg("using DigitalOcean Spaces storage")
		return spacesStorage, nil
	}

	log.Info().Str("dir", env.UploadDir).Msg("using local file storage")
	return storage.NewLocalStorage(env.UploadDir), nil
}

// InitCache uses Redis when an address is configured and an in-process LRU
// otherwise. An unreachable Redis fails startup.
func InitCache(ctx context.Context, env *config.Config) (cache.Cache, error) {
	if env.RedisAddress != "" {
		rc, err := cache.NewRedis(ctx, env.RedisAddress, env.RedisUsername, env.RedisPassword)
		if err != nil {
			return nil, err
		}
		log.Info().Str("addr", env.RedisAddress).Msg("using Redis playlist cache")
		return rc, nil
	}

	log.Info().Int("size", localCacheSize).Msg("using in-process playlist cache")
	return cache.NewLocal(localCacheSize)
}

// InitMQTT subscribes the heartbeat service to the broker. It returns nil
// when no broker is configured.
func InitMQTT(ctx context.Context, env *config.Config, hb *heartbeat.Service) (*mqtt.Client, error) {
	if env.MQTTBrokerURL == "" {
		return nil, nil
	}
	client, err := mqtt.Connect(env.MQTTBrokerURL, "signage-server-"+uuid.NewString()[:8])
	if err != nil {
		return nil, err
	}
	if err := hb.Listen(ctx, client); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}
