// Package heartbeat records unit liveness and marks silent units offline.
package heartbeat

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/signage/internal/model"
	"github.com/Nixie-Tech-LLC/signage/internal/mqtt"
)

const (
	DefaultTimeout       = 2 * time.Minute
	DefaultSweepInterval = 30 * time.Second
)

type Store interface {
	RecordHeartbeat(ctx context.Context, id string, at time.Time, currentPlaylistID *string) (model.SignageUnit, error)
	MarkStaleUnitsOffline(ctx context.Context, before time.Time) (int64, error)
}

// Subscriber is satisfied by *mqtt.Client.
type Subscriber interface {
	Subscribe(topic string, h mqtt.Handler) error
}

type Service struct {
	store   Store
	timeout time.Duration
	now     func() time.Time
}

func NewService(store Store, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Service{store: store, timeout: timeout, now: func() time.Time { return time.Now().UTC() }}
}

// Record stamps a heartbeat for the unit named by id or hostname.
func (s *Service) Record(ctx context.Context, unit string, currentPlaylistID *string) (model.SignageUnit, error) {
	u, err := s.store.RecordHeartbeat(ctx, unit, s.now(), currentPlaylistID)
	if err != nil {
		return model.SignageUnit{}, fmt.Errorf("record heartbeat for %q: %w", unit, err)
	}
	log.Debug().Str("unit_id", u.ID).Str("status", string(u.Status)).Msg("heartbeat recorded")
	return u, nil
}

// Listen subscribes to every unit's heartbeat topic. Messages are recorded
// with ctx, so they stop being processed once ctx is done.
func (s *Service) Listen(ctx context.Context, sub Subscriber) error {
	return sub.Subscribe(mqtt.HeartbeatWildcard, func(topic string, payload []byte) {
		if ctx.Err() != nil {
			return
		}
		s.HandleMessage(ctx, topic, payload)
	})
}

// HandleMessage records one MQTT heartbeat. Malformed messages are logged
// and dropped.
func (s *Service) HandleMessage(ctx context.Context, topic string, payload []byte) {
	host, ok := mqtt.HostnameFromTopic(topic)
	if !ok {
		log.Warn().Str("topic", topic).Msg("ignoring heartbeat on unexpected topic")
		return
	}

	var msg mqtt.HeartbeatMessage
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &msg); err != nil {
			log.Warn().Err(err).Str("hostname", host).Msg("ignoring malformed heartbeat")
			return
		}
	}

	if _, err := s.Record(ctx, host, msg.CurrentPlaylistID); err != nil {
		log.Warn().Err(err).Str("hostname", host).Msg("heartbeat dropped")
	}
}

// Sweep marks ONLINE units that have been silent longer than the timeout as
// OFFLINE.
func (s *Service) Sweep(ctx context.Context) (int64, error) {
	n, err := s.store.MarkStaleUnitsOffline(ctx, s.now().Add(-s.timeout))
	if err != nil {
		return 0, fmt.Errorf("sweep stale units: %w", err)
	}
	if n > 0 {
		log.Info().Int64("units", n).Dur("timeout", s.timeout).Msg("marked silent units offline")
	}
	return n, nil
}

// RunSweeper sweeps every interval until ctx is cancelled.
func (s *Service) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info().Dur("interval", interval).Dur("timeout", s.timeout).Msg("offline sweeper started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("offline sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				log.Error().Err(err).Msg("offline sweep failed")
			}
		}
	}
}
