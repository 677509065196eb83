package player

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Nixie-Tech-LLC/signage/internal/mqtt"
	"github.com/Nixie-Tech-LLC/signage/internal/schedule"
)

const requestTimeout = 15 * time.Second

// HTTPSource polls GET /api/signage/{unit}/playlist with If-None-Match.
type HTTPSource struct {
	BaseURL string
	Unit    string
	Client  *http.Client
}

func (s *HTTPSource) client() *http.Client {
	if s.Client != nil {
		return s.Client
	}
	return &http.Client{Timeout: requestTimeout}
}

func (s *HTTPSource) endpoint(suffix string) string {
	return strings.TrimSuffix(s.BaseURL, "/") + "/api/signage/" + url.PathEscape(s.Unit) + suffix
}

func (s *HTTPSource) Fetch(ctx context.Context, knownVersion string) (schedule.Resolution, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint("/playlist"), nil)
	if err != nil {
		return schedule.Resolution{}, err
	}
	if knownVersion != "" {
		req.Header.Set("If-None-Match", `"`+knownVersion+`"`)
	}

	resp, err := s.client().Do(req)
	if err != nil {
		return schedule.Resolution{}, fmt.Errorf("fetch playlist: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotModified:
		return schedule.Resolution{}, ErrNotModified
	case http.StatusOK:
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return schedule.Resolution{}, fmt.Errorf("fetch playlist: unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	var res schedule.Resolution
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return schedule.Resolution{}, fmt.Errorf("decode playlist: %w", err)
	}
	return res, nil
}

// ResolverSource resolves in-process, for a player embedded in the server
// or driven from a local database.
type ResolverSource struct {
	Resolver *schedule.Resolver
	Unit     string
	Now      func() time.Time
}

func (s *ResolverSource) Fetch(ctx context.Context, knownVersion string) (schedule.Resolution, error) {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	res, err := s.Resolver.Resolve(ctx, s.Unit, now().UTC())
	if err != nil {
		return schedule.Resolution{}, err
	}
	if knownVersion != "" && res.Version == knownVersion {
		return schedule.Resolution{}, ErrNotModified
	}
	return res, nil
}

// HTTPReporter posts heartbeats to /api/signage/{unit}/heartbeat.
type HTTPReporter struct {
	HTTPSource
}

func (r *HTTPReporter) Report(ctx context.Context, s Snapshot) error {
	body := struct {
		CurrentPlaylistID *string `json:"current_playlist_id,omitempty"`
	}{}
	if s.PlaylistID != "" {
		body.CurrentPlaylistID = &s.PlaylistID
	}
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint("/heartbeat"), bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client().Do(req)
	if err != nil {
		return fmt.Errorf("post heartbeat: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("post heartbeat: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// HeartbeatPublisher is satisfied by *mqtt.Client.
type HeartbeatPublisher interface {
	PublishHeartbeat(hostname string, msg mqtt.HeartbeatMessage) error
}

// MQTTReporter publishes heartbeats to signage/{hostname}/heartbeat.
type MQTTReporter struct {
	Publisher HeartbeatPublisher
	Hostname  string
}

func (r *MQTTReporter) Report(_ context.Context, s Snapshot) error {
	msg := mqtt.HeartbeatMessage{
		Version: s.Version,
		Offline: s.Offline,
		SentAt:  time.Now().UTC(),
	}
	if s.PlaylistID != "" {
		pl := s.PlaylistID
		msg.CurrentPlaylistID = &pl
	}
	return r.Publisher.PublishHeartbeat(r.Hostname, msg)
}
