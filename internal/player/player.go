// Package player runs the unattended display loop: it rotates through the
// resolved playlist and polls for changes.
package player

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/signage/internal/model"
	"github.com/Nixie-Tech-LLC/signage/internal/schedule"
)

type State string

const (
	StateInitializing State = "INITIALIZING"
	StateEmpty        State = "EMPTY"
	StatePlaying      State = "PLAYING"
)

const (
	DefaultPollInterval      = 60 * time.Second
	DefaultHeartbeatInterval = 30 * time.Second
	reportTimeout            = 10 * time.Second
)

// ErrNotModified is returned by a Source when the known version is current.
var ErrNotModified = errors.New("playlist not modified")

// Source fetches the unit's current resolution. knownVersion is the version
// the player already has, or "" before the first fetch.
type Source interface {
	Fetch(ctx context.Context, knownVersion string) (schedule.Resolution, error)
}

// Reporter publishes liveness for the unit.
type Reporter interface {
	Report(ctx context.Context, s Snapshot) error
}

// Snapshot is a copy of the player state handed to observers.
type Snapshot struct {
	State      State               `json:"state"`
	Index      int                 `json:"index"`
	Current    *model.MediaContent `json:"current,omitempty"`
	Len        int                 `json:"len"`
	PlaylistID string              `json:"playlist_id"`
	Version    string              `json:"version"`
	Offline    bool                `json:"offline"`
	Deadline   time.Time           `json:"deadline"`
}

type Observer func(Snapshot)

type Options struct {
	PollInterval      time.Duration
	HeartbeatInterval time.Duration
	Clock             Clock
	Reporter          Reporter
	Observers         []Observer
}

// Player owns its list and index; they are only mutated from the Run
// goroutine. mu guards reads from Snapshot.
type Player struct {
	source            Source
	clock             Clock
	pollInterval      time.Duration
	heartbeatInterval time.Duration
	reporter          Reporter
	observers         []Observer

	mu         sync.Mutex
	state      State
	items      []model.MediaContent
	index      int
	playlistID string
	version    string
	offline    bool
	deadline   time.Time

	timer Timer
}

func New(source Source, opts Options) *Player {
	p := &Player{
		source:            source,
		clock:             opts.Clock,
		pollInterval:      opts.PollInterval,
		heartbeatInterval: opts.HeartbeatInterval,
		reporter:          opts.Reporter,
		observers:         opts.Observers,
		state:             StateInitializing,
	}
	if p.clock == nil {
		p.clock = realClock{}
	}
	if p.pollInterval <= 0 {
		p.pollInterval = DefaultPollInterval
	}
	if p.heartbeatInterval <= 0 {
		p.heartbeatInterval = DefaultHeartbeatInterval
	}
	return p
}

// ItemDuration is how long an item stays on screen. Non-positive durations
// fall back to the default.
func ItemDuration(c model.MediaContent) time.Duration {
	if c.DurationSec <= 0 {
		return model.DefaultDurationSec * time.Second
	}
	return time.Duration(c.DurationSec) * time.Second
}

// Run fetches once, then rotates and polls until ctx is cancelled. It always
// returns nil; fetch failures only set the offline flag.
func (p *Player) Run(ctx context.Context) error {
	poll := p.clock.NewTicker(p.pollInterval)
	defer poll.Stop()

	var heartbeat <-chan time.Time
	if p.reporter != nil {
		hb := p.clock.NewTicker(p.heartbeatInterval)
		defer hb.Stop()
		heartbeat = hb.C()
	}
	defer p.stopTimer()

	p.poll(ctx)
	if p.reporter != nil {
		p.report(ctx)
	}

	for {
		var rotate <-chan time.Time
		if p.timer != nil {
			rotate = p.timer.C()
		}

		select {
		case <-ctx.Done():
			log.Info().Msg("player stopped")
			return nil
		case <-rotate:
			p.advance()
		case <-poll.C():
			p.poll(ctx)
		case <-heartbeat:
			p.report(ctx)
		}
	}
}

func (p *Player) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *Player) snapshotLocked() Snapshot {
	s := Snapshot{
		State:      p.state,
		Index:      p.index,
		Len:        len(p.items),
		PlaylistID: p.playlistID,
		Version:    p.version,
		Offline:    p.offline,
		Deadline:   p.deadline,
	}
	if p.state == StatePlaying && p.index < len(p.items) {
		cur := p.items[p.index]
		s.Current = &cur
	}
	return s
}

func (p *Player) notify() {
	s := p.Snapshot()
	for _, o := range p.observers {
		o(s)
	}
}

// advance moves to the next item and arms the timer from now, so each item
// is shown for at least its duration.
func (p *Player) advance() {
	p.mu.Lock()
	if p.state != StatePlaying || len(p.items) == 0 {
		p.mu.Unlock()
		return
	}
	p.index = (p.index + 1) % len(p.items)
	p.armLocked()
	p.mu.Unlock()
	p.notify()
}

func (p *Player) poll(ctx context.Context) {
	p.mu.Lock()
	known := p.version
	p.mu.Unlock()

	res, err := p.source.Fetch(ctx, known)
	switch {
	case errors.Is(err, ErrNotModified):
		p.setOffline(false)
	case err != nil:
		if ctx.Err() != nil {
			return
		}
		log.Warn().Err(err).Msg("playlist fetch failed, keeping last known list")
		p.setOffline(true)
	default:
		p.apply(res)
	}
}

func (p *Player) setOffline(offline bool) {
	p.mu.Lock()
	changed := p.offline != offline
	p.offline = offline
	if p.state == StateInitializing {
		// first fetch failed: nothing to show yet
		p.state = StateEmpty
		changed = true
	}
	p.mu.Unlock()
	if changed {
		p.notify()
	}
}

// apply merges a fetched resolution. Same version is a no-op. Same length
// and same leading item replace the items in place without touching the
// index or timer. Anything else restarts the rotation.
func (p *Player) apply(res schedule.Resolution) {
	p.mu.Lock()
	wasOffline := p.offline
	p.offline = false

	if p.state != StateInitializing && res.Version != "" && res.Version == p.version {
		p.mu.Unlock()
		if wasOffline {
			p.notify()
		}
		return
	}

	p.version = res.Version
	p.playlistID = res.PlaylistID

	switch {
	case len(res.Items) == 0:
		p.items = nil
		p.index = 0
		p.state = StateEmpty
		p.stopTimerLocked()
		log.Info().Str("playlist_id", res.PlaylistID).Msg("nothing scheduled")

	case p.state == StatePlaying && len(res.Items) == len(p.items) && res.Items[0].ID == p.items[0].ID:
		p.items = res.Items

	default:
		p.items = res.Items
		p.index = 0
		p.state = StatePlaying
		p.armLocked()
		log.Info().Str("playlist_id", res.PlaylistID).Int("items", len(res.Items)).Msg("playlist loaded")
	}
	p.mu.Unlock()
	p.notify()
}

func (p *Player) armLocked() {
	p.stopTimerLocked()
	d := ItemDuration(p.items[p.index])
	p.deadline = p.clock.Now().Add(d)
	p.timer = p.clock.NewTimer(d)
}

func (p *Player) stopTimerLocked() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.deadline = time.Time{}
}

func (p *Player) stopTimer() {
	p.mu.Lock()
	p.stopTimerLocked()
	p.mu.Unlock()
}

func (p *Player) report(ctx context.Context) {
	rctx, cancel := context.WithTimeout(ctx, reportTimeout)
	defer cancel()
	if err := p.reporter.Report(rctx, p.Snapshot()); err != nil && ctx.Err() == nil {
		log.Warn().Err(err).Msg("heartbeat report failed")
	}
}
