// Package schedule decides which playlist a unit shows at a given instant
// and materializes it into playable content.
package schedule

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/signage/internal/cache"
	"github.com/Nixie-Tech-LLC/signage/internal/db"
	"github.com/Nixie-Tech-LLC/signage/internal/model"
)

type Source string

const (
	SourceSchedule Source = "schedule"
	SourceDefault  Source = "default"
	SourceNone     Source = "none"
)

// cacheTTL also bounds staleness across servers sharing one Redis.
const cacheTTL = 45 * time.Second

// Resolution is what a unit should be playing. Version changes whenever the
// playlist id or any item's id, type, url or duration changes.
type Resolution struct {
	UnitID     string               `json:"unit_id"`
	PlaylistID string               `json:"playlist_id"`
	Source     Source               `json:"source"`
	Items      []model.MediaContent `json:"items"`
	Version    string               `json:"version"`
}

// Store is the read side the resolver needs.
type Store interface {
	GetUnit(ctx context.Context, idOrHostname string) (model.SignageUnit, error)
	ListSchedulesForUnit(ctx context.Context, unitID string) ([]model.ScheduleAssignment, error)
	GetPlaylist(ctx context.Context, id string) (model.Playlist, error)
	GetContentByIDs(ctx context.Context, ids []string) (map[string]model.MediaContent, error)
	PlaylistsContaining(ctx context.Context, contentID string) ([]string, error)
}

type Resolver struct {
	store             Store
	cache             cache.Cache
	defaultPlaylistID string

	// mu orders cache writes against invalidations. generations counts
	// invalidations per playlist; a load started under an older generation
	// is never written back.
	mu          sync.Mutex
	generations map[string]uint64
}

func NewResolver(store Store, c cache.Cache, defaultPlaylistID string) *Resolver {
	if defaultPlaylistID == "" {
		defaultPlaylistID = db.DefaultPlaylistID
	}
	return &Resolver{
		store:             store,
		cache:             c,
		defaultPlaylistID: defaultPlaylistID,
		generations:       make(map[string]uint64),
	}
}

func (r *Resolver) DefaultPlaylistID() string {
	return r.defaultPlaylistID
}

// Resolve returns the content unitIdentity (id or hostname) should play at
// now. Unknown units and missing playlists yield an empty Resolution, not an
// error; only store failures are returned.
func (r *Resolver) Resolve(ctx context.Context, unitIdentity string, now time.Time) (Resolution, error) {
	unit, err := r.store.GetUnit(ctx, unitIdentity)
	if errors.Is(err, db.ErrNotFound) {
		log.Debug().Str("unit", unitIdentity).Msg("resolve: unknown unit")
		return finish(Resolution{Source: SourceNone}), nil
	}
	if err != nil {
		return Resolution{}, fmt.Errorf("resolve unit %q: %w", unitIdentity, err)
	}

	assignments, err := r.store.ListSchedulesForUnit(ctx, unit.ID)
	if err != nil {
		return Resolution{}, fmt.Errorf("resolve schedules for %s: %w", unit.ID, err)
	}

	res := Resolution{UnitID: unit.ID, PlaylistID: r.defaultPlaylistID, Source: SourceDefault}
	if a, ok := SelectAssignment(assignments, now); ok {
		res.PlaylistID = a.PlaylistID
		res.Source = SourceSchedule
	}

	items, err := r.Materialize(ctx, res.PlaylistID)
	if err != nil {
		return Resolution{}, err
	}
	res.Items = items
	return finish(res), nil
}

// Materialize returns the playlist's content in play order with dangling
// references dropped. A missing playlist materializes to an empty list.
func (r *Resolver) Materialize(ctx context.Context, playlistID string) ([]model.MediaContent, error) {
	key := cache.PlaylistKey(playlistID)
	if r.cache != nil {
		if b, err := r.cache.Get(ctx, key); err == nil {
			var items []model.MediaContent
			if err := json.Unmarshal(b, &items); err == nil {
				return items, nil
			}
			log.Warn().Str("key", key).Msg("discarding undecodable cache entry")
		} else if !errors.Is(err, cache.ErrMiss) {
			log.Warn().Err(err).Str("key", key).Msg("playlist cache read failed")
		}
	}

	gen := r.generation(playlistID)
	items, err := r.load(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		r.storeIfCurrent(ctx, playlistID, gen, items)
	}
	return items, nil
}

func (r *Resolver) generation(playlistID string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.generations[playlistID]
}

// storeIfCurrent caches items unless the playlist was invalidated after gen
// was read.
func (r *Resolver) storeIfCurrent(ctx context.Context, playlistID string, gen uint64, items []model.MediaContent) {
	b, err := json.Marshal(items)
	if err != nil {
		return
	}
	key := cache.PlaylistKey(playlistID)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.generations[playlistID] != gen {
		log.Debug().Str("playlist_id", playlistID).Msg("playlist changed during load, not caching")
		return
	}
	if err := r.cache.Set(ctx, key, b, cacheTTL); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("playlist cache write failed")
	}
}

func (r *Resolver) load(ctx context.Context, playlistID string) ([]model.MediaContent, error) {
	pl, err := r.store.GetPlaylist(ctx, playlistID)
	if errors.Is(err, db.ErrNotFound) {
		log.Debug().Str("playlist_id", playlistID).Msg("resolve: playlist missing")
		return []model.MediaContent{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve playlist %s: %w", playlistID, err)
	}

	entries := append([]model.PlaylistItem(nil), pl.Items...)
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Order != entries[j].Order {
			return entries[i].Order < entries[j].Order
		}
		return entries[i].Seq < entries[j].Seq
	})

	ids := make([]string, 0, len(entries))
	for _, it := range entries {
		ids = append(ids, it.ContentID)
	}
	content, err := r.store.GetContentByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve content for %s: %w", playlistID, err)
	}

	items := make([]model.MediaContent, 0, len(entries))
	for _, it := range entries {
		c, ok := content[it.ContentID]
		if !ok {
			log.Debug().Str("playlist_id", playlistID).Str("content_id", it.ContentID).
				Msg("dropping dangling playlist item")
			continue
		}
		items = append(items, c)
	}
	return items, nil
}

// InvalidatePlaylist drops the cached materialization of the given playlists.
func (r *Resolver) InvalidatePlaylist(ctx context.Context, playlistIDs ...string) {
	if r.cache == nil || len(playlistIDs) == 0 {
		return
	}
	keys := make([]string, len(playlistIDs))
	for i, id := range playlistIDs {
		keys[i] = cache.PlaylistKey(id)
	}

	r.mu.Lock()
	for _, id := range playlistIDs {
		r.generations[id]++
	}
	err := r.cache.Del(ctx, keys...)
	r.mu.Unlock()

	if err != nil {
		log.Warn().Err(err).Strs("playlist_ids", playlistIDs).Msg("failed to invalidate playlist cache")
		return
	}
	log.Debug().Strs("playlist_ids", playlistIDs).Msg("invalidated playlist cache")
}

// InvalidateContent drops every playlist that references contentID.
func (r *Resolver) InvalidateContent(ctx context.Context, contentID string) {
	ids, err := r.store.PlaylistsContaining(ctx, contentID)
	if err != nil {
		log.Warn().Err(err).Str("content_id", contentID).Msg("could not find playlists to invalidate")
		return
	}
	r.InvalidatePlaylist(ctx, ids...)
}

func finish(res Resolution) Resolution {
	if res.Items == nil {
		res.Items = []model.MediaContent{}
	}
	res.Version = Version(res.PlaylistID, res.Items)
	return res
}

// Version hashes the parts of a resolution a player renders.
func Version(playlistID string, items []model.MediaContent) string {
	h := sha256.New()
	h.Write([]byte(playlistID))
	for _, it := range items {
		h.Write([]byte{0})
		h.Write([]byte(it.ID))
		h.Write([]byte{0})
		h.Write([]byte(it.Type))
		h.Write([]byte{0})
		h.Write([]byte(it.URL))
		h.Write([]byte{0})
		h.Write([]byte(strconv.Itoa(it.DurationSec)))
	}
	return hex.EncodeToString(h.Sum(nil))
}
