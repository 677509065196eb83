package db

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/signage/internal/model"
)

func (s *sqlStore) ListPlaylists(ctx context.Context) ([]model.Playlist, error) {
	out := []model.Playlist{}
	if err := s.db.SelectContext(ctx, &out, `SELECT id, name, created_at FROM playlists ORDER BY created_at, id`); err != nil {
		log.Error().Err(err).Msg("[db] ListPlaylists: failed to select playlists")
		return nil, err
	}

	for i := range out {
		items, err := s.listPlaylistItems(ctx, out[i].ID)
		if err != nil {
			log.Error().Err(err).Str("playlist_id", out[i].ID).Msg("[db] ListPlaylists: failed to load items")
			return nil, err
		}
		out[i].Items = items
	}
	return out, nil
}

func (s *sqlStore) GetPlaylist(ctx context.Context, id string) (model.Playlist, error) {
	var p model.Playlist
	err := s.db.GetContext(ctx, &p, s.q(`SELECT id, name, created_at FROM playlists WHERE id = ?`), id)
	if err != nil {
		err = notFound(err)
		if !errors.Is(err, ErrNotFound) {
			log.Error().Err(err).Str("playlist_id", id).Msg("failed to get playlist by id")
		}
		return model.Playlist{}, err
	}

	items, err := s.listPlaylistItems(ctx, id)
	if err != nil {
		return model.Playlist{}, err
	}
	p.Items = items
	return p, nil
}

// listPlaylistItems returns items by order, equal orders in insertion order.
func (s *sqlStore) listPlaylistItems(ctx context.Context, playlistID string) ([]model.PlaylistItem, error) {
	items := []model.PlaylistItem{}
	err := s.db.SelectContext(ctx, &items, s.q(`
		SELECT playlist_id, content_id, position, seq
		FROM playlist_items
		WHERE playlist_id = ?
		ORDER BY position, seq`), playlistID)
	if err != nil {
		log.Error().Err(err).Str("playlist_id", playlistID).Msg("failed to list playlist items")
		return nil, err
	}
	return items, nil
}

// CreatePlaylist inserts the playlist and its items in one transaction.
func (s *sqlStore) CreatePlaylist(ctx context.Context, p model.Playlist) (model.Playlist, error) {
	if p.ID == "" {
		p.ID = newID("pl")
	}
	p.CreatedAt = s.now()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return model.Playlist{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.NamedExecContext(ctx, `
		INSERT INTO playlists (id, name, created_at)
		VALUES (:id, :name, :created_at)`, p); err != nil {
		log.Error().Err(err).Str("name", p.Name).Msg("[db] CreatePlaylist: failed to insert playlist")
		return model.Playlist{}, err
	}

	for i := range p.Items {
		p.Items[i].PlaylistID = p.ID
		if _, err = tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO playlist_items (playlist_id, content_id, position)
			VALUES (?, ?, ?)`), p.ID, p.Items[i].ContentID, p.Items[i].Order); err != nil {
			log.Error().Err(err).Str("playlist_id", p.ID).Msg("[db] CreatePlaylist: failed to insert item")
			return model.Playlist{}, err
		}
	}

	if err = tx.Commit(); err != nil {
		return model.Playlist{}, err
	}
	return s.GetPlaylist(ctx, p.ID)
}

// DeletePlaylist removes the playlist and its items. Schedules pointing at
// it are kept and resolve to an empty list.
func (s *sqlStore) DeletePlaylist(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, s.q(`DELETE FROM playlist_items WHERE playlist_id = ?`), id); err != nil {
		log.Error().Err(err).Str("playlist_id", id).Msg("failed to delete playlist items")
		return err
	}
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM playlists WHERE id = ?`), id)
	if err != nil {
		log.Error().Err(err).Str("playlist_id", id).Msg("failed to delete playlist")
		return err
	}
	return expectAffected(res)
}

func (s *sqlStore) AddPlaylistItem(ctx context.Context, playlistID, contentID string, order int) (model.PlaylistItem, error) {
	if _, err := s.GetPlaylist(ctx, playlistID); err != nil {
		return model.PlaylistItem{}, err
	}

	item := model.PlaylistItem{PlaylistID: playlistID, ContentID: contentID, Order: order}
	if _, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO playlist_items (playlist_id, content_id, position)
		VALUES (?, ?, ?)`), playlistID, contentID, order); err != nil {
		log.Error().Err(err).Str("playlist_id", playlistID).Str("content_id", contentID).
			Msg("failed to add item to playlist")
		return model.PlaylistItem{}, err
	}
	return item, nil
}

// RemovePlaylistItem drops every occurrence of contentID from the playlist.
func (s *sqlStore) RemovePlaylistItem(ctx context.Context, playlistID, contentID string) error {
	res, err := s.db.ExecContext(ctx, s.q(`
		DELETE FROM playlist_items WHERE playlist_id = ? AND content_id = ?`), playlistID, contentID)
	if err != nil {
		log.Error().Err(err).Str("playlist_id", playlistID).Str("content_id", contentID).
			Msg("failed to remove playlist item")
		return err
	}
	return expectAffected(res)
}

// PlaylistsContaining lists playlist ids that reference contentID.
func (s *sqlStore) PlaylistsContaining(ctx context.Context, contentID string) ([]string, error) {
	ids := []string{}
	err := s.db.SelectContext(ctx, &ids, s.q(`
		SELECT DISTINCT playlist_id FROM playlist_items WHERE content_id = ? ORDER BY playlist_id`), contentID)
	if err != nil {
		log.Error().Err(err).Str("content_id", contentID).Msg("failed to find playlists for content")
		return nil, err
	}
	return ids, nil
}
