package db

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/signage/internal/model"
)

const contentColumns = `id, title, type, url, duration_sec, mime_type, size_bytes, created_at, created_by`

// ListContent returns the library newest first, matching the upload view.
func (s *sqlStore) ListContent(ctx context.Context) ([]model.MediaContent, error) {
	all := []model.MediaContent{}
	if err := s.db.SelectContext(ctx, &all, `SELECT `+contentColumns+` FROM media_content ORDER BY created_at DESC, id`); err != nil {
		log.Error().Err(err).Msg("failed to list content")
		return nil, err
	}
	return all, nil
}

func (s *sqlStore) GetContent(ctx context.Context, id string) (model.MediaContent, error) {
	var c model.MediaContent
	err := s.db.GetContext(ctx, &c, s.q(`SELECT `+contentColumns+` FROM media_content WHERE id = ?`), id)
	if err != nil {
		err = notFound(err)
		if !errors.Is(err, ErrNotFound) {
			log.Error().Err(err).Str("content_id", id).Msg("failed to get content by id")
		}
		return model.MediaContent{}, err
	}
	return c, nil
}

// GetContentByIDs loads every listed item that still exists; missing ids
// are simply absent from the map.
func (s *sqlStore) GetContentByIDs(ctx context.Context, ids []string) (map[string]model.MediaContent, error) {
	out := make(map[string]model.MediaContent, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	query, args, err := sqlx.In(`SELECT `+contentColumns+` FROM media_content WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	var rows []model.MediaContent
	if err := s.db.SelectContext(ctx, &rows, s.q(query), args...); err != nil {
		log.Error().Err(err).Int("ids", len(ids)).Msg("failed to load content batch")
		return nil, err
	}
	for _, c := range rows {
		out[c.ID] = c
	}
	return out, nil
}

func (s *sqlStore) CreateContent(ctx context.Context, c model.MediaContent) (model.MediaContent, error) {
	if c.ID == "" {
		c.ID = newID("c")
	}
	if c.DurationSec <= 0 {
		c.DurationSec = model.DefaultDurationSec
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
	}

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO media_content (`+contentColumns+`)
		VALUES (:id, :title, :type, :url, :duration_sec, :mime_type, :size_bytes, :created_at, :created_by)`, c)
	if err != nil {
		log.Error().Err(err).Str("title", c.Title).Msg("failed to create content")
		return model.MediaContent{}, err
	}
	return c, nil
}

// DeleteContent removes the item only; playlist references are left in
// place.
func (s *sqlStore) DeleteContent(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM media_content WHERE id = ?`), id)
	if err != nil {
		log.Error().Err(err).Str("content_id", id).Msg("failed to delete content")
		return err
	}
	return expectAffected(res)
}

func (s *sqlStore) TotalContentSize(ctx context.Context) (int64, error) {
	var total int64
	if err := s.db.GetContext(ctx, &total, `SELECT COALESCE(SUM(size_bytes), 0) FROM media_content`); err != nil {
		log.Error().Err(err).Msg("failed to sum content size")
		return 0, err
	}
	return total, nil
}
