package db

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/signage/internal/model"
)

const unitColumns = `id, hostname, mac_address, location, resolution, status,
	last_heartbeat, current_playlist_id, created_at, updated_at`

func (s *sqlStore) ListUnits(ctx context.Context) ([]model.SignageUnit, error) {
	units := []model.SignageUnit{}
	err := s.db.SelectContext(ctx, &units, `SELECT `+unitColumns+` FROM signage_units ORDER BY created_at, id`)
	if err != nil {
		log.Error().Err(err).Msg("failed to list units")
		return nil, err
	}
	return units, nil
}

// GetUnit resolves either key. An id match wins over a hostname match so a
// hostname that happens to equal another unit's id cannot shadow it.
func (s *sqlStore) GetUnit(ctx context.Context, idOrHostname string) (model.SignageUnit, error) {
	var unit model.SignageUnit
	err := s.db.GetContext(ctx, &unit, s.q(`
		SELECT `+unitColumns+`
		FROM signage_units
		WHERE id = ? OR hostname = ?
		ORDER BY CASE WHEN id = ? THEN 0 ELSE 1 END
		LIMIT 1`), idOrHostname, idOrHostname, idOrHostname)
	if err != nil {
		err = notFound(err)
		if !errors.Is(err, ErrNotFound) {
			log.Error().Err(err).Str("unit", idOrHostname).Msg("failed to get unit")
		}
		return model.SignageUnit{}, err
	}
	return unit, nil
}

// hostnameOwner returns the id of the unit registered under hostname. Unlike
// GetUnit it never matches on id.
func (s *sqlStore) hostnameOwner(ctx context.Context, hostname string) (string, error) {
	var id string
	err := s.db.GetContext(ctx, &id, s.q(`SELECT id FROM signage_units WHERE hostname = ?`), hostname)
	if err != nil {
		return "", notFound(err)
	}
	return id, nil
}

// CreateUnit returns ErrConflict when the hostname or the id is taken.
func (s *sqlStore) CreateUnit(ctx context.Context, unit model.SignageUnit) (model.SignageUnit, error) {
	if _, err := s.hostnameOwner(ctx, unit.Hostname); err == nil {
		return model.SignageUnit{}, ErrConflict
	} else if !errors.Is(err, ErrNotFound) {
		return model.SignageUnit{}, err
	}

	now := s.now()
	if unit.ID == "" {
		unit.ID = newID("sig")
	}
	if unit.Status == "" {
		unit.Status = model.StatusOffline
	}
	unit.CreatedAt = now
	unit.UpdatedAt = now

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO signage_units (`+unitColumns+`)
		VALUES (:id, :hostname, :mac_address, :location, :resolution, :status,
			:last_heartbeat, :current_playlist_id, :created_at, :updated_at)`, unit)
	if isUniqueViolation(err) {
		return model.SignageUnit{}, ErrConflict
	}
	if err != nil {
		log.Error().Err(err).Str("hostname", unit.Hostname).Msg("failed to create unit")
		return model.SignageUnit{}, err
	}
	return unit, nil
}

func (s *sqlStore) UpdateUnit(ctx context.Context, id string, update UnitUpdate) (model.SignageUnit, error) {
	unit, err := s.GetUnit(ctx, id)
	if err != nil {
		return model.SignageUnit{}, err
	}
	if update.Hostname != nil && *update.Hostname != unit.Hostname {
		owner, err := s.hostnameOwner(ctx, *update.Hostname)
		if err == nil && owner != unit.ID {
			return model.SignageUnit{}, ErrConflict
		}
		if err != nil && !errors.Is(err, ErrNotFound) {
			return model.SignageUnit{}, err
		}
		unit.Hostname = *update.Hostname
	}
	if update.MACAddress != nil {
		unit.MACAddress = *update.MACAddress
	}
	if update.Location != nil {
		unit.Location = *update.Location
	}
	if update.Resolution != nil {
		unit.Resolution = *update.Resolution
	}
	if update.Status != nil {
		unit.Status = *update.Status
	}
	unit.UpdatedAt = s.now()

	_, err = s.db.NamedExecContext(ctx, `
		UPDATE signage_units
		SET hostname = :hostname,
		mac_address = :mac_address,
		location = :location,
		resolution = :resolution,
		status = :status,
		updated_at = :updated_at
		WHERE id = :id`, unit)
	if isUniqueViolation(err) {
		return model.SignageUnit{}, ErrConflict
	}
	if err != nil {
		log.Error().Err(err).Str("unit_id", unit.ID).Msg("failed to update unit")
		return model.SignageUnit{}, err
	}
	return unit, nil
}

func (s *sqlStore) DeleteUnit(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM signage_units WHERE id = ?`), id)
	if err != nil {
		log.Error().Err(err).Str("unit_id", id).Msg("failed to delete unit")
		return err
	}
	return expectAffected(res)
}

// RecordHeartbeat stamps the unit as ONLINE. Units under MAINTENANCE keep
// their status; a heartbeat is still recorded.
func (s *sqlStore) RecordHeartbeat(ctx context.Context, id string, at time.Time, currentPlaylistID *string) (model.SignageUnit, error) {
	unit, err := s.GetUnit(ctx, id)
	if err != nil {
		return model.SignageUnit{}, err
	}

	at = at.UTC()
	unit.LastHeartbeat = &at
	if unit.Status != model.StatusMaintenance {
		unit.Status = model.StatusOnline
	}
	if currentPlaylistID != nil {
		unit.CurrentPlaylistID = currentPlaylistID
	}
	unit.UpdatedAt = s.now()

	_, err = s.db.NamedExecContext(ctx, `
		UPDATE signage_units
		SET status = :status,
		last_heartbeat = :last_heartbeat,
		current_playlist_id = :current_playlist_id,
		updated_at = :updated_at
		WHERE id = :id`, unit)
	if err != nil {
		log.Error().Err(err).Str("unit_id", unit.ID).Msg("failed to record heartbeat")
		return model.SignageUnit{}, err
	}
	return unit, nil
}

// MarkStaleUnitsOffline flips ONLINE units whose last heartbeat is older
// than before (or missing) to OFFLINE and returns how many changed.
func (s *sqlStore) MarkStaleUnitsOffline(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.q(`
		UPDATE signage_units
		SET status = ?, updated_at = ?
		WHERE status = ?
		AND (last_heartbeat IS NULL OR last_heartbeat < ?)`),
		model.StatusOffline, s.now(), model.StatusOnline, before.UTC())
	if err != nil {
		log.Error().Err(err).Msg("failed to mark stale units offline")
		return 0, err
	}
	return res.RowsAffected()
}
