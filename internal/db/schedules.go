package db

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/signage/internal/model"
)

const scheduleColumns = `id, signage_id, playlist_id, start_time, end_time, priority, created_at`

func (s *sqlStore) ListSchedules(ctx context.Context) ([]model.ScheduleAssignment, error) {
	out := []model.ScheduleAssignment{}
	if err := s.db.SelectContext(ctx, &out, `SELECT `+scheduleColumns+` FROM schedule_assignments ORDER BY start_time, id`); err != nil {
		log.Error().Err(err).Msg("ListSchedules failed")
		return nil, err
	}
	return out, nil
}

// ListSchedulesForUnit returns the unit's assignments in creation order.
func (s *sqlStore) ListSchedulesForUnit(ctx context.Context, unitID string) ([]model.ScheduleAssignment, error) {
	out := []model.ScheduleAssignment{}
	err := s.db.SelectContext(ctx, &out, s.q(`
		SELECT `+scheduleColumns+`
		FROM schedule_assignments
		WHERE signage_id = ?
		ORDER BY created_at, id`), unitID)
	if err != nil {
		log.Error().Err(err).Str("unit_id", unitID).Msg("ListSchedulesForUnit failed")
		return nil, err
	}
	return out, nil
}

func (s *sqlStore) GetSchedule(ctx context.Context, id string) (model.ScheduleAssignment, error) {
	var sc model.ScheduleAssignment
	err := s.db.GetContext(ctx, &sc, s.q(`SELECT `+scheduleColumns+` FROM schedule_assignments WHERE id = ?`), id)
	if err != nil {
		err = notFound(err)
		if !errors.Is(err, ErrNotFound) {
			log.Error().Err(err).Str("schedule_id", id).Msg("GetSchedule failed")
		}
		return model.ScheduleAssignment{}, err
	}
	return sc, nil
}

func (s *sqlStore) CreateSchedule(ctx context.Context, sc model.ScheduleAssignment) (model.ScheduleAssignment, error) {
	if sc.ID == "" {
		sc.ID = newID("sch")
	}
	if sc.Priority == 0 {
		sc.Priority = model.PriorityNormal
	}
	if sc.CreatedAt.IsZero() {
		sc.CreatedAt = s.now()
	}
	sc.StartTime = sc.StartTime.UTC()
	sc.EndTime = sc.EndTime.UTC()

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO schedule_assignments (`+scheduleColumns+`)
		VALUES (:id, :signage_id, :playlist_id, :start_time, :end_time, :priority, :created_at)`, sc)
	if err != nil {
		log.Error().Err(err).Str("signage_id", sc.SignageID).Str("playlist_id", sc.PlaylistID).
			Msg("CreateSchedule failed")
		return model.ScheduleAssignment{}, err
	}
	return sc, nil
}

func (s *sqlStore) DeleteSchedule(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM schedule_assignments WHERE id = ?`), id)
	if err != nil {
		log.Error().Err(err).Str("schedule_id", id).Msg("DeleteSchedule failed")
		return err
	}
	return expectAffected(res)
}
