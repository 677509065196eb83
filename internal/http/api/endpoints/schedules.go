package endpoints

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/signage/internal/db"
	"github.com/Nixie-Tech-LLC/signage/internal/http/api"
	"github.com/Nixie-Tech-LLC/signage/internal/http/api/packets"
	"github.com/Nixie-Tech-LLC/signage/internal/model"
)

type ScheduleController struct {
	store db.Store
}

func NewScheduleController(store db.Store) *ScheduleController {
	return &ScheduleController{store: store}
}

func ScheduleModule(store db.Store) api.Module {
	ctl := NewScheduleController(store)
	return api.ModuleFunc(func(c *api.Controller) {
		c.GET("/schedule", ctl.listSchedules)
		c.POST("/schedule", ctl.createSchedule)
		c.DELETE("/schedule/:id", ctl.deleteSchedule)
	})
}

// GET /api/schedule[?signage_id=]
func (s *ScheduleController) listSchedules(ctx *gin.Context) (any, *api.APIError) {
	if unit := ctx.Query("signage_id"); unit != "" {
		u, err := s.store.GetUnit(ctx.Request.Context(), unit)
		if err != nil {
			return nil, api.StoreError(err, "could not get unit")
		}
		list, err := s.store.ListSchedulesForUnit(ctx.Request.Context(), u.ID)
		if err != nil {
			return nil, api.StoreError(err, "failed to list schedules")
		}
		return list, nil
	}

	list, err := s.store.ListSchedules(ctx.Request.Context())
	if err != nil {
		return nil, api.StoreError(err, "failed to list schedules")
	}
	return list, nil
}

// POST /api/schedule
//
// signage_id may be a hostname; the stored assignment always carries the
// unit id.
func (s *ScheduleController) createSchedule(ctx *gin.Context) (any, *api.APIError) {
	var request packets.CreateScheduleRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, api.NewError(http.StatusBadRequest, err.Error())
	}
	if request.EndTime.Before(request.StartTime) {
		return nil, api.NewError(http.StatusBadRequest, "end_time must not be before start_time")
	}

	unit, err := s.store.GetUnit(ctx.Request.Context(), request.SignageID)
	if err != nil {
		return nil, api.StoreError(err, "could not get unit")
	}
	if _, err := s.store.GetPlaylist(ctx.Request.Context(), request.PlaylistID); err != nil {
		return nil, api.StoreError(err, "could not get playlist")
	}

	sc, err := s.store.CreateSchedule(ctx.Request.Context(), model.ScheduleAssignment{
		SignageID:  unit.ID,
		PlaylistID: request.PlaylistID,
		StartTime:  request.StartTime,
		EndTime:    request.EndTime,
		Priority:   request.Priority,
	})
	if err != nil {
		return nil, api.StoreError(err, "could not create schedule")
	}

	log.Info().Str("schedule_id", sc.ID).Str("signage_id", sc.SignageID).Str("playlist_id", sc.PlaylistID).
		Int("priority", sc.Priority).Msg("[schedule] created")
	return api.WithStatus(http.StatusCreated, sc), nil
}

func (s *ScheduleController) deleteSchedule(ctx *gin.Context) (any, *api.APIError) {
	if err := s.store.DeleteSchedule(ctx.Request.Context(), ctx.Param("id")); err != nil {
		return nil, api.StoreError(err, "could not delete schedule")
	}
	return api.NoContent(), nil
}
