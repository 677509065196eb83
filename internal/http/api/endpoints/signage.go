package endpoints

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/signage/internal/db"
	"github.com/Nixie-Tech-LLC/signage/internal/heartbeat"
	"github.com/Nixie-Tech-LLC/signage/internal/http/api"
	"github.com/Nixie-Tech-LLC/signage/internal/http/api/packets"
	"github.com/Nixie-Tech-LLC/signage/internal/model"
	"github.com/Nixie-Tech-LLC/signage/internal/schedule"
)

type SignageController struct {
	store     db.Store
	resolver  *schedule.Resolver
	heartbeat *heartbeat.Service
}

func newSignageController(store db.Store, resolver *schedule.Resolver, hb *heartbeat.Service) *SignageController {
	return &SignageController{store: store, resolver: resolver, heartbeat: hb}
}

// SignageModule mounts the unit registry. Every :id accepts an id or a
// hostname.
func SignageModule(store db.Store) api.Module {
	ctl := newSignageController(store, nil, nil)
	return api.ModuleFunc(func(c *api.Controller) {
		c.GET("/signage", ctl.listUnits)
		c.POST("/signage", ctl.createUnit)
		c.GET("/signage/:id", ctl.getUnit)
		c.PUT("/signage/:id", ctl.updateUnit)
		c.DELETE("/signage/:id", ctl.deleteUnit)
	})
}

// DeviceModule mounts the endpoints polled by the displays themselves. They
// stay unauthenticated even when the admin API requires a token.
func DeviceModule(store db.Store, resolver *schedule.Resolver, hb *heartbeat.Service) api.Module {
	ctl := newSignageController(store, resolver, hb)
	return api.ModuleFunc(func(c *api.Controller) {
		c.POST("/signage/:id/heartbeat", ctl.recordHeartbeat)
		c.GET("/signage/:id/playlist", ctl.resolvePlaylist)
	})
}

// GET /api/signage
func (s *SignageController) listUnits(ctx *gin.Context) (any, *api.APIError) {
	units, err := s.store.ListUnits(ctx.Request.Context())
	if err != nil {
		return nil, api.StoreError(err, "could not list units")
	}
	return units, nil
}

// POST /api/signage
func (s *SignageController) createUnit(ctx *gin.Context) (any, *api.APIError) {
	var req packets.CreateUnitRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		return nil, api.NewError(http.StatusBadRequest, err.Error())
	}

	unit, err := s.store.CreateUnit(ctx.Request.Context(), model.SignageUnit{
		Hostname:   strings.TrimSpace(req.Hostname),
		MACAddress: req.MACAddress,
		Location:   req.Location,
		Resolution: req.Resolution,
		Status:     model.UnitStatus(req.Status),
	})
	if errors.Is(err, db.ErrConflict) {
		return nil, api.NewError(http.StatusConflict, "hostname already registered")
	}
	if err != nil {
		return nil, api.StoreError(err, "could not create unit")
	}
	log.Info().Str("unit_id", unit.ID).Str("hostname", unit.Hostname).Msg("[signage] unit registered")
	return api.WithStatus(http.StatusCreated, unit), nil
}

// GET /api/signage/:id
func (s *SignageController) getUnit(ctx *gin.Context) (any, *api.APIError) {
	unit, err := s.store.GetUnit(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		return nil, api.StoreError(err, "could not get unit")
	}
	return unit, nil
}

// PUT /api/signage/:id
func (s *SignageController) updateUnit(ctx *gin.Context) (any, *api.APIError) {
	var req packets.UpdateUnitRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		return nil, api.NewError(http.StatusBadRequest, err.Error())
	}

	existing, err := s.store.GetUnit(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		return nil, api.StoreError(err, "could not get unit")
	}

	update := db.UnitUpdate{
		Hostname:   req.Hostname,
		MACAddress: req.MACAddress,
		Location:   req.Location,
		Resolution: req.Resolution,
	}
	if req.Status != nil {
		status := model.UnitStatus(*req.Status)
		update.Status = &status
	}

	unit, err := s.store.UpdateUnit(ctx.Request.Context(), existing.ID, update)
	if errors.Is(err, db.ErrConflict) {
		return nil, api.NewError(http.StatusConflict, "hostname already registered")
	}
	if err != nil {
		return nil, api.StoreError(err, "could not update unit")
	}
	return unit, nil
}

// DELETE /api/signage/:id
func (s *SignageController) deleteUnit(ctx *gin.Context) (any, *api.APIError) {
	existing, err := s.store.GetUnit(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		return nil, api.StoreError(err, "could not get unit")
	}
	if err := s.store.DeleteUnit(ctx.Request.Context(), existing.ID); err != nil {
		return nil, api.StoreError(err, "could not delete unit")
	}
	log.Info().Str("unit_id", existing.ID).Msg("[signage] unit deleted")
	return api.NoContent(), nil
}

// POST /api/signage/:id/heartbeat
func (s *SignageController) recordHeartbeat(ctx *gin.Context) (any, *api.APIError) {
	// the body is optional
	var req packets.HeartbeatRequest
	if err := ctx.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		return nil, api.NewError(http.StatusBadRequest, err.Error())
	}

	unit, err := s.heartbeat.Record(ctx.Request.Context(), ctx.Param("id"), req.CurrentPlaylistID)
	if err != nil {
		return nil, api.StoreError(err, "could not record heartbeat")
	}
	return unit, nil
}

// GET /api/signage/:id/playlist?at=RFC3339
//
// Unknown units get an empty resolution rather than 404 so a freshly
// installed display shows its empty state.
func (s *SignageController) resolvePlaylist(ctx *gin.Context) (any, *api.APIError) {
	at := time.Now().UTC()
	if raw := ctx.Query("at"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, api.NewError(http.StatusBadRequest, "at must be an RFC3339 timestamp")
		}
		at = t.UTC()
	}

	res, err := s.resolver.Resolve(ctx.Request.Context(), ctx.Param("id"), at)
	if err != nil {
		log.Error().Err(err).Str("unit", ctx.Param("id")).Msg("[signage] resolve failed")
		return nil, api.NewError(http.StatusInternalServerError, "could not resolve playlist")
	}

	ctx.Header("ETag", `"`+res.Version+`"`)
	ctx.Header("Cache-Control", "no-cache")

	inm := ctx.GetHeader("If-None-Match")
	if inm == "" {
		inm = ctx.GetHeader("X-If-None-Match")
	}
	if etagMatches(inm, res.Version) {
		ctx.AbortWithStatus(http.StatusNotModified)
		return nil, nil
	}
	return res, nil
}

// etagMatches reports whether an If-None-Match header lists version. Weak
// validators compare equal to strong ones.
func etagMatches(header, version string) bool {
	if header == "" {
		return false
	}
	for _, tag := range strings.Split(header, ",") {
		tag = strings.TrimSpace(tag)
		if tag == "*" {
			return true
		}
		tag = strings.TrimPrefix(tag, "W/")
		if strings.Trim(tag, `"`) == version {
			return true
		}
	}
	return false
}
