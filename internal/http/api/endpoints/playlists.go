package endpoints

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/signage/internal/db"
	"github.com/Nixie-Tech-LLC/signage/internal/http/api"
	"github.com/Nixie-Tech-LLC/signage/internal/http/api/packets"
	"github.com/Nixie-Tech-LLC/signage/internal/model"
	"github.com/Nixie-Tech-LLC/signage/internal/schedule"
)

type PlaylistController struct {
	store    db.Store
	resolver *schedule.Resolver
}

func newPlaylistController(store db.Store, resolver *schedule.Resolver) *PlaylistController {
	return &PlaylistController{store: store, resolver: resolver}
}

// PlaylistModule mounts all /playlists endpoints.
func PlaylistModule(store db.Store, resolver *schedule.Resolver) api.Module {
	ctl := newPlaylistController(store, resolver)
	return api.ModuleFunc(func(c *api.Controller) {
		c.GET("/playlists", ctl.listPlaylists)
		c.POST("/playlists", ctl.createPlaylist)
		c.GET("/playlists/:id", ctl.getPlaylist)
		c.DELETE("/playlists/:id", ctl.deletePlaylist)

		c.POST("/playlists/:id/items", ctl.addItem)
		c.DELETE("/playlists/:id/items/:content_id", ctl.removeItem)
	})
}

func (p *PlaylistController) listPlaylists(ctx *gin.Context) (any, *api.APIError) {
	all, err := p.store.ListPlaylists(ctx.Request.Context())
	if err != nil {
		log.Error().Err(err).Msg("[playlist] list: could not list playlists")
		return nil, api.StoreError(err, "could not list playlists")
	}
	return all, nil
}

func (p *PlaylistController) getPlaylist(ctx *gin.Context) (any, *api.APIError) {
	pl, err := p.store.GetPlaylist(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		return nil, api.StoreError(err, "could not get playlist")
	}
	return pl, nil
}

// checkContent rejects content ids that do not exist at creation time.
func (p *PlaylistController) checkContent(ctx context.Context, ids ...string) *api.APIError {
	found, err := p.store.GetContentByIDs(ctx, ids)
	if err != nil {
		return api.StoreError(err, "could not load content")
	}
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			return api.NewError(http.StatusBadRequest, fmt.Sprintf("unknown content id %q", id))
		}
	}
	return nil
}

func (p *PlaylistController) createPlaylist(ctx *gin.Context) (any, *api.APIError) {
	var req packets.CreatePlaylistRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		log.Error().Err(err).Msg("[playlist] create: bad request")
		return nil, api.NewError(http.StatusBadRequest, err.Error())
	}

	pl := model.Playlist{Name: req.Name}
	ids := make([]string, 0, len(req.Items))
	for _, it := range req.Items {
		pl.Items = append(pl.Items, model.PlaylistItem{ContentID: it.ContentID, Order: it.Order})
		ids = append(ids, it.ContentID)
	}
	if apiErr := p.checkContent(ctx.Request.Context(), ids...); apiErr != nil {
		return nil, apiErr
	}

	created, err := p.store.CreatePlaylist(ctx.Request.Context(), pl)
	if err != nil {
		log.Error().Err(err).Msg("[playlist] create: could not create playlist")
		return nil, api.StoreError(err, "could not create playlist")
	}
	return api.WithStatus(http.StatusCreated, created), nil
}

// DELETE /api/playlists/:id
//
// Schedules pointing at the playlist are kept and resolve to an empty list.
func (p *PlaylistController) deletePlaylist(ctx *gin.Context) (any, *api.APIError) {
	id := ctx.Param("id")
	if err := p.store.DeletePlaylist(ctx.Request.Context(), id); err != nil {
		return nil, api.StoreError(err, "could not delete playlist")
	}
	p.resolver.InvalidatePlaylist(ctx.Request.Context(), id)
	log.Info().Str("playlist_id", id).Msg("[playlist] deleted")
	return api.NoContent(), nil
}

func (p *PlaylistController) addItem(ctx *gin.Context) (any, *api.APIError) {
	var req packets.AddPlaylistItemRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		return nil, api.NewError(http.StatusBadRequest, err.Error())
	}
	if apiErr := p.checkContent(ctx.Request.Context(), req.ContentID); apiErr != nil {
		return nil, apiErr
	}

	id := ctx.Param("id")
	if _, err := p.store.AddPlaylistItem(ctx.Request.Context(), id, req.ContentID, req.Order); err != nil {
		return nil, api.StoreError(err, "could not add item")
	}
	p.resolver.InvalidatePlaylist(ctx.Request.Context(), id)

	pl, err := p.store.GetPlaylist(ctx.Request.Context(), id)
	if err != nil {
		return nil, api.StoreError(err, "could not get playlist")
	}
	return api.WithStatus(http.StatusCreated, pl), nil
}

func (p *PlaylistController) removeItem(ctx *gin.Context) (any, *api.APIError) {
	id := ctx.Param("id")
	if err := p.store.RemovePlaylistItem(ctx.Request.Context(), id, ctx.Param("content_id")); err != nil {
		return nil, api.StoreError(err, "could not remove item")
	}
	p.resolver.InvalidatePlaylist(ctx.Request.Context(), id)

	pl, err := p.store.GetPlaylist(ctx.Request.Context(), id)
	if err != nil {
		return nil, api.StoreError(err, "could not get playlist")
	}
	return pl, nil
}
