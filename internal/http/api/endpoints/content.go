package endpoints

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/signage/internal/db"
	"github.com/Nixie-Tech-LLC/signage/internal/http/api"
	"github.com/Nixie-Tech-LLC/signage/internal/http/middleware"
	"github.com/Nixie-Tech-LLC/signage/internal/media"
	"github.com/Nixie-Tech-LLC/signage/internal/model"
	"github.com/Nixie-Tech-LLC/signage/internal/schedule"
	"github.com/Nixie-Tech-LLC/signage/internal/storage"
)

const defaultUploader = "admin"

type ContentController struct {
	store    db.Store
	storage  storage.Storage
	resolver *schedule.Resolver
}

func newContentController(store db.Store, storage storage.Storage, resolver *schedule.Resolver) *ContentController {
	return &ContentController{store: store, storage: storage, resolver: resolver}
}

// ContentModule mounts all /content endpoints
func ContentModule(store db.Store, storage storage.Storage, resolver *schedule.Resolver) api.Module {
	ctl := newContentController(store, storage, resolver)
	return api.ModuleFunc(func(c *api.Controller) {
		c.GET("/content", ctl.listContent)
		c.POST("/content", ctl.uploadContent)
		c.GET("/content/:id", ctl.getContent)
		c.DELETE("/content/:id", ctl.deleteContent)
	})
}

func (c *ContentController) listContent(ctx *gin.Context) (any, *api.APIError) {
	all, err := c.store.ListContent(ctx.Request.Context())
	if err != nil {
		return nil, api.StoreError(err, "could not list content")
	}
	return all, nil
}

func (c *ContentController) getContent(ctx *gin.Context) (any, *api.APIError) {
	x, err := c.store.GetContent(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		return nil, api.StoreError(err, "could not get content")
	}
	return x, nil
}

// POST /api/content (multipart: file, title, duration_sec)
//
// The file is validated before anything is written; a rejected upload
// leaves both the store and the upload directory untouched.
func (c *ContentController) uploadContent(ctx *gin.Context) (any, *api.APIError) {
	fh, err := ctx.FormFile("file")
	if err != nil {
		log.Warn().Err(err).Msg("[content] upload without file")
		return nil, api.NewError(http.StatusBadRequest, "file is required")
	}

	info, err := media.Inspect(fh)
	if errors.Is(err, media.ErrUnsupportedMediaType) {
		log.Warn().Str("filename", fh.Filename).Err(err).Msg("[content] rejected upload")
		return nil, api.NewError(http.StatusUnsupportedMediaType, "only image and video files can be uploaded")
	}
	if err != nil {
		return nil, api.NewError(http.StatusBadRequest, "could not read uploaded file")
	}

	duration := model.DefaultDurationSec
	if raw := strings.TrimSpace(ctx.PostForm("duration_sec")); raw != "" {
		duration, err = strconv.Atoi(raw)
		if err != nil || duration <= 0 {
			return nil, api.NewError(http.StatusBadRequest, "duration_sec must be a positive integer")
		}
	}

	title := strings.TrimSpace(ctx.PostForm("title"))
	if title == "" {
		title = fh.Filename
	}

	createdBy := defaultUploader
	if user, ok := middleware.GetCurrentUser(ctx); ok {
		createdBy = user.Username
	}

	url, err := c.storage.SaveFile(ctx.Request.Context(), fh, fh.Filename, info.MimeType)
	if err != nil {
		log.Error().Err(err).Str("filename", fh.Filename).Msg("[content] could not store upload")
		return nil, api.NewError(http.StatusInternalServerError, "could not store file")
	}

	content, err := c.store.CreateContent(ctx.Request.Context(), model.MediaContent{
		Title:       title,
		Type:        info.Type,
		URL:         url,
		DurationSec: duration,
		MimeType:    info.MimeType,
		SizeBytes:   info.Size,
		CreatedBy:   createdBy,
	})
	if err != nil {
		if derr := c.storage.DeleteFile(ctx.Request.Context(), url); derr != nil {
			log.Warn().Err(derr).Str("url", url).Msg("[content] could not remove orphaned upload")
		}
		return nil, api.StoreError(err, "could not create content")
	}

	log.Info().Str("content_id", content.ID).Str("type", string(content.Type)).
		Int64("size_bytes", content.SizeBytes).Msg("[content] uploaded")
	return api.WithStatus(http.StatusCreated, content), nil
}

// DELETE /api/content/:id
//
// Playlist items that reference the content stay in place and are dropped
// at resolve time.
func (c *ContentController) deleteContent(ctx *gin.Context) (any, *api.APIError) {
	x, err := c.store.GetContent(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		return nil, api.StoreError(err, "could not get content")
	}
	if err := c.store.DeleteContent(ctx.Request.Context(), x.ID); err != nil {
		return nil, api.StoreError(err, "could not delete content")
	}
	c.resolver.InvalidateContent(ctx.Request.Context(), x.ID)

	if err := c.storage.DeleteFile(ctx.Request.Context(), x.URL); err != nil {
		log.Warn().Err(err).Str("content_id", x.ID).Msg("[content] file cleanup failed")
	}
	return api.NoContent(), nil
}
