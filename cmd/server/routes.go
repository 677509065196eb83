package main

import (
	"html/template"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/signage/internal/config"
	"github.com/Nixie-Tech-LLC/signage/internal/db"
	"github.com/Nixie-Tech-LLC/signage/internal/heartbeat"
	"github.com/Nixie-Tech-LLC/signage/internal/http/api"
	"github.com/Nixie-Tech-LLC/signage/internal/http/api/endpoints"
	"github.com/Nixie-Tech-LLC/signage/internal/player"
	"github.com/Nixie-Tech-LLC/signage/internal/schedule"
	"github.com/Nixie-Tech-LLC/signage/internal/storage"
)

// RegisterRoutes sets up all application routes
func RegisterRoutes(r *gin.Engine, env *config.Config, store db.Store, storageSystem storage.Storage,
	resolver *schedule.Resolver, hb *heartbeat.Service, tmpl *template.Template) {
	r.SetHTMLTemplate(tmpl)
	// CORS
	r.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool { return true },
		AllowMethods: []string{
			"GET",
			"POST",
			"PUT",
			"DELETE",
			"OPTIONS",
			"HEAD",
		},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Authorization",
			"Accept",
			"If-None-Match",
			"X-If-None-Match",
		},
		ExposeHeaders: []string{
			"Content-Length",
			"ETag",
		},
		AllowCredentials: false,
	}))

	api.MountGroup(r, api.GroupConfig{
		Prefix: "/api",
	},
		endpoints.AuthPublicModule(env.JWTSecret, store),
		endpoints.DeviceModule(store, resolver, hb),
	)

	api.MountGroup(r, api.GroupConfig{
		Prefix:    "/api",
		Auth:      env.AuthRequired,
		SecretKey: env.JWTSecret,
		Users:     store,
	},
		endpoints.SignageModule(store),
		endpoints.ContentModule(store, storageSystem, resolver),
		endpoints.PlaylistModule(store, resolver),
		endpoints.ScheduleModule(store),
		endpoints.StatsModule(store),
	)

	// session endpoints always need a token
	api.MountGroup(r, api.GroupConfig{
		Prefix:    "/api",
		Auth:      true,
		SecretKey: env.JWTSecret,
		Users:     store,
	},
		endpoints.AuthSessionModule(env.JWTSecret, store),
	)

	api.MountGroup(r, api.GroupConfig{},
		endpoints.HealthModule(store),
		endpoints.PlayerModule(store, "/api",
			int(player.DefaultPollInterval/time.Second),
			int(player.DefaultHeartbeatInterval/time.Second)),
	)

	// Static content
	if local, ok := storageSystem.(*storage.LocalStorage); ok {
		r.Static(storage.PublicPath, local.Dir())
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		ev := log.Debug()
		if c.Writer.Status() >= 500 {
			ev = log.Error()
		} else if c.Writer.Status() >= 400 {
			ev = log.Warn()
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}
