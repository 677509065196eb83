package endpoints

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/signage/internal/db"
	"github.com/Nixie-Tech-LLC/signage/internal/http/api"
	"github.com/Nixie-Tech-LLC/signage/internal/http/api/packets"
)

const pingTimeout = 2 * time.Second

// HealthModule mounts /healthz. It reports 503 while the database is
// unreachable.
func HealthModule(store db.Store) api.Module {
	return api.ModuleFunc(func(c *api.Controller) {
		c.GET("/healthz", func(ctx *gin.Context) (any, *api.APIError) {
			pingCtx, cancel := context.WithTimeout(ctx.Request.Context(), pingTimeout)
			defer cancel()

			if err := store.Ping(pingCtx); err != nil {
				log.Error().Err(err).Msg("[health] database ping failed")
				return api.WithStatus(http.StatusServiceUnavailable,
					packets.HealthResponse{Status: "degraded", Database: "unreachable"}), nil
			}
			return packets.HealthResponse{Status: "ok", Database: "ok"}, nil
		})
	})
}
