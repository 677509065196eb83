package endpoints

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Nixie-Tech-LLC/signage/internal/db"
	"github.com/Nixie-Tech-LLC/signage/internal/http/api"
)

// PlayerPageData is rendered into player.html. The page polls
// /api/signage/{Unit}/playlist itself.
type PlayerPageData struct {
	Unit         string
	Hostname     string
	APIBase      string
	PollSeconds  int
	HeartbeatSec int
}

// PlayerModule serves the browser player page for a unit. Unknown units still
// get the page so a new display can boot before it is registered.
func PlayerModule(store db.Store, apiBase string, pollSeconds, heartbeatSeconds int) api.Module {
	return api.ModuleFunc(func(c *api.Controller) {
		c.Raw(http.MethodGet, "/player/:id", func(ctx *gin.Context) {
			id := ctx.Param("id")
			data := PlayerPageData{
				Unit:         id,
				Hostname:     id,
				APIBase:      apiBase,
				PollSeconds:  pollSeconds,
				HeartbeatSec: heartbeatSeconds,
			}
			if unit, err := store.GetUnit(ctx.Request.Context(), id); err == nil {
				data.Hostname = unit.Hostname
			}
			ctx.HTML(http.StatusOK, "player.html", data)
		})
	})
}
