package endpoints

import (
	"fmt"
	"math"

	"github.com/gin-gonic/gin"

	"github.com/Nixie-Tech-LLC/signage/internal/db"
	"github.com/Nixie-Tech-LLC/signage/internal/http/api"
	"github.com/Nixie-Tech-LLC/signage/internal/model"
)

type StatsController struct {
	store db.Store
}

func StatsModule(store db.Store) api.Module {
	ctl := &StatsController{store: store}
	return api.ModuleFunc(func(c *api.Controller) {
		c.GET("/stats", ctl.systemStats)
	})
}

// GET /api/stats
func (s *StatsController) systemStats(ctx *gin.Context) (any, *api.APIError) {
	units, err := s.store.ListUnits(ctx.Request.Context())
	if err != nil {
		return nil, api.StoreError(err, "could not list units")
	}
	used, err := s.store.TotalContentSize(ctx.Request.Context())
	if err != nil {
		return nil, api.StoreError(err, "could not compute storage usage")
	}
	return computeStats(units, used), nil
}

func computeStats(units []model.SignageUnit, usedBytes int64) model.SystemStats {
	stats := model.SystemStats{
		TotalUnits:  len(units),
		StorageUsed: humanBytes(usedBytes),
	}
	for _, u := range units {
		if u.Status == model.StatusOnline {
			stats.OnlineUnits++
		}
	}
	if stats.TotalUnits > 0 {
		pct := float64(stats.OnlineUnits) / float64(stats.TotalUnits) * 100
		stats.UptimePercentage = math.Round(pct*10) / 10
	}
	return stats
}

// humanBytes formats n with binary units, e.g. 1536 -> "1.5 KB".
func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
