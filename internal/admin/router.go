package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dongmoa/eventworker/logger"
)

// NewRouter assembles the HTTP surface: health, metrics, the sweep
// trigger and the management API under /admin.
func NewRouter(h *Handler, environment string) *gin.Engine {
	if environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		count, err := h.Store.CountEvents(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "message": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "events": count})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Full sweep over every enabled source
	r.POST("/data-sources/collect", func(c *gin.Context) {
		summaries, err := h.Runner.RunAll(c.Request.Context())
		if err != nil {
			logger.ForAdmin().Error().Err(err).Msg("Collection trigger failed")
			fail(c, http.StatusInternalServerError, "collection failed")
			return
		}
		ok(c, summaries)
	})

	h.RegisterRoutes(r.Group("/admin"))
	return r
}
