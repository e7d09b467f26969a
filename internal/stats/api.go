// Exposes the visitor statistics REST API of Candycast.

package stats

import (
	"Candycast/internal/counter"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Registers all of the REST API handlers related to internal package stats onto the gin server.
func APIHandlers(router *gin.Engine, service Service, counterService counter.Service) {
	router.GET("/stats", summary(service, counterService))
}

// summary returns a handler serving the derived activity report. Read-only.
func summary(service Service, counterService counter.Service) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		gctx.JSON(http.StatusOK, service.Summary(counterService.State()))
	}
}
