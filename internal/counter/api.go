// Exposes all of the REST APIs related to counter mutation in Candycast.

package counter

import (
	"Candycast/internal/entity"
	"Candycast/pkg/log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Registers all of the REST API handlers related to internal package counter onto the gin server.
// Paths are root-level on purpose, remote devices target this exact contract.
func APIHandlers(router *gin.Engine, service Service, logger log.Logger) {
	router.POST("/increment", increment(service, logger))
	router.POST("/settings", applySettings(service, logger))
	router.GET("/state", state(service))
}

// increment returns a handler which serves one visitor. Always succeeds.
func increment(service Service, logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		state := service.Increment(gctx)
		gctx.JSON(http.StatusOK, gin.H{
			"currentCount":   state.CurrentCount,
			"candyRemaining": state.CandyRemaining,
		})
	}
}

// applySettings returns a handler which takes care of settings overwrites.
// A body that doesn't parse as JSON is rejected without touching the state.
func applySettings(service Service, logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		var settings entity.Settings

		if binderr := gctx.ShouldBindJSON(&settings); binderr != nil {
			logger.WithCtx(gctx).Error().Err(binderr).Msg("Malformed settings payload received.")
			gctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid data"})
			return
		}

		state := service.ApplySettings(gctx, settings)
		gctx.JSON(http.StatusOK, gin.H{
			"success": true,
			"state":   state,
		})
	}
}

// state returns a handler serving the current authoritative state. Read-only.
func state(service Service) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		gctx.JSON(http.StatusOK, service.State())
	}
}
