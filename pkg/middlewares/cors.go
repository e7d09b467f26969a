package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// This middleware handles CORS policy for the Candycast server.
// Origin is kept wildcard on purpose, the server is meant to be reached
// from any device on the same LAN.
func CORSMiddleware() gin.HandlerFunc {
	return func(gctx *gin.Context) {
		gctx.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		gctx.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		gctx.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if gctx.Request.Method == "OPTIONS" {
			gctx.AbortWithStatus(http.StatusNoContent)
			return
		}

		gctx.Next()
	}
}
