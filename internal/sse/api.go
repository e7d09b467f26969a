// Exposes the push-channel REST API of Candycast.

package sse

import (
	"Candycast/pkg/log"
	"Candycast/pkg/middlewares"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
)

// Interval between no-op keepalive comments, keeps intermediaries from
// closing an idle stream.
const keepaliveInterval = 30 * time.Second

// Registers all of the REST API handlers related to internal package sse onto the gin server.
func APIHandlers(router *gin.Engine, service Service, clock clockwork.Clock, logger log.Logger) {
	router.GET("/events", middlewares.SSEMiddleware(), eventshandler(service, clock, logger))
}

// eventshandler streams counter snapshots to one client until it leaves.
// Wire format is data-only SSE frames: "data: <json>\n\n", keepalives are
// comment frames ":ping\n\n".
func eventshandler(service Service, clock clockwork.Clock, logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		client := service.Subscribe(gctx)
		defer service.Unsubscribe(gctx, client.ID)

		keepalive := clock.NewTicker(keepaliveInterval)
		defer keepalive.Stop()

		for {
			select {
			case snapshot, ok := <-client.Channel:
				if !ok {
					// Hub dropped us or is shutting down
					return
				}
				data, marshalerr := json.Marshal(snapshot)
				if marshalerr != nil {
					logger.WithCtx(gctx).Error().Err(marshalerr).Msg("Couldn't marshal snapshot for SSE frame.")
					continue
				}
				if _, writeerr := fmt.Fprintf(gctx.Writer, "data: %s\n\n", data); writeerr != nil {
					// Client vanished mid-write, deferred Unsubscribe cleans up
					return
				}
				gctx.Writer.Flush()
			case <-keepalive.Chan():
				if _, writeerr := fmt.Fprint(gctx.Writer, ":ping\n\n"); writeerr != nil {
					return
				}
				gctx.Writer.Flush()
			case <-gctx.Request.Context().Done():
				return
			}
		}
	}
}
