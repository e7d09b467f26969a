// List of all REST API endpoints being used by Candycast can be found here.

package main

import (
	"Candycast/internal/counter"
	"Candycast/internal/sse"
	"Candycast/internal/stats"
	"Candycast/pkg/log"
	"Candycast/pkg/middlewares"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
)

func Router(router *gin.Engine, counterService counter.Service, hubService sse.Service, statsService stats.Service, clock clockwork.Clock, logger log.Logger) {
	// Every device on the LAN is welcome, wildcard CORS plus correlation IDs
	router.Use(middlewares.CORSMiddleware())
	router.Use(middlewares.CorrelationMiddleware())

	counter.APIHandlers(router, counterService, logger)
	sse.APIHandlers(router, hubService, clock, logger)
	stats.APIHandlers(router, statsService, counterService)
}
