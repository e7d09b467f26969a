// The main file of Candycast.

package main

import (
	"Candycast/internal/config"
	"Candycast/internal/counter"
	"Candycast/internal/entity"
	"Candycast/internal/sse"
	"Candycast/internal/stats"
	"Candycast/pkg/cleanup"
	"Candycast/pkg/log"
	"Candycast/pkg/logger"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
)

var (
	// Indicates the current version of Candycast.
	Version = "1.0.0"
	// Validated server environment.
	srvcfg config.ServerConfig
)

func init() {
	if len(os.Getenv("ENV")) == 0 {
		// Standalone run without an exported environment, use the dev one
		config.LoadDevConfig()
	}
	logger.Setup(os.Getenv("ENV"))

	logger.Logger.Info().Msg(fmt.Sprintf("Welcome to Candycast: v%s", Version))
	logger.Logger.Info().Msg(fmt.Sprintf("Candycast Environment: %s", os.Getenv("ENV")))

	var cfgerr error
	srvcfg, cfgerr = config.LoadServerConfig()
	if cfgerr != nil {
		logger.Logger.Fatal().Err(cfgerr).Msg("Invalid server environment.")
	}

	// This is the preferred mode used by gin server in DEV environment.
	if os.Getenv("ENV") == "DEV" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
}

func main() {
	applogger := log.New(Version)
	clock := clockwork.NewRealClock()

	// Wiring order runs leaves first: stats and the hub feed the counter
	// service, the counter service feeds the handlers.
	statsService := stats.NewService(clock, applogger)
	initialState := entity.CounterSnapshot{
		CandyRemaining:    srvcfg.InitialCandyCount,
		InitialCandyCount: srvcfg.InitialCandyCount,
	}
	hubService := sse.NewService(initialState, applogger)
	counterService := counter.NewService(srvcfg.InitialCandyCount, srvcfg.CandyPerChild, hubService, statsService, applogger)

	// Initializing the gin server.
	server := gin.New()

	// Forcing gin to use custom Logger instead of the default one.
	server.Use(log.LoggerGinExtension(applogger))
	server.Use(gin.Recovery())

	// Running router.Router() which routes all of the REST API groups and paths.
	Router(server, counterService, hubService, statsService, clock, applogger)

	// Running the server with defined addr and port.
	srv := &http.Server{
		Addr:    srvcfg.Addr + ":" + srvcfg.Port,
		Handler: server,
	}

	// ListenAndServe is a blocking operation, putting it a goroutine
	go func() {
		if serveerr := srv.ListenAndServe(); serveerr != nil && !errors.Is(serveerr, http.ErrServerClosed) {
			logger.Logger.Fatal().Err(serveerr).Msg("Error in ListenAndServe()")
		}
	}()

	printBanner(srvcfg, counterService.State())

	// Graceful shutdown of the Candycast server triggered due to system interruptions.
	wait := cleanup.GracefulShutdown(context.Background(), 5*time.Second, map[string]cleanup.Operation{
		"Event-hub": func(ctx context.Context) error {
			return hubService.Close(ctx)
		},
		"Gin": func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
	<-wait
}
