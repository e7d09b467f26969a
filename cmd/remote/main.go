// Terminal remote control for Candycast. Mirrors the live counter over the
// push channel and sends an optimistic increment per Enter press, so the
// porch device stays responsive even while the LAN hiccups.

package main

import (
	"Candycast/internal/entity"
	"Candycast/internal/syncagent"
	"Candycast/pkg/log"
	"Candycast/pkg/logger"
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jonboulle/clockwork"
)

var Version = "1.0.0"

func main() {
	server := flag.String("server", "http://localhost:3000", "Base URL of the Candycast server")
	flag.Parse()

	logger.Setup(os.Getenv("ENV"))
	applogger := log.New(Version)

	agent := syncagent.NewAgent(*server, clockwork.NewRealClock(), applogger)
	agent.OnStatusChange(func(status syncagent.ConnectionStatus) {
		fmt.Printf("\r\x1b[90m[%s]\x1b[0m\n", status)
	})
	agent.OnUpdate(func(state entity.CounterState) {
		fmt.Printf("\r🎃 Count: \x1b[1m%d\x1b[0m | Candy: \x1b[1m%d/%d\x1b[0m\n",
			state.CurrentCount, state.CandyRemaining, state.InitialCandyCount)
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go agent.Run(ctx)

	fmt.Printf("Connected to %s. Press Enter to count a trick-or-treater, q to quit.\n", *server)
	lines := bufio.NewScanner(os.Stdin)
	for {
		if !lines.Scan() {
			break
		}
		input := strings.TrimSpace(lines.Text())
		if input == "q" || input == "quit" {
			break
		}
		if input == "" {
			agent.Increment(ctx)
		}
	}

	// Cancelling the context closes the push channel and any pending
	// backoff timer before the process exits.
	stop()
}
