// Client sync agent of Candycast. Runs on every viewer or remote device:
// keeps a local mirror of the counter subscribed to the server's push
// channel, reconnects with exponential backoff, and applies optimistic
// increments that the next authoritative push reconciles.

package syncagent

import (
	"Candycast/internal/entity"
	"Candycast/pkg/log"
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// ConnectionStatus tracks the push-channel state machine.
type ConnectionStatus int

const (
	Disconnected ConnectionStatus = iota
	Connecting
	Connected
	Reconnecting
)

func (s ConnectionStatus) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Reconnecting:
		return "reconnecting"
	}
	return "unknown"
}

// Upper bound on one mutation round-trip. The push channel itself has no
// timeout, it lives until either side closes it.
const mutationTimeout = 10 * time.Second

var errStreamEnded = errors.New("push channel closed by server")

// Agent mirrors the authoritative counter on one device.
// Configure callbacks before calling Run; Run blocks until ctx is cancelled,
// which closes the open channel and cancels any pending backoff timer.
type Agent struct {
	baseURL string
	httpc   *http.Client
	clock   clockwork.Clock
	logger  log.Logger

	mu sync.Mutex
	// local is the optimistic mirror, authoritative the last server push.
	// A push always overwrites local, it is the ground truth.
	local         entity.CounterState
	authoritative entity.CounterSnapshot
	synced        bool
	status        ConnectionStatus
	attempt       int

	onUpdate    func(entity.CounterState)
	onStatus    func(ConnectionStatus)
	onIncrement func()
}

// NewAgent builds an agent against the server base URL (e.g. "http://192.168.1.20:3000").
func NewAgent(baseURL string, clock clockwork.Clock, logger log.Logger) *Agent {
	return &Agent{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{},
		clock:   clock,
		logger:  logger,
		local:   entity.CounterState{CandyPerChild: 1},
		status:  Disconnected,
	}
}

// OnUpdate registers the callback invoked with every local state change,
// optimistic or authoritative.
func (a *Agent) OnUpdate(fn func(entity.CounterState)) {
	a.mu.Lock()
	a.onUpdate = fn
	a.mu.Unlock()
}

// OnStatusChange registers the callback invoked on connection status transitions.
func (a *Agent) OnStatusChange(fn func(ConnectionStatus)) {
	a.mu.Lock()
	a.onStatus = fn
	a.mu.Unlock()
}

// OnIncrement registers the presentation hook fired on each optimistic increment.
func (a *Agent) OnIncrement(fn func()) {
	a.mu.Lock()
	a.onIncrement = fn
	a.mu.Unlock()
}

// Status reports the current push-channel state.
func (a *Agent) Status() ConnectionStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// State returns the local mirror and whether an authoritative snapshot has
// ever been received.
func (a *Agent) State() (entity.CounterState, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.local, a.synced
}

// ReconnectAttempt reports how many consecutive connection attempts have failed.
func (a *Agent) ReconnectAttempt() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.attempt
}

// Run drives the subscription until ctx is cancelled.
func (a *Agent) Run(ctx context.Context) {
	defer a.setStatus(Disconnected)
	for {
		a.setStatus(Connecting)
		streamerr := a.stream(ctx)
		if ctx.Err() != nil {
			return
		}

		a.mu.Lock()
		a.attempt++
		attempt := a.attempt
		a.mu.Unlock()

		delay := Backoff(attempt)
		a.logger.Warn().Err(streamerr).Msgf("Push channel lost, reconnecting in %s (attempt %d)", delay, attempt)
		a.setStatus(Reconnecting)

		select {
		case <-ctx.Done():
			return
		case <-a.clock.After(delay):
		}
	}
}

// stream holds one push-channel connection open and dispatches its frames.
// Returns when the connection dies or ctx is cancelled.
func (a *Agent) stream(ctx context.Context) error {
	req, reqerr := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/events", nil)
	if reqerr != nil {
		return reqerr
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, doerr := a.httpc.Do(req)
	if doerr != nil {
		return doerr
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("push channel returned status %d", resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	var data []byte
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			// Blank line dispatches the accumulated event
			if len(data) > 0 {
				a.handleMessage(data)
				a.markConnected()
				data = nil
			}
		case strings.HasPrefix(line, ":"):
			// Keepalive comment
		case strings.HasPrefix(line, "data:"):
			payload := strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " ")
			if len(data) > 0 {
				data = append(data, '\n')
			}
			data = append(data, payload...)
		}
	}
	if scanerr := scanner.Err(); scanerr != nil {
		return scanerr
	}
	return errStreamEnded
}

// handleMessage reconciles one push frame. A frame that doesn't parse is
// logged and skipped, the existing local state stays untouched and the
// connection stays up.
func (a *Agent) handleMessage(payload []byte) {
	var snapshot entity.CounterSnapshot
	if parseerr := json.Unmarshal(payload, &snapshot); parseerr != nil {
		a.logger.Error().Err(parseerr).Msg("Couldn't parse push message, keeping local state.")
		return
	}

	a.mu.Lock()
	a.authoritative = snapshot
	a.synced = true
	a.local.CurrentCount = snapshot.CurrentCount
	a.local.CandyRemaining = snapshot.CandyRemaining
	a.local.InitialCandyCount = snapshot.InitialCandyCount
	state := a.local
	update := a.onUpdate
	a.mu.Unlock()

	if update != nil {
		update(state)
	}
}

// Increment applies the visit locally right away and confirms it with the
// server in the background. Whichever of the HTTP response and the push
// notification lands last wins, both converge on the server's value.
func (a *Agent) Increment(ctx context.Context) {
	a.mu.Lock()
	a.local.CurrentCount++
	a.local.CandyRemaining = clampZero(a.local.CandyRemaining - a.local.CandyPerChild)
	state := a.local
	update := a.onUpdate
	bump := a.onIncrement
	a.mu.Unlock()

	if bump != nil {
		bump()
	}
	if update != nil {
		update(state)
	}

	go func() {
		if senderr := a.postIncrement(ctx); senderr != nil {
			a.logger.Error().Err(senderr).Msg("Increment request failed, reverting optimistic update.")
			a.revert()
			return
		}
		a.logger.Debug().Msg("Increment confirmed by server.")
	}()
}

func (a *Agent) postIncrement(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, mutationTimeout)
	defer cancel()

	req, reqerr := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/increment", nil)
	if reqerr != nil {
		return reqerr
	}
	resp, doerr := a.httpc.Do(req)
	if doerr != nil {
		return doerr
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("increment returned status %d", resp.StatusCode)
	}
	return nil
}

// revert rolls the mirror back to the last authoritative snapshot, not the
// pre-optimistic value: other devices' mutations may have landed meanwhile.
func (a *Agent) revert() {
	a.mu.Lock()
	if a.synced {
		a.local.CurrentCount = a.authoritative.CurrentCount
		a.local.CandyRemaining = a.authoritative.CandyRemaining
		a.local.InitialCandyCount = a.authoritative.InitialCandyCount
	} else {
		// Nothing authoritative yet, undo the optimistic arithmetic
		a.local.CurrentCount--
		a.local.CandyRemaining = clampZero(a.local.InitialCandyCount - a.local.CurrentCount*a.local.CandyPerChild)
	}
	state := a.local
	update := a.onUpdate
	a.mu.Unlock()

	if update != nil {
		update(state)
	}
}

// markConnected flips the state machine to connected after the first
// complete message and resets the backoff counter.
func (a *Agent) markConnected() {
	a.mu.Lock()
	already := a.status == Connected
	if !already {
		a.status = Connected
		a.attempt = 0
	}
	notify := a.onStatus
	a.mu.Unlock()

	if !already && notify != nil {
		notify(Connected)
	}
}

func (a *Agent) setStatus(status ConnectionStatus) {
	a.mu.Lock()
	changed := a.status != status
	a.status = status
	notify := a.onStatus
	a.mu.Unlock()

	if changed && notify != nil {
		notify(status)
	}
}

func clampZero(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
