// Client sync agent tests in Candycast. A stub counter server stands in for
// the real one so connection loss, failed mutations and malformed pushes can
// be staged deterministically.

package syncagent

import (
	"Candycast/internal/entity"
	"Candycast/pkg/log"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

// stubServer is a scriptable stand-in for the Candycast server.
type stubServer struct {
	*httptest.Server

	mu     sync.Mutex
	frames []chan string // one channel per open /events connection

	// dropAfterFirst ends each /events connection right after its first frame
	dropAfterFirst atomic.Bool
	// incrementStatus is the response code of POST /increment
	incrementStatus atomic.Int32
	incrementCalls  atomic.Int32

	initial entity.CounterSnapshot
	conns   atomic.Int32
}

func newStubServer(t *testing.T, initial entity.CounterSnapshot) *stubServer {
	t.Helper()
	stub := &stubServer{initial: initial}
	stub.incrementStatus.Store(http.StatusOK)

	mux := http.NewServeMux()
	mux.HandleFunc("/events", stub.events)
	mux.HandleFunc("/increment", stub.increment)
	stub.Server = httptest.NewServer(mux)
	t.Cleanup(stub.Close)
	return stub
}

func (s *stubServer) events(w http.ResponseWriter, r *http.Request) {
	s.conns.Add(1)
	w.Header().Set("Content-Type", "text/event-stream")
	flusher := w.(http.Flusher)

	drop := s.dropAfterFirst.Load()
	frames := make(chan string, 16)
	if !drop {
		// Register before the first write so a push issued right after the
		// client sees its initial frame is never lost
		s.mu.Lock()
		s.frames = append(s.frames, frames)
		s.mu.Unlock()
		defer s.unregister(frames)
	}

	data, _ := json.Marshal(s.initial)
	fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()

	if drop {
		return
	}

	for {
		select {
		case frame := <-frames:
			fmt.Fprint(w, frame)
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func (s *stubServer) increment(w http.ResponseWriter, r *http.Request) {
	s.incrementCalls.Add(1)
	w.WriteHeader(int(s.incrementStatus.Load()))
}

func (s *stubServer) unregister(frames chan string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, candidate := range s.frames {
		if candidate == frames {
			s.frames = append(s.frames[:i], s.frames[i+1:]...)
			return
		}
	}
}

// push queues a raw SSE frame on every open connection.
func (s *stubServer) push(frame string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, frames := range s.frames {
		frames <- frame
	}
}

func (s *stubServer) pushSnapshot(snapshot entity.CounterSnapshot) {
	data, _ := json.Marshal(snapshot)
	s.push(fmt.Sprintf("data: %s\n\n", data))
}

// agentFixture runs one agent against a stub server and collects callbacks.
type agentFixture struct {
	agent    *Agent
	updates  chan entity.CounterState
	statuses chan ConnectionStatus
	cancel   context.CancelFunc
	done     chan struct{}
}

func startAgent(t *testing.T, stub *stubServer, clock clockwork.Clock) *agentFixture {
	t.Helper()
	fixture := &agentFixture{
		agent:    NewAgent(stub.URL, clock, log.New("test")),
		updates:  make(chan entity.CounterState, 64),
		statuses: make(chan ConnectionStatus, 64),
		done:     make(chan struct{}),
	}
	fixture.agent.OnUpdate(func(state entity.CounterState) { fixture.updates <- state })
	fixture.agent.OnStatusChange(func(status ConnectionStatus) { fixture.statuses <- status })

	ctx, cancel := context.WithCancel(context.Background())
	fixture.cancel = cancel
	go func() {
		fixture.agent.Run(ctx)
		close(fixture.done)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-fixture.done:
		case <-time.After(2 * time.Second):
			t.Error("agent did not stop on context cancellation")
		}
	})
	return fixture
}

func (f *agentFixture) nextUpdate(t *testing.T) entity.CounterState {
	t.Helper()
	select {
	case state := <-f.updates:
		return state
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a state update")
		return entity.CounterState{}
	}
}

func (f *agentFixture) nextStatus(t *testing.T) ConnectionStatus {
	t.Helper()
	select {
	case status := <-f.statuses:
		return status
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a status change")
		return Disconnected
	}
}

func porch(count int) entity.CounterSnapshot {
	return entity.CounterSnapshot{CurrentCount: count, CandyRemaining: 100 - count, InitialCandyCount: 100}
}

func TestAgentConnectsAndSyncs(t *testing.T) {
	stub := newStubServer(t, porch(5))
	fixture := startAgent(t, stub, clockwork.NewRealClock())

	assert.Equal(t, Connecting, fixture.nextStatus(t))

	state := fixture.nextUpdate(t)
	assert.Equal(t, 5, state.CurrentCount)
	assert.Equal(t, 95, state.CandyRemaining)
	assert.Equal(t, 100, state.InitialCandyCount)

	assert.Equal(t, Connected, fixture.nextStatus(t))
	assert.Equal(t, 0, fixture.agent.ReconnectAttempt())
}

func TestAgentTeardownStopsRunLoop(t *testing.T) {
	stub := newStubServer(t, porch(0))
	fixture := startAgent(t, stub, clockwork.NewRealClock())
	fixture.nextUpdate(t)

	fixture.cancel()
	select {
	case <-fixture.done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
	assert.Equal(t, Disconnected, fixture.agent.Status())
}

func TestAgentAuthoritativePushOverwritesLocalState(t *testing.T) {
	stub := newStubServer(t, porch(5))
	fixture := startAgent(t, stub, clockwork.NewRealClock())
	fixture.nextUpdate(t)

	stub.pushSnapshot(porch(9))
	state := fixture.nextUpdate(t)
	assert.Equal(t, 9, state.CurrentCount)
	assert.Equal(t, 91, state.CandyRemaining)
}

func TestAgentOptimisticIncrementThenConfirmation(t *testing.T) {
	stub := newStubServer(t, porch(5))
	fixture := startAgent(t, stub, clockwork.NewRealClock())
	fixture.nextUpdate(t)

	incremented := make(chan struct{}, 1)
	fixture.agent.OnIncrement(func() { incremented <- struct{}{} })

	fixture.agent.Increment(context.Background())

	// The optimistic update lands before any network round-trip
	state := fixture.nextUpdate(t)
	assert.Equal(t, 6, state.CurrentCount)
	assert.Equal(t, 94, state.CandyRemaining)
	select {
	case <-incremented:
	case <-time.After(2 * time.Second):
		t.Fatal("increment hook never fired")
	}

	// The authoritative push confirms the same arithmetic
	assert.Eventually(t, func() bool {
		return stub.incrementCalls.Load() == 1
	}, 2*time.Second, 10*time.Millisecond)
	stub.pushSnapshot(porch(6))
	state = fixture.nextUpdate(t)
	assert.Equal(t, 6, state.CurrentCount)
	assert.Equal(t, 94, state.CandyRemaining)
}

func TestAgentRevertsToLastAuthoritativeOnFailedIncrement(t *testing.T) {
	stub := newStubServer(t, porch(5))
	stub.incrementStatus.Store(http.StatusInternalServerError)

	fixture := startAgent(t, stub, clockwork.NewRealClock())
	fixture.nextUpdate(t)

	fixture.agent.Increment(context.Background())

	optimistic := fixture.nextUpdate(t)
	assert.Equal(t, 6, optimistic.CurrentCount)

	// The rollback target is the last authoritative snapshot, not the
	// pre-optimistic value
	reverted := fixture.nextUpdate(t)
	assert.Equal(t, 5, reverted.CurrentCount)
	assert.Equal(t, 95, reverted.CandyRemaining)
}

func TestAgentRevertUsesLatestAuthoritativeSnapshot(t *testing.T) {
	stub := newStubServer(t, porch(5))
	stub.incrementStatus.Store(http.StatusInternalServerError)

	fixture := startAgent(t, stub, clockwork.NewRealClock())
	fixture.nextUpdate(t)

	// Another device's mutation lands before our failed increment resolves
	stub.pushSnapshot(porch(7))
	state := fixture.nextUpdate(t)
	assert.Equal(t, 7, state.CurrentCount)

	fixture.agent.Increment(context.Background())
	optimistic := fixture.nextUpdate(t)
	assert.Equal(t, 8, optimistic.CurrentCount)

	reverted := fixture.nextUpdate(t)
	assert.Equal(t, 7, reverted.CurrentCount)
	assert.Equal(t, 93, reverted.CandyRemaining)
}

func TestAgentKeepsStateOnMalformedPush(t *testing.T) {
	stub := newStubServer(t, porch(5))
	fixture := startAgent(t, stub, clockwork.NewRealClock())
	fixture.nextUpdate(t)

	stub.push("data: {definitely not json\n\n")

	// The frame is dropped without nulling the state or reconnecting
	time.Sleep(200 * time.Millisecond)
	state, synced := fixture.agent.State()
	assert.True(t, synced)
	assert.Equal(t, 5, state.CurrentCount)
	assert.Equal(t, Connected, fixture.agent.Status())
	assert.Empty(t, fixture.updates)

	// And the channel still delivers well-formed frames afterwards
	stub.pushSnapshot(porch(6))
	assert.Equal(t, 6, fixture.nextUpdate(t).CurrentCount)
}

func TestAgentReconnectsWithBackoff(t *testing.T) {
	stub := newStubServer(t, porch(3))
	stub.dropAfterFirst.Store(true)

	clock := clockwork.NewFakeClock()
	fixture := startAgent(t, stub, clock)

	assert.Equal(t, Connecting, fixture.nextStatus(t))
	fixture.nextUpdate(t)
	assert.Equal(t, Connected, fixture.nextStatus(t))

	// Server drops us right away, the agent schedules attempt 1
	assert.Equal(t, Reconnecting, fixture.nextStatus(t))
	assert.Equal(t, 1, fixture.agent.ReconnectAttempt())

	// Let the connection survive this time and release the backoff timer
	stub.dropAfterFirst.Store(false)
	clock.BlockUntil(1)
	clock.Advance(Backoff(1))

	assert.Equal(t, Connecting, fixture.nextStatus(t))
	fixture.nextUpdate(t)
	assert.Equal(t, Connected, fixture.nextStatus(t))

	// A successful connection resets the attempt counter
	assert.Equal(t, 0, fixture.agent.ReconnectAttempt())
	assert.GreaterOrEqual(t, stub.conns.Load(), int32(2))
}
