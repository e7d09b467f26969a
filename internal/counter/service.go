// Service layer of the internal package counter.
// Owns the single authoritative CounterState of Candycast.

package counter

import (
	"Candycast/internal/entity"
	"Candycast/pkg/log"
	"context"
	"sync"
)

// Broadcaster pushes a snapshot to every subscribed push channel.
// Implemented by the sse hub, injected from main.
type Broadcaster interface {
	Broadcast(snapshot entity.CounterSnapshot)
}

// VisitRecorder gets notified once per served visitor.
// Implemented by the stats service, injected from main.
type VisitRecorder interface {
	RecordVisit()
}

// Service layer of internal package counter which encapsulates all counter
// mutation and read logic of Candycast.
type Service interface {
	// Increment serves one visitor: count goes up, candy goes down (clamped
	// at zero), and the new state is fanned out to every subscriber.
	Increment(ctx context.Context) entity.CounterState
	// ApplySettings overwrites the numeric fields present in settings,
	// recomputes candyRemaining when initialCandyCount changes, and fans the
	// new state out. Non-numeric or absent fields keep their previous value.
	ApplySettings(ctx context.Context, settings entity.Settings) entity.CounterState
	// Snapshot returns an immutable copy of the state in wire shape.
	Snapshot() entity.CounterSnapshot
	// State returns a copy of the full state including candyPerChild.
	State() entity.CounterState
}

// Object of this will be passed around from main to routers to API.
// Helps to access the service layer interface and call methods.
type service struct {
	// mu is the single serialization point: it is held across the mutation
	// and the following broadcast, so subscribers observe broadcasts in
	// exactly the order mutations were applied.
	mu          sync.Mutex
	state       entity.CounterState
	broadcaster Broadcaster
	visits      VisitRecorder
	logger      log.Logger
}

// Helps to access the service layer interface and call methods. Service object is passed from main.
func NewService(initialCandyCount, candyPerChild int, broadcaster Broadcaster, visits VisitRecorder, logger log.Logger) Service {
	return &service{
		state: entity.CounterState{
			CurrentCount:      0,
			CandyRemaining:    initialCandyCount,
			InitialCandyCount: initialCandyCount,
			CandyPerChild:     candyPerChild,
		},
		broadcaster: broadcaster,
		visits:      visits,
		logger:      logger,
	}
}

func (s *service) Increment(ctx context.Context) entity.CounterState {
	s.mu.Lock()
	s.state.CurrentCount++
	s.state.CandyRemaining = clampZero(s.state.CandyRemaining - s.state.CandyPerChild)
	state := s.state
	s.broadcaster.Broadcast(state.Snapshot())
	s.mu.Unlock()

	if s.visits != nil {
		s.visits.RecordVisit()
	}
	s.logger.WithCtx(ctx).Info().Msgf("Count: %d | Candy: %d/%d",
		state.CurrentCount, state.CandyRemaining, state.InitialCandyCount)
	return state
}

func (s *service) ApplySettings(ctx context.Context, settings entity.Settings) entity.CounterState {
	s.mu.Lock()
	if count, ok := numericField(settings, "currentCount"); ok {
		s.state.CurrentCount = count
	}
	if initial, ok := numericField(settings, "initialCandyCount"); ok {
		s.state.InitialCandyCount = initial
		// Recalculate candy remaining against the (possibly just-updated) count
		s.state.CandyRemaining = clampZero(initial - s.state.CurrentCount*s.state.CandyPerChild)
	}
	state := s.state
	s.broadcaster.Broadcast(state.Snapshot())
	s.mu.Unlock()

	s.logger.WithCtx(ctx).Info().Msgf("Settings updated | Count: %d | Candy: %d/%d",
		state.CurrentCount, state.CandyRemaining, state.InitialCandyCount)
	return state
}

func (s *service) Snapshot() entity.CounterSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Snapshot()
}

func (s *service) State() entity.CounterState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// numericField pulls an integer out of a decoded JSON object.
// Anything that isn't a JSON number is treated as absent.
func numericField(settings entity.Settings, key string) (int, bool) {
	value, exists := settings[key]
	if !exists {
		return 0, false
	}
	number, ok := value.(float64)
	if !ok {
		return 0, false
	}
	return int(number), true
}

func clampZero(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
