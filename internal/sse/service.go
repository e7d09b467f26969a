// Service layer of Server-Side-Events (SSE) in Candycast.
// The hub owns the registry of open push channels and fans snapshots out.

package sse

import (
	"Candycast/internal/entity"
	"Candycast/pkg/log"
	"context"
	"sync"

	"github.com/google/uuid"
)

// Snapshots buffered per connection before the consumer counts as dead.
const clientBuffer = 8

// Service layer of internal package sse which encapsulates the broadcast hub of Candycast.
type Service interface {
	// Subscribe opens a new push channel. The current snapshot is already
	// queued as its first message when this returns.
	Subscribe(ctx context.Context) *entity.SSEClient
	// Unsubscribe removes a connection from the registry and closes its
	// channel. Idempotent, unknown IDs are a no-op.
	Unsubscribe(ctx context.Context, id string)
	// Broadcast queues the snapshot on every registered connection.
	// A dead consumer is dropped without affecting delivery to the others.
	Broadcast(snapshot entity.CounterSnapshot)
	// ClientCount reports the number of open connections.
	ClientCount() int
	// Close tears down every connection, used on server shutdown.
	Close(ctx context.Context) error
}

// Object of this will be passed around from main to routers to API.
// Helps to access the service layer interface and call methods.
type service struct {
	mu      sync.Mutex
	clients map[string]*entity.SSEClient
	// last always holds the most recently broadcast snapshot, so a new
	// subscriber never waits for the next mutation to learn the state.
	last   entity.CounterSnapshot
	closed bool
	logger log.Logger
}

// Helps to access the service layer interface and call methods. Service object is passed from main.
// The initial snapshot seeds what new subscribers receive before any mutation lands.
func NewService(initial entity.CounterSnapshot, logger log.Logger) Service {
	return &service{
		clients: make(map[string]*entity.SSEClient),
		last:    initial,
		logger:  logger,
	}
}

func (s *service) Subscribe(ctx context.Context) *entity.SSEClient {
	client := &entity.SSEClient{
		ID:      uuid.NewString(),
		Channel: make(chan entity.CounterSnapshot, clientBuffer),
	}

	s.mu.Lock()
	if s.closed {
		close(client.Channel)
		s.mu.Unlock()
		return client
	}
	// Queue the current snapshot before registering, it must be the
	// first message this connection ever sees.
	client.Channel <- s.last
	s.clients[client.ID] = client
	total := len(s.clients)
	s.mu.Unlock()

	s.logger.WithCtx(ctx).Info().Msgf("Client %s connected | Total: %d", client.ID, total)
	return client
}

func (s *service) Unsubscribe(ctx context.Context, id string) {
	s.mu.Lock()
	client, ok := s.clients[id]
	if ok {
		delete(s.clients, id)
		close(client.Channel)
	}
	total := len(s.clients)
	s.mu.Unlock()

	if ok {
		s.logger.WithCtx(ctx).Info().Msgf("Client %s disconnected | Total: %d", id, total)
	}
}

func (s *service) Broadcast(snapshot entity.CounterSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.last = snapshot
	for id, client := range s.clients {
		select {
		case client.Channel <- snapshot:
		default:
			// Consumer stopped draining its channel, drop it so the
			// slow connection never blocks delivery to the others.
			delete(s.clients, id)
			close(client.Channel)
			s.logger.Warn().Msgf("Client %s dropped, push channel backed up", id)
		}
	}
}

func (s *service) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *service) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	for id, client := range s.clients {
		delete(s.clients, id)
		close(client.Channel)
	}
	s.logger.WithCtx(ctx).Info().Msg("Event hub closed, all push channels ended.")
	return nil
}
