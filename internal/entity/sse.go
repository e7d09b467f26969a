// Structure of Server-Side-Events (SSE) model in Candycast.

package entity

// SSEClient is one open push channel towards a viewer or remote device.
// It carries no per-client state beyond the channel itself, every client
// observes the same global CounterState.
type SSEClient struct {
	// Unique connection ID
	ID string
	// Snapshots queued for delivery to this client
	Channel chan CounterSnapshot
}
