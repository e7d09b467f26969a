// Reconnect backoff policy of the Candycast sync agent.

package syncagent

import "time"

const (
	backoffBase = 1000 * time.Millisecond
	backoffCap  = 30000 * time.Millisecond
)

// Backoff returns the delay before reconnect attempt n (1-based): the base
// delay doubled per failed attempt, capped at 30s. Bounds reconnection storms
// while still recovering quickly from brief outages.
func Backoff(attempt int) time.Duration {
	if attempt <= 1 {
		return backoffBase
	}
	delay := backoffBase << uint(attempt-1)
	// The shift overflows for absurd attempt counts, treat that as capped too
	if delay > backoffCap || delay <= 0 {
		return backoffCap
	}
	return delay
}
