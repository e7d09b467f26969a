// Structure of the counter state model in Candycast.

package entity

// CounterState is the single authoritative trick-or-treat state.
// Owned by the counter service; everyone else works with copies.
type CounterState struct {
	CurrentCount      int `json:"currentCount"`
	CandyRemaining    int `json:"candyRemaining"`
	InitialCandyCount int `json:"initialCandyCount"`
	CandyPerChild     int `json:"candyPerChild"`
}

// CounterSnapshot is the immutable copy of CounterState pushed to clients.
// CandyPerChild stays server-side, matching the wire contract.
type CounterSnapshot struct {
	CurrentCount      int `json:"currentCount"`
	CandyRemaining    int `json:"candyRemaining"`
	InitialCandyCount int `json:"initialCandyCount"`
}

// Snapshot builds the broadcastable copy of the state.
func (s CounterState) Snapshot() CounterSnapshot {
	return CounterSnapshot{
		CurrentCount:      s.CurrentCount,
		CandyRemaining:    s.CandyRemaining,
		InitialCandyCount: s.InitialCandyCount,
	}
}

// Settings is the decoded body of POST /settings.
// The fields arrive untyped on purpose: non-numeric or absent values are
// ignored and keep the previous state, only an unparseable body is an error.
type Settings map[string]any
