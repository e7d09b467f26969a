// Structure of the visitor statistics model in Candycast.

package entity

// StatsSummary is the derived activity report served by GET /stats.
type StatsSummary struct {
	TrickOrTreatersPerHour  float64 `json:"trickOrTreatersPerHour"`
	AverageMinutesBetween   float64 `json:"averageTimeBetween"`
	CandyDepletionRate      float64 `json:"candyDepletionRate"`
	EstimatedCandyDepletion string  `json:"estimatedCandyDepletion"`
	StartTime               int64   `json:"startTime"`
}
