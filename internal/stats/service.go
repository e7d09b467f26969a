// Service layer of the internal package stats.
// Derives activity figures from visit timestamps, the way the porch display
// shows them: visitors per hour, average gap and a candy depletion estimate.

package stats

import (
	"Candycast/internal/entity"
	"Candycast/pkg/log"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Service layer of internal package stats which encapsulates visitor statistics of Candycast.
type Service interface {
	// RecordVisit stores the timestamp of one served visitor.
	RecordVisit()
	// Summary derives the activity report from recorded visits and the
	// given counter state.
	Summary(state entity.CounterState) entity.StatsSummary
}

type service struct {
	clock clockwork.Clock

	mu         sync.Mutex
	start      time.Time
	timestamps []time.Time

	logger log.Logger
}

// Helps to access the service layer interface and call methods. Service object is passed from main.
func NewService(clock clockwork.Clock, logger log.Logger) Service {
	return &service{
		clock:  clock,
		start:  clock.Now(),
		logger: logger,
	}
}

func (s *service) RecordVisit() {
	s.mu.Lock()
	s.timestamps = append(s.timestamps, s.clock.Now())
	s.mu.Unlock()
}

func (s *service) Summary(state entity.CounterState) entity.StatsSummary {
	s.mu.Lock()
	start := s.start
	timestamps := make([]time.Time, len(s.timestamps))
	copy(timestamps, s.timestamps)
	s.mu.Unlock()

	summary := entity.StatsSummary{
		EstimatedCandyDepletion: "N/A",
		StartTime:               start.UnixMilli(),
	}

	elapsedHours := s.clock.Since(start).Hours()
	if elapsedHours <= 0 {
		return summary
	}

	summary.TrickOrTreatersPerHour = round1(float64(state.CurrentCount) / elapsedHours)

	// Average gap between consecutive visits, in minutes
	if len(timestamps) > 1 {
		var total time.Duration
		for i := 1; i < len(timestamps); i++ {
			total += timestamps[i].Sub(timestamps[i-1])
		}
		summary.AverageMinutesBetween = round1(total.Minutes() / float64(len(timestamps)-1))
	}

	candyUsed := state.InitialCandyCount - state.CandyRemaining
	depletionRate := float64(candyUsed) / elapsedHours
	summary.CandyDepletionRate = round1(depletionRate)

	if state.CandyRemaining == 0 {
		summary.EstimatedCandyDepletion = "Out of candy!"
	} else if depletionRate > 0 {
		minutesRemaining := int(math.Round(float64(state.CandyRemaining) / depletionRate * 60))
		if minutesRemaining < 60 {
			summary.EstimatedCandyDepletion = fmt.Sprintf("%d minutes", minutesRemaining)
		} else {
			summary.EstimatedCandyDepletion = fmt.Sprintf("%dh %dm", minutesRemaining/60, minutesRemaining%60)
		}
	}

	return summary
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
