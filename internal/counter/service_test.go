// Counter service tests in Candycast.

package counter

import (
	"Candycast/internal/entity"
	"Candycast/pkg/log"
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// recordingHub captures every broadcast snapshot in order.
// Stands in for the sse hub in counter tests.
type recordingHub struct {
	mu        sync.Mutex
	snapshots []entity.CounterSnapshot
}

func (h *recordingHub) Broadcast(snapshot entity.CounterSnapshot) {
	h.mu.Lock()
	h.snapshots = append(h.snapshots, snapshot)
	h.mu.Unlock()
}

func (h *recordingHub) recorded() []entity.CounterSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]entity.CounterSnapshot, len(h.snapshots))
	copy(out, h.snapshots)
	return out
}

func newTestService(initialCandy int) (Service, *recordingHub) {
	hub := &recordingHub{}
	return NewService(initialCandy, 1, hub, nil, log.New("test")), hub
}

func TestIncrementSequence(t *testing.T) {
	service, hub := newTestService(100)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		state := service.Increment(ctx)
		assert.Equal(t, i, state.CurrentCount)
		assert.Equal(t, 100-i, state.CandyRemaining)
	}

	state := service.State()
	assert.Equal(t, 5, state.CurrentCount)
	assert.Equal(t, 95, state.CandyRemaining)
	assert.Equal(t, 100, state.InitialCandyCount)

	// One broadcast per mutation, in mutation order
	snapshots := hub.recorded()
	assert.Len(t, snapshots, 5)
	for i, snapshot := range snapshots {
		assert.Equal(t, i+1, snapshot.CurrentCount)
	}
}

func TestCandyClampsAtZero(t *testing.T) {
	service, _ := newTestService(100)
	ctx := context.Background()

	// The count keeps rising after the candy bowl is empty
	for i := 0; i < 105; i++ {
		state := service.Increment(ctx)
		assert.GreaterOrEqual(t, state.CandyRemaining, 0)
	}

	state := service.State()
	assert.Equal(t, 105, state.CurrentCount)
	assert.Equal(t, 0, state.CandyRemaining)
}

func TestApplySettingsRecomputesCandy(t *testing.T) {
	service, _ := newTestService(100)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		service.Increment(ctx)
	}

	state := service.ApplySettings(ctx, entity.Settings{"initialCandyCount": float64(50)})
	assert.Equal(t, 10, state.CurrentCount)
	assert.Equal(t, 50, state.InitialCandyCount)
	assert.Equal(t, 40, state.CandyRemaining)
}

func TestApplySettingsBothFields(t *testing.T) {
	service, _ := newTestService(100)
	ctx := context.Background()

	// The recomputation uses the just-updated count
	state := service.ApplySettings(ctx, entity.Settings{
		"currentCount":      float64(10),
		"initialCandyCount": float64(50),
	})
	assert.Equal(t, 10, state.CurrentCount)
	assert.Equal(t, 40, state.CandyRemaining)
}

// Overwriting only currentCount deliberately leaves candyRemaining at its
// prior value, even though the invariant formula no longer matches. Known
// edge case inherited from the settings contract.
func TestApplySettingsCountOnlyKeepsCandy(t *testing.T) {
	service, _ := newTestService(100)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		service.Increment(ctx)
	}

	state := service.ApplySettings(ctx, entity.Settings{"currentCount": float64(2)})
	assert.Equal(t, 2, state.CurrentCount)
	assert.Equal(t, 95, state.CandyRemaining)
}

func TestApplySettingsIgnoresNonNumericFields(t *testing.T) {
	service, hub := newTestService(100)
	ctx := context.Background()

	before := service.State()
	state := service.ApplySettings(ctx, entity.Settings{
		"currentCount":      "thirteen",
		"initialCandyCount": true,
		"unrelated":         float64(7),
	})
	assert.Equal(t, before, state)

	// A well-formed body still broadcasts, even if every field was ignored
	assert.Len(t, hub.recorded(), 1)
}

func TestBroadcastOrderMatchesMutationOrder(t *testing.T) {
	service, hub := newTestService(1000)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				service.Increment(ctx)
			}
		}()
	}
	wg.Wait()

	snapshots := hub.recorded()
	assert.Len(t, snapshots, 200)
	for i, snapshot := range snapshots {
		assert.Equal(t, i+1, snapshot.CurrentCount)
	}
}

func TestSnapshotMatchesState(t *testing.T) {
	service, _ := newTestService(100)
	ctx := context.Background()

	service.Increment(ctx)
	snapshot := service.Snapshot()
	state := service.State()
	assert.Equal(t, state.Snapshot(), snapshot)
}
