package occupancy

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libflow/models"
)

type recorder struct {
	mu    sync.Mutex
	snaps []models.Snapshot
}

func (r *recorder) listen(s models.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, s)
}

func (r *recorder) versions() []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]uint64, 0, len(r.snaps))
	for _, s := range r.snaps {
		out = append(out, s.Version)
	}
	return out
}

func (r *recorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snaps)
}

func manualSimulator(opts ...Option) *Simulator {
	opts = append([]Option{WithInterval(0), WithSource(seeded())}, opts...)
	return New(models.DefaultZones, opts...)
}

func TestSimulator_SubscribeBeforeStartGetsInitialSnapshot(t *testing.T) {
	sim := manualSimulator()
	defer sim.Stop()

	rec := &recorder{}
	sim.Subscribe(rec.listen)
	assert.Equal(t, 0, rec.len())

	require.NoError(t, sim.Start(context.Background()))

	require.Equal(t, []uint64{0}, rec.versions())
	snap := rec.snaps[0]
	assert.Len(t, snap.Seats, 75)
	assert.Equal(t, 75, snap.Stats.Total)
	assert.Equal(t, 0, snap.Stats.Reserved)
}

func TestSimulator_SubscribeAfterStartGetsCurrentSnapshot(t *testing.T) {
	sim := manualSimulator()
	defer sim.Stop()
	require.NoError(t, sim.Start(context.Background()))
	_, err := sim.Step()
	require.NoError(t, err)

	rec := &recorder{}
	sim.Subscribe(rec.listen)

	assert.Equal(t, []uint64{1}, rec.versions())
}

func TestSimulator_StepAdvancesVersionAndNotifiesInOrder(t *testing.T) {
	sim := manualSimulator()
	defer sim.Stop()

	var order []string
	sim.Subscribe(func(models.Snapshot) { order = append(order, "first") })
	sim.Subscribe(func(models.Snapshot) { order = append(order, "second") })
	require.NoError(t, sim.Start(context.Background()))

	for i := 1; i <= 3; i++ {
		snap, err := sim.Step()
		require.NoError(t, err)
		assert.Equal(t, uint64(i), snap.Version)

		latest, ok := sim.Snapshot()
		require.True(t, ok)
		assert.Equal(t, snap.Version, latest.Version)
		assert.Equal(t, ComputeStats(latest.Seats, models.DefaultZones...), latest.Stats)
	}

	assert.Equal(t, []string{"first", "second", "first", "second", "first", "second", "first", "second"}, order)
}

func TestSimulator_SnapshotsAreNotMutatedByLaterTicks(t *testing.T) {
	sim := manualSimulator()
	defer sim.Stop()
	require.NoError(t, sim.Start(context.Background()))

	first, _ := sim.Snapshot()
	kept := make([]models.Seat, len(first.Seats))
	copy(kept, first.Seats)

	for i := 0; i < 20; i++ {
		_, err := sim.Step()
		require.NoError(t, err)
	}

	assert.Equal(t, kept, first.Seats)
}

func TestSimulator_Unsubscribe(t *testing.T) {
	sim := manualSimulator()
	defer sim.Stop()
	require.NoError(t, sim.Start(context.Background()))

	rec := &recorder{}
	unsubscribe := sim.Subscribe(rec.listen)
	assert.Equal(t, 1, sim.Subscribers())

	_, _ = sim.Step()
	unsubscribe()
	unsubscribe()
	_, _ = sim.Step()

	assert.Equal(t, []uint64{0, 1}, rec.versions())
	assert.Equal(t, 0, sim.Subscribers())
}

func TestSimulator_Lifecycle(t *testing.T) {
	sim := manualSimulator()

	_, err := sim.Step()
	assert.ErrorIs(t, err, ErrNotStarted)

	_, ok := sim.Snapshot()
	assert.False(t, ok)

	require.NoError(t, sim.Start(context.Background()))
	assert.ErrorIs(t, sim.Start(context.Background()), ErrAlreadyStarted)

	sim.Stop()
	sim.Stop()

	_, err = sim.Step()
	assert.ErrorIs(t, err, ErrStopped)
	assert.ErrorIs(t, sim.Start(context.Background()), ErrStopped)
}

func TestSimulator_StopBeforeStart(t *testing.T) {
	sim := manualSimulator()
	sim.Stop()

	assert.ErrorIs(t, sim.Start(context.Background()), ErrStopped)
}

func TestSimulator_UsesClock(t *testing.T) {
	at := time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)
	sim := manualSimulator(WithClock(func() time.Time { return at }))
	defer sim.Stop()
	require.NoError(t, sim.Start(context.Background()))

	snap, _ := sim.Snapshot()
	assert.Equal(t, at, snap.UpdatedAt)
}

func TestSimulator_TimerTicksUntilStopped(t *testing.T) {
	sim := New(models.DefaultZones, WithInterval(5*time.Millisecond), WithSource(seeded()))

	rec := &recorder{}
	sim.Subscribe(rec.listen)
	require.NoError(t, sim.Start(context.Background()))

	assert.Eventually(t, func() bool { return rec.len() >= 4 }, 2*time.Second, 5*time.Millisecond)

	sim.Stop()
	stoppedAt := rec.len()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stoppedAt, rec.len(), "no updates after stop")

	versions := rec.versions()
	for i, v := range versions {
		assert.Equal(t, uint64(i), v)
	}
}

func TestSimulator_ContextCancelStopsTicking(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sim := New(models.DefaultZones, WithInterval(5*time.Millisecond), WithSource(seeded()))
	defer sim.Stop()

	rec := &recorder{}
	sim.Subscribe(rec.listen)
	require.NoError(t, sim.Start(ctx))
	assert.Eventually(t, func() bool { return rec.len() >= 2 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	time.Sleep(20 * time.Millisecond)
	n := rec.len()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, n, rec.len())
}

func TestSimulator_ConcurrentReaders(t *testing.T) {
	sim := New(models.DefaultZones, WithInterval(time.Millisecond))
	defer sim.Stop()
	require.NoError(t, sim.Start(context.Background()))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				snap, ok := sim.Snapshot()
				if assert.True(t, ok) {
					assert.Len(t, snap.Seats, 75)
					assert.Equal(t, snap.Stats.Total, snap.Stats.Available+snap.Stats.Occupied+snap.Stats.Reserved)
				}
			}
		}()
	}
	wg.Wait()
}
