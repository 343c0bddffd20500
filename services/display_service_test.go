package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libflow/models"
)

type fakeSink struct {
	mu       sync.Mutex
	versions []uint64
	err      error
}

func (f *fakeSink) record(snap models.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.versions = append(f.versions, snap.Version)
	return f.err
}

func (f *fakeSink) Save(_ context.Context, snap models.Snapshot) error    { return f.record(snap) }
func (f *fakeSink) Publish(_ context.Context, snap models.Snapshot) error { return f.record(snap) }

func (f *fakeSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.versions)
}

func (f *fakeSink) seen() []uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uint64(nil), f.versions...)
}

func runDisplay(t *testing.T, d *DisplayService) (stop func() error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Serve(ctx) }()

	return func() error {
		cancel()
		select {
		case err := <-done:
			return err
		case <-time.After(2 * time.Second):
			t.Fatal("display service did not stop")
			return nil
		}
	}
}

func TestDisplayService_FansOutSnapshots(t *testing.T) {
	store, publisher := &fakeSink{}, &fakeSink{}
	d := NewDisplayService(models.DefaultZones, 5*time.Millisecond, store, publisher, nil, zerolog.Nop())

	stop := runDisplay(t, d)
	assert.Eventually(t, func() bool { return store.count() >= 3 && publisher.count() >= 3 }, 2*time.Second, 5*time.Millisecond)

	snap, ok := d.Snapshot()
	require.True(t, ok)
	assert.Equal(t, 75, snap.Stats.Total)

	assert.ErrorIs(t, stop(), context.Canceled)

	// Latest-wins delivery may skip versions but never reorders them.
	seen := store.seen()
	for i := 1; i < len(seen); i++ {
		assert.Greater(t, seen[i], seen[i-1])
	}
}

func TestDisplayService_SinkErrorsDoNotStopTheDisplay(t *testing.T) {
	store := &fakeSink{err: errors.New("redis down")}
	d := NewDisplayService(models.DefaultZones, 5*time.Millisecond, store, nil, nil, zerolog.Nop())

	stop := runDisplay(t, d)
	defer stop()

	assert.Eventually(t, func() bool { return store.count() >= 3 }, 2*time.Second, 5*time.Millisecond)
}

func TestDisplayService_FreeSeats(t *testing.T) {
	d := NewDisplayService(models.DefaultZones, time.Hour, nil, nil, nil, zerolog.Nop())

	free, ok := d.FreeSeats("Quiet Zone")
	assert.True(t, ok)
	assert.Equal(t, 0, free)

	_, ok = d.Snapshot()
	assert.False(t, ok)

	stop := runDisplay(t, d)
	defer stop()
	assert.Eventually(t, func() bool { _, ok := d.Snapshot(); return ok }, time.Second, 5*time.Millisecond)

	snap, _ := d.Snapshot()
	for _, z := range snap.Stats.Zones {
		free, ok := d.FreeSeats(z.Zone)
		assert.True(t, ok)
		assert.Equal(t, z.Free, free)
		capacity, _ := models.DefaultZones.Capacity(z.Zone)
		assert.LessOrEqual(t, free, capacity)
	}

	_, ok = d.FreeSeats("Rooftop")
	assert.False(t, ok)
}

func TestDisplayService_EnqueueKeepsNewest(t *testing.T) {
	d := NewDisplayService(models.DefaultZones, time.Hour, nil, nil, nil, zerolog.Nop())

	d.enqueue(models.Snapshot{Version: 1})
	d.enqueue(models.Snapshot{Version: 2})
	d.enqueue(models.Snapshot{Version: 3})

	got := <-d.updates
	assert.Equal(t, uint64(3), got.Version)
	assert.Empty(t, d.updates)
}
