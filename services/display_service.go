package services

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"libflow/internal/occupancy"
	"libflow/models"
	"libflow/monitoring"
)

// SnapshotSink receives display snapshots off the ticking goroutine.
type SnapshotSink interface {
	Save(ctx context.Context, snap models.Snapshot) error
}

type SnapshotPublisher interface {
	Publish(ctx context.Context, snap models.Snapshot) error
}

// DisplayService runs the shared floor display: one simulator for the
// whole process whose snapshots are mirrored to Redis, pushed to PubNub and
// exported as metrics.
type DisplayService struct {
	zones     models.ZoneConfig
	interval  time.Duration
	store     SnapshotSink
	publisher SnapshotPublisher
	monitor   *monitoring.Monitor
	log       zerolog.Logger

	sim     atomic.Pointer[occupancy.Simulator]
	updates chan models.Snapshot

	// sinkTimeout bounds each Redis or PubNub call.
	sinkTimeout time.Duration
}

// NewDisplayService wires the display. store and publisher may be nil.
func NewDisplayService(zones models.ZoneConfig, interval time.Duration, store SnapshotSink, publisher SnapshotPublisher, monitor *monitoring.Monitor, log zerolog.Logger) *DisplayService {
	if monitor == nil {
		monitor = monitoring.NewMonitor()
	}
	return &DisplayService{
		zones:       zones,
		interval:    interval,
		store:       store,
		publisher:   publisher,
		monitor:     monitor,
		log:         log,
		updates:     make(chan models.Snapshot, 1),
		sinkTimeout: 2 * time.Second,
	}
}

// Serve runs a fresh simulator until ctx is done.
func (d *DisplayService) Serve(ctx context.Context) error {
	sim := occupancy.New(d.zones,
		occupancy.WithInterval(d.interval),
		occupancy.WithLogger(d.log),
	)
	unsubscribe := sim.Subscribe(d.enqueue)
	defer unsubscribe()

	if err := sim.Start(ctx); err != nil {
		return err
	}
	defer sim.Stop()
	d.sim.Store(sim)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case snap := <-d.updates:
			d.fanOut(ctx, snap)
		}
	}
}

func (d *DisplayService) String() string {
	return "display-service"
}

// enqueue keeps only the newest pending snapshot so a slow sink never
// holds up the simulator.
func (d *DisplayService) enqueue(snap models.Snapshot) {
	select {
	case d.updates <- snap:
		return
	default:
	}
	select {
	case <-d.updates:
	default:
	}
	select {
	case d.updates <- snap:
	default:
	}
}

func (d *DisplayService) fanOut(ctx context.Context, snap models.Snapshot) {
	d.monitor.ObserveSnapshot(snap)

	if d.store != nil {
		sinkCtx, cancel := context.WithTimeout(ctx, d.sinkTimeout)
		err := d.store.Save(sinkCtx, snap)
		cancel()
		d.track("redis", err, snap.Version)
	}

	if d.publisher != nil {
		sinkCtx, cancel := context.WithTimeout(ctx, d.sinkTimeout)
		err := d.publisher.Publish(sinkCtx, snap)
		cancel()
		d.track("pubnub", err, snap.Version)
	}
}

func (d *DisplayService) track(sink string, err error, version uint64) {
	if err != nil {
		d.monitor.TrackPublish(sink, "error")
		d.log.Warn().Err(err).Str("sink", sink).Uint64("version", version).Msg("snapshot not delivered")
		return
	}
	d.monitor.TrackPublish(sink, "success")
}

// Snapshot returns the latest display snapshot; ok is false until the
// display has started.
func (d *DisplayService) Snapshot() (models.Snapshot, bool) {
	sim := d.sim.Load()
	if sim == nil {
		return models.Snapshot{}, false
	}
	return sim.Snapshot()
}

// FreeSeats returns the number of available seats in zone and whether the
// zone is part of the layout. It is 0 until the display has started.
func (d *DisplayService) FreeSeats(zone string) (int, bool) {
	if _, ok := d.zones.Capacity(zone); !ok {
		return 0, false
	}
	snap, ok := d.Snapshot()
	if !ok {
		return 0, true
	}
	return occupancy.FreeSeatsInZone(snap.Seats, zone), true
}
