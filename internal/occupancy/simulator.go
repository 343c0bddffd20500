package occupancy

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"libflow/models"
)

// DefaultInterval is how often a running simulator ticks.
const DefaultInterval = 3 * time.Second

var (
	ErrAlreadyStarted = errors.New("occupancy: simulator already started")
	ErrStopped        = errors.New("occupancy: simulator stopped")
	ErrNotStarted     = errors.New("occupancy: simulator not started")
)

// Listener receives every snapshot a simulator publishes.
type Listener func(models.Snapshot)

type Option func(*Simulator)

// WithInterval sets the tick period. A non-positive interval disables the
// timer; the simulator then only advances through Step.
func WithInterval(d time.Duration) Option {
	return func(s *Simulator) { s.interval = d }
}

func WithSource(src Source) Option {
	return func(s *Simulator) {
		if src != nil {
			s.src = src
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Simulator) {
		if now != nil {
			s.now = now
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Simulator) { s.log = l }
}

type subscriber struct {
	id uint64
	fn Listener
}

// Simulator owns one seat population and advances it on a timer.
//
// Ticks are serialized: the next tick is not applied until every listener
// has seen the previous snapshot. Listeners run on the ticking goroutine
// and must not call Subscribe, Step or Stop on the same simulator.
type Simulator struct {
	zones    models.ZoneConfig
	interval time.Duration
	src      Source
	now      func() time.Time
	log      zerolog.Logger

	// stepMu serializes state replacement plus fan-out.
	stepMu sync.Mutex

	mu       sync.RWMutex
	snapshot models.Snapshot
	ready    bool

	subMu  sync.Mutex
	subs   []subscriber
	nextID uint64

	lifeMu  sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	stopped bool
	halted  atomic.Bool
}

func New(zones models.ZoneConfig, opts ...Option) *Simulator {
	layout := make(models.ZoneConfig, len(zones))
	copy(layout, zones)

	s := &Simulator{
		zones:    layout,
		interval: DefaultInterval,
		src:      DefaultSource(),
		now:      time.Now,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start seeds the seat population, hands the first snapshot to current
// subscribers and starts ticking until ctx is done or Stop is called.
func (s *Simulator) Start(ctx context.Context) error {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()

	if s.stopped {
		return ErrStopped
	}
	if s.done != nil {
		return ErrAlreadyStarted
	}

	s.stepMu.Lock()
	seats := Initialize(s.zones, s.src)
	snap := s.replace(seats, 0)
	s.notify(snap)
	s.stepMu.Unlock()

	s.log.Info().
		Int("seats", snap.Stats.Total).
		Int("zones", len(s.zones)).
		Dur("interval", s.interval).
		Msg("simulation started")

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(runCtx, s.done)
	return nil
}

func (s *Simulator) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	if s.interval <= 0 {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Step(); err != nil {
				if errors.Is(err, ErrStopped) {
					return
				}
				s.log.Warn().Err(err).Msg("tick skipped")
			}
		}
	}
}

// Step applies exactly one tick and returns the resulting snapshot.
func (s *Simulator) Step() (models.Snapshot, error) {
	s.stepMu.Lock()
	defer s.stepMu.Unlock()

	if s.halted.Load() {
		return models.Snapshot{}, ErrStopped
	}

	s.mu.RLock()
	ready, current := s.ready, s.snapshot
	s.mu.RUnlock()
	if !ready {
		return models.Snapshot{}, ErrNotStarted
	}

	snap := s.replace(Tick(current.Seats, s.src), current.Version+1)
	s.notify(snap)

	s.log.Debug().
		Uint64("version", snap.Version).
		Int("available", snap.Stats.Available).
		Int("occupied", snap.Stats.Occupied).
		Int("reserved", snap.Stats.Reserved).
		Msg("tick applied")
	return snap, nil
}

// Stop cancels the timer and waits for the ticking goroutine to exit.
// It is safe to call more than once and before Start.
func (s *Simulator) Stop() {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()

	if s.stopped {
		return
	}
	s.stopped = true
	s.halted.Store(true)

	if s.cancel != nil {
		s.cancel()
		<-s.done
		s.log.Info().Msg("simulation stopped")
	}
}

// Snapshot returns the latest snapshot; ok is false before Start.
func (s *Simulator) Snapshot() (models.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot, s.ready
}

// Subscribe registers fn for every future snapshot. If the simulator is
// already running, fn immediately receives the current snapshot. The
// returned func removes the subscription and may be called repeatedly.
func (s *Simulator) Subscribe(fn Listener) (unsubscribe func()) {
	s.stepMu.Lock()
	defer s.stepMu.Unlock()

	s.subMu.Lock()
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	s.subMu.Unlock()

	if snap, ok := s.Snapshot(); ok {
		fn(snap)
	}

	var once sync.Once
	return func() {
		once.Do(func() { s.remove(id) })
	}
}

func (s *Simulator) remove(id uint64) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for i, sub := range s.subs {
		if sub.id == id {
			s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
			return
		}
	}
}

// Subscribers reports how many listeners are registered.
func (s *Simulator) Subscribers() int {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	return len(s.subs)
}

func (s *Simulator) replace(seats []models.Seat, version uint64) models.Snapshot {
	snap := models.Snapshot{
		Seats:     seats,
		Stats:     ComputeStats(seats, s.zones...),
		Version:   version,
		UpdatedAt: s.now(),
	}

	s.mu.Lock()
	s.snapshot = snap
	s.ready = true
	s.mu.Unlock()
	return snap
}

func (s *Simulator) notify(snap models.Snapshot) {
	s.subMu.Lock()
	subs := make([]subscriber, len(s.subs))
	copy(subs, s.subs)
	s.subMu.Unlock()

	for _, sub := range subs {
		sub.fn(snap)
	}
}
