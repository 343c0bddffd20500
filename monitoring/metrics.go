package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"libflow/models"
)

var (
	seatsByStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "libflow_seats",
			Help: "Current number of seats per status",
		},
		[]string{"status"},
	)

	zoneFreeSeats = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "libflow_zone_free_seats",
			Help: "Current number of available seats per zone",
		},
		[]string{"zone"},
	)

	occupancyRate = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "libflow_occupancy_ratio",
			Help: "Share of seats occupied or reserved",
		},
	)

	snapshotVersion = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "libflow_snapshot_version",
			Help: "Version of the latest display snapshot",
		},
	)

	publishOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "libflow_snapshot_publish_total",
			Help: "Total snapshot publish operations per sink",
		},
		[]string{"sink", "status"},
	)

	liveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "libflow_live_sessions",
			Help: "Current number of live seat views",
		},
	)

	recommendationRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "libflow_recommendation_requests_total",
			Help: "Total recommendation requests by outcome",
		},
		[]string{"status"},
	)

	recommendationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "libflow_recommendation_duration_seconds",
			Help:    "Latency of recommendation calls",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 8),
		},
	)
)

// Monitor records service metrics. The zero value is ready to use.
type Monitor struct{}

func NewMonitor() *Monitor {
	return &Monitor{}
}

// ObserveSnapshot refreshes the occupancy gauges from snap.
func (m *Monitor) ObserveSnapshot(snap models.Snapshot) {
	st := snap.Stats
	seatsByStatus.WithLabelValues(string(models.SeatAvailable)).Set(float64(st.Available))
	seatsByStatus.WithLabelValues(string(models.SeatOccupied)).Set(float64(st.Occupied))
	seatsByStatus.WithLabelValues(string(models.SeatReserved)).Set(float64(st.Reserved))
	for _, z := range st.Zones {
		zoneFreeSeats.WithLabelValues(z.Zone).Set(float64(z.Free))
	}
	occupancyRate.Set(st.OccupancyRate)
	snapshotVersion.Set(float64(snap.Version))
}

// Track snapshot publish operations
func (m *Monitor) TrackPublish(sink, status string) {
	publishOperations.WithLabelValues(sink, status).Inc()
}

func (m *Monitor) LiveSessionOpened() {
	liveSessions.Inc()
}

func (m *Monitor) LiveSessionClosed() {
	liveSessions.Dec()
}

// Track recommendation outcome and latency
func (m *Monitor) TrackRecommendation(status string, duration time.Duration) {
	recommendationRequests.WithLabelValues(status).Inc()
	recommendationDuration.Observe(duration.Seconds())
}
