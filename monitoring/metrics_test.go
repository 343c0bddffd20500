package monitoring

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"libflow/models"
)

func TestMonitor_ObserveSnapshot(t *testing.T) {
	m := NewMonitor()
	m.ObserveSnapshot(models.Snapshot{
		Version: 7,
		Stats: models.Stats{
			Total:         5,
			Available:     2,
			Occupied:      2,
			Reserved:      1,
			OccupancyRate: 0.6,
			Zones: []models.ZoneStats{
				{Zone: "Quiet Zone", Total: 3, Free: 2},
				{Zone: "Computer Lab", Total: 2, Free: 0},
			},
		},
	})

	assert.Equal(t, 2.0, testutil.ToFloat64(seatsByStatus.WithLabelValues("available")))
	assert.Equal(t, 2.0, testutil.ToFloat64(seatsByStatus.WithLabelValues("occupied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(seatsByStatus.WithLabelValues("reserved")))
	assert.Equal(t, 2.0, testutil.ToFloat64(zoneFreeSeats.WithLabelValues("Quiet Zone")))
	assert.Equal(t, 0.0, testutil.ToFloat64(zoneFreeSeats.WithLabelValues("Computer Lab")))
	assert.Equal(t, 0.6, testutil.ToFloat64(occupancyRate))
	assert.Equal(t, 7.0, testutil.ToFloat64(snapshotVersion))
}

func TestMonitor_Counters(t *testing.T) {
	m := NewMonitor()

	before := testutil.ToFloat64(publishOperations.WithLabelValues("redis", "success"))
	m.TrackPublish("redis", "success")
	assert.Equal(t, before+1, testutil.ToFloat64(publishOperations.WithLabelValues("redis", "success")))

	sessions := testutil.ToFloat64(liveSessions)
	m.LiveSessionOpened()
	m.LiveSessionOpened()
	m.LiveSessionClosed()
	assert.Equal(t, sessions+1, testutil.ToFloat64(liveSessions))

	recs := testutil.ToFloat64(recommendationRequests.WithLabelValues("ok"))
	m.TrackRecommendation("ok", 1200*time.Millisecond)
	assert.Equal(t, recs+1, testutil.ToFloat64(recommendationRequests.WithLabelValues("ok")))
}
