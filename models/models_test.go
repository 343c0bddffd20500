package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSeatStatus_Valid(t *testing.T) {
	for _, s := range []SeatStatus{SeatAvailable, SeatOccupied, SeatReserved} {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, SeatStatus("broken").Valid())
	assert.False(t, SeatStatus("").Valid())
}

func TestZoneConfig_NamesKeepLayoutOrder(t *testing.T) {
	assert.Equal(t, []string{"Quiet Zone", "Collab Area", "Computer Lab"}, DefaultZones.Names())
	assert.Empty(t, ZoneConfig{}.Names())
}

func TestZoneConfig_Capacity(t *testing.T) {
	zones := ZoneConfig{{Name: "A", Seats: 2}, {Name: "Closed", Seats: -3}}

	tests := []struct {
		zone   string
		want   int
		wantOK bool
	}{
		{"A", 2, true},
		{"Closed", 0, true},
		{"Missing", 0, false},
		{"a", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.zone, func(t *testing.T) {
			got, ok := zones.Capacity(tt.zone)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestIsOpen(t *testing.T) {
	// 2026-10-16 is a Friday, 2026-10-17 a Saturday.
	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"weekday before opening", time.Date(2026, 10, 16, 7, 59, 0, 0, time.UTC), false},
		{"weekday at opening", time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC), true},
		{"weekday evening", time.Date(2026, 10, 16, 21, 59, 0, 0, time.UTC), true},
		{"weekday at closing", time.Date(2026, 10, 16, 22, 0, 0, 0, time.UTC), false},
		{"saturday morning", time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC), false},
		{"saturday noon", time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC), true},
		{"saturday evening", time.Date(2026, 10, 17, 18, 0, 0, 0, time.UTC), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsOpen(DefaultHours, tt.at))
		})
	}
}

func TestIsOpen_IgnoresBadTimetable(t *testing.T) {
	hours := []OpeningHours{{Label: "broken", Days: []time.Weekday{time.Friday}, Opens: "8am", Close: "22:00"}}

	assert.False(t, IsOpen(hours, time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)))
	assert.False(t, IsOpen(nil, time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)))
}
