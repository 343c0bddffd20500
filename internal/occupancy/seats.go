// Package occupancy simulates live seat occupancy for the library floor.
//
// Seats live in fixed zones and only their status changes. Initialize
// builds the population, Tick advances it by one step, and ComputeStats
// and FreeSeatsInZone derive the aggregates shown to readers. All of them
// are pure: Tick returns a fresh slice and never touches its input.
// Simulator drives Tick on a timer and fans snapshots out to subscribers.
package occupancy

import (
	"math/rand/v2"
	"strconv"

	"libflow/models"
)

const (
	// initialOccupiedAbove: an initial draw above this value seats someone.
	initialOccupiedAbove = 0.4

	// rerollChance is the per-seat, per-tick probability of a status re-roll.
	rerollChance = 0.1

	// Re-roll thresholds: r > occupiedAbove is occupied, r > reservedAtMost
	// is available, anything else is reserved.
	occupiedAbove  = 0.6
	reservedAtMost = 0.1
)

// Source yields uniform values in [0,1).
type Source interface {
	Float64() float64
}

type globalSource struct{}

func (globalSource) Float64() float64 { return rand.Float64() }

// DefaultSource draws from math/rand/v2's global generator.
func DefaultSource() Source { return globalSource{} }

// Initialize creates the seat population for zones, in zone order, with
// sequential ids starting at "1". Seats start occupied or available, never
// reserved. Zones with a non-positive count produce no seats.
func Initialize(zones models.ZoneConfig, src Source) []models.Seat {
	if src == nil {
		src = DefaultSource()
	}

	total := 0
	for _, z := range zones {
		if z.Seats > 0 {
			total += z.Seats
		}
	}

	seats := make([]models.Seat, 0, total)
	next := 1
	for _, z := range zones {
		for i := 0; i < z.Seats; i++ {
			status := models.SeatAvailable
			if src.Float64() > initialOccupiedAbove {
				status = models.SeatOccupied
			}
			seats = append(seats, models.Seat{
				ID:     strconv.Itoa(next),
				Zone:   z.Name,
				Status: status,
			})
			next++
		}
	}
	return seats
}

// Tick returns the next generation of seats. Each seat first passes a
// stay-or-reroll gate and only re-rolled seats take a second, categorical
// draw across all three states.
func Tick(current []models.Seat, src Source) []models.Seat {
	if src == nil {
		src = DefaultSource()
	}

	next := make([]models.Seat, len(current))
	for i, seat := range current {
		next[i] = seat
		if src.Float64() >= rerollChance {
			continue
		}
		next[i].Status = reroll(src.Float64())
	}
	return next
}

func reroll(r float64) models.SeatStatus {
	switch {
	case r > occupiedAbove:
		return models.SeatOccupied
	case r > reservedAtMost:
		return models.SeatAvailable
	default:
		return models.SeatReserved
	}
}
