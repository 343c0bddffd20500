package occupancy

import (
	"github.com/shopspring/decimal"

	"libflow/models"
)

var hundred = decimal.NewFromInt(100)

// ComputeStats aggregates seats. When a layout is given, per-zone entries
// follow it and include empty zones; otherwise zones appear in seat order.
func ComputeStats(seats []models.Seat, layout ...models.ZoneSpec) models.Stats {
	st := models.Stats{Total: len(seats)}

	index := make(map[string]int, len(layout))
	for _, z := range layout {
		if _, ok := index[z.Name]; ok {
			continue
		}
		index[z.Name] = len(st.Zones)
		st.Zones = append(st.Zones, models.ZoneStats{Zone: z.Name})
	}

	for _, seat := range seats {
		i, ok := index[seat.Zone]
		if !ok {
			i = len(st.Zones)
			index[seat.Zone] = i
			st.Zones = append(st.Zones, models.ZoneStats{Zone: seat.Zone})
		}
		st.Zones[i].Total++

		switch seat.Status {
		case models.SeatAvailable:
			st.Available++
			st.Zones[i].Free++
		case models.SeatOccupied:
			st.Occupied++
		case models.SeatReserved:
			st.Reserved++
		}
	}

	if st.Total > 0 {
		taken := st.Occupied + st.Reserved
		st.OccupancyRate = float64(taken) / float64(st.Total)
		st.OccupancyPercent = decimal.NewFromInt(int64(taken)).
			Mul(hundred).
			DivRound(decimal.NewFromInt(int64(st.Total)), 8).
			Round(0).
			IntPart()
	}
	return st
}

// FreeSeatsInZone counts available seats in zone. Unknown zones have none.
func FreeSeatsInZone(seats []models.Seat, zone string) int {
	free := 0
	for _, seat := range seats {
		if seat.Zone == zone && seat.Status == models.SeatAvailable {
			free++
		}
	}
	return free
}
