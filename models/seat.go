package models

import (
	"time"
)

type SeatStatus string

const (
	SeatAvailable SeatStatus = "available"
	SeatOccupied  SeatStatus = "occupied"
	SeatReserved  SeatStatus = "reserved"
)

// Valid reports whether s is one of the known seat states.
func (s SeatStatus) Valid() bool {
	switch s {
	case SeatAvailable, SeatOccupied, SeatReserved:
		return true
	}
	return false
}

type Seat struct {
	ID     string     `json:"id"`
	Zone   string     `json:"zone"`
	Status SeatStatus `json:"status"`
}

// ZoneSpec is one entry of a zone layout: how many seats a named zone holds.
type ZoneSpec struct {
	Name  string `json:"name" koanf:"name"`
	Seats int    `json:"seats" koanf:"seats"`
}

// ZoneConfig is an ordered zone layout. Order decides seat id assignment.
type ZoneConfig []ZoneSpec

// DefaultZones is the library floor layout.
var DefaultZones = ZoneConfig{
	{Name: "Quiet Zone", Seats: 40},
	{Name: "Collab Area", Seats: 20},
	{Name: "Computer Lab", Seats: 15},
}

// Names returns the zone names in layout order.
func (z ZoneConfig) Names() []string {
	names := make([]string, 0, len(z))
	for _, spec := range z {
		names = append(names, spec.Name)
	}
	return names
}

// Capacity returns the configured seat count for zone and whether it exists.
func (z ZoneConfig) Capacity(zone string) (int, bool) {
	for _, spec := range z {
		if spec.Name == zone {
			if spec.Seats < 0 {
				return 0, true
			}
			return spec.Seats, true
		}
	}
	return 0, false
}

type ZoneStats struct {
	Zone  string `json:"zone"`
	Total int    `json:"total"`
	Free  int    `json:"free"`
}

type Stats struct {
	Total            int         `json:"total"`
	Available        int         `json:"available"`
	Occupied         int         `json:"occupied"`
	Reserved         int         `json:"reserved"`
	OccupancyRate    float64     `json:"occupancy_rate"`
	OccupancyPercent int64       `json:"occupancy_percent"`
	Zones            []ZoneStats `json:"zones"`
}

// Snapshot is an immutable view of a simulator's seats after one update.
type Snapshot struct {
	Seats     []Seat    `json:"seats"`
	Stats     Stats     `json:"stats"`
	Version   uint64    `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}
