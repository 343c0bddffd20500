package models

import (
	"time"
)

// OpeningHours is one row of the library timetable. Times are "15:04" in local time.
type OpeningHours struct {
	Label string         `json:"label"`
	Days  []time.Weekday `json:"-"`
	Opens string         `json:"opens"`
	Close string         `json:"closes"`
}

// Feature is a landing page card linking to one of the service areas.
type Feature struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Action      string `json:"action"`
	Path        string `json:"path"`
}

type Dashboard struct {
	Zones    []ZoneSpec     `json:"zones"`
	Hours    []OpeningHours `json:"hours"`
	OpenNow  bool           `json:"open_now"`
	Features []Feature      `json:"features"`
}

var DefaultFeatures = []Feature{
	{
		Title:       "Live Capacity",
		Description: "Check real-time occupancy across all library zones. Find a quiet corner instantly.",
		Action:      "Check Availability",
		Path:        "/api/seats",
	},
	{
		Title:       "AI Recommendations",
		Description: "Get personalized reading lists based on your mood and taste.",
		Action:      "Try AI Librarian",
		Path:        "/api/recommendations",
	},
}

var DefaultHours = []OpeningHours{
	{
		Label: "Mon - Fri",
		Days:  []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
		Opens: "08:00",
		Close: "22:00",
	},
	{
		Label: "Weekends",
		Days:  []time.Weekday{time.Saturday, time.Sunday},
		Opens: "10:00",
		Close: "18:00",
	},
}

// IsOpen reports whether the library is open at t according to hours.
func IsOpen(hours []OpeningHours, t time.Time) bool {
	now := t.Hour()*60 + t.Minute()
	for _, h := range hours {
		for _, d := range h.Days {
			if d != t.Weekday() {
				continue
			}
			opens, ok1 := minutesOf(h.Opens)
			closes, ok2 := minutesOf(h.Close)
			if ok1 && ok2 && now >= opens && now < closes {
				return true
			}
		}
	}
	return false
}

func minutesOf(clock string) (int, bool) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}
