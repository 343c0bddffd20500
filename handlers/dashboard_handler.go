package handlers

import (
	"net/http"
	"time"

	"github.com/pocketbase/pocketbase/core"

	"libflow/models"
)

type DashboardHandler struct {
	zones    models.ZoneConfig
	hours    []models.OpeningHours
	features []models.Feature
	now      func() time.Time
}

func NewDashboardHandler(zones models.ZoneConfig) *DashboardHandler {
	return &DashboardHandler{
		zones:    zones,
		hours:    models.DefaultHours,
		features: models.DefaultFeatures,
		now:      time.Now,
	}
}

// GetDashboard - landing page payload
func (h *DashboardHandler) GetDashboard(e *core.RequestEvent) error {
	return e.JSON(http.StatusOK, models.Dashboard{
		Zones:    h.zones,
		Hours:    h.hours,
		OpenNow:  models.IsOpen(h.hours, h.now()),
		Features: h.features,
	})
}
