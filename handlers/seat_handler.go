package handlers

import (
	"context"
	"net/http"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/rs/zerolog"

	"libflow/models"
)

// SeatDisplay is the process-wide floor display.
type SeatDisplay interface {
	Snapshot() (models.Snapshot, bool)
	FreeSeats(zone string) (int, bool)
}

// SnapshotLoader reads the snapshot mirrored to Redis.
type SnapshotLoader interface {
	Load(ctx context.Context) (models.Snapshot, bool, error)
}

type SeatHandler struct {
	display SeatDisplay
	store   SnapshotLoader
	log     zerolog.Logger
}

// NewSeatHandler creates the seat endpoints. store may be nil.
func NewSeatHandler(display SeatDisplay, store SnapshotLoader, log zerolog.Logger) *SeatHandler {
	return &SeatHandler{
		display: display,
		store:   store,
		log:     log,
	}
}

// current prefers the in-process display and falls back to the Redis
// mirror while the display is still starting.
func (h *SeatHandler) current(ctx context.Context) (models.Snapshot, bool) {
	if snap, ok := h.display.Snapshot(); ok {
		return snap, true
	}
	if h.store == nil {
		return models.Snapshot{}, false
	}

	snap, ok, err := h.store.Load(ctx)
	if err != nil {
		h.log.Warn().Err(err).Msg("failed to load mirrored snapshot")
		return models.Snapshot{}, false
	}
	return snap, ok
}

func notReady() error {
	return apis.NewApiError(http.StatusServiceUnavailable, "Seat display is not ready yet", nil)
}

// GetSeats - latest seat snapshot
func (h *SeatHandler) GetSeats(e *core.RequestEvent) error {
	snap, ok := h.current(e.Request.Context())
	if !ok {
		return notReady()
	}
	return e.JSON(http.StatusOK, snap)
}

// GetStats - aggregate stats only
func (h *SeatHandler) GetStats(e *core.RequestEvent) error {
	snap, ok := h.current(e.Request.Context())
	if !ok {
		return notReady()
	}
	return e.JSON(http.StatusOK, map[string]any{
		"stats":      snap.Stats,
		"version":    snap.Version,
		"updated_at": snap.UpdatedAt,
	})
}

// GetZoneFree - free seats in one zone
func (h *SeatHandler) GetZoneFree(e *core.RequestEvent) error {
	zone := e.Request.PathValue("zone")

	free, ok := h.display.FreeSeats(zone)
	if !ok {
		return apis.NewNotFoundError("Unknown zone", map[string]any{"zone": zone})
	}

	return e.JSON(http.StatusOK, map[string]any{
		"zone": zone,
		"free": free,
	})
}
