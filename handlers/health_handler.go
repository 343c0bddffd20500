package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase/core"
	"github.com/redis/go-redis/v9"

	"libflow/utils"
)

type HealthHandler struct {
	redis   *redis.Client
	display SeatDisplay
}

func NewHealthHandler(redisClient *redis.Client, display SeatDisplay) *HealthHandler {
	return &HealthHandler{redis: redisClient, display: display}
}

// Health - Redis connectivity plus whether the display has produced a snapshot
func (h *HealthHandler) Health(e *core.RequestEvent) error {
	_, ready := h.display.Snapshot()

	if err := utils.RedisHealthCheck(h.redis); err != nil {
		return e.JSON(http.StatusServiceUnavailable, map[string]any{
			"status":        "unhealthy",
			"error":         err.Error(),
			"display_ready": ready,
		})
	}
	return e.JSON(http.StatusOK, map[string]any{
		"status":        "healthy",
		"display_ready": ready,
	})
}
