package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/rs/zerolog"

	"libflow/internal/status"
	"libflow/models"
)

type Recommendations interface {
	Recommend(ctx context.Context, prefs models.Preferences) ([]models.Book, error)
}

type Limiter interface {
	Allow(ctx context.Context, identifier string) (bool, error)
}

type RecommendationHandler struct {
	service Recommendations
	limiter Limiter
	log     zerolog.Logger

	// clientID identifies the caller for rate limiting.
	clientID func(e *core.RequestEvent) string
}

// NewRecommendationHandler creates the recommendation endpoint. A nil
// limiter disables rate limiting.
func NewRecommendationHandler(service Recommendations, limiter Limiter, log zerolog.Logger) *RecommendationHandler {
	return &RecommendationHandler{
		service: service,
		limiter: limiter,
		log:     log,
		clientID: func(e *core.RequestEvent) string {
			return e.RealIP()
		},
	}
}

// RateLimit is route middleware limiting recommendation requests per client.
// Redis failures let the request through.
func (h *RecommendationHandler) RateLimit(e *core.RequestEvent) error {
	if h.limiter == nil {
		return e.Next()
	}

	id := "recommendations:" + h.clientID(e)
	allowed, err := h.limiter.Allow(e.Request.Context(), id)
	if err != nil {
		h.log.Warn().Err(err).Str("client", id).Msg("rate limiter unavailable")
		return e.Next()
	}
	if !allowed {
		return apis.NewApiError(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.", nil)
	}
	return e.Next()
}

// Recommend - book recommendations for the posted preferences
func (h *RecommendationHandler) Recommend(e *core.RequestEvent) error {
	var prefs models.Preferences
	if err := e.BindBody(&prefs); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	books, err := h.service.Recommend(e.Request.Context(), prefs)
	switch {
	case err == nil:
	case errors.Is(err, status.ErrInvalidPreferences):
		return apis.NewBadRequestError("Tell us a favorite genre or a mood", nil)
	case errors.Is(err, status.ErrMissingAPIKey):
		return apis.NewApiError(http.StatusServiceUnavailable, "Recommendations are not configured", nil)
	case errors.Is(err, status.ErrUpstream), errors.Is(err, status.ErrMalformedResponse):
		return apis.NewApiError(http.StatusBadGateway, "Failed to get recommendations. Please try again.", nil)
	default:
		return apis.NewInternalServerError("Failed to get recommendations", err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"books": books,
	})
}
