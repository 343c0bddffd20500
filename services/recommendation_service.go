package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"libflow/internal/status"
	"libflow/models"
	"libflow/monitoring"
)

// Recommender is the upstream book recommendation API.
type Recommender interface {
	Recommend(ctx context.Context, prefs models.Preferences) ([]models.Book, error)
}

type RecommendationService struct {
	client   Recommender
	breaker  *gobreaker.CircuitBreaker[[]models.Book]
	validate *validator.Validate
	monitor  *monitoring.Monitor
	log      zerolog.Logger
}

// BreakerSettings trips after five consecutive upstream failures and probes
// again after thirty seconds.
func BreakerSettings(log zerolog.Logger) gobreaker.Settings {
	return gobreaker.Settings{
		Name:        "gemini",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			// Configuration and caller mistakes say nothing about upstream health.
			return err == nil ||
				errors.Is(err, status.ErrMissingAPIKey) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	}
}

func NewRecommendationService(client Recommender, settings gobreaker.Settings, monitor *monitoring.Monitor, log zerolog.Logger) *RecommendationService {
	if monitor == nil {
		monitor = monitoring.NewMonitor()
	}
	return &RecommendationService{
		client:   client,
		breaker:  gobreaker.NewCircuitBreaker[[]models.Book](settings),
		validate: validator.New(validator.WithRequiredStructEnabled()),
		monitor:  monitor,
		log:      log,
	}
}

// Normalize trims every preference field.
func Normalize(prefs models.Preferences) models.Preferences {
	return models.Preferences{
		FavoriteGenres: strings.TrimSpace(prefs.FavoriteGenres),
		LastRead:       strings.TrimSpace(prefs.LastRead),
		Mood:           strings.TrimSpace(prefs.Mood),
	}
}

// Recommend validates prefs, asks the upstream for books and keeps only
// complete records. No retries are made.
func (s *RecommendationService) Recommend(ctx context.Context, prefs models.Preferences) ([]models.Book, error) {
	prefs = Normalize(prefs)
	if err := s.validate.Struct(prefs); err != nil {
		s.monitor.TrackRecommendation("invalid", 0)
		return nil, fmt.Errorf("%w: %v", status.ErrInvalidPreferences, err)
	}

	start := time.Now()
	books, err := s.breaker.Execute(func() ([]models.Book, error) {
		return s.client.Recommend(ctx, prefs)
	})
	elapsed := time.Since(start)

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = fmt.Errorf("%w: %v", status.ErrUpstream, err)
	}
	if err != nil {
		s.monitor.TrackRecommendation("error", elapsed)
		s.log.Error().Err(err).Dur("elapsed", elapsed).Msg("recommendation failed")
		return nil, err
	}

	complete := make([]models.Book, 0, len(books))
	for i, b := range books {
		if err := s.validate.Struct(b); err != nil {
			s.log.Warn().Int("index", i).Err(err).Msg("dropping incomplete book")
			continue
		}
		complete = append(complete, b)
	}
	if len(books) > 0 && len(complete) == 0 {
		s.monitor.TrackRecommendation("malformed", elapsed)
		return nil, fmt.Errorf("%w: no complete book records", status.ErrMalformedResponse)
	}

	s.monitor.TrackRecommendation("ok", elapsed)
	s.log.Info().Int("books", len(complete)).Dur("elapsed", elapsed).Msg("recommendations served")
	return complete, nil
}

// BreakerState reports the upstream circuit state, e.g. "closed".
func (s *RecommendationService) BreakerState() string {
	return s.breaker.State().String()
}
