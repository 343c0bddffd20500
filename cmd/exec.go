package cmd

import (
	"context"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/rs/zerolog"

	"libflow/config"
	"libflow/handlers"
	"libflow/internal/gemini"
	"libflow/internal/logging"
	"libflow/internal/supervisor"
	"libflow/monitoring"
	"libflow/security"
	"libflow/services"
	"libflow/utils"
)

func Start() error {
	app := pocketbase.New()

	// Load configuration
	cfg := config.LoadConfig()
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	log := logging.Component("app")

	zones, err := config.LoadZones(cfg.ZonesFile)
	if err != nil {
		return err
	}

	// Initialize Redis. The display still runs without it; only the
	// mirror and rate limiting are lost.
	redisClient, err := utils.NewRedisClient(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Warn().Err(err).Str("redis_url", cfg.RedisURL).Msg("redis unavailable, continuing without snapshot mirror")
	} else {
		defer redisClient.Close()
	}

	monitor := monitoring.NewMonitor()

	// Initialize services
	var (
		sink      services.SnapshotSink
		loader    handlers.SnapshotLoader
		limiter   *security.RateLimiter
		reqLimit  handlers.Limiter
		publisher services.SnapshotPublisher
	)
	if redisClient != nil {
		store := services.NewSnapshotStore(redisClient, cfg.SnapshotTTL)
		sink, loader = store, store
		limiter = security.NewRateLimiter(redisClient, cfg.RateLimitPerMin, time.Minute)
		if cfg.RateLimitEnabled {
			reqLimit = limiter
		}
	}
	if cfg.PubNubEnabled() {
		publisher = services.NewSeatPublisher(services.NewPubNub(cfg), cfg.SeatChannel)
	} else {
		log.Info().Msg("pubnub keys not set, seat updates will not be published")
	}

	display := services.NewDisplayService(zones, cfg.TickInterval, sink, publisher, monitor, logging.Component("display"))

	geminiClient := gemini.NewClient(gemini.ClientConfig{
		BaseURL: cfg.GeminiBaseURL,
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.GeminiModel,
		Timeout: cfg.GeminiTimeout,
	})
	recLog := logging.Component("recommendations")
	recommendations := services.NewRecommendationService(geminiClient, services.BreakerSettings(recLog), monitor, recLog)

	// Initialize handlers
	seatHandler := handlers.NewSeatHandler(display, loader, logging.Component("seats"))
	dashboardHandler := handlers.NewDashboardHandler(zones)
	liveHandler := handlers.NewLiveHandler(zones, cfg.TickInterval, monitor, logging.Component("live"))
	if cfg.Environment == "development" {
		// the frontend dev server runs on another port
		liveHandler.CheckOrigin(func(*http.Request) bool { return true })
	}
	recommendationHandler := handlers.NewRecommendationHandler(recommendations, reqLimit, recLog)
	healthHandler := handlers.NewHealthHandler(redisClient, display)

	// Background services
	tree := supervisor.NewTree(logging.Component("supervisor"), supervisor.DefaultTreeConfig())
	tree.AddDisplayService(display)
	if cfg.EnableMetrics {
		tree.AddOpsService(metricsServer(cfg, limiter, logging.Component("metrics")))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app.RootCmd.AddCommand(NewSimulateCommand())

	app.OnServe().BindFunc(func(e *core.ServeEvent) error {
		treeErr := tree.ServeBackground(ctx)
		go func() {
			if err := <-treeErr; err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("supervisor tree stopped")
			}
		}()

		e.Router.GET("/health", healthHandler.Health)
		e.Router.GET("/api/dashboard", dashboardHandler.GetDashboard)

		// Seat endpoints
		e.Router.GET("/api/seats", seatHandler.GetSeats)
		e.Router.GET("/api/seats/stats", seatHandler.GetStats)
		e.Router.GET("/api/seats/live", liveHandler.Stream)
		e.Router.GET("/api/zones/{zone}/free", seatHandler.GetZoneFree)

		// Recommendations
		e.Router.POST("/api/recommendations", recommendationHandler.Recommend).
			BindFunc(recommendationHandler.RateLimit)

		log.Info().
			Strs("zones", zones.Names()).
			Dur("tick_interval", cfg.TickInterval).
			Str("gemini_model", geminiClient.Model()).
			Msg("server routes registered")

		return e.Next()
	})

	app.OnTerminate().BindFunc(func(e *core.TerminateEvent) error {
		log.Info().Msg("shutdown signal received, stopping background services")
		cancel()
		return e.Next()
	})

	if len(os.Args) == 1 {
		app.RootCmd.SetArgs([]string{"serve", "--http", net.JoinHostPort("0.0.0.0", cfg.Port)})
	}

	return app.Start()
}

func metricsServer(cfg *config.Config, limiter *security.RateLimiter, log zerolog.Logger) *monitoring.Server {
	addr := net.JoinHostPort("", cfg.MetricsPort)
	if limiter == nil {
		return monitoring.NewServer(addr, log)
	}
	return monitoring.NewServer(addr, log, limiter.AntiBotMiddleware(), limiter.EchoRateLimit())
}
