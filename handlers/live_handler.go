package handlers

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pocketbase/pocketbase/core"
	"github.com/rs/zerolog"

	"libflow/internal/occupancy"
	"libflow/models"
	"libflow/monitoring"
	"libflow/services"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 << 10
)

// LiveHandler streams a private seat simulation to every WebSocket
// connection. The simulation starts on connect and stops on disconnect.
type LiveHandler struct {
	zones    models.ZoneConfig
	interval time.Duration
	monitor  *monitoring.Monitor
	log      zerolog.Logger
	upgrader websocket.Upgrader

	active atomic.Int64
}

func NewLiveHandler(zones models.ZoneConfig, interval time.Duration, monitor *monitoring.Monitor, log zerolog.Logger) *LiveHandler {
	if monitor == nil {
		monitor = monitoring.NewMonitor()
	}
	return &LiveHandler{
		zones:    zones,
		interval: interval,
		monitor:  monitor,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
}

// Active returns the number of open live sessions.
func (h *LiveHandler) Active() int {
	return int(h.active.Load())
}

// Stream - GET /api/seats/live
func (h *LiveHandler) Stream(e *core.RequestEvent) error {
	conn, err := h.upgrader.Upgrade(e.Response, e.Request, nil)
	if err != nil {
		// The upgrader has already replied.
		h.log.Debug().Err(err).Msg("websocket upgrade failed")
		return nil
	}
	defer conn.Close()

	session := uuid.NewString()
	log := h.log.With().Str("session", session).Logger()

	h.active.Add(1)
	h.monitor.LiveSessionOpened()
	defer func() {
		h.active.Add(-1)
		h.monitor.LiveSessionClosed()
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates := make(chan models.Snapshot, 1)
	sim := occupancy.New(h.zones, occupancy.WithInterval(h.interval), occupancy.WithLogger(log))
	unsubscribe := sim.Subscribe(func(snap models.Snapshot) {
		// newest wins
		select {
		case <-updates:
		default:
		}
		updates <- snap
	})
	defer unsubscribe()

	if err := sim.Start(ctx); err != nil {
		log.Error().Err(err).Msg("failed to start live simulation")
		return nil
	}
	defer sim.Stop()

	log.Info().Msg("live session opened")
	go h.readPump(conn, cancel)
	h.writePump(ctx, conn, session, updates, log)
	log.Info().Msg("live session closed")
	return nil
}

// readPump discards client frames and cancels the session once the
// connection goes away.
func (h *LiveHandler) readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug().Err(err).Msg("unexpected websocket close")
			}
			return
		}
	}
}

func (h *LiveHandler) writePump(ctx context.Context, conn *websocket.Conn, session string, updates <-chan models.Snapshot, log zerolog.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case snap := <-updates:
			msg := services.SnapshotMessage(snap)
			msg["session"] = session
			msg["seats"] = snap.Seats

			payload, err := json.Marshal(msg)
			if err != nil {
				log.Error().Err(err).Msg("failed to encode snapshot")
				return
			}
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				log.Debug().Err(err).Msg("failed to write snapshot")
				return
			}

		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// CheckOrigin replaces the upgrader's same-origin check.
func (h *LiveHandler) CheckOrigin(fn func(r *http.Request) bool) {
	h.upgrader.CheckOrigin = fn
}
