package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Roulette/internal/app/orch"
	"github.com/dkeye/Roulette/internal/config"
	"github.com/dkeye/Roulette/internal/core"
	"github.com/dkeye/Roulette/internal/domain"
)

var ErrBackpressure = errors.New("backpressure")

// Controller owns the websocket signaling surface. It parses inbound frames,
// drives the orchestrator, and implements core.Gateway for outbound pushes.
type Controller struct {
	Orch *orch.Orchestrator

	readLimit int64
	chatLimit *MessageRateLimiter
}

func NewController(o *orch.Orchestrator, cfg *config.Config) *Controller {
	return &Controller{
		Orch:      o,
		readLimit: cfg.ReadLimit,
		chatLimit: NewMessageRateLimiter(cfg.ChatBurst, time.Second),
	}
}

// WsSignalConn wraps one websocket with a buffered send channel. The single
// writer pump drains the channel in order, which keeps per-destination FIFO:
// an offer queued before its own candidates is written before them.
type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the request and runs the connection until it dies.
// Each upgrade mints a fresh participant: one live connection, one identity.
func (ctl *Controller) HandleSignal(ctx context.Context, c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	pid := domain.NewParticipantID()
	log.Info().Str("module", "signal").Str("pid", string(pid)).Msg("new WS connection")

	conn := &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, 32),
	}
	if ctl.readLimit > 0 {
		ws.SetReadLimit(ctl.readLimit)
	}

	ctx, cancel := context.WithCancel(ctx)
	ctl.Orch.Registry.Bind(pid, conn, cancel)

	ctl.sendJSON(conn, struct {
		Type string               `json:"type"`
		ID   domain.ParticipantID `json:"id"`
	}{Type: "welcome", ID: pid})

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, pid, conn)
}
