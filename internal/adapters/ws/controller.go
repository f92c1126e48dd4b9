// Package ws is the WebSocket transport adapter: it upgrades connections,
// runs the read/write pumps and translates wire envelopes into
// orchestrator commands.
package ws

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/keremar/watchroom/internal/app"
	"github.com/keremar/watchroom/internal/config"
	"github.com/keremar/watchroom/internal/domain"
)

var ErrBackpressure = errors.New("backpressure")

type Controller struct {
	Orch *app.Orchestrator
	Cfg  *config.Config
}

func NewController(orch *app.Orchestrator, cfg *config.Config) *Controller {
	return &Controller{Orch: orch, Cfg: cfg}
}

// wsConn is the transport endpoint for one connection. It implements
// app.Conn. Writes go through the buffered send channel so a slow peer
// never blocks a room broadcast.
type wsConn struct {
	conn *websocket.Conn
	send chan app.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *wsConn) TrySend(f app.Frame) error {
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

func (c *wsConn) Close() {
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

// HandleWS upgrades the request and starts the connection pumps. Each
// upgrade gets a fresh server-assigned connection id; ids are never
// reused across reconnects.
func (ctl *Controller) HandleWS(ctx context.Context, c *gin.Context) {
	sid := domain.ConnectionID(uuid.NewString())
	log.Info().Str("module", "adapters.ws").Str("conn", string(sid)).Str("client_token", c.GetString("client_token")).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.ws").Msg("ws upgrade")
		return
	}

	conn := &wsConn{
		conn: ws,
		send: make(chan app.Frame, 32),
	}
	ctl.Orch.Hub.Register(sid, conn)

	go ctl.writePump(ctx, sid, conn)
	go ctl.readPump(ctx, sid, conn)
}
