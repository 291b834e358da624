package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/mkamel/airwave/internal/app"
	"github.com/mkamel/airwave/internal/config"
	"github.com/mkamel/airwave/internal/core"
	"github.com/rs/zerolog/log"
)

var ErrBackpressure = errors.New("backpressure")

var validate = validator.New()

// Controller owns the websocket lifecycle: it authenticates the
// upgrade, runs the read/write pumps and demuxes inbound events to the
// coordinator and the relay.
type Controller struct {
	Coord    *app.Coordinator
	Relay    *app.Relay
	Presence *app.Presence
	Identity core.IdentityProvider
	Limiter  *ChatRateLimiter

	readLimit  int64
	pingPeriod time.Duration
}

func NewController(cfg *config.Config, coord *app.Coordinator, relay *app.Relay, presence *app.Presence, identity core.IdentityProvider) *Controller {
	pingPeriod := cfg.PingPeriod
	if pingPeriod <= 0 {
		pingPeriod = 54 * time.Second
	}
	return &Controller{
		Coord:      coord,
		Relay:      relay,
		Presence:   presence,
		Identity:   identity,
		Limiter:    NewChatRateLimiter(cfg.ChatRateLimit, cfg.ChatRateInterval),
		readLimit:  cfg.ReadLimit,
		pingPeriod: pingPeriod,
	}
}

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

// HandleSignal authenticates the credential once, upgrades the
// connection and binds the session into the presence directory. The
// coordinator's Disconnect runs when the read pump dies.
func (ctl *Controller) HandleSignal(ctx context.Context, c *gin.Context) {
	sid := core.SessionID(c.GetString("client_token"))

	credential := c.Query("token")
	if credential == "" {
		credential = c.GetHeader("Authorization")
		credential = trimBearer(credential)
	}
	ident, err := ctl.Identity.Authenticate(c.Request.Context(), credential)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("auth rejected")
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Msg("ws upgrade")
		return
	}
	if ctl.readLimit > 0 {
		ws.SetReadLimit(ctl.readLimit)
	}

	conn := &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, 32),
	}

	sess := core.NewMemberSession(ident, conn)
	ctx, cancel := context.WithCancel(ctx)
	ctl.Presence.Bind(sid, sess, cancel)
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("user", string(ident.ID)).Msg("new WS connection")

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, sid, conn)
}

func trimBearer(h string) string {
	const prefix = "Bearer "
	if len(h) > len(prefix) && h[:len(prefix)] == prefix {
		return h[len(prefix):]
	}
	return h
}

func (ctl *Controller) sendError(conn *WsSignalConn, err error) {
	ctl.sendJSON(conn, app.NewErrorEvent(err))
}
