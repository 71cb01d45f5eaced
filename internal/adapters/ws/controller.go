package ws

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dchirkin/relay/internal/app"
	"github.com/dchirkin/relay/internal/config"
	"github.com/dchirkin/relay/internal/domain"
	"github.com/dchirkin/relay/internal/protocol"
)

type Controller struct {
	cfg   *config.Config
	coord *app.Coordinator
}

func NewController(cfg *config.Config, coord *app.Coordinator) *Controller {
	return &Controller{cfg: cfg, coord: coord}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleRelay upgrades the request and attaches the peer to the relay under
// its remote address, the same identity scheme the TCP listener uses.
func (ctl *Controller) HandleRelay(c *gin.Context) {
	id, err := domain.ParseIdentity(c.Request.RemoteAddr)
	if err != nil {
		log.Error().Str("module", "adapters.ws").Err(err).Msg("unusable peer address")
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}

	sock, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Str("module", "adapters.ws").Err(err).Msg("ws upgrade")
		return
	}
	if ctl.cfg.ReadLimit > 0 {
		sock.SetReadLimit(int64(ctl.cfg.ReadLimit))
	}

	log.Info().Str("module", "adapters.ws").Str("id", id.String()).Msg("ws connection accepted")

	conn := newWSConn(sock, ctl.cfg.SendBuffer)
	ctl.coord.Connect(id, conn)

	go conn.writePump()
	go ctl.readPump(id, conn)
}

func (ctl *Controller) readPump(id domain.Identity, conn *wsConn) {
	defer func() {
		ctl.coord.Disconnect(id)
		conn.Close()
		log.Info().Str("module", "adapters.ws").Str("id", id.String()).Msg("ws connection closed")
	}()

	for {
		_, payload, err := conn.conn.ReadMessage()
		if err != nil {
			if errors.Is(err, websocket.ErrReadLimit) {
				// Best effort: tell the peer why before teardown.
				_ = conn.TrySend(protocol.EncodeFailure(protocol.ReasonMalformedFrame))
			} else if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn().Str("module", "adapters.ws").Str("id", id.String()).Err(err).Msg("read error")
			}
			return
		}
		ctl.coord.HandleFrame(id, payload)
	}
}
