package ws

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/mkoval/dealroom/internal/config"
	"github.com/mkoval/dealroom/internal/domain"
	"github.com/mkoval/dealroom/internal/realtime"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Controller struct {
	Orch *realtime.Orchestrator
	Cfg  *config.Config
}

func NewController(orch *realtime.Orchestrator, cfg *config.Config) *Controller {
	return &Controller{Orch: orch, Cfg: cfg}
}

// HandleWS upgrades an already-authenticated request. The auth
// middleware rejects anything without a valid token before this point,
// so the core only ever sees verified identities.
func (ctl *Controller) HandleWS(ctx context.Context, c *gin.Context) {
	val, ok := c.Get("user")
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	user := val.(*domain.User)

	wsc, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "transport.ws").Msg("ws upgrade")
		return
	}
	wsc.SetReadLimit(ctl.Cfg.ReadLimit)

	conn := newWSConn(wsc, ctl.Cfg.SendBuffer)
	sess := ctl.Orch.Connect(user, conn)
	log.Info().Str("module", "transport.ws").Str("user", string(user.ID)).Msg("new WS connection")

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, sess, conn)
}
