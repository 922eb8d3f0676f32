package ws

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/mkoval/dealroom/internal/realtime"
)

func (ctl *Controller) writePump(ctx context.Context, c *wsConn) {
	ticker := time.NewTicker(ctl.Cfg.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.Cfg.WriteTimeout)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "transport.ws").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.Cfg.WriteTimeout)); err != nil {
				log.Error().Err(err).Str("module", "transport.ws").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "transport.ws").Msg("writePump write error")
				return
			}
		}
	}
}

// readPump drives the whole session: any read error, including an abrupt
// transport drop mid-operation, ends in the same disconnect cleanup.
func (ctl *Controller) readPump(ctx context.Context, cancel context.CancelFunc, sess *realtime.Session, c *wsConn) {
	defer func() {
		log.Info().Str("module", "transport.ws").Str("user", string(sess.User.ID)).Msg("readPump closing")
		ctl.Orch.Disconnect(sess)
		c.Close()
		cancel()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Warn().Err(err).Str("module", "transport.ws").Str("user", string(sess.User.ID)).Msg("readPump read error")
				}
				return
			}
			ctl.dispatch(sess, c, data)
		}
	}
}
