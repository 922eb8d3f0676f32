package ws

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/mkoval/dealroom/internal/domain"
	"github.com/mkoval/dealroom/internal/realtime"
)

// roomEvent covers joinDeal, leaveDeal, startTyping and stopTyping.
type roomEvent struct {
	DealID domain.DealID `json:"dealId"`
}

type sendMessageEvent struct {
	DealID  domain.DealID `json:"dealId"`
	Content string        `json:"content"`
}

// callEvent covers all five signaling events. Offer, answer and
// candidate carry the opaque payload under their own field name; the
// relay never looks inside.
type callEvent struct {
	DealID    domain.DealID   `json:"dealId"`
	TargetID  domain.UserID   `json:"targetUserId"`
	Offer     json.RawMessage `json:"offer,omitempty"`
	Answer    json.RawMessage `json:"answer,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
}

// dispatch routes one inbound frame to the core. Events of one
// connection are handled sequentially on its reader goroutine, which is
// what gives the per-connection ordering guarantee.
func (ctl *Controller) dispatch(sess *realtime.Session, c *wsConn, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Debug().Err(err).Str("module", "transport.ws").Msg("bad json")
		ctl.sendError(c, "bad_payload")
		return
	}

	switch env.Type {
	case realtime.EvtJoinDeal:
		var p roomEvent
		if !ctl.decode(c, data, &p) {
			return
		}
		ctl.Orch.Join(sess, p.DealID)
	case realtime.EvtLeaveDeal:
		var p roomEvent
		if !ctl.decode(c, data, &p) {
			return
		}
		ctl.Orch.Leave(sess, p.DealID)
	case realtime.EvtSendMessage:
		var p sendMessageEvent
		if !ctl.decode(c, data, &p) {
			return
		}
		ctl.Orch.Send(sess, p.DealID, p.Content)
	case realtime.EvtStartTyping:
		var p roomEvent
		if !ctl.decode(c, data, &p) {
			return
		}
		ctl.Orch.StartTyping(sess, p.DealID)
	case realtime.EvtStopTyping:
		var p roomEvent
		if !ctl.decode(c, data, &p) {
			return
		}
		ctl.Orch.StopTyping(sess, p.DealID)
	case realtime.EvtInitiateCall:
		ctl.signal(sess, c, data, realtime.SignalInitiate)
	case realtime.EvtCallOffer:
		ctl.signal(sess, c, data, realtime.SignalOffer)
	case realtime.EvtCallAnswer:
		ctl.signal(sess, c, data, realtime.SignalAnswer)
	case realtime.EvtIceCandidate:
		ctl.signal(sess, c, data, realtime.SignalCandidate)
	case realtime.EvtEndCall:
		ctl.signal(sess, c, data, realtime.SignalEnd)
	default:
		log.Warn().Str("module", "transport.ws").Str("type", env.Type).Msg("unknown event")
	}
}

func (ctl *Controller) signal(sess *realtime.Session, c *wsConn, data []byte, kind realtime.SignalKind) {
	var p callEvent
	if !ctl.decode(c, data, &p) {
		return
	}
	var payload json.RawMessage
	switch kind {
	case realtime.SignalOffer:
		payload = p.Offer
	case realtime.SignalAnswer:
		payload = p.Answer
	case realtime.SignalCandidate:
		payload = p.Candidate
	}
	ctl.Orch.Signal(sess, kind, p.DealID, p.TargetID, payload)
}

func (ctl *Controller) decode(c *wsConn, data []byte, v any) bool {
	if err := json.Unmarshal(data, v); err != nil {
		log.Debug().Err(err).Str("module", "transport.ws").Msg("bad payload")
		ctl.sendError(c, "bad_payload")
		return false
	}
	return true
}

func (ctl *Controller) sendError(c *wsConn, reason string) {
	b, err := json.Marshal(map[string]string{"type": "error", "error": reason})
	if err != nil {
		return
	}
	_ = c.TrySend(b)
}
