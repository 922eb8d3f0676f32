package realtime

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/mkoval/dealroom/internal/domain"
)

// SignalKind names a call-setup step. The relay never interprets the
// payload; it only picks the outbound event and field names.
type SignalKind string

const (
	SignalInitiate  SignalKind = "initiate"
	SignalOffer     SignalKind = "offer"
	SignalAnswer    SignalKind = "answer"
	SignalCandidate SignalKind = "candidate"
	SignalEnd       SignalKind = "end"
)

// SignalRelay forwards call-setup envelopes to one specific participant,
// addressed by user identity. Never broadcast: an envelope reaches only
// the target's current connection. An offline target means the envelope
// is dropped and the caller times out on its own.
type SignalRelay struct {
	registry *Registry
}

func NewSignalRelay(registry *Registry) *SignalRelay {
	return &SignalRelay{registry: registry}
}

func (r *SignalRelay) Forward(sender *Session, kind SignalKind, dealID domain.DealID, target domain.UserID, payload json.RawMessage) {
	ts, ok := r.registry.Lookup(target)
	if !ok {
		log.Debug().Str("module", "realtime.signaling").Str("target", string(target)).Str("kind", string(kind)).Msg("target unreachable, envelope dropped")
		return
	}

	from := MemberDTO{ID: sender.User.ID, Username: sender.User.Username, Role: sender.User.Role}

	var f Frame
	switch kind {
	case SignalInitiate:
		f = signalFrame(EvtIncomingCall, dealID, from, "caller", "", nil)
	case SignalOffer:
		f = signalFrame(EvtCallOffer, dealID, from, "caller", "offer", payload)
	case SignalAnswer:
		f = signalFrame(EvtCallAnswer, dealID, from, "answerer", "answer", payload)
	case SignalCandidate:
		f = signalFrame(EvtIceCandidate, dealID, from, "from", "candidate", payload)
	case SignalEnd:
		f = signalFrame(EvtCallEnded, dealID, from, "endedBy", "", nil)
	default:
		log.Warn().Str("module", "realtime.signaling").Str("kind", string(kind)).Msg("unknown signal kind")
		return
	}

	if err := ts.Send(f); err != nil {
		log.Warn().Err(err).Str("module", "realtime.signaling").Str("target", string(target)).Msg("signal send failed")
	}
}
