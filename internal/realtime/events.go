package realtime

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/mkoval/dealroom/internal/domain"
)

// Inbound event names, as sent by clients.
const (
	EvtJoinDeal     = "joinDeal"
	EvtLeaveDeal    = "leaveDeal"
	EvtSendMessage  = "sendMessage"
	EvtStartTyping  = "startTyping"
	EvtStopTyping   = "stopTyping"
	EvtInitiateCall = "initiateVideoCall"
	EvtCallOffer    = "videoCallOffer"
	EvtCallAnswer   = "videoCallAnswer"
	EvtIceCandidate = "iceCandidate"
	EvtEndCall      = "endVideoCall"
)

// Outbound event names.
const (
	EvtDealJoined    = "dealJoined"
	EvtNewMessage    = "newMessage"
	EvtUserTyping    = "userTyping"
	EvtMessageFailed = "messageFailed"
	EvtIncomingCall  = "incomingVideoCall"
	EvtCallEnded     = "callEnded"
)

// encode marshals an outbound event. Marshal failures can only come from
// a programming error in the event structs, so they are logged and the
// frame is dropped.
func encode(v any) Frame {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "realtime.events").Msg("encode event")
		return nil
	}
	return b
}

func userTypingFrame(dealID domain.DealID, users []domain.UserID) Frame {
	return encode(struct {
		Type   string          `json:"type"`
		DealID domain.DealID   `json:"dealId"`
		Users  []domain.UserID `json:"users"`
	}{
		Type:   EvtUserTyping,
		DealID: dealID,
		Users:  users,
	})
}

func newMessageFrame(msg domain.Message) Frame {
	return encode(struct {
		Type    string         `json:"type"`
		Message domain.Message `json:"message"`
	}{
		Type:    EvtNewMessage,
		Message: msg,
	})
}

func messageFailedFrame(dealID domain.DealID) Frame {
	return encode(struct {
		Type   string        `json:"type"`
		DealID domain.DealID `json:"dealId"`
	}{
		Type:   EvtMessageFailed,
		DealID: dealID,
	})
}

func dealJoinedFrame(dealID domain.DealID, members []MemberDTO, history []domain.Message) Frame {
	return encode(struct {
		Type    string           `json:"type"`
		DealID  domain.DealID    `json:"dealId"`
		Members []MemberDTO      `json:"members"`
		History []domain.Message `json:"history"`
	}{
		Type:    EvtDealJoined,
		DealID:  dealID,
		Members: members,
		History: history,
	})
}

// signalFrame is the envelope forwarded to a call target. The payload
// field name and the sender field name depend on the signal kind, per
// the client protocol: caller/offer, answerer/answer, from/candidate,
// endedBy for call end.
func signalFrame(event string, dealID domain.DealID, sender MemberDTO, senderField, payloadField string, payload json.RawMessage) Frame {
	out := map[string]any{
		"type":      event,
		"dealId":    dealID,
		senderField: sender,
	}
	if payloadField != "" && len(payload) > 0 {
		out[payloadField] = payload
	}
	return encode(out)
}
