package realtime

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mkoval/dealroom/internal/domain"
)

func signalingFixture(t *testing.T) (*Registry, *SignalRelay, *Session, *Session, *Session) {
	t.Helper()
	registry := NewRegistry()
	relay := NewSignalRelay(registry)

	caller := NewSession(newUser("alice", domain.RoleBuyer), &fakeConn{})
	callee := NewSession(newUser("bob", domain.RoleSeller), &fakeConn{})
	bystander := NewSession(newUser("carol", domain.RoleSeller), &fakeConn{})
	registry.Register(caller)
	registry.Register(callee)
	registry.Register(bystander)
	return registry, relay, caller, callee, bystander
}

func TestSignaling_UnicastToTargetOnly(t *testing.T) {
	req := require.New(t)
	_, relay, caller, callee, bystander := signalingFixture(t)

	relay.Forward(caller, SignalInitiate, deal, callee.User.ID, nil)

	got := callee.conn.(*fakeConn).eventsOfType(t, EvtIncomingCall)
	req.Len(got, 1)
	req.Equal(string(deal), got[0]["dealId"])
	req.Equal("alice", got[0]["caller"].(map[string]any)["username"])

	req.Empty(caller.conn.(*fakeConn).events(t))
	req.Empty(bystander.conn.(*fakeConn).events(t))
}

func TestSignaling_PayloadRelayedOpaquely(t *testing.T) {
	req := require.New(t)
	_, relay, caller, callee, _ := signalingFixture(t)

	offer := json.RawMessage(`{"sdp":"v=0 whatever","type":"offer","x":[1,2,3]}`)
	relay.Forward(caller, SignalOffer, deal, callee.User.ID, offer)

	got := callee.conn.(*fakeConn).eventsOfType(t, EvtCallOffer)
	req.Len(got, 1)

	raw, err := json.Marshal(got[0]["offer"])
	req.NoError(err)
	req.JSONEq(string(offer), string(raw))
	req.Equal("alice", got[0]["caller"].(map[string]any)["username"])
}

func TestSignaling_FieldNamesPerKind(t *testing.T) {
	req := require.New(t)
	_, relay, caller, callee, _ := signalingFixture(t)
	target := callee.User.ID
	payload := json.RawMessage(`{"k":"v"}`)

	relay.Forward(caller, SignalAnswer, deal, target, payload)
	relay.Forward(caller, SignalCandidate, deal, target, payload)
	relay.Forward(caller, SignalEnd, deal, target, nil)

	answers := callee.conn.(*fakeConn).eventsOfType(t, EvtCallAnswer)
	req.Len(answers, 1)
	req.Contains(answers[0], "answer")
	req.Equal("alice", answers[0]["answerer"].(map[string]any)["username"])

	candidates := callee.conn.(*fakeConn).eventsOfType(t, EvtIceCandidate)
	req.Len(candidates, 1)
	req.Contains(candidates[0], "candidate")
	req.Equal("alice", candidates[0]["from"].(map[string]any)["username"])

	ended := callee.conn.(*fakeConn).eventsOfType(t, EvtCallEnded)
	req.Len(ended, 1)
	req.Equal("alice", ended[0]["endedBy"].(map[string]any)["username"])
}

func TestSignaling_AbsentTargetDropped(t *testing.T) {
	req := require.New(t)
	registry, relay, caller, callee, _ := signalingFixture(t)

	registry.Unregister(callee)
	relay.Forward(caller, SignalOffer, deal, callee.User.ID, json.RawMessage(`{}`))

	// Dropped without any error surfaced to the sender.
	req.Empty(caller.conn.(*fakeConn).events(t))
	req.Empty(callee.conn.(*fakeConn).events(t))
}

func TestSignaling_OrderPreservedPerPair(t *testing.T) {
	req := require.New(t)
	_, relay, caller, callee, _ := signalingFixture(t)

	relay.Forward(caller, SignalCandidate, deal, callee.User.ID, json.RawMessage(`{"n":1}`))
	relay.Forward(caller, SignalCandidate, deal, callee.User.ID, json.RawMessage(`{"n":2}`))

	got := callee.conn.(*fakeConn).eventsOfType(t, EvtIceCandidate)
	req.Len(got, 2)
	req.Equal(float64(1), got[0]["candidate"].(map[string]any)["n"])
	req.Equal(float64(2), got[1]["candidate"].(map[string]any)["n"])
}
