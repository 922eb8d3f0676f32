package realtime

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mkoval/dealroom/internal/domain"
)

const deal = domain.DealID("deal-1")

func TestRoomManager_JoinDeniedIsSilent(t *testing.T) {
	req := require.New(t)
	access := newFakeAccess()
	m := NewRoomManager(access)

	intruder := NewSession(newUser("mallory", domain.RoleBuyer), &fakeConn{})
	req.False(m.Join(intruder, deal))
	req.Zero(m.MemberCount(deal))

	// A denied join must leave the intruder invisible to later broadcasts.
	buyer := NewSession(newUser("alice", domain.RoleBuyer), &fakeConn{})
	access.grant(deal, buyer.User.ID)
	req.True(m.Join(buyer, deal))

	m.Broadcast(deal, "", Frame(`{"type":"newMessage"}`))
	req.Empty(intruder.conn.(*fakeConn).events(t))
	req.Len(buyer.conn.(*fakeConn).events(t), 1)
}

func TestRoomManager_JoinDeniedOnCheckerError(t *testing.T) {
	req := require.New(t)
	access := newFakeAccess()
	access.err = errors.New("store down")
	m := NewRoomManager(access)

	s := NewSession(newUser("alice", domain.RoleBuyer), &fakeConn{})
	req.False(m.Join(s, deal))
	req.Zero(m.MemberCount(deal))
}

func TestRoomManager_LeaveIsIdempotent(t *testing.T) {
	req := require.New(t)
	access := newFakeAccess()
	m := NewRoomManager(access)

	s := NewSession(newUser("alice", domain.RoleBuyer), &fakeConn{})
	access.grant(deal, s.User.ID)
	req.True(m.Join(s, deal))

	m.Leave(s, deal)
	m.Leave(s, deal)
	m.Leave(s, "never-joined")
	req.Zero(m.MemberCount(deal))
}

func TestRoomManager_BroadcastExceptSkipsOne(t *testing.T) {
	req := require.New(t)
	access := newFakeAccess()
	m := NewRoomManager(access)

	a := NewSession(newUser("alice", domain.RoleBuyer), &fakeConn{})
	b := NewSession(newUser("bob", domain.RoleSeller), &fakeConn{})
	access.grant(deal, a.User.ID)
	access.grant(deal, b.User.ID)
	req.True(m.Join(a, deal))
	req.True(m.Join(b, deal))

	res := m.Broadcast(deal, a.ID, Frame(`{"type":"userTyping"}`))
	req.Equal(1, res.SentTo)
	req.Empty(a.conn.(*fakeConn).events(t))
	req.Len(b.conn.(*fakeConn).events(t), 1)
}

func TestRoomManager_BackpressureClosesMember(t *testing.T) {
	req := require.New(t)
	access := newFakeAccess()
	m := NewRoomManager(access)

	slow := &fakeConn{full: true}
	s := NewSession(newUser("alice", domain.RoleBuyer), slow)
	access.grant(deal, s.User.ID)
	req.True(m.Join(s, deal))

	res := m.Broadcast(deal, "", Frame(`{}`))
	req.Len(res.Dropped, 1)
	req.True(slow.isClosed())
}

func TestRoomManager_RemoveFromAll(t *testing.T) {
	req := require.New(t)
	access := newFakeAccess()
	m := NewRoomManager(access)

	other := domain.DealID("deal-2")
	s := NewSession(newUser("alice", domain.RoleBuyer), &fakeConn{})
	access.grant(deal, s.User.ID)
	access.grant(other, s.User.ID)
	req.True(m.Join(s, deal))
	req.True(m.Join(s, other))

	m.RemoveFromAll(s)
	req.Zero(m.MemberCount(deal))
	req.Zero(m.MemberCount(other))
	req.Empty(m.List())
}

func TestRoomManager_AccessRevokedAfterJoin(t *testing.T) {
	req := require.New(t)
	access := newFakeAccess()
	m := NewRoomManager(access)

	s := NewSession(newUser("alice", domain.RoleBuyer), &fakeConn{})
	access.grant(deal, s.User.ID)
	req.True(m.Join(s, deal))

	// Membership alone must not be trusted: Authorize reflects the
	// current record.
	access.revoke(deal, s.User.ID)
	req.False(m.Authorize(deal, s.User.ID))
	req.Equal(1, m.MemberCount(deal))
}
