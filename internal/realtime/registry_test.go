package realtime

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mkoval/dealroom/internal/domain"
)

func TestRegistry_LastRegistrationWins(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()
	user := newUser("alice", domain.RoleBuyer)

	first := NewSession(user, &fakeConn{})
	req.Nil(r.Register(first))

	second := NewSession(user, &fakeConn{})
	displaced := r.Register(second)
	req.Same(first, displaced)

	cur, ok := r.Lookup(user.ID)
	req.True(ok)
	req.Same(second, cur)
	req.Equal(1, r.Count())
}

func TestRegistry_UnregisterOnlyRemovesCurrent(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()
	user := newUser("alice", domain.RoleBuyer)

	stale := NewSession(user, &fakeConn{})
	r.Register(stale)
	fresh := NewSession(user, &fakeConn{})
	r.Register(fresh)

	// The displaced session's deferred cleanup must not evict the live one.
	req.False(r.Unregister(stale))
	req.True(r.Online(user.ID))

	req.True(r.Unregister(fresh))
	req.False(r.Online(user.ID))
	_, ok := r.Lookup(user.ID)
	req.False(ok)
}

func TestRegistry_LookupAbsent(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Lookup("nobody")
	require.False(t, ok)
	require.False(t, r.Online("nobody"))
}
