package realtime

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/mkoval/dealroom/internal/domain"
)

// Registry maps user identity to its live session. At most one session
// per identity: registering again displaces the previous one
// (last-registration-wins), which is how reconnects work.
type Registry struct {
	mu     sync.RWMutex
	byUser map[domain.UserID]*Session
}

func NewRegistry() *Registry {
	return &Registry{byUser: make(map[domain.UserID]*Session)}
}

// Register binds the session to its user identity and returns the
// displaced session, if any. The caller owns closing the displaced one.
func (r *Registry) Register(s *Session) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.byUser[s.User.ID]
	r.byUser[s.User.ID] = s
	if prev != nil {
		log.Info().Str("module", "realtime.registry").Str("user", string(s.User.ID)).Msg("session displaced")
	}
	return prev
}

func (r *Registry) Lookup(id domain.UserID) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byUser[id]
	return s, ok
}

// Unregister removes the entry only if it still maps to this session,
// and reports whether it did. The deferred cleanup of a displaced
// session must not tear down the session that replaced it.
func (r *Registry) Unregister(s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.byUser[s.User.ID]; ok && cur.ID == s.ID {
		delete(r.byUser, s.User.ID)
		return true
	}
	return false
}

func (r *Registry) Online(id domain.UserID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byUser[id]
	return ok
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}
