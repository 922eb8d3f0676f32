package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mkoval/dealroom/internal/domain"
)

// fakeConn is an in-memory transport endpoint recording every frame.
type fakeConn struct {
	mu     sync.Mutex
	frames []Frame
	closed bool
	full   bool
}

func (c *fakeConn) TrySend(f Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("closed")
	}
	if c.full {
		return errors.New("backpressure")
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// events decodes the recorded frames into generic maps.
func (c *fakeConn) events(t *testing.T) []map[string]any {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]map[string]any, 0, len(c.frames))
	for _, f := range c.frames {
		var m map[string]any
		require.NoError(t, json.Unmarshal(f, &m))
		out = append(out, m)
	}
	return out
}

// eventsOfType filters the recorded frames by event name.
func (c *fakeConn) eventsOfType(t *testing.T, typ string) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, e := range c.events(t) {
		if e["type"] == typ {
			out = append(out, e)
		}
	}
	return out
}

// fakeAccess is an AccessChecker with per-deal participant sets that can
// change mid-test, like a seller being assigned.
type fakeAccess struct {
	mu      sync.Mutex
	allowed map[domain.DealID]map[domain.UserID]bool
	err     error
}

func newFakeAccess() *fakeAccess {
	return &fakeAccess{allowed: make(map[domain.DealID]map[domain.UserID]bool)}
}

func (a *fakeAccess) grant(dealID domain.DealID, user domain.UserID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	set, ok := a.allowed[dealID]
	if !ok {
		set = make(map[domain.UserID]bool)
		a.allowed[dealID] = set
	}
	set[user] = true
}

func (a *fakeAccess) revoke(dealID domain.DealID, user domain.UserID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.allowed[dealID], user)
}

func (a *fakeAccess) Authorize(dealID domain.DealID, user domain.UserID) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return false, a.err
	}
	return a.allowed[dealID][user], nil
}

// fakeStore is a MessageStore/HistoryStore with a failure switch.
type fakeStore struct {
	mu       sync.Mutex
	messages []domain.Message
	seq      uint64
	fail     error
}

func (s *fakeStore) Append(dealID domain.DealID, sender domain.UserID, content string) (domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return domain.Message{}, s.fail
	}
	s.seq++
	msg := domain.Message{
		ID:        domain.MessageID(fmt.Sprintf("m%d", s.seq)),
		DealID:    dealID,
		Sender:    sender,
		Content:   content,
		Seq:       s.seq,
		CreatedAt: time.Now().UTC(),
	}
	s.messages = append(s.messages, msg)
	return msg, nil
}

func (s *fakeStore) History(dealID domain.DealID, limit int) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Message
	for _, m := range s.messages {
		if m.DealID == dealID {
			out = append(out, m)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func newUser(name string, role domain.Role) *domain.User {
	return &domain.User{ID: domain.UserID(name), Username: name, Role: role}
}

func newTestOrchestrator(access AccessChecker, store *fakeStore) *Orchestrator {
	return NewOrchestrator(access, store, store, 50)
}
