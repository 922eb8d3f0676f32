package realtime

import (
	"sync"

	"github.com/samber/lo"

	"github.com/mkoval/dealroom/internal/domain"
)

// Broadcaster is the slice of the room manager the aggregator needs.
type Broadcaster interface {
	Broadcast(dealID domain.DealID, except SessionID, f Frame) PublishResult
}

// TypingAggregator keeps the per-deal set of users currently typing and
// pushes deduplicated snapshots to the room. A user is either in a
// deal's set or not; start and stop are idempotent.
type TypingAggregator struct {
	mu     sync.Mutex
	byDeal map[domain.DealID]map[domain.UserID]struct{}
	rooms  Broadcaster
}

func NewTypingAggregator(rooms Broadcaster) *TypingAggregator {
	return &TypingAggregator{
		byDeal: make(map[domain.DealID]map[domain.UserID]struct{}),
		rooms:  rooms,
	}
}

// Start marks the actor as typing. The snapshot goes to everyone else in
// the room; the actor's own connection is skipped, since a user need not
// be told it is typing.
func (t *TypingAggregator) Start(dealID domain.DealID, actor *Session) {
	t.mu.Lock()
	set, ok := t.byDeal[dealID]
	if !ok {
		set = make(map[domain.UserID]struct{})
		t.byDeal[dealID] = set
	}
	set[actor.User.ID] = struct{}{}
	users := t.snapshotLocked(dealID, "")
	t.mu.Unlock()

	t.rooms.Broadcast(dealID, actor.ID, userTypingFrame(dealID, users))
}

// Stop removes the actor from the set (no-op if absent) and sends the
// authoritative remaining set to the whole room.
func (t *TypingAggregator) Stop(dealID domain.DealID, actor *Session) {
	t.mu.Lock()
	t.removeLocked(dealID, actor.User.ID)
	users := t.snapshotLocked(dealID, "")
	t.mu.Unlock()

	t.rooms.Broadcast(dealID, "", userTypingFrame(dealID, users))
}

// ClearUser drops the identity from every deal's set it belongs to and
// broadcasts one update per affected room. Invoked on disconnect.
func (t *TypingAggregator) ClearUser(user domain.UserID) []domain.DealID {
	t.mu.Lock()
	var affected []domain.DealID
	snapshots := make(map[domain.DealID][]domain.UserID)
	for dealID, set := range t.byDeal {
		if _, ok := set[user]; !ok {
			continue
		}
		t.removeLocked(dealID, user)
		affected = append(affected, dealID)
		snapshots[dealID] = t.snapshotLocked(dealID, "")
	}
	t.mu.Unlock()

	for _, dealID := range affected {
		t.rooms.Broadcast(dealID, "", userTypingFrame(dealID, snapshots[dealID]))
	}
	return affected
}

// Typing returns the current set for a deal, for introspection and tests.
func (t *TypingAggregator) Typing(dealID domain.DealID) []domain.UserID {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked(dealID, "")
}

func (t *TypingAggregator) removeLocked(dealID domain.DealID, user domain.UserID) {
	set, ok := t.byDeal[dealID]
	if !ok {
		return
	}
	delete(set, user)
	if len(set) == 0 {
		delete(t.byDeal, dealID)
	}
}

// snapshotLocked lists the deal's typing users, excluding one identity
// (empty: exclude nobody). Caller holds the mutex.
func (t *TypingAggregator) snapshotLocked(dealID domain.DealID, exclude domain.UserID) []domain.UserID {
	return lo.Filter(lo.Keys(t.byDeal[dealID]), func(id domain.UserID, _ int) bool {
		return id != exclude
	})
}
