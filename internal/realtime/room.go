package realtime

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/mkoval/dealroom/internal/domain"
)

// AccessChecker resolves whether a user is a current participant of a
// deal. Implementations must reflect the latest record, never a cached
// one: a seller can be assigned after the deal is created.
type AccessChecker interface {
	Authorize(dealID domain.DealID, user domain.UserID) (bool, error)
}

// PublishResult reports delivery stats/backpressure to the caller.
type PublishResult struct {
	SentTo  int
	Dropped []*Session
}

// MemberDTO is a read-only view for APIs (no transport fields).
type MemberDTO struct {
	ID       domain.UserID `json:"id"`
	Username string        `json:"username"`
	Role     domain.Role   `json:"role"`
}

type RoomInfo struct {
	Deal        domain.DealID `json:"deal"`
	MemberCount int           `json:"member_count"`
}

// RoomManager owns the deal-id -> member-set mapping. Join re-validates
// access on every call and drops unauthorized requests silently: a
// non-participant learns nothing, not even whether the deal exists.
type RoomManager struct {
	mu     sync.RWMutex
	rooms  map[domain.DealID]map[SessionID]*Session
	access AccessChecker
}

func NewRoomManager(access AccessChecker) *RoomManager {
	return &RoomManager{
		rooms:  make(map[domain.DealID]map[SessionID]*Session),
		access: access,
	}
}

// Authorize is the shared fail-closed access check: false on denial, on a
// missing deal and on a checker failure alike. Join and the message relay
// both go through here so revoked access is never trusted from state.
func (m *RoomManager) Authorize(dealID domain.DealID, user domain.UserID) bool {
	ok, err := m.access.Authorize(dealID, user)
	if err != nil {
		log.Error().Err(err).Str("module", "realtime.rooms").Str("deal", string(dealID)).Msg("access check failed")
		return false
	}
	return ok
}

// Join adds the session to the deal's broadcast group after an access
// check. Returns false on silent denial.
func (m *RoomManager) Join(s *Session, dealID domain.DealID) bool {
	if !m.Authorize(dealID, s.User.ID) {
		log.Debug().Str("module", "realtime.rooms").Str("deal", string(dealID)).Str("user", string(s.User.ID)).Msg("join denied")
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[dealID]
	if !ok {
		room = make(map[SessionID]*Session)
		m.rooms[dealID] = room
	}
	room[s.ID] = s
	log.Info().Str("module", "realtime.rooms").Str("deal", string(dealID)).Str("user", string(s.User.ID)).Msg("member joined")
	return true
}

// Leave removes the session from the group. Idempotent: leaving a room
// the session never joined is a no-op.
func (m *RoomManager) Leave(s *Session, dealID domain.DealID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(s, dealID)
}

// RemoveFromAll clears the session out of every broadcast group. Called
// on disconnect so no further broadcast can reach the connection.
func (m *RoomManager) RemoveFromAll(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for dealID := range m.rooms {
		m.removeLocked(s, dealID)
	}
}

func (m *RoomManager) removeLocked(s *Session, dealID domain.DealID) {
	room, ok := m.rooms[dealID]
	if !ok {
		return
	}
	if _, ok := room[s.ID]; !ok {
		return
	}
	delete(room, s.ID)
	if len(room) == 0 {
		delete(m.rooms, dealID)
	}
	log.Info().Str("module", "realtime.rooms").Str("deal", string(dealID)).Str("user", string(s.User.ID)).Msg("member left")
}

// Broadcast fans a frame out to every member of the deal's group, except
// the one session named by except (zero value: nobody is excluded).
// Members whose send buffer is full are closed: a consumer that cannot
// keep up is torn down through the normal disconnect path.
func (m *RoomManager) Broadcast(dealID domain.DealID, except SessionID, f Frame) PublishResult {
	m.mu.RLock()
	res := PublishResult{}
	for sid, member := range m.rooms[dealID] {
		if sid == except {
			continue
		}
		if err := member.Send(f); err != nil {
			res.Dropped = append(res.Dropped, member)
			continue
		}
		res.SentTo++
	}
	m.mu.RUnlock()

	for _, slow := range res.Dropped {
		log.Warn().Str("module", "realtime.rooms").Str("deal", string(dealID)).Str("user", string(slow.User.ID)).Msg("backpressure, closing member")
		slow.Close()
	}
	return res
}

func (m *RoomManager) MemberCount(dealID domain.DealID) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms[dealID])
}

func (m *RoomManager) MembersSnapshot(dealID domain.DealID) []MemberDTO {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]MemberDTO, 0, len(m.rooms[dealID]))
	for _, member := range m.rooms[dealID] {
		u := member.User
		out = append(out, MemberDTO{ID: u.ID, Username: u.Username, Role: u.Role})
	}
	return out
}

func (m *RoomManager) List() []RoomInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]RoomInfo, 0, len(m.rooms))
	for dealID, room := range m.rooms {
		out = append(out, RoomInfo{Deal: dealID, MemberCount: len(room)})
	}
	return out
}
