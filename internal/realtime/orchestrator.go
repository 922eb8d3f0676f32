package realtime

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mkoval/dealroom/internal/domain"
)

// HistoryStore supplies recent messages for the join snapshot.
type HistoryStore interface {
	History(dealID domain.DealID, limit int) ([]domain.Message, error)
}

const (
	typingRateLimit  = 10
	typingRateWindow = time.Second
)

// Orchestrator is the session lifecycle controller and the single entry
// point transports call into. Connect and Disconnect own the Session;
// everything in between is delegated to the component that owns the
// relevant state.
type Orchestrator struct {
	Registry *Registry
	Rooms    *RoomManager
	Typing   *TypingAggregator
	Messages *MessageRelay
	Signals  *SignalRelay

	history      HistoryStore
	historyLimit int
	typingLimit  *RateLimiter
}

func NewOrchestrator(access AccessChecker, store MessageStore, history HistoryStore, historyLimit int) *Orchestrator {
	registry := NewRegistry()
	rooms := NewRoomManager(access)
	typing := NewTypingAggregator(rooms)
	return &Orchestrator{
		Registry:     registry,
		Rooms:        rooms,
		Typing:       typing,
		Messages:     NewMessageRelay(rooms, typing, store),
		Signals:      NewSignalRelay(registry),
		history:      history,
		historyLimit: historyLimit,
		typingLimit:  NewRateLimiter(typingRateLimit, typingRateWindow),
	}
}

// Connect registers an authenticated connection. A previous session of
// the same user is displaced and closed; its own disconnect cleanup then
// finds the registry already pointing elsewhere and leaves it alone.
func (o *Orchestrator) Connect(user *domain.User, conn Conn) *Session {
	s := NewSession(user, conn)
	if displaced := o.Registry.Register(s); displaced != nil {
		displaced.Close()
	}
	log.Info().Str("module", "realtime").Str("user", string(user.ID)).Str("session", string(s.ID)).Msg("session connected")
	return s
}

// Disconnect tears a session down: registry entry, typing state in every
// room, membership in every broadcast group. Safe to call for a session
// that was already displaced.
func (o *Orchestrator) Disconnect(s *Session) {
	if o.Registry.Unregister(s) {
		o.Typing.ClearUser(s.User.ID)
		o.typingLimit.Forget(s.User.ID)
	}
	o.Rooms.RemoveFromAll(s)
	log.Info().Str("module", "realtime").Str("user", string(s.User.ID)).Str("session", string(s.ID)).Msg("session disconnected")
}

// Join runs the access-checked room join. On success the joining
// connection gets a snapshot of the room and recent messages; on denial
// it gets nothing at all.
func (o *Orchestrator) Join(s *Session, dealID domain.DealID) {
	if !o.Rooms.Join(s, dealID) {
		return
	}
	history, err := o.history.History(dealID, o.historyLimit)
	if err != nil {
		log.Error().Err(err).Str("module", "realtime").Str("deal", string(dealID)).Msg("history load failed")
	}
	_ = s.Send(dealJoinedFrame(dealID, o.Rooms.MembersSnapshot(dealID), history))
}

func (o *Orchestrator) Leave(s *Session, dealID domain.DealID) {
	o.Rooms.Leave(s, dealID)
}

func (o *Orchestrator) Send(s *Session, dealID domain.DealID, content string) {
	o.Messages.Send(s, dealID, content)
}

func (o *Orchestrator) StartTyping(s *Session, dealID domain.DealID) {
	if !o.typingLimit.Allow(s.User.ID) {
		return
	}
	o.Typing.Start(dealID, s)
}

func (o *Orchestrator) StopTyping(s *Session, dealID domain.DealID) {
	o.Typing.Stop(dealID, s)
}

func (o *Orchestrator) Signal(s *Session, kind SignalKind, dealID domain.DealID, target domain.UserID, payload json.RawMessage) {
	o.Signals.Forward(s, kind, dealID, target, payload)
}
