// Package realtime is the negotiation core: connection registry, room
// membership, typing aggregation, message relay and call signaling. It
// talks to transports through the Conn interface and to storage through
// the narrow collaborator interfaces defined next to each component.
package realtime

import (
	"github.com/google/uuid"

	"github.com/mkoval/dealroom/internal/domain"
)

// Frame is a marshaled outbound event.
type Frame []byte

// Conn is the transport endpoint of one live connection. Owned by the
// adapter; the adapter must Close it. TrySend must not block.
type Conn interface {
	TrySend(Frame) error
	Close()
}

type SessionID string

// Session binds a verified user to its transport endpoint. Created on
// connect, destroyed on disconnect; a reconnect is a brand-new Session.
type Session struct {
	ID   SessionID
	User *domain.User
	conn Conn
}

func NewSession(user *domain.User, conn Conn) *Session {
	return &Session{
		ID:   SessionID(uuid.NewString()),
		User: user,
		conn: conn,
	}
}

func (s *Session) Send(f Frame) error {
	return s.conn.TrySend(f)
}

func (s *Session) Close() {
	s.conn.Close()
}
