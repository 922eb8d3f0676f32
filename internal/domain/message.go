package domain

import (
	"errors"
	"time"
)

const MaxMessageLen = 1000

var (
	ErrMessageEmpty   = errors.New("message content empty")
	ErrMessageTooLong = errors.New("message content too long")
)

type MessageID string

// Message is a persisted chat message. ID, Seq and CreatedAt are assigned
// by the store; Seq orders messages within one deal.
type Message struct {
	ID        MessageID `json:"id"`
	DealID    DealID    `json:"deal_id"`
	Sender    UserID    `json:"sender"`
	Content   string    `json:"content"`
	Seq       uint64    `json:"seq"`
	CreatedAt time.Time `json:"created_at"`
}

// Receipt marks a message read by one user.
type Receipt struct {
	User   UserID    `json:"user"`
	ReadAt time.Time `json:"read_at"`
}
