// Package domain contains the entities shared across the server, without
// transport or storage logic.
package domain

import (
	"errors"

	"github.com/google/uuid"
)

const MaxUsernameLen = 64

var (
	ErrUsernameEmpty   = errors.New("username empty")
	ErrUsernameTooLong = errors.New("username too long")
)

type UserID string

// Role is the side of the table a user sits on.
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
)

// User is the verified identity the auth layer attaches to a connection.
type User struct {
	ID       UserID `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// NewUser is a tiny helper to avoid ad-hoc struct literals in adapters.
func NewUser(username string, role Role) (*User, error) {
	if len(username) == 0 {
		return nil, ErrUsernameEmpty
	}
	if len(username) > MaxUsernameLen {
		return nil, ErrUsernameTooLong
	}
	return &User{ID: UserID(uuid.NewString()), Username: username, Role: role}, nil
}
