// Package auth verifies connection credentials and turns them into a
// domain.User before any realtime operation is accepted.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mkoval/dealroom/internal/domain"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims is the data carried inside a signed token.
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Verifier validates bearer tokens with an HMAC secret.
type Verifier struct {
	secret []byte
	ttl    time.Duration
}

func NewVerifier(secret string, ttl time.Duration) *Verifier {
	return &Verifier{secret: []byte(secret), ttl: ttl}
}

// Mint creates a signed token for a user. Used by tests and by whatever
// login surface sits in front of this server.
func (v *Verifier) Mint(user *domain.User) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:   string(user.ID),
		Username: user.Username,
		Role:     string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(v.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "dealroom",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}

// Verify parses and validates a token string and returns the identity it
// carries. Signature, expiry and signing method are all checked.
func (v *Verifier) Verify(tokenString string) (*domain.User, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return &domain.User{
		ID:       domain.UserID(claims.UserID),
		Username: claims.Username,
		Role:     domain.Role(claims.Role),
	}, nil
}
