package sessions

import (
	"errors"
	"time"
)

// ErrSessionNotFound is returned when a refresh token is unknown, expired or revoked.
var ErrSessionNotFound = errors.New("session not found")

// Session is a refresh session issued at login. The refresh token is the lookup key.
type Session struct {
	RefreshToken string    `bson:"refreshToken" json:"refreshToken"`
	UserID       string    `bson:"userId" json:"userId"`
	ExpiresAt    time.Time `bson:"expiresAt" json:"expiresAt"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
}

// Expired reports whether the session is past its expiry at the given instant.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
