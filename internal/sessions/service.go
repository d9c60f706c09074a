package sessions

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// Service issues, validates and revokes refresh sessions.
type Service struct {
	repo Repository
	ttl  time.Duration
}

func NewService(r Repository, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Service{repo: r, ttl: ttl}
}

// Create stores a new refresh session for the user and returns the refresh token.
func (s *Service) Create(ctx context.Context, userID string) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	now := time.Now().UTC()
	sess := &Session{
		RefreshToken: hex.EncodeToString(b),
		UserID:       userID,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.ttl),
	}
	if err := s.repo.Create(ctx, sess); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return sess.RefreshToken, nil
}

// Validate returns the live session for a refresh token, or ErrSessionNotFound.
func (s *Service) Validate(ctx context.Context, refresh string) (*Session, error) {
	sess, err := s.repo.Get(ctx, refresh)
	if err != nil {
		return nil, err
	}
	if sess.Expired(time.Now().UTC()) {
		_ = s.repo.Delete(ctx, refresh)
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Revoke deletes a refresh session. Unknown tokens are not an error.
func (s *Service) Revoke(ctx context.Context, refresh string) error {
	if err := s.repo.Delete(ctx, refresh); err != nil && !errors.Is(err, ErrSessionNotFound) {
		return err
	}
	return nil
}
