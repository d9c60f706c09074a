package sessions

import (
	"context"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRedisRepository_CreateGetDelete(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	repo := NewRedisRepository(client, "test:session:")

	ctx := context.Background()
	s := &Session{
		RefreshToken: "r1",
		UserID:       "user-1",
		ExpiresAt:    time.Now().UTC().Add(5 * time.Second),
	}
	require.NoError(t, repo.Create(ctx, s))
	require.True(t, m.Exists("test:session:r1"))

	got, err := repo.Get(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, s.UserID, got.UserID)
	require.False(t, got.CreatedAt.IsZero())

	require.NoError(t, repo.Delete(ctx, "r1"))
	_, err = repo.Get(ctx, "r1")
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisRepository_TTLExpiry(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	repo := NewRedisRepository(client, "")

	ctx := context.Background()
	s := &Session{
		RefreshToken: "r2",
		UserID:       "user-2",
		ExpiresAt:    time.Now().UTC().Add(1 * time.Second),
	}
	require.NoError(t, repo.Create(ctx, s))
	require.True(t, m.Exists("sociopedia:session:r2"))

	m.FastForward(2 * time.Second)

	_, err = repo.Get(ctx, "r2")
	require.ErrorIs(t, err, ErrSessionNotFound)
}
