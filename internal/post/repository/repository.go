package repository

import (
	"context"
	"errors"

	"github.com/sociopedia/sociopedia/server/internal/post"
)

var (
	ErrNotFound = errors.New("post not found")
)

// Repository is the storage contract behind the post service.
// List and ListByUser return newest first. ToggleLike flips the userID key
// of the likes map and returns the post as stored after the flip.
type Repository interface {
	Create(ctx context.Context, p *post.Post) (string, error)
	Get(ctx context.Context, id string) (*post.Post, error)
	List(ctx context.Context) ([]*post.Post, error)
	ListByUser(ctx context.Context, userID string) ([]*post.Post, error)
	ToggleLike(ctx context.Context, id, userID string) (*post.Post, error)
}
