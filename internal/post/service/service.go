package service

import (
	"context"
	"errors"
	"slices"

	"github.com/sociopedia/sociopedia/server/internal/config"
	"github.com/sociopedia/sociopedia/server/internal/models"
	"github.com/sociopedia/sociopedia/server/internal/post"
	"github.com/sociopedia/sociopedia/server/internal/post/repository"
	"github.com/sociopedia/sociopedia/server/internal/users"
	"github.com/sociopedia/sociopedia/server/pkg/logger"
	"github.com/sociopedia/sociopedia/server/pkg/metrics"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrPostNotFound = repository.ErrNotFound
)

// UserLookup resolves the author of a new post. It must return
// users.ErrNotFound for an unknown id.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

type CreateInput struct {
	UserID      string
	Description string
	PicturePath string
}

// Result is the response of a mutating operation: the affected post, or the
// whole collection when a legacy switch asks for it.
type Result struct {
	Post  *post.Post
	Posts []*post.Post
}

// Body is the value to serialise.
func (r Result) Body() interface{} {
	if r.Posts != nil {
		return r.Posts
	}
	return r.Post
}

// Service defines the post operations used by the handler layer.
type Service interface {
	CreatePost(ctx context.Context, in CreateInput) (Result, error)
	GetFeedPosts(ctx context.Context) ([]*post.Post, error)
	GetUserPosts(ctx context.Context, userID string) ([]*post.Post, error)
	LikePost(ctx context.Context, postID, userID string) (Result, error)
}

// New returns a Service over repo. opts selects between the current
// behaviour and the legacy one, switch by switch.
func New(repo repository.Repository, lookup UserLookup, opts config.PostsConfig) Service {
	return &postService{repo: repo, users: lookup, opts: opts}
}

// NewMemoryService returns a Service backed by the in-memory repository.
func NewMemoryService(lookup UserLookup, opts config.PostsConfig) Service {
	return New(repository.NewMemoryRepo(), lookup, opts)
}

// NewMongoService returns a Service backed by a MongoDB collection.
// Caller owns the client and is expected to call EnsureIndexes once.
func NewMongoService(col *mongo.Collection, lookup UserLookup, opts config.PostsConfig) Service {
	return New(repository.NewMongoRepo(col), lookup, opts)
}

type postService struct {
	repo  repository.Repository
	users UserLookup
	opts  config.PostsConfig
}

func (s *postService) CreatePost(ctx context.Context, in CreateInput) (Result, error) {
	p := &post.Post{
		UserID:      in.UserID,
		Description: in.Description,
		PicturePath: in.PicturePath,
	}

	u, err := s.users.GetByID(ctx, in.UserID)
	switch {
	case err == nil:
		p.FirstName = u.FirstName
		p.LastName = u.LastName
		p.Location = u.Location
		p.UserPicturePath = u.PicturePath
	case errors.Is(err, users.ErrNotFound):
		if !s.opts.AllowMissingAuthor {
			return Result{}, ErrUserNotFound
		}
		logger.Warnf("creating post for unknown user %s", in.UserID)
	default:
		return Result{}, err
	}

	if _, err := s.repo.Create(ctx, p); err != nil {
		return Result{}, err
	}
	metrics.PostsCreated.Inc()
	logger.Debugf("post %s created by %s", p.ID, p.UserID)

	if s.opts.ReturnCollectionOnCreate {
		all, err := s.GetFeedPosts(ctx)
		if err != nil {
			return Result{}, err
		}
		return Result{Posts: all}, nil
	}
	return Result{Post: p}, nil
}

func (s *postService) GetFeedPosts(ctx context.Context) ([]*post.Post, error) {
	return s.ordered(s.repo.List(ctx))
}

func (s *postService) GetUserPosts(ctx context.Context, userID string) ([]*post.Post, error) {
	if s.opts.UnfilteredUserPosts {
		return s.GetFeedPosts(ctx)
	}
	return s.ordered(s.repo.ListByUser(ctx, userID))
}

// ordered flips the repositories' newest-first listing when OldestFirst is set.
func (s *postService) ordered(list []*post.Post, err error) ([]*post.Post, error) {
	if err != nil || !s.opts.OldestFirst {
		return list, err
	}
	slices.Reverse(list)
	return list, nil
}

func (s *postService) LikePost(ctx context.Context, postID, userID string) (Result, error) {
	if s.opts.LikeIsNoop {
		all, err := s.GetFeedPosts(ctx)
		if err != nil {
			return Result{}, err
		}
		return Result{Posts: all}, nil
	}

	p, err := s.repo.ToggleLike(ctx, postID, userID)
	if err != nil {
		return Result{}, err
	}
	state := "unliked"
	if p.Liked(userID) {
		state = "liked"
	}
	metrics.LikesToggled.WithLabelValues(state).Inc()
	return Result{Post: p}, nil
}
